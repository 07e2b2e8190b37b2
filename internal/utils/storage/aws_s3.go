package storage

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/internal/utils"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var AllowImage = []string{".jpg", ".jpeg", ".png", ".webp"}

type (
	// AwsS3 is the image store: receipt images go in by opaque key and come
	// back out by the same key, or via a short-lived signed URL for clients.
	AwsS3 interface {
		UploadFile(fileName string, file *multipart.FileHeader, dir string, allowedTypes ...string) (string, error)
		GetFile(ctx context.Context, objectKey string) ([]byte, error)
		PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
		DeleteFile(objectKey string) error
	}

	awsS3 struct {
		client  *s3.Client
		presign *s3.PresignClient
		bucket  string
	}
)

func NewAwsS3() AwsS3 {
	region := utils.GetConfig("AWS_S3_REGION")
	creds := credentials.NewStaticCredentialsProvider(
		utils.GetConfig("AWS_ACCESS_KEY"),
		utils.GetConfig("AWS_SECRET_KEY"),
		"",
	)

	cfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to load AWS config: %v", err))
	}

	client := s3.NewFromConfig(cfg)
	return &awsS3{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  utils.GetConfig("AWS_S3_BUCKET"),
	}
}

func (a *awsS3) UploadFile(fileName string, file *multipart.FileHeader, dir string, allowedTypes ...string) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if len(allowedTypes) > 0 {
		allowed := false
		for _, t := range allowedTypes {
			if ext == t {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", domain.ErrUnsupportedImage
		}
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("%s/%s%s", dir, fileName, ext)
	_, err = a.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(file.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	return objectKey, nil
}

func (a *awsS3) GetFile(ctx context.Context, objectKey string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, domain.ErrImageNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (a *awsS3) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return req.URL, nil
}

func (a *awsS3) DeleteFile(objectKey string) error {
	_, err := a.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}
