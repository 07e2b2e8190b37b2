package extraction

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"SpendSnap-Backend/internal/utils/storage"
	"SpendSnap-Backend/pkg/budget"
	"SpendSnap-Backend/pkg/expense"
	"SpendSnap-Backend/pkg/feedback"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// estimatedCompletionSeconds is the completion hint returned on upload; it is
// a UX number, not a promise.
const estimatedCompletionSeconds = 30

const resultURLExpiry = 15 * time.Minute

type (
	ExtractionService interface {
		UploadReceipt(ctx context.Context, file *multipart.FileHeader, userID string) (domain.UploadReceiptResponse, error)
		GetJobStatus(ctx context.Context, jobID string, userID string) (domain.JobStatusResponse, error)
		GetJobResult(ctx context.Context, jobID string, userID string) (domain.JobResultResponse, error)

		// Accept finalizes a processed job into a ledger entry. Accepting an
		// already accepted job returns the existing entry unchanged.
		Accept(ctx context.Context, jobID string, userID string, req domain.AcceptJobRequest) (domain.AcceptJobResponse, error)
		Reject(ctx context.Context, jobID string, userID string) (domain.RejectJobResponse, error)
		Retry(ctx context.Context, jobID string, userID string) (domain.RetryJobResponse, error)
	}

	extractionService struct {
		jobRepository   JobRepository
		imageStore      storage.AwsS3
		expenseService  expense.ExpenseService
		feedbackService feedback.FeedbackService
		budgetService   budget.BudgetService
		retryLimit      int
	}
)

func NewExtractionService(
	jobRepository JobRepository,
	imageStore storage.AwsS3,
	expenseService expense.ExpenseService,
	feedbackService feedback.FeedbackService,
	budgetService budget.BudgetService,
	retryLimit int,
) ExtractionService {
	return &extractionService{
		jobRepository:   jobRepository,
		imageStore:      imageStore,
		expenseService:  expenseService,
		feedbackService: feedbackService,
		budgetService:   budgetService,
		retryLimit:      retryLimit,
	}
}

func (s *extractionService) UploadReceipt(ctx context.Context, file *multipart.FileHeader, userID string) (domain.UploadReceiptResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.UploadReceiptResponse{}, domain.ErrParseUUID
	}

	jobID := uuid.New()
	objectKey, err := s.imageStore.UploadFile(jobID.String(), file, "receipts", storage.AllowImage...)
	if err != nil {
		return domain.UploadReceiptResponse{}, err
	}

	job := &entities.ExtractionJob{
		ID:       jobID,
		UserID:   userUUID,
		ImageKey: objectKey,
		Status:   entities.JobStatusPending,
	}
	if err := s.jobRepository.Create(ctx, job); err != nil {
		// the job row is the source of truth; an orphaned image is cheap,
		// an untracked job is not
		_ = s.imageStore.DeleteFile(objectKey)
		return domain.UploadReceiptResponse{}, err
	}

	return domain.UploadReceiptResponse{
		JobID:                      jobID.String(),
		Status:                     string(entities.JobStatusPending),
		EstimatedCompletionSeconds: estimatedCompletionSeconds,
	}, nil
}

func (s *extractionService) GetJobStatus(ctx context.Context, jobID string, userID string) (domain.JobStatusResponse, error) {
	job, err := s.ownedJob(ctx, jobID, userID)
	if err != nil {
		return domain.JobStatusResponse{}, err
	}

	return domain.JobStatusResponse{
		JobID:   job.ID.String(),
		Status:  string(job.Status),
		Message: statusMessage(job),
	}, nil
}

func (s *extractionService) GetJobResult(ctx context.Context, jobID string, userID string) (domain.JobResultResponse, error) {
	job, err := s.ownedJob(ctx, jobID, userID)
	if err != nil {
		return domain.JobResultResponse{}, err
	}
	if !job.Status.HasFields() {
		return domain.JobResultResponse{}, domain.ErrInvalidState
	}

	var record domain.CandidateRecord
	if err := json.Unmarshal(job.Fields, &record); err != nil {
		return domain.JobResultResponse{}, domain.ErrFieldsMissing
	}

	resp := domain.JobResultResponse{
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		Fields:    &record,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}

	// a dead link must not block the review flow
	if url, err := s.imageStore.PresignedURL(ctx, job.ImageKey, resultURLExpiry); err == nil {
		resp.ImageURL = url
	}
	return resp, nil
}

func (s *extractionService) Accept(ctx context.Context, jobID string, userID string, req domain.AcceptJobRequest) (domain.AcceptJobResponse, error) {
	job, err := s.ownedJob(ctx, jobID, userID)
	if err != nil {
		return domain.AcceptJobResponse{}, err
	}

	if job.Status == entities.JobStatusAccepted {
		return s.existingAccept(ctx, job)
	}
	if job.Status != entities.JobStatusProcessed {
		return domain.AcceptJobResponse{}, domain.ErrInvalidState
	}

	var record domain.CandidateRecord
	if err := json.Unmarshal(job.Fields, &record); err != nil {
		return domain.AcceptJobResponse{}, domain.ErrFieldsMissing
	}

	if err := s.applyOverrides(ctx, job, &record, req.Overrides); err != nil {
		return domain.AcceptJobResponse{}, err
	}

	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		parsed, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return domain.AcceptJobResponse{}, domain.ErrParseUUID
		}
		categoryID = &parsed
	}

	// ledger first: a failed commit leaves the job processed and the
	// accept repeatable, never an accepted job without an expense
	committed, err := s.expenseService.CommitJob(ctx, job, &record, categoryID, req.Notes)
	if err != nil {
		return domain.AcceptJobResponse{}, err
	}

	fields, err := json.Marshal(&record)
	if err != nil {
		return domain.AcceptJobResponse{}, domain.ErrFieldsMissing
	}

	ok, err := s.jobRepository.MarkReviewed(ctx, job.ID, entities.JobStatusAccepted, fields)
	if err != nil {
		return domain.AcceptJobResponse{}, err
	}
	if !ok {
		// lost a concurrent review race; the unique source_job_id index
		// guarantees committed is the single ledger row either way
		current, err := s.jobRepository.GetByID(ctx, job.ID)
		if err != nil || current.Status != entities.JobStatusAccepted {
			return domain.AcceptJobResponse{}, domain.ErrInvalidState
		}
	}

	s.budgetService.EvaluateThresholds(ctx, job.UserID, committed.TransactionDate)

	return domain.AcceptJobResponse{
		JobID:     job.ID.String(),
		ExpenseID: committed.ID.String(),
		Status:    string(entities.JobStatusAccepted),
	}, nil
}

func (s *extractionService) Reject(ctx context.Context, jobID string, userID string) (domain.RejectJobResponse, error) {
	job, err := s.ownedJob(ctx, jobID, userID)
	if err != nil {
		return domain.RejectJobResponse{}, err
	}

	if job.Status == entities.JobStatusRejected {
		return domain.RejectJobResponse{JobID: job.ID.String(), Status: string(job.Status)}, nil
	}
	if job.Status != entities.JobStatusProcessed {
		return domain.RejectJobResponse{}, domain.ErrInvalidState
	}

	ok, err := s.jobRepository.MarkReviewed(ctx, job.ID, entities.JobStatusRejected, nil)
	if err != nil {
		return domain.RejectJobResponse{}, err
	}
	if !ok {
		return domain.RejectJobResponse{}, domain.ErrInvalidState
	}

	return domain.RejectJobResponse{
		JobID:  job.ID.String(),
		Status: string(entities.JobStatusRejected),
	}, nil
}

func (s *extractionService) Retry(ctx context.Context, jobID string, userID string) (domain.RetryJobResponse, error) {
	job, err := s.ownedJob(ctx, jobID, userID)
	if err != nil {
		return domain.RetryJobResponse{}, err
	}

	if job.Status != entities.JobStatusError {
		return domain.RetryJobResponse{}, domain.ErrInvalidState
	}
	// a bad or missing image stays that way; re-running the provider
	// cannot fix it
	if job.ErrorReason == "unsupported_image" || job.ErrorReason == "image_not_found" {
		return domain.RetryJobResponse{}, domain.ErrInvalidState
	}
	if job.RetryCount >= s.retryLimit {
		return domain.RetryJobResponse{}, domain.ErrRetryLimitReached
	}

	ok, err := s.jobRepository.Requeue(ctx, job.ID, s.retryLimit)
	if err != nil {
		return domain.RetryJobResponse{}, err
	}
	if !ok {
		return domain.RetryJobResponse{}, domain.ErrRetryLimitReached
	}

	return domain.RetryJobResponse{
		JobID:      job.ID.String(),
		Status:     string(entities.JobStatusPending),
		RetryCount: job.RetryCount + 1,
	}, nil
}

func (s *extractionService) ownedJob(ctx context.Context, jobID string, userID string) (*entities.ExtractionJob, error) {
	jobUUID, err := uuid.Parse(jobID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	job, err := s.jobRepository.GetByID(ctx, jobUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	if job.UserID != userUUID {
		return nil, domain.ErrUnauthorizedAccess
	}
	return job, nil
}

func (s *extractionService) existingAccept(ctx context.Context, job *entities.ExtractionJob) (domain.AcceptJobResponse, error) {
	committed, err := s.expenseService.FindForJob(ctx, job.ID)
	if err != nil {
		return domain.AcceptJobResponse{}, err
	}
	return domain.AcceptJobResponse{
		JobID:     job.ID.String(),
		ExpenseID: committed.ID.String(),
		Status:    string(entities.JobStatusAccepted),
	}, nil
}

// applyOverrides replaces extracted values with the user's corrections and
// records each real change as implicit feedback. An override equal to the
// extracted value teaches nothing and is skipped.
func (s *extractionService) applyOverrides(ctx context.Context, job *entities.ExtractionJob, record *domain.CandidateRecord, overrides map[string]string) error {
	for name, value := range overrides {
		current, ok := record.FieldByName(name)
		if !ok {
			return domain.ErrUnknownFieldName
		}

		original := ""
		if current.Value != nil {
			original = *current.Value
		}
		if original != value {
			if err := s.feedbackService.RecordImplicit(ctx, job.ID, job.UserID, name, original, value); err != nil {
				return err
			}
		}

		corrected := value
		fv := domain.FieldValue{Value: &corrected, Confidence: 1.0}
		switch name {
		case domain.FieldMerchantName:
			record.MerchantName = fv
		case domain.FieldTransactionDate:
			record.TransactionDate = fv
		case domain.FieldTotalAmount:
			record.TotalAmount = fv
		case domain.FieldPaymentMethod:
			record.PaymentMethod = fv
		}
	}
	return nil
}

func statusMessage(job *entities.ExtractionJob) string {
	switch job.Status {
	case entities.JobStatusPending:
		return "queued for extraction"
	case entities.JobStatusProcessing:
		return "extraction in progress"
	case entities.JobStatusProcessed:
		return "ready for review"
	case entities.JobStatusError:
		if job.ErrorReason != "" {
			return "extraction failed: " + job.ErrorReason
		}
		return "extraction failed"
	case entities.JobStatusAccepted:
		return "accepted into expense ledger"
	case entities.JobStatusRejected:
		return "rejected by user"
	default:
		return string(job.Status)
	}
}
