package ocr

import (
	"SpendSnap-Backend/domain"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

type (
	// Provider analyzes one receipt image and returns the raw text plus the
	// provider's structured field guesses with per-field confidence.
	Provider interface {
		Analyze(ctx context.Context, image []byte, contentType string) (*domain.ProviderOutput, error)
	}

	httpProvider struct {
		endpoint string
		client   *http.Client
	}
)

// NewHTTPProvider talks to an OCR service over multipart HTTP. The overall
// deadline comes from the caller's context; the client timeout is only a
// safety net for a missing deadline.
func NewHTTPProvider(endpoint string, timeout time.Duration) Provider {
	return &httpProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *httpProvider) Analyze(ctx context.Context, image []byte, contentType string) (*domain.ProviderOutput, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "receipt")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	if _, err = part.Write(image); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.ErrExtractionTimeout
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrProviderQuota
	case resp.StatusCode == http.StatusUnsupportedMediaType,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, domain.ErrUnsupportedImage
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s - %s", domain.ErrProvider, resp.Status, string(detail))
	}

	var out domain.ProviderOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrProvider, err)
	}
	if out.SchemaVersion == 0 {
		out.SchemaVersion = domain.FieldsSchemaVersion
	}
	return &out, nil
}
