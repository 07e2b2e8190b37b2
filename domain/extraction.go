package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical field identifiers for an extraction job. Field names submitted
// from outside (corrections, accept overrides) must resolve to one of these
// or to a line-item sub-field addressed as items[i].<subfield>.
const (
	FieldMerchantName    = "merchant_name"
	FieldTransactionDate = "transaction_date"
	FieldTotalAmount     = "total_amount"
	FieldPaymentMethod   = "payment_method"
)

// FieldsSchemaVersion tags serialized candidate records so historical jobs
// can be reinterpreted after extractor changes.
const FieldsSchemaVersion = 1

var (
	MessageSuccessUploadReceipt = "receipt uploaded, extraction scheduled"
	MessageSuccessJobStatus     = "job status retrieved"
	MessageSuccessJobResult     = "extraction result retrieved"
	MessageSuccessAcceptJob     = "extraction accepted"
	MessageSuccessRejectJob     = "extraction rejected"
	MessageSuccessRetryJob      = "extraction re-queued"
	MessageFailedUploadReceipt  = "failed to upload receipt"
	MessageFailedJobStatus      = "failed to get job status"
	MessageFailedJobResult      = "failed to get extraction result"
	MessageFailedAcceptJob      = "failed to accept extraction"
	MessageFailedRejectJob      = "failed to reject extraction"
	MessageFailedRetryJob       = "failed to retry extraction"

	ErrJobNotFound       = errors.New("extraction job not found")
	ErrInvalidState      = errors.New("operation not legal for current job status")
	ErrRetryLimitReached = errors.New("retry limit reached")
	ErrJobAlreadyClaimed = errors.New("job already claimed by another worker")
	ErrFieldsMissing     = errors.New("job has no extracted fields")
	ErrExtractionTimeout = errors.New("extraction timed out")
)

// FieldValue is one extracted canonical field. Value is nil when the raw
// OCR text could not be normalized; Confidence is then zero.
type FieldValue struct {
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

type LineItemCandidate struct {
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Confidence float64         `json:"confidence"`
}

// CandidateRecord is the normalized, confidence-scored output of the field
// extractor, persisted as the job's fields payload.
type CandidateRecord struct {
	SchemaVersion   int                 `json:"schema_version"`
	MerchantName    FieldValue          `json:"merchant_name"`
	TransactionDate FieldValue          `json:"transaction_date"`
	TotalAmount     FieldValue          `json:"total_amount"`
	PaymentMethod   FieldValue          `json:"payment_method"`
	LineItems       []LineItemCandidate `json:"line_items"`
}

// FieldByName returns the canonical field with the given name, if any.
func (r *CandidateRecord) FieldByName(name string) (FieldValue, bool) {
	switch name {
	case FieldMerchantName:
		return r.MerchantName, true
	case FieldTransactionDate:
		return r.TransactionDate, true
	case FieldTotalAmount:
		return r.TotalAmount, true
	case FieldPaymentMethod:
		return r.PaymentMethod, true
	}
	return FieldValue{}, false
}

// FieldGuess is one provider-supplied structured guess with its raw value.
type FieldGuess struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ProviderOutput is the raw result of one OCR provider call. It is retained
// verbatim on the job for audit and retraining.
type ProviderOutput struct {
	SchemaVersion      int          `json:"schema_version"`
	RawText            string       `json:"raw_text"`
	Guesses            []FieldGuess `json:"structured_guesses"`
	ProviderConfidence float64      `json:"provider_confidence"`
}

type UploadReceiptResponse struct {
	JobID                      string `json:"job_id"`
	Status                     string `json:"status"`
	EstimatedCompletionSeconds int    `json:"estimated_completion_seconds"`
}

type JobStatusResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type JobResultResponse struct {
	JobID     string           `json:"job_id"`
	Status    string           `json:"status"`
	ImageURL  string           `json:"image_url,omitempty"`
	Fields    *CandidateRecord `json:"fields"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type AcceptJobRequest struct {
	CategoryID string            `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Overrides  map[string]string `json:"overrides,omitempty"`
	Notes      string            `json:"notes,omitempty"`
}

type AcceptJobResponse struct {
	JobID     string `json:"job_id"`
	ExpenseID string `json:"expense_id"`
	Status    string `json:"status"`
}

type RejectJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type RetryJobResponse struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
}
