package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessSubmitFeedback = "corrections recorded"
	MessageSuccessGetFeedback    = "correction history retrieved"
	MessageFailedSubmitFeedback  = "failed to record corrections"
	MessageFailedGetFeedback     = "failed to get correction history"

	ErrUnknownFieldName = errors.New("unknown field name")
	ErrEmptyCorrections = errors.New("no corrections submitted")
)

type CorrectionEntry struct {
	FieldName      string `json:"field_name" validate:"required"`
	CorrectedValue string `json:"corrected_value" validate:"required"`
}

type SubmitFeedbackRequest struct {
	Corrections []CorrectionEntry `json:"corrections" validate:"required,min=1,dive"`
}

// CorrectionResult reports per-entry validation outcome; a batch commits
// its valid entries even when others fail.
type CorrectionResult struct {
	FieldName string `json:"field_name"`
	Accepted  bool   `json:"accepted"`
	ErrorCode string `json:"error_code,omitempty"`
}

type SubmitFeedbackResponse struct {
	FeedbackBatchID string             `json:"feedback_batch_id"`
	Results         []CorrectionResult `json:"results"`
}

type CorrectionRecord struct {
	FieldName      string    `json:"field_name"`
	OriginalValue  string    `json:"original_value"`
	CorrectedValue string    `json:"corrected_value"`
	Implicit       bool      `json:"implicit"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type FeedbackHistoryResponse struct {
	JobID       string             `json:"job_id"`
	Corrections []CorrectionRecord `json:"corrections"`
}
