package entities

import (
	"time"

	"github.com/google/uuid"
)

// FieldCorrection is one user-supplied replacement value for one extracted
// field. Rows are append-only training data: they reference the job by ID
// without a foreign key so deleting the job never cascades here.
type FieldCorrection struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	BatchID        uuid.UUID `gorm:"type:uuid;index" json:"batch_id"`
	JobID          uuid.UUID `gorm:"type:uuid;index" json:"job_id"`
	FieldName      string    `json:"field_name"`
	OriginalValue  string    `json:"original_value"`
	CorrectedValue string    `json:"corrected_value"`
	Implicit       bool      `json:"implicit"`
	SubmittedBy    uuid.UUID `gorm:"type:uuid" json:"submitted_by"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
