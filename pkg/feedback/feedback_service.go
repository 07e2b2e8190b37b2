package feedback

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	// JobReader is the slice of the job store the collector needs; the
	// extraction repository satisfies it.
	JobReader interface {
		GetByID(ctx context.Context, id uuid.UUID) (*entities.ExtractionJob, error)
	}

	FeedbackService interface {
		SubmitCorrections(ctx context.Context, jobID string, userID string, req domain.SubmitFeedbackRequest) (domain.SubmitFeedbackResponse, error)
		GetHistory(ctx context.Context, jobID string, userID string) (domain.FeedbackHistoryResponse, error)

		// RecordImplicit appends a correction derived from an accept
		// override that differed from the extracted value.
		RecordImplicit(ctx context.Context, jobID, userID uuid.UUID, fieldName, originalValue, correctedValue string) error
	}

	feedbackService struct {
		feedbackRepository FeedbackRepository
		jobs               JobReader
	}
)

var reItemField = regexp.MustCompile(`^items\[(\d+)\]\.(name|quantity|unit_price|total_price)$`)

func NewFeedbackService(feedbackRepository FeedbackRepository, jobs JobReader) FeedbackService {
	return &feedbackService{
		feedbackRepository: feedbackRepository,
		jobs:               jobs,
	}
}

func (s *feedbackService) SubmitCorrections(ctx context.Context, jobID string, userID string, req domain.SubmitFeedbackRequest) (domain.SubmitFeedbackResponse, error) {
	if len(req.Corrections) == 0 {
		return domain.SubmitFeedbackResponse{}, domain.ErrEmptyCorrections
	}

	jobUUID, err := uuid.Parse(jobID)
	if err != nil {
		return domain.SubmitFeedbackResponse{}, domain.ErrParseUUID
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.SubmitFeedbackResponse{}, domain.ErrParseUUID
	}

	job, err := s.jobs.GetByID(ctx, jobUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SubmitFeedbackResponse{}, domain.ErrJobNotFound
		}
		return domain.SubmitFeedbackResponse{}, err
	}
	if job.UserID != userUUID {
		return domain.SubmitFeedbackResponse{}, domain.ErrUnauthorizedAccess
	}
	if !job.Status.HasFields() {
		return domain.SubmitFeedbackResponse{}, domain.ErrInvalidState
	}

	var record domain.CandidateRecord
	if err := json.Unmarshal(job.Fields, &record); err != nil {
		return domain.SubmitFeedbackResponse{}, domain.ErrFieldsMissing
	}

	batchID := uuid.New()
	now := time.Now()
	results := make([]domain.CorrectionResult, 0, len(req.Corrections))
	var rows []*entities.FieldCorrection

	// each entry is validated on its own; one bad field name must not
	// discard the rest of the batch
	for _, entry := range req.Corrections {
		original, ok := resolveOriginalValue(&record, entry.FieldName)
		if !ok {
			results = append(results, domain.CorrectionResult{
				FieldName: entry.FieldName,
				Accepted:  false,
				ErrorCode: domain.CodeValidationError,
			})
			continue
		}

		rows = append(rows, &entities.FieldCorrection{
			ID:             uuid.New(),
			BatchID:        batchID,
			JobID:          jobUUID,
			FieldName:      entry.FieldName,
			OriginalValue:  original,
			CorrectedValue: entry.CorrectedValue,
			SubmittedBy:    userUUID,
			SubmittedAt:    now,
		})
		results = append(results, domain.CorrectionResult{FieldName: entry.FieldName, Accepted: true})
	}

	if err := s.feedbackRepository.Append(ctx, rows); err != nil {
		return domain.SubmitFeedbackResponse{}, err
	}

	return domain.SubmitFeedbackResponse{
		FeedbackBatchID: batchID.String(),
		Results:         results,
	}, nil
}

func (s *feedbackService) GetHistory(ctx context.Context, jobID string, userID string) (domain.FeedbackHistoryResponse, error) {
	jobUUID, err := uuid.Parse(jobID)
	if err != nil {
		return domain.FeedbackHistoryResponse{}, domain.ErrParseUUID
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.FeedbackHistoryResponse{}, domain.ErrParseUUID
	}

	job, err := s.jobs.GetByID(ctx, jobUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.FeedbackHistoryResponse{}, domain.ErrJobNotFound
		}
		return domain.FeedbackHistoryResponse{}, err
	}
	if job.UserID != userUUID {
		return domain.FeedbackHistoryResponse{}, domain.ErrUnauthorizedAccess
	}

	corrections, err := s.feedbackRepository.ListByJob(ctx, jobUUID)
	if err != nil {
		return domain.FeedbackHistoryResponse{}, err
	}

	records := make([]domain.CorrectionRecord, 0, len(corrections))
	for _, c := range corrections {
		records = append(records, domain.CorrectionRecord{
			FieldName:      c.FieldName,
			OriginalValue:  c.OriginalValue,
			CorrectedValue: c.CorrectedValue,
			Implicit:       c.Implicit,
			SubmittedAt:    c.SubmittedAt,
		})
	}

	return domain.FeedbackHistoryResponse{JobID: jobID, Corrections: records}, nil
}

func (s *feedbackService) RecordImplicit(ctx context.Context, jobID, userID uuid.UUID, fieldName, originalValue, correctedValue string) error {
	return s.feedbackRepository.Append(ctx, []*entities.FieldCorrection{{
		ID:             uuid.New(),
		BatchID:        uuid.New(),
		JobID:          jobID,
		FieldName:      fieldName,
		OriginalValue:  originalValue,
		CorrectedValue: correctedValue,
		Implicit:       true,
		SubmittedBy:    userID,
		SubmittedAt:    time.Now(),
	}})
}

// resolveOriginalValue maps a submitted field name onto the job's extracted
// value. It returns false for names outside the canonical set and for
// line-item indices the job does not have.
func resolveOriginalValue(record *domain.CandidateRecord, fieldName string) (string, bool) {
	if fv, ok := record.FieldByName(fieldName); ok {
		if fv.Value == nil {
			return "", true
		}
		return *fv.Value, true
	}

	m := reItemField.FindStringSubmatch(fieldName)
	if m == nil {
		return "", false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil || idx < 0 || idx >= len(record.LineItems) {
		return "", false
	}

	item := record.LineItems[idx]
	switch m[2] {
	case "name":
		return item.Name, true
	case "quantity":
		return item.Quantity.String(), true
	case "unit_price":
		return item.UnitPrice.StringFixed(2), true
	case "total_price":
		return item.TotalPrice.StringFixed(2), true
	}
	return "", false
}
