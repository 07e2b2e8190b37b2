package extraction

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memJobRepository mimics the conditional-update semantics of the real
// repository: every status write checks the current status first.
type memJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entities.ExtractionJob
}

func newMemJobRepository() *memJobRepository {
	return &memJobRepository{jobs: map[uuid.UUID]*entities.ExtractionJob{}}
}

func (m *memJobRepository) Create(ctx context.Context, job *entities.ExtractionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memJobRepository) FetchPending(ctx context.Context, limit int) ([]*entities.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.ExtractionJob
	for _, job := range m.jobs {
		if job.Status == entities.JobStatusPending && len(out) < limit {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memJobRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.transition(id, entities.JobStatusPending, entities.JobStatusProcessing), nil
}

func (m *memJobRepository) MarkProcessed(ctx context.Context, id uuid.UUID, raw, fields json.RawMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != entities.JobStatusProcessing {
		return false, nil
	}
	job.Status = entities.JobStatusProcessed
	job.RawProviderOutput = raw
	job.Fields = fields
	job.ErrorReason = ""
	return true, nil
}

func (m *memJobRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != entities.JobStatusProcessing {
		return false, nil
	}
	job.Status = entities.JobStatusError
	job.ErrorReason = reason
	return true, nil
}

func (m *memJobRepository) Requeue(ctx context.Context, id uuid.UUID, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != entities.JobStatusError || job.RetryCount >= limit {
		return false, nil
	}
	job.Status = entities.JobStatusPending
	job.RetryCount++
	return true, nil
}

func (m *memJobRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status entities.JobStatus, fields json.RawMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != entities.JobStatusProcessed {
		return false, nil
	}
	job.Status = status
	if len(fields) > 0 {
		job.Fields = fields
	}
	return true, nil
}

func (m *memJobRepository) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, job := range m.jobs {
		if job.Status == entities.JobStatusProcessing && job.UpdatedAt.Before(cutoff) {
			job.Status = entities.JobStatusError
			job.ErrorReason = "timeout"
			n++
		}
	}
	return n, nil
}

func (m *memJobRepository) transition(id uuid.UUID, from, to entities.JobStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != from {
		return false
	}
	job.Status = to
	return true
}

type fakeStore struct {
	deleted []string
}

func (f *fakeStore) UploadFile(fileName string, file *multipart.FileHeader, dir string, allowedTypes ...string) (string, error) {
	return dir + "/" + fileName + ".jpg", nil
}

func (f *fakeStore) GetFile(ctx context.Context, objectKey string) ([]byte, error) {
	return []byte("image-bytes"), nil
}

func (f *fakeStore) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	return "https://signed.example/" + objectKey, nil
}

func (f *fakeStore) DeleteFile(objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

type fakeExpenseService struct {
	committed map[uuid.UUID]*entities.ExpenseRecord
	commits   int
	commitErr error
}

func newFakeExpenseService() *fakeExpenseService {
	return &fakeExpenseService{committed: map[uuid.UUID]*entities.ExpenseRecord{}}
}

func (f *fakeExpenseService) CommitJob(ctx context.Context, job *entities.ExtractionJob, record *domain.CandidateRecord, categoryID *uuid.UUID, notes string) (*entities.ExpenseRecord, error) {
	f.commits++
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	jobID := job.ID
	expense := &entities.ExpenseRecord{
		ID:              uuid.New(),
		UserID:          job.UserID,
		SourceJobID:     &jobID,
		TotalAmount:     decimal.RequireFromString(*record.TotalAmount.Value),
		TransactionDate: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
	}
	f.committed[job.ID] = expense
	return expense, nil
}

func (f *fakeExpenseService) FindForJob(ctx context.Context, jobID uuid.UUID) (*entities.ExpenseRecord, error) {
	if expense, ok := f.committed[jobID]; ok {
		return expense, nil
	}
	return nil, domain.ErrExpenseNotFound
}

func (f *fakeExpenseService) AddManualExpense(ctx context.Context, req domain.AddExpenseRequest, userID string) (domain.ExpenseResponse, error) {
	return domain.ExpenseResponse{}, nil
}

func (f *fakeExpenseService) GetExpenses(ctx context.Context, userID string, from, to time.Time) ([]domain.ExpenseResponse, error) {
	return nil, nil
}

type fakeFeedbackService struct {
	implicit []string
}

func (f *fakeFeedbackService) SubmitCorrections(ctx context.Context, jobID string, userID string, req domain.SubmitFeedbackRequest) (domain.SubmitFeedbackResponse, error) {
	return domain.SubmitFeedbackResponse{}, nil
}

func (f *fakeFeedbackService) GetHistory(ctx context.Context, jobID string, userID string) (domain.FeedbackHistoryResponse, error) {
	return domain.FeedbackHistoryResponse{}, nil
}

func (f *fakeFeedbackService) RecordImplicit(ctx context.Context, jobID, userID uuid.UUID, fieldName, originalValue, correctedValue string) error {
	f.implicit = append(f.implicit, fieldName)
	return nil
}

type fakeBudgetService struct {
	evaluations int
}

func (f *fakeBudgetService) CreateBudget(ctx context.Context, req domain.CreateBudgetRequest, userID string) (domain.BudgetResponse, error) {
	return domain.BudgetResponse{}, nil
}

func (f *fakeBudgetService) GetBudgets(ctx context.Context, userID string, ref time.Time) (domain.BudgetListResponse, error) {
	return domain.BudgetListResponse{}, nil
}

func (f *fakeBudgetService) UpdateBudget(ctx context.Context, id string, req domain.UpdateBudgetRequest, userID string) (domain.BudgetResponse, error) {
	return domain.BudgetResponse{}, nil
}

func (f *fakeBudgetService) DeleteBudget(ctx context.Context, id string, userID string) error {
	return nil
}

func (f *fakeBudgetService) EvaluateThresholds(ctx context.Context, userID uuid.UUID, txDate time.Time) {
	f.evaluations++
}

type serviceFixture struct {
	svc      ExtractionService
	jobs     *memJobRepository
	expenses *fakeExpenseService
	feedback *fakeFeedbackService
	budgets  *fakeBudgetService
}

func newFixture() *serviceFixture {
	jobs := newMemJobRepository()
	expenses := newFakeExpenseService()
	fb := &fakeFeedbackService{}
	budgets := &fakeBudgetService{}
	return &serviceFixture{
		svc:      NewExtractionService(jobs, &fakeStore{}, expenses, fb, budgets, 3),
		jobs:     jobs,
		expenses: expenses,
		feedback: fb,
		budgets:  budgets,
	}
}

func strPtr(s string) *string { return &s }

func seedJob(t *testing.T, f *serviceFixture, userID uuid.UUID, status entities.JobStatus) *entities.ExtractionJob {
	t.Helper()
	job := &entities.ExtractionJob{
		ID:       uuid.New(),
		UserID:   userID,
		ImageKey: "receipts/x.jpg",
		Status:   status,
	}
	if status.HasFields() {
		record := domain.CandidateRecord{
			SchemaVersion:   domain.FieldsSchemaVersion,
			MerchantName:    domain.FieldValue{Value: strPtr("Walmart"), Confidence: 0.9},
			TransactionDate: domain.FieldValue{Value: strPtr("2026-08-10"), Confidence: 0.9},
			TotalAmount:     domain.FieldValue{Value: strPtr("15.99"), Confidence: 0.9},
		}
		fields, err := json.Marshal(record)
		if err != nil {
			t.Fatalf("marshaling fields: %v", err)
		}
		job.Fields = fields
	}
	if err := f.jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("seeding job: %v", err)
	}
	return job
}

func TestAcceptCommitsAndEvaluatesBudgets(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)

	res, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if res.Status != string(entities.JobStatusAccepted) {
		t.Errorf("status = %q, want accepted", res.Status)
	}
	if res.ExpenseID == "" {
		t.Error("expected an expense id")
	}
	if f.budgets.evaluations != 1 {
		t.Errorf("budget evaluations = %d, want 1", f.budgets.evaluations)
	}

	current, _ := f.jobs.GetByID(context.Background(), job.ID)
	if current.Status != entities.JobStatusAccepted {
		t.Errorf("job status = %q, want accepted", current.Status)
	}
}

func TestAcceptIsIdempotent(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)

	first, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{})
	if err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	second, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{})
	if err != nil {
		t.Fatalf("second Accept: %v", err)
	}

	if first.ExpenseID != second.ExpenseID {
		t.Errorf("expense ids differ: %q vs %q", first.ExpenseID, second.ExpenseID)
	}
	if f.expenses.commits != 1 {
		t.Errorf("commits = %d, want exactly 1", f.expenses.commits)
	}
}

func TestAcceptOverridesRecordImplicitFeedback(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)

	_, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{
		Overrides: map[string]string{
			"merchant_name": "Target",  // differs: recorded
			"total_amount":  "15.99",   // identical: skipped
		},
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if len(f.feedback.implicit) != 1 || f.feedback.implicit[0] != "merchant_name" {
		t.Errorf("implicit feedback = %v, want [merchant_name]", f.feedback.implicit)
	}
}

func TestAcceptCommitFailureLeavesJobReviewable(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)
	f.expenses.commitErr = errors.New("insert failed")

	_, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{})
	if err == nil {
		t.Fatal("expected the failed commit to surface")
	}

	current, _ := f.jobs.GetByID(context.Background(), job.ID)
	if current.Status != entities.JobStatusProcessed {
		t.Fatalf("job status = %q after failed commit, want processed", current.Status)
	}

	// the ledger recovered, the same accept must now go through
	f.expenses.commitErr = nil
	res, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{})
	if err != nil {
		t.Fatalf("Accept after recovery: %v", err)
	}
	if res.ExpenseID == "" {
		t.Error("expected an expense id")
	}
}

func TestAcceptPersistsOverriddenFields(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)

	_, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{
		Overrides: map[string]string{"merchant_name": "Target"},
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	res, err := f.svc.GetJobResult(context.Background(), job.ID.String(), userID.String())
	if err != nil {
		t.Fatalf("GetJobResult: %v", err)
	}
	if res.Fields.MerchantName.Value == nil || *res.Fields.MerchantName.Value != "Target" {
		t.Errorf("stored merchant = %v, want the override Target", res.Fields.MerchantName.Value)
	}
	if res.Fields.MerchantName.Confidence != 1.0 {
		t.Errorf("override confidence = %v, want 1.0", res.Fields.MerchantName.Confidence)
	}
}

func TestAcceptRejectsUnknownOverrideField(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)

	_, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{
		Overrides: map[string]string{"made_up": "x"},
	})
	if err != domain.ErrUnknownFieldName {
		t.Errorf("got %v, want ErrUnknownFieldName", err)
	}
}

func TestAcceptInvalidStates(t *testing.T) {
	for _, status := range []entities.JobStatus{
		entities.JobStatusPending,
		entities.JobStatusProcessing,
		entities.JobStatusError,
		entities.JobStatusRejected,
	} {
		f := newFixture()
		userID := uuid.New()
		job := seedJob(t, f, userID, status)

		_, err := f.svc.Accept(context.Background(), job.ID.String(), userID.String(), domain.AcceptJobRequest{})
		if err != domain.ErrInvalidState {
			t.Errorf("status %s: got %v, want ErrInvalidState", status, err)
		}
	}
}

func TestAcceptOwnership(t *testing.T) {
	f := newFixture()
	job := seedJob(t, f, uuid.New(), entities.JobStatusProcessed)

	_, err := f.svc.Accept(context.Background(), job.ID.String(), uuid.New().String(), domain.AcceptJobRequest{})
	if err != domain.ErrUnauthorizedAccess {
		t.Errorf("got %v, want ErrUnauthorizedAccess", err)
	}
}

func TestRejectIsIdempotent(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)

	if _, err := f.svc.Reject(context.Background(), job.ID.String(), userID.String()); err != nil {
		t.Fatalf("first Reject: %v", err)
	}
	res, err := f.svc.Reject(context.Background(), job.ID.String(), userID.String())
	if err != nil {
		t.Fatalf("second Reject: %v", err)
	}
	if res.Status != string(entities.JobStatusRejected) {
		t.Errorf("status = %q, want rejected", res.Status)
	}
}

func TestRetry(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusError)
	f.jobs.jobs[job.ID].ErrorReason = "provider_error"

	res, err := f.svc.Retry(context.Background(), job.ID.String(), userID.String())
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if res.Status != string(entities.JobStatusPending) {
		t.Errorf("status = %q, want pending", res.Status)
	}
	if res.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", res.RetryCount)
	}
}

func TestRetryLimit(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusError)
	f.jobs.jobs[job.ID].ErrorReason = "provider_error"
	f.jobs.jobs[job.ID].RetryCount = 3

	_, err := f.svc.Retry(context.Background(), job.ID.String(), userID.String())
	if err != domain.ErrRetryLimitReached {
		t.Errorf("got %v, want ErrRetryLimitReached", err)
	}
}

func TestRetryRefusesPermanentFailures(t *testing.T) {
	for _, reason := range []string{"unsupported_image", "image_not_found"} {
		f := newFixture()
		userID := uuid.New()
		job := seedJob(t, f, userID, entities.JobStatusError)
		f.jobs.jobs[job.ID].ErrorReason = reason

		_, err := f.svc.Retry(context.Background(), job.ID.String(), userID.String())
		if err != domain.ErrInvalidState {
			t.Errorf("reason %q: got %v, want ErrInvalidState", reason, err)
		}
	}
}

func TestRetryWrongState(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)

	_, err := f.svc.Retry(context.Background(), job.ID.String(), userID.String())
	if err != domain.ErrInvalidState {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestGetJobResultRequiresFields(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusPending)

	_, err := f.svc.GetJobResult(context.Background(), job.ID.String(), userID.String())
	if err != domain.ErrInvalidState {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestGetJobResultIncludesSignedURL(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	job := seedJob(t, f, userID, entities.JobStatusProcessed)

	res, err := f.svc.GetJobResult(context.Background(), job.ID.String(), userID.String())
	if err != nil {
		t.Fatalf("GetJobResult: %v", err)
	}
	if res.ImageURL == "" {
		t.Error("expected a signed image url")
	}
	if res.Fields == nil || res.Fields.TotalAmount.Value == nil {
		t.Fatal("expected extracted fields")
	}
}

func TestClaimAtMostOnce(t *testing.T) {
	f := newFixture()
	job := seedJob(t, f, uuid.New(), entities.JobStatusPending)

	const racers = 16
	wins := make(chan bool, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.jobs.Claim(context.Background(), job.ID)
			if err != nil {
				t.Errorf("Claim: %v", err)
				return
			}
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	if won != 1 {
		t.Errorf("%d claims won, want exactly 1", won)
	}
}

func TestGetJobStatusNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetJobStatus(context.Background(), uuid.New().String(), uuid.New().String())
	if err != domain.ErrJobNotFound {
		t.Errorf("got %v, want ErrJobNotFound", err)
	}
}
