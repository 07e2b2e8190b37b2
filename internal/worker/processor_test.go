package worker

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"SpendSnap-Backend/pkg/extraction"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entities.ExtractionJob

	processedCalls int
	errorReasons   []string
	claimable      bool
	acceptResult   bool
	reapCalls      chan time.Time
}

func newStubJobRepository(job *entities.ExtractionJob) *stubJobRepository {
	return &stubJobRepository{
		jobs:         map[uuid.UUID]*entities.ExtractionJob{job.ID: job},
		claimable:    true,
		acceptResult: true,
	}
}

func (s *stubJobRepository) Create(ctx context.Context, job *entities.ExtractionJob) error {
	return nil
}

func (s *stubJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ExtractionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return job, nil
}

func (s *stubJobRepository) FetchPending(ctx context.Context, limit int) ([]*entities.ExtractionJob, error) {
	return nil, nil
}

func (s *stubJobRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claimable {
		return false, nil
	}
	s.claimable = false
	return true, nil
}

func (s *stubJobRepository) MarkProcessed(ctx context.Context, id uuid.UUID, raw, fields json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processedCalls++
	if !s.acceptResult {
		return false, nil
	}
	if job, ok := s.jobs[id]; ok {
		job.Status = entities.JobStatusProcessed
		job.RawProviderOutput = raw
		job.Fields = fields
	}
	return true, nil
}

func (s *stubJobRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorReasons = append(s.errorReasons, reason)
	if job, ok := s.jobs[id]; ok {
		job.Status = entities.JobStatusError
		job.ErrorReason = reason
	}
	return true, nil
}

func (s *stubJobRepository) Requeue(ctx context.Context, id uuid.UUID, limit int) (bool, error) {
	return false, nil
}

func (s *stubJobRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status entities.JobStatus, fields json.RawMessage) (bool, error) {
	return false, nil
}

func (s *stubJobRepository) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	var n int64
	for _, job := range s.jobs {
		if job.Status == entities.JobStatusProcessing {
			job.Status = entities.JobStatusError
			job.ErrorReason = ReasonTimeout
			n++
		}
	}
	s.mu.Unlock()
	if s.reapCalls != nil {
		select {
		case s.reapCalls <- cutoff:
		default:
		}
	}
	return n, nil
}

type stubImages struct {
	err error
}

func (s *stubImages) GetFile(ctx context.Context, objectKey string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("image"), nil
}

type stubProvider struct {
	mu    sync.Mutex
	out   *domain.ProviderOutput
	errs  []error
	calls int
}

func (s *stubProvider) Analyze(ctx context.Context, image []byte, contentType string) (*domain.ProviderOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return s.out, nil
}

type stubNotifier struct {
	mu     sync.Mutex
	events []string
}

func (s *stubNotifier) Notify(userID uuid.UUID, eventType string, payload map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventType)
}

func testProcessor(repo *stubJobRepository, images *stubImages, provider *stubProvider, notifier *stubNotifier) *Processor {
	p := NewProcessor(
		repo,
		images,
		provider,
		notifier,
		extraction.DefaultExtractorOptions(),
		Config{
			WorkerCount:    1,
			PollInterval:   time.Millisecond,
			OCRTimeout:     time.Second,
			ReaperInterval: time.Hour,
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	p.retryBackoff = time.Millisecond
	return p
}

func pendingJob() *entities.ExtractionJob {
	return &entities.ExtractionJob{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		ImageKey: "receipts/x.jpg",
		Status:   entities.JobStatusPending,
	}
}

func TestProcessSuccess(t *testing.T) {
	job := pendingJob()
	repo := newStubJobRepository(job)
	provider := &stubProvider{out: &domain.ProviderOutput{
		SchemaVersion:      domain.FieldsSchemaVersion,
		RawText:            "Milk 3.49",
		ProviderConfidence: 0.9,
		Guesses: []domain.FieldGuess{
			{Field: "total", Value: "3.49", Confidence: 0.9},
		},
	}}
	notifier := &stubNotifier{}
	p := testProcessor(repo, &stubImages{}, provider, notifier)

	p.process(context.Background(), job)

	if repo.processedCalls != 1 {
		t.Fatalf("MarkProcessed calls = %d, want 1", repo.processedCalls)
	}
	stored := repo.jobs[job.ID]
	if stored.Status != entities.JobStatusProcessed {
		t.Errorf("status = %q, want processed", stored.Status)
	}

	var record domain.CandidateRecord
	if err := json.Unmarshal(stored.Fields, &record); err != nil {
		t.Fatalf("unmarshaling persisted fields: %v", err)
	}
	if record.TotalAmount.Value == nil || *record.TotalAmount.Value != "3.49" {
		t.Errorf("persisted total = %v, want 3.49", record.TotalAmount.Value)
	}

	if len(notifier.events) != 1 || notifier.events[0] != "receipt_processed" {
		t.Errorf("events = %v, want [receipt_processed]", notifier.events)
	}
}

func TestProcessSkipsWhenClaimLost(t *testing.T) {
	job := pendingJob()
	repo := newStubJobRepository(job)
	repo.claimable = false
	provider := &stubProvider{}
	p := testProcessor(repo, &stubImages{}, provider, &stubNotifier{})

	p.process(context.Background(), job)

	if provider.calls != 0 {
		t.Errorf("provider called %d times after a lost claim, want 0", provider.calls)
	}
}

func TestProcessUnsupportedImageIsNotRetried(t *testing.T) {
	job := pendingJob()
	repo := newStubJobRepository(job)
	provider := &stubProvider{errs: []error{domain.ErrUnsupportedImage, domain.ErrUnsupportedImage, domain.ErrUnsupportedImage}}
	notifier := &stubNotifier{}
	p := testProcessor(repo, &stubImages{}, provider, notifier)

	p.process(context.Background(), job)

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 for a permanent failure", provider.calls)
	}
	if len(repo.errorReasons) != 1 || repo.errorReasons[0] != ReasonUnsupportedImage {
		t.Errorf("error reasons = %v, want [unsupported_image]", repo.errorReasons)
	}
	if len(notifier.events) != 1 || notifier.events[0] != "receipt_failed" {
		t.Errorf("events = %v, want [receipt_failed]", notifier.events)
	}
}

func TestProcessRetriesTransientProviderErrors(t *testing.T) {
	job := pendingJob()
	repo := newStubJobRepository(job)
	provider := &stubProvider{
		errs: []error{domain.ErrProviderQuota},
		out: &domain.ProviderOutput{
			SchemaVersion:      domain.FieldsSchemaVersion,
			ProviderConfidence: 0.9,
			Guesses:            []domain.FieldGuess{{Field: "total", Value: "3.49", Confidence: 0.9}},
		},
	}
	p := testProcessor(repo, &stubImages{}, provider, &stubNotifier{})

	p.process(context.Background(), job)

	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (one failure, one success)", provider.calls)
	}
	if repo.jobs[job.ID].Status != entities.JobStatusProcessed {
		t.Errorf("status = %q, want processed after a successful retry", repo.jobs[job.ID].Status)
	}
}

func TestProcessExhaustedProviderRetries(t *testing.T) {
	job := pendingJob()
	repo := newStubJobRepository(job)
	provider := &stubProvider{errs: []error{domain.ErrProviderQuota, domain.ErrProviderQuota, domain.ErrProviderQuota}}
	p := testProcessor(repo, &stubImages{}, provider, &stubNotifier{})

	p.process(context.Background(), job)

	if provider.calls != providerAttempts {
		t.Errorf("provider calls = %d, want %d", provider.calls, providerAttempts)
	}
	if len(repo.errorReasons) != 1 || repo.errorReasons[0] != ReasonProviderError {
		t.Errorf("error reasons = %v, want [provider_error]", repo.errorReasons)
	}
}

func TestProcessTimeout(t *testing.T) {
	job := pendingJob()
	repo := newStubJobRepository(job)
	provider := &stubProvider{errs: []error{domain.ErrExtractionTimeout}}
	p := testProcessor(repo, &stubImages{}, provider, &stubNotifier{})

	p.process(context.Background(), job)

	if len(repo.errorReasons) != 1 || repo.errorReasons[0] != ReasonTimeout {
		t.Errorf("error reasons = %v, want [timeout]", repo.errorReasons)
	}
}

func TestProcessMissingImage(t *testing.T) {
	job := pendingJob()
	repo := newStubJobRepository(job)
	provider := &stubProvider{}
	p := testProcessor(repo, &stubImages{err: domain.ErrImageNotFound}, provider, &stubNotifier{})

	p.process(context.Background(), job)

	if provider.calls != 0 {
		t.Errorf("provider called for a missing image")
	}
	if len(repo.errorReasons) != 1 || repo.errorReasons[0] != ReasonImageNotFound {
		t.Errorf("error reasons = %v, want [image_not_found]", repo.errorReasons)
	}
}

func TestProcessLateResultIsDiscarded(t *testing.T) {
	job := pendingJob()
	repo := newStubJobRepository(job)
	repo.acceptResult = false // the reaper moved the job on mid-flight
	provider := &stubProvider{out: &domain.ProviderOutput{
		SchemaVersion:      domain.FieldsSchemaVersion,
		ProviderConfidence: 0.9,
		Guesses:            []domain.FieldGuess{{Field: "total", Value: "3.49", Confidence: 0.9}},
	}}
	notifier := &stubNotifier{}
	p := testProcessor(repo, &stubImages{}, provider, notifier)

	p.process(context.Background(), job)

	if len(notifier.events) != 0 {
		t.Errorf("events = %v, want none for a discarded result", notifier.events)
	}
}

func TestReaperForceFailsStuckJobs(t *testing.T) {
	job := pendingJob()
	job.Status = entities.JobStatusProcessing
	repo := newStubJobRepository(job)
	repo.reapCalls = make(chan time.Time, 1)

	p := NewProcessor(
		repo,
		&stubImages{},
		&stubProvider{},
		&stubNotifier{},
		extraction.DefaultExtractorOptions(),
		Config{
			WorkerCount:    1,
			PollInterval:   time.Hour,
			OCRTimeout:     time.Second,
			ReaperInterval: 5 * time.Millisecond,
			StaleAfter:     time.Minute,
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.reap(ctx)
		close(done)
	}()

	var cutoff time.Time
	select {
	case cutoff = <-repo.reapCalls:
	case <-time.After(time.Second):
		t.Fatal("reaper never ran")
	}
	cancel()
	<-done

	if age := time.Since(cutoff); age < 55*time.Second || age > 65*time.Second {
		t.Errorf("reap cutoff is %s old, want roughly the 1m stale window", age)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	stuck := repo.jobs[job.ID]
	if stuck.Status != entities.JobStatusError || stuck.ErrorReason != ReasonTimeout {
		t.Errorf("stuck job ended %s/%q, want error/%s", stuck.Status, stuck.ErrorReason, ReasonTimeout)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrExtractionTimeout, ReasonTimeout},
		{domain.ErrUnsupportedImage, ReasonUnsupportedImage},
		{domain.ErrImageNotFound, ReasonImageNotFound},
		{domain.ErrStorageUnavailable, ReasonStorageUnavailable},
		{domain.ErrProviderQuota, ReasonProviderError},
		{errors.New("anything else"), ReasonProviderError},
	}

	for _, tc := range cases {
		if got := classifyError(tc.err); got != tc.want {
			t.Errorf("classifyError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
