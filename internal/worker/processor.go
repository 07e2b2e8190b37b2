package worker

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"SpendSnap-Backend/pkg/extraction"
	"SpendSnap-Backend/pkg/notification"
	"SpendSnap-Backend/pkg/ocr"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Error reasons persisted on failed jobs. unsupported_image and
// image_not_found are permanent; the rest can be re-queued by the user.
const (
	ReasonTimeout            = "timeout"
	ReasonUnsupportedImage   = "unsupported_image"
	ReasonImageNotFound      = "image_not_found"
	ReasonProviderError      = "provider_error"
	ReasonStorageUnavailable = "storage_unavailable"
)

// providerAttempts bounds in-process provider retries per claim; transient
// provider noise is absorbed here, persistent failure goes back to the user.
const providerAttempts = 3

type (
	Config struct {
		WorkerCount    int
		PollInterval   time.Duration
		OCRTimeout     time.Duration
		ReaperInterval time.Duration
		// StaleAfter is how long a job may sit in processing before the
		// reaper force-fails it. Must exceed OCRTimeout.
		StaleAfter time.Duration
	}

	// ImageReader is the slice of the image store the worker needs.
	ImageReader interface {
		GetFile(ctx context.Context, objectKey string) ([]byte, error)
	}

	// Processor drains the pending-job queue: claim, fetch image, call the
	// OCR provider, normalize, persist. Every status write is conditional so
	// a crashed or slow twin can never double-process a job.
	Processor struct {
		jobs     extraction.JobRepository
		images   ImageReader
		provider ocr.Provider
		notifier notification.Notifier
		opts     extraction.ExtractorOptions
		cfg      Config
		log      *slog.Logger

		// base wait between provider retries, scaled by attempt number
		retryBackoff time.Duration
	}
)

func NewProcessor(
	jobs extraction.JobRepository,
	images ImageReader,
	provider ocr.Provider,
	notifier notification.Notifier,
	opts extraction.ExtractorOptions,
	cfg Config,
	log *slog.Logger,
) *Processor {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * cfg.OCRTimeout
	}
	return &Processor{
		jobs:         jobs,
		images:       images,
		provider:     provider,
		notifier:     notifier,
		opts:         opts,
		cfg:          cfg,
		log:          log,
		retryBackoff: time.Second,
	}
}

// Run blocks until ctx is cancelled. The dispatcher polls for pending jobs
// and fans them out over a channel to the worker pool; the reaper runs on
// its own ticker.
func (p *Processor) Run(ctx context.Context) {
	jobCh := make(chan *entities.ExtractionJob)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for job := range jobCh {
				p.process(ctx, job)
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.reap(ctx)
	}()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.log.Info("extraction worker started", "workers", p.cfg.WorkerCount, "poll", p.cfg.PollInterval)
	for {
		select {
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			p.log.Info("extraction worker stopped")
			return
		case <-ticker.C:
			p.dispatch(ctx, jobCh)
		}
	}
}

func (p *Processor) dispatch(ctx context.Context, jobCh chan<- *entities.ExtractionJob) {
	jobs, err := p.jobs.FetchPending(ctx, p.cfg.WorkerCount*2)
	if err != nil {
		p.log.Error("fetching pending jobs failed", "err", err)
		return
	}
	for _, job := range jobs {
		select {
		case jobCh <- job:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Processor) process(ctx context.Context, job *entities.ExtractionJob) {
	claimed, err := p.jobs.Claim(ctx, job.ID)
	if err != nil {
		p.log.Error("claim failed", "job_id", job.ID, "err", err)
		return
	}
	if !claimed {
		// another worker got there first
		return
	}

	log := p.log.With("job_id", job.ID)

	image, err := p.images.GetFile(ctx, job.ImageKey)
	if err != nil {
		p.fail(ctx, job, classifyError(err), log)
		return
	}

	out, err := p.analyze(ctx, image)
	if err != nil {
		p.fail(ctx, job, classifyError(err), log)
		return
	}

	record := extraction.Extract(*out, p.opts)

	raw, err := json.Marshal(out)
	if err != nil {
		p.fail(ctx, job, ReasonProviderError, log)
		return
	}
	fields, err := json.Marshal(record)
	if err != nil {
		p.fail(ctx, job, ReasonProviderError, log)
		return
	}

	ok, err := p.jobs.MarkProcessed(ctx, job.ID, raw, fields)
	if err != nil {
		log.Error("persisting result failed", "err", err)
		return
	}
	if !ok {
		// the reaper or a user action moved the job on; the late result
		// is discarded without side effects
		log.Warn("result discarded, job no longer processing")
		return
	}

	log.Info("job processed")
	p.notifier.Notify(job.UserID, notification.EventReceiptProcessed, map[string]string{
		"job_id": job.ID.String(),
	})
}

// analyze calls the provider under the OCR deadline, retrying transient
// provider failures with a linear backoff.
func (p *Processor) analyze(ctx context.Context, image []byte) (*domain.ProviderOutput, error) {
	contentType := http.DetectContentType(image)

	var lastErr error
	for attempt := 1; attempt <= providerAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.OCRTimeout)
		out, err := p.provider.Analyze(callCtx, image, contentType)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		select {
		case <-time.After(time.Duration(attempt) * p.retryBackoff):
		case <-ctx.Done():
			return nil, domain.ErrExtractionTimeout
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrProvider) || errors.Is(err, domain.ErrProviderQuota)
}

func (p *Processor) fail(ctx context.Context, job *entities.ExtractionJob, reason string, log *slog.Logger) {
	ok, err := p.jobs.MarkError(ctx, job.ID, reason)
	if err != nil {
		log.Error("marking job failed errored", "reason", reason, "err", err)
		return
	}
	if !ok {
		log.Warn("failure discarded, job no longer processing", "reason", reason)
		return
	}

	log.Warn("job failed", "reason", reason)
	p.notifier.Notify(job.UserID, notification.EventReceiptFailed, map[string]string{
		"job_id": job.ID.String(),
		"reason": reason,
	})
}

func (p *Processor) reap(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.jobs.ReapStale(ctx, time.Now().Add(-p.cfg.StaleAfter))
			if err != nil {
				p.log.Error("reaping stale jobs failed", "err", err)
				continue
			}
			if n > 0 {
				p.log.Warn("reaped stale processing jobs", "count", n)
			}
		}
	}
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, domain.ErrExtractionTimeout):
		return ReasonTimeout
	case errors.Is(err, domain.ErrUnsupportedImage):
		return ReasonUnsupportedImage
	case errors.Is(err, domain.ErrImageNotFound):
		return ReasonImageNotFound
	case errors.Is(err, domain.ErrStorageUnavailable):
		return ReasonStorageUnavailable
	default:
		return ReasonProviderError
	}
}
