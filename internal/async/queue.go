// Package async runs ingestion batches on a bounded pool of background workers.
package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/extract"
	"github.com/joseph-ayodele/price-intel/internal/ingest"
)

var (
	ErrQueueClosed = errors.New("queue is shutting down")
	ErrQueueFull   = errors.New("queue is full")
)

// Job is one uploaded batch waiting for processing.
type Job struct {
	ID          string
	Documents   []extract.Document
	RegionHint  string
	SubmittedAt time.Time
	TraceID     string
}

type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// JobStatus is what callers can poll for a submitted job.
type JobStatus struct {
	ID          string              `json:"id"`
	State       JobState            `json:"state"`
	SubmittedAt time.Time           `json:"submitted_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	Result      *ingest.BatchResult `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type BatchProcessor interface {
	ProcessBatch(ctx context.Context, docs []extract.Document, regionHint string) (ingest.BatchResult, error)
}

type ProcessorQueue struct {
	proc    BatchProcessor
	logger  *zap.Logger
	workers int
	timeout time.Duration
	onDone  func(context.Context, ingest.BatchResult)
	// finished statuses older than retention are dropped
	retention time.Duration
	now       func() time.Time

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu       sync.Mutex
	closed   bool
	statuses map[string]*JobStatus
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRetention sets how long finished job statuses stay pollable.
func WithRetention(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.retention = d
		}
	}
}

// WithOnDone registers a hook that runs after every successful batch.
func WithOnDone(fn func(context.Context, ingest.BatchResult)) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

func NewProcessorQueue(proc BatchProcessor, logger *zap.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &ProcessorQueue{
		proc:     proc,
		logger:   logger,
		workers:  2,
		timeout:   15 * time.Minute,
		retention: time.Hour,
		now:       time.Now,
		ch:        make(chan Job, 32),
		statuses:  map[string]*JobStatus{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.start", zap.Int("worker_id", workerID))
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Info("queue.worker.stop", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	q.setState(job.ID, func(s *JobStatus) { s.State = JobRunning })

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	res, err := q.proc.ProcessBatch(ctx, job.Documents, job.RegionHint)

	now := q.now().UTC()
	q.setState(job.ID, func(s *JobStatus) {
		s.FinishedAt = &now
		s.Result = &res
		if err != nil {
			s.State, s.Error = JobFailed, err.Error()
		} else {
			s.State = JobDone
		}
	})
	if err != nil {
		q.logger.Error("queue.job.failed", zap.Int("worker_id", workerID), zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	q.logger.Info("queue.job.ok",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
	if q.onDone != nil {
		q.onDone(ctx, res)
	}
}

// Enqueue submits a batch without blocking and returns its job id. A full
// queue is reported as ErrQueueFull so HTTP callers can answer 503.
func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = q.now().UTC()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", zap.String("job_id", job.ID))
		return "", ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.statuses[job.ID] = &JobStatus{ID: job.ID, State: JobQueued, SubmittedAt: job.SubmittedAt}
		q.logger.Info("queue.enqueue.ok", zap.String("job_id", job.ID), zap.Int("files", len(job.Documents)))
		return job.ID, nil
	default:
		q.logger.Warn("queue.enqueue.full", zap.String("job_id", job.ID))
		return "", ErrQueueFull
	}
}

// Status returns a snapshot of the job's state.
func (q *ProcessorQueue) Status(id string) (JobStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	s, ok := q.statuses[id]
	if !ok {
		return JobStatus{}, false
	}
	return *s, true
}

// pruneLocked drops finished jobs past the retention window. Callers hold q.mu.
func (q *ProcessorQueue) pruneLocked() {
	cutoff := q.now().Add(-q.retention)
	for id, s := range q.statuses {
		if s.FinishedAt != nil && s.FinishedAt.Before(cutoff) {
			delete(q.statuses, id)
		}
	}
}

func (q *ProcessorQueue) setState(id string, fn func(*JobStatus)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.statuses[id]; ok {
		fn(s)
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
