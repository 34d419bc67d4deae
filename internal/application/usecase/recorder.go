package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/application/cacheaside"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/event"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/port"
)

const (
	// recordQueueSize bounds predictions waiting for audit and events.
	// Further predictions are dropped from the side channels.
	recordQueueSize = 256

	// recordTimeout bounds each audit insert and event publish.
	recordTimeout = 2 * time.Second
)

type recordJob struct {
	ctx          context.Context
	record       *model.PassengerRecord
	result       *model.PredictionResult
	modelVersion string
	createdAt    time.Time
}

// recorder writes audit rows and events off the request path. Both side
// channels fail open.
type recorder struct {
	repo      port.PredictionRepository
	publisher port.EventPublisher
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan recordJob
	done   chan struct{}
}

func newRecorder(repo port.PredictionRepository, publisher port.EventPublisher, logger *slog.Logger) *recorder {
	r := &recorder{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		jobs:      make(chan recordJob, recordQueueSize),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// enqueue never blocks. It reports whether the job was accepted.
func (r *recorder) enqueue(job recordJob) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}
	select {
	case r.jobs <- job:
		return true
	default:
		return false
	}
}

// close stops accepting jobs and waits for the queue to drain.
func (r *recorder) close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *recorder) run() {
	defer close(r.done)
	for job := range r.jobs {
		r.write(job)
	}
}

func (r *recorder) write(job recordJob) {
	fingerprint, err := cacheaside.Fingerprint(job.record)
	if err != nil {
		r.logger.Warn("failed to fingerprint record for audit", "error", err)
		return
	}

	if r.repo != nil {
		ctx, cancel := context.WithTimeout(job.ctx, recordTimeout)
		err := r.repo.Save(ctx, port.AuditRecord{
			ID:           uuid.NewString(),
			PassengerID:  job.record.ID(),
			Fingerprint:  fingerprint,
			Prediction:   job.result.Label().Int(),
			Source:       job.result.Source().String(),
			ModelVersion: job.modelVersion,
			CreatedAt:    job.createdAt,
		})
		cancel()
		if err != nil {
			r.logger.Warn("failed to save prediction audit record",
				"passenger_id", job.record.ID(),
				"error", err,
			)
		}
	}

	if r.publisher != nil {
		evt := event.NewPredictionCompleted(job.record.ID(), fingerprint,
			job.result.Label().Int(), job.result.Source().String(), job.modelVersion)
		ctx, cancel := context.WithTimeout(job.ctx, recordTimeout)
		err := r.publisher.Publish(ctx, evt)
		cancel()
		if err != nil {
			r.logger.Warn("failed to publish prediction event",
				"passenger_id", job.record.ID(),
				"error", err,
			)
		}
	}
}
