package bulk

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicalexcom/avidiatech-app-sub005/pkg/backoff"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/db"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/id"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/logger"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/queue"
)

// Enqueuer is the slice of the queue client the orchestration core uses.
// *queue.Manager and *queue.Enqueuer both satisfy it.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...queue.EnqueueOption) error
	EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...queue.EnqueueOption) error
}

// FanOutPayload is the master message body.
type FanOutPayload struct {
	BulkJobID string `json:"bulk_job_id"`
}

// ItemPayload is the item message body. The job ID rides along so consumers
// can verify ownership and log with full context.
type ItemPayload struct {
	BulkJobID     string `json:"bulk_job_id"`
	BulkJobItemID string `json:"bulk_job_item_id"`
}

// JobSpec describes a batch submitted for processing.
type JobSpec struct {
	Name      string
	OrgID     *uuid.UUID
	CreatedBy uuid.UUID
	Options   json.RawMessage
	Items     []ItemSpec
}

// ItemSpec describes one work item of a batch.
type ItemSpec struct {
	InputURL string
	Metadata json.RawMessage
}

// Service exposes the intake and manual retry operations consumed by the
// surrounding API. Row writes and queue inserts share one transaction, so a
// committed job always has its master message and a reset item always has
// its redelivery.
type Service struct {
	store  Store
	enq    Enqueuer
	policy backoff.Policy
	log    *slog.Logger

	// runTx wraps db.WithTx; swapped for a pass-through in unit tests.
	runTx func(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// NewService creates the intake service.
func NewService(pool *pgxpool.Pool, store Store, enq Enqueuer, policy backoff.Policy, log *slog.Logger) (*Service, error) {
	if pool == nil {
		return nil, queue.ErrPoolRequired
	}
	if log == nil {
		log = logger.NewNope()
	}
	return &Service{
		store:  store,
		enq:    enq,
		policy: policy,
		log:    log,
		runTx: func(ctx context.Context, fn func(tx pgx.Tx) error) error {
			return db.WithTx(ctx, pool, fn)
		},
	}, nil
}

// CreateJob validates the submission, creates the job and its items atomically in
// status queued, and enqueues the master message in the same transaction.
func (s *Service) CreateJob(ctx context.Context, spec JobSpec) (*Job, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	job := &Job{
		ID:        id.NewULID(),
		Name:      spec.Name,
		OrgID:     spec.OrgID,
		CreatedBy: spec.CreatedBy,
		Options:   spec.Options,
		Status:    JobQueued,
		CreatedAt: time.Now().UTC(),
	}

	items := make([]*Item, len(spec.Items))
	for i, it := range spec.Items {
		items[i] = &Item{
			ID:       id.NewULID(),
			JobID:    job.ID,
			Index:    i,
			InputURL: it.InputURL,
			Metadata: it.Metadata,
			Status:   ItemQueued,
		}
	}

	err := s.runTx(ctx, func(tx pgx.Tx) error {
		if err := s.store.CreateJob(ctx, tx, job); err != nil {
			return err
		}
		if err := s.store.CreateItems(ctx, tx, items); err != nil {
			return err
		}
		// Unique key absorbs API-level retries of the same submission
		// without inserting a second master message.
		return s.enq.EnqueueTx(ctx, tx, TaskFanOut, FanOutPayload{BulkJobID: job.ID},
			queue.InQueue(QueueMaster),
			queue.MaxAttempts(s.policy.MaxAttempts),
			queue.UniqueFor(time.Minute),
			queue.UniqueKey(job.ID),
		)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "bulk job created",
		slog.String("bulk_job_id", job.ID),
		slog.Int("items", len(items)),
	)
	return job, nil
}

// RetryItem resets a terminal item back to queued with a fresh attempt
// budget and enqueues exactly one new item message, atomically. The item
// must belong to the job. The job's aggregate status is recomputed so it
// reports processing while the retried item is in flight.
func (s *Service) RetryItem(ctx context.Context, jobID, itemID string) error {
	if jobID == "" || itemID == "" {
		return Validationf("bulk: job and item identifiers are required")
	}

	err := s.runTx(ctx, func(tx pgx.Tx) error {
		if err := s.store.ResetItem(ctx, tx, jobID, itemID); err != nil {
			return err
		}
		return s.enq.EnqueueTx(ctx, tx, TaskProcessItem,
			ItemPayload{BulkJobID: jobID, BulkJobItemID: itemID},
			queue.InQueue(QueueItems),
			queue.MaxAttempts(s.policy.MaxAttempts),
			queue.Tags("bulk", jobID),
		)
	})
	if err != nil {
		return err
	}

	// The job must stop reporting a terminal status while the retried item
	// is back in flight. A failure here is non-fatal: the item's terminal
	// transition re-aggregates anyway.
	if err := Aggregate(ctx, s.store, jobID); err != nil {
		s.log.WarnContext(ctx, "job status refresh after retry failed",
			slog.String("bulk_job_id", jobID),
			slog.Any("error", err),
		)
	}

	s.log.InfoContext(ctx, "bulk item manually retried",
		slog.String("bulk_job_id", jobID),
		slog.String("bulk_job_item_id", itemID),
	)
	return nil
}

func (spec JobSpec) validate() error {
	if spec.Name == "" {
		return Validationf("bulk: job name is required")
	}
	if spec.CreatedBy == uuid.Nil {
		return Validationf("bulk: creator identifier is required")
	}
	if len(spec.Items) == 0 {
		return Validationf("bulk: at least one item is required")
	}
	for i, it := range spec.Items {
		if it.InputURL == "" {
			return Validationf("bulk: item %d: input URL is required", i)
		}
	}
	return nil
}
