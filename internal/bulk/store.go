package bulk

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// ItemPatch describes one conditional item mutation. Only the transitions
// the worker actually performs are expressible; arbitrary field edits are
// not.
type ItemPatch struct {
	// Status the item moves to.
	Status ItemStatus

	// IncAttempts adds one to the attempt counter.
	IncAttempts bool

	// MarkStarted sets started_at to now if it is still unset.
	MarkStarted bool

	// MarkFinished sets finished_at to now.
	MarkFinished bool

	// LastError records a failure detail. Nil leaves the column untouched
	// unless ClearLastError is set.
	LastError *string

	// ClearLastError nulls the column (takes precedence over LastError).
	ClearLastError bool
}

// Store is the persistent, queryable state for jobs and items, the single
// source of truth for status. All item mutations are single-row conditional
// updates so overlapping workers processing redelivered messages cannot lose
// writes. Methods taking a pgx.Tx participate in a caller-owned transaction
// paired with a transactional enqueue.
type Store interface {
	// CreateJob inserts a job row inside tx.
	CreateJob(ctx context.Context, tx pgx.Tx, job *Job) error

	// CreateItems inserts item rows inside tx.
	CreateItems(ctx context.Context, tx pgx.Tx, items []*Item) error

	// ResetItem returns an item belonging to jobID to queued with cleared
	// error, timestamps, and attempt counter, inside tx. ErrItemNotFound
	// if the item does not exist under that job.
	ResetItem(ctx context.Context, tx pgx.Tx, jobID, itemID string) error

	// GetJob loads one job. ErrJobNotFound if absent.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// GetItem loads one item belonging to jobID. ErrItemNotFound if absent
	// or owned by a different job.
	GetItem(ctx context.Context, jobID, itemID string) (*Item, error)

	// ListItems returns a page of the job's items ordered by item index.
	ListItems(ctx context.Context, jobID string, limit, offset int) ([]*Item, error)

	// ListQueuedItems returns all items of the job still in queued,
	// ordered by item index.
	ListQueuedItems(ctx context.Context, jobID string) ([]*Item, error)

	// UpdateItemStatus applies patch to the item only if its current
	// status is one of expect. ErrConflict if the precondition fails,
	// ErrItemNotFound if the row is gone.
	UpdateItemStatus(ctx context.Context, itemID string, expect []ItemStatus, patch ItemPatch) error

	// UpdateJobStatus overwrites the job's aggregate status.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error

	// ListItemStatuses returns the statuses of all the job's items.
	ListItemStatuses(ctx context.Context, jobID string) ([]ItemStatus, error)

	// ListStaleJobs returns IDs of jobs still queued or processing whose
	// creation is older than the threshold, capped at limit.
	ListStaleJobs(ctx context.Context, olderThan time.Duration, limit int) ([]string, error)
}
