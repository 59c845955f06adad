package bulk

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the aggregate status of a bulk job. It is a pure function of
// the statuses of the job's items and is written only by Aggregate after
// creation.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobPartial    JobStatus = "partial"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ItemStatus is the lifecycle status of one work item. Transitions move
// forward only (queued → processing → succeeded|failed); a terminal status
// is left only through an explicit manual retry back to queued.
type ItemStatus string

const (
	ItemQueued     ItemStatus = "queued"
	ItemProcessing ItemStatus = "processing"
	ItemSucceeded  ItemStatus = "succeeded"
	ItemFailed     ItemStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s ItemStatus) Terminal() bool {
	return s == ItemSucceeded || s == ItemFailed
}

// Job is a user-submitted batch of work items tracked as one logical unit.
type Job struct {
	ID        string
	Name      string
	OrgID     *uuid.UUID
	CreatedBy uuid.UUID
	Options   json.RawMessage
	Status    JobStatus
	CreatedAt time.Time
}

// Item is one unit of work within a job, independently retried and tracked.
// Index is unique within a job and defines a stable display order; it is not
// a processing-order contract.
type Item struct {
	ID         string
	JobID      string
	Index      int
	InputURL   string
	Metadata   json.RawMessage
	Status     ItemStatus
	Attempts   int
	LastError  *string
	StartedAt  *time.Time
	FinishedAt *time.Time
}
