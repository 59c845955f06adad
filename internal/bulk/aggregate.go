package bulk

import "context"

// JobStatusFromItems computes a job's aggregate status from the multiset of
// its items' statuses:
//
//   - any item queued or processing  → processing
//   - all items succeeded            → completed
//   - all items failed               → failed
//   - mix of succeeded and failed    → partial
//
// An empty slice reports queued; intake guarantees at least one item, so
// this only shows up between job insert and item insert visibility.
func JobStatusFromItems(statuses []ItemStatus) JobStatus {
	if len(statuses) == 0 {
		return JobQueued
	}

	var succeeded, failed int
	for _, st := range statuses {
		switch st {
		case ItemSucceeded:
			succeeded++
		case ItemFailed:
			failed++
		default:
			return JobProcessing
		}
	}

	switch {
	case failed == 0:
		return JobCompleted
	case succeeded == 0:
		return JobFailed
	default:
		return JobPartial
	}
}

// Aggregate recomputes the job's status from a fresh snapshot of its items
// and writes it back. It is safe under concurrent invocation: every caller
// recomputes from current state rather than adjusting counters, so a stale
// write is corrected by whichever terminal transition runs last.
func Aggregate(ctx context.Context, store Store, jobID string) error {
	statuses, err := store.ListItemStatuses(ctx, jobID)
	if err != nil {
		return err
	}
	return store.UpdateJobStatus(ctx, jobID, JobStatusFromItems(statuses))
}
