package bulk

import (
	"context"
	"log/slog"
	"time"

	"github.com/medicalexcom/avidiatech-app-sub005/pkg/logger"
)

// SweepTask periodically re-aggregates jobs that have been in flight longer
// than a threshold. It heals the gap left when a worker crashes between an
// item's terminal write and its aggregation call: the job row would
// otherwise report processing forever even though every item is terminal.
// The sweep never touches item state.
type SweepTask struct {
	store     Store
	olderThan time.Duration
	limit     int
	log       *slog.Logger
}

// NewSweepTask creates the sweeper. Jobs queued or processing for longer
// than olderThan are re-aggregated, at most limit per run.
func NewSweepTask(store Store, olderThan time.Duration, limit int, log *slog.Logger) *SweepTask {
	if limit < 1 {
		limit = 100
	}
	if log == nil {
		log = logger.NewNope()
	}
	return &SweepTask{
		store:     store,
		olderThan: olderThan,
		limit:     limit,
		log:       log,
	}
}

func (t *SweepTask) Name() string { return TaskSweep }

func (t *SweepTask) Schedule() string { return "*/5 * * * *" }

func (t *SweepTask) Handle(ctx context.Context) error {
	jobIDs, err := t.store.ListStaleJobs(ctx, t.olderThan, t.limit)
	if err != nil {
		return err
	}

	for _, jobID := range jobIDs {
		if err := Aggregate(ctx, t.store, jobID); err != nil {
			// Keep sweeping; the next run retries this job.
			t.log.WarnContext(ctx, "sweep aggregation failed",
				slog.String("bulk_job_id", jobID),
				slog.Any("error", err),
			)
		}
	}

	if len(jobIDs) > 0 {
		t.log.InfoContext(ctx, "stale job sweep complete",
			slog.Int("jobs", len(jobIDs)),
		)
	}
	return nil
}
