package bulk

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medicalexcom/avidiatech-app-sub005/pkg/backoff"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/logger"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/queue"
)

// FanOutTask consumes master messages and enqueues one item message per item
// still in queued. Fan-out is fire-and-forget: the task returns once
// messages are inserted, not when items complete.
//
// Idempotence: a duplicate master delivery re-reads the queued set, so items
// the item worker has already moved to processing are skipped. Item-level
// uniqueness keys catch the narrow window before that transition.
type FanOutTask struct {
	store       Store
	enq         Enqueuer
	policy      backoff.Policy
	concurrency int
	log         *slog.Logger
}

// NewFanOutTask creates the master consumer. concurrency bounds in-flight
// enqueue calls; values below 1 fall back to 1.
func NewFanOutTask(store Store, enq Enqueuer, policy backoff.Policy, concurrency int, log *slog.Logger) *FanOutTask {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = logger.NewNope()
	}
	return &FanOutTask{
		store:       store,
		enq:         enq,
		policy:      policy,
		concurrency: concurrency,
		log:         log,
	}
}

func (t *FanOutTask) Name() string { return TaskFanOut }

// Handle fans the job out. A store or enqueue failure is returned so the
// queue retries the whole master message; items enqueued before the failure
// are covered by the item worker's idempotence guard. After the master's own
// retries are exhausted the job stays inspectable in its pre-fan-out state
// for operational remediation; it is never auto-failed.
func (t *FanOutTask) Handle(ctx context.Context, p FanOutPayload) error {
	if p.BulkJobID == "" {
		return Validationf("bulk: fan-out: job identifier is required")
	}

	items, err := t.store.ListQueuedItems(ctx, p.BulkJobID)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		t.log.InfoContext(ctx, "fan-out found no queued items",
			slog.String("bulk_job_id", p.BulkJobID),
		)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)

	for _, item := range items {
		g.Go(func() error {
			return t.enq.Enqueue(gctx, TaskProcessItem,
				ItemPayload{BulkJobID: item.JobID, BulkJobItemID: item.ID},
				queue.InQueue(QueueItems),
				queue.MaxAttempts(t.policy.MaxAttempts),
				queue.Tags("bulk", item.JobID),
				// Dedup window for duplicate master deliveries racing the
				// item worker's queued → processing transition.
				queue.UniqueFor(time.Minute),
				queue.UniqueKey(item.ID),
			)
		})
	}

	if err := g.Wait(); err != nil {
		return Infrastructure(err)
	}

	t.log.InfoContext(ctx, "fan-out complete",
		slog.String("bulk_job_id", p.BulkJobID),
		slog.Int("items", len(items)),
	)
	return nil
}
