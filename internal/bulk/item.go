package bulk

import (
	"context"
	"log/slog"
	"time"

	"github.com/medicalexcom/avidiatech-app-sub005/pkg/backoff"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/logger"
)

// Processor executes the business logic for one item. It is an external
// collaborator; the orchestration core only classifies its errors. Return an
// error wrapped with Transient or Permanent to steer retry behavior;
// unclassified errors are treated as transient.
type Processor interface {
	Process(ctx context.Context, item *Item) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, item *Item) error

func (f ProcessorFunc) Process(ctx context.Context, item *Item) error { return f(ctx, item) }

// ItemTask consumes item messages and drives one item through
// queued → processing → succeeded|failed. Every state transition is
// persisted before the handler returns, so crash recovery relies solely on
// queue redelivery.
type ItemTask struct {
	store   Store
	proc    Processor
	policy  backoff.Policy
	timeout time.Duration
	log     *slog.Logger
}

// NewItemTask creates the item consumer. timeout bounds one processing
// attempt; values of zero or below disable the per-attempt deadline.
func NewItemTask(store Store, proc Processor, policy backoff.Policy, timeout time.Duration, log *slog.Logger) *ItemTask {
	if log == nil {
		log = logger.NewNope()
	}
	return &ItemTask{
		store:   store,
		proc:    proc,
		policy:  policy,
		timeout: timeout,
		log:     log,
	}
}

func (t *ItemTask) Name() string { return TaskProcessItem }

// Handle processes one delivery. Returning nil consumes the message;
// returning an error asks the queue to redeliver it after backoff.
func (t *ItemTask) Handle(ctx context.Context, p ItemPayload) error {
	if p.BulkJobID == "" || p.BulkJobItemID == "" {
		return Validationf("bulk: item message missing identifiers")
	}

	log := t.log.With(
		slog.String("bulk_job_id", p.BulkJobID),
		slog.String("bulk_job_item_id", p.BulkJobItemID),
	)

	item, err := t.store.GetItem(ctx, p.BulkJobID, p.BulkJobItemID)
	if err != nil {
		if KindOf(err) == KindNotFound {
			// Deleted job or stale message; nothing to do.
			log.WarnContext(ctx, "item message for missing item dropped")
			return nil
		}
		return err
	}

	// Idempotence guard: duplicate delivery of a finished item is a no-op,
	// with no writes to attempts, errors, or timestamps.
	if item.Status.Terminal() {
		log.DebugContext(ctx, "duplicate delivery of terminal item ignored",
			slog.String("status", string(item.Status)),
		)
		return nil
	}

	err = t.store.UpdateItemStatus(ctx, item.ID,
		[]ItemStatus{ItemQueued, ItemProcessing},
		ItemPatch{Status: ItemProcessing, IncAttempts: true, MarkStarted: true},
	)
	if err != nil {
		if KindOf(err) == KindConflict {
			// A concurrent worker won the transition; let it own the item.
			log.DebugContext(ctx, "lost processing transition to concurrent worker")
			return nil
		}
		return err
	}
	item.Status = ItemProcessing
	item.Attempts++

	perr := t.process(ctx, item)
	if perr == nil {
		if err := t.store.UpdateItemStatus(ctx, item.ID,
			[]ItemStatus{ItemProcessing},
			ItemPatch{Status: ItemSucceeded, MarkFinished: true, ClearLastError: true},
		); err != nil {
			return err
		}
		t.aggregate(ctx, log, item.JobID)
		return nil
	}

	detail := perr.Error()
	kind := KindOf(perr)

	if kind == KindPermanent || t.policy.Exhausted(item.Attempts) {
		if err := t.store.UpdateItemStatus(ctx, item.ID,
			[]ItemStatus{ItemProcessing},
			ItemPatch{Status: ItemFailed, MarkFinished: true, LastError: &detail},
		); err != nil {
			return err
		}
		log.InfoContext(ctx, "item failed",
			slog.String("kind", kind.String()),
			slog.Int("attempts", item.Attempts),
			slog.String("error", detail),
		)
		t.aggregate(ctx, log, item.JobID)
		return nil
	}

	// Transient with budget left: record the failure detail, keep the item
	// visibly in flight, and re-raise so the queue redelivers after backoff.
	if err := t.store.UpdateItemStatus(ctx, item.ID,
		[]ItemStatus{ItemProcessing},
		ItemPatch{Status: ItemProcessing, LastError: &detail},
	); err != nil {
		return err
	}
	log.InfoContext(ctx, "item attempt failed, will retry",
		slog.Int("attempt", item.Attempts),
		slog.String("error", detail),
	)
	return Transient(perr)
}

// process runs one attempt under the per-attempt deadline. A timed-out
// attempt classifies as transient via KindOf.
func (t *ItemTask) process(ctx context.Context, item *Item) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.proc.Process(ctx, item)
}

// aggregate recomputes the owning job's status. Failure here is logged, not
// returned: the item's terminal write is already durable, redelivery would
// no-op on the terminal guard, and the periodic sweeper converges the job
// status.
func (t *ItemTask) aggregate(ctx context.Context, log *slog.Logger, jobID string) {
	if err := Aggregate(ctx, t.store, jobID); err != nil {
		log.ErrorContext(ctx, "job status aggregation failed",
			slog.Any("error", err),
		)
	}
}
