// Package queue is the durable message queue client used by the bulk
// orchestration core, built on River (Postgres-native, at-least-once).
//
// It exposes two constructors: Manager combines enqueueing with consumer
// registration and worker processing, Enqueuer is insert-only for processes
// that dispatch work without executing it. Both are explicit objects
// constructed once at process start and injected into the components that
// need them; there is no process-wide registry of queue handles.
//
// # Tasks
//
// Consumers are registered as typed tasks using structural typing. A task is
// any struct with Name() and Handle(ctx, P) methods; the payload type P is
// inferred:
//
//	type FanOut struct {
//	    store bulk.Store
//	}
//
//	func (t *FanOut) Name() string { return "bulk_fan_out" }
//	func (t *FanOut) Handle(ctx context.Context, p FanOutPayload) error { ... }
//
//	mgr, err := queue.NewManager(pool,
//	    queue.WithTask(fanOut),
//	    queue.WithQueue("bulk_master", 1),
//	    queue.WithQueue("bulk_items", 8),
//	    queue.WithRetryPolicy(backoff.NewRiverRetryPolicy(backoff.Default())),
//	    queue.WithLogger(log),
//	)
//
// Returning an error from Handle marks the delivery failed; River redelivers
// it according to the configured retry policy until the message's MaxAttempts
// is reached. Handlers therefore must be idempotent.
//
// # Enqueueing
//
//	err := mgr.Enqueue(ctx, "bulk_process_item", payload,
//	    queue.InQueue("bulk_items"),
//	    queue.MaxAttempts(3),
//	)
//
// EnqueueTx inserts within a caller-owned pgx transaction, making the message
// visible only after commit. The bulk core leans on this for atomic
// create-and-dispatch and for manual retry.
//
// # Scheduled tasks
//
// Periodic maintenance tasks implement Schedule() returning a 5-field cron
// expression and are registered with WithScheduledTask.
//
// # Migrations
//
// River requires its own tables (river_job, river_leader, river_queue). Apply
// them with the river CLI before first start; see
// https://riverqueue.com/docs/migrations.
package queue
