// Package bulk implements the bulk job orchestration core: splitting a
// submitted batch into a master job and per-item jobs, fanning items out
// through the durable queue, tracking persistent state transitions with
// bounded retries, and aggregating item outcomes into an overall job status.
//
// The package assumes at-least-once delivery. Every consumer is idempotent:
// terminal items are inert, fan-out only touches items still in queued, and
// job status is always recomputed from a fresh snapshot rather than counted
// incrementally.
//
// Components:
//
//   - Service: intake (CreateJob) and manual retry (RetryItem), both pairing
//     row writes with transactional enqueue.
//   - FanOutTask: consumes master messages, enqueues one item message per
//     queued item under a bounded concurrency ceiling.
//   - ItemTask: consumes item messages, drives one item through
//     queued → processing → succeeded|failed around the injected Processor.
//   - Aggregate: recomputes a job's status from its items' statuses.
//   - SweepTask: periodic re-aggregation of jobs stuck in flight.
//   - Store / PGStore: queryable persistent state, the single source of
//     truth, mutated only through single-row conditional updates.
package bulk
