package bulk

import "time"

// Queue and task names used by the orchestration core. A process consumes
// a queue only if it registers the matching task and queue with its manager,
// which is how master and item roles are split across worker fleets.
const (
	QueueMaster = "bulk_master"
	QueueItems  = "bulk_items"

	TaskFanOut      = "bulk_fan_out"
	TaskProcessItem = "bulk_process_item"
	TaskSweep       = "bulk_sweep_stale"
)

// Config holds orchestration parameters, populated from environment
// variables with caarlos0/env.
type Config struct {
	// ItemConcurrency bounds in-flight item work per worker process: it is
	// both the bulk_items queue worker count and the master's fan-out
	// enqueue ceiling.
	ItemConcurrency int `env:"BULK_ITEM_CONCURRENCY" envDefault:"8"`

	// Retry budget and backoff base for item and master messages.
	MaxAttempts      int           `env:"BULK_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBaseDelay time.Duration `env:"BULK_BACKOFF_BASE_DELAY" envDefault:"2s"`

	// AttemptTimeout bounds one processing attempt; a timed-out attempt
	// classifies as transient.
	AttemptTimeout time.Duration `env:"BULK_ATTEMPT_TIMEOUT" envDefault:"60s"`

	// Jobs still in flight after SweepAfter are re-aggregated by the
	// periodic sweeper.
	SweepAfter time.Duration `env:"BULK_SWEEP_AFTER" envDefault:"15m"`

	// SweepLimit caps jobs examined per sweep run.
	SweepLimit int `env:"BULK_SWEEP_LIMIT" envDefault:"100"`
}
