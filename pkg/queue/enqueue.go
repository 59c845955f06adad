package queue

import "time"

// enqueueConfig holds options for enqueueing one message.
type enqueueConfig struct {
	scheduledAt *time.Time
	queue       string
	uniqueKey   string
	tags        []string
	maxAttempts int
	uniqueFor   time.Duration
	priority    int
}

// EnqueueOption configures message enqueueing.
type EnqueueOption func(*enqueueConfig)

// InQueue routes the message to a named queue. Defaults to the default
// queue.
func InQueue(name string) EnqueueOption {
	return func(c *enqueueConfig) {
		if name != "" {
			c.queue = name
		}
	}
}

// ScheduledAt delays processing until a specific time.
func ScheduledAt(t time.Time) EnqueueOption {
	return func(c *enqueueConfig) {
		c.scheduledAt = &t
	}
}

// ScheduledIn delays processing by a duration from now.
func ScheduledIn(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		t := time.Now().Add(d)
		c.scheduledAt = &t
	}
}

// MaxAttempts bounds delivery attempts for this message. After the final
// failed attempt the message is discarded rather than redelivered. Defaults
// to River's default (25).
//
// Example:
//
//	mgr.Enqueue(ctx, "bulk_process_item", payload, queue.MaxAttempts(3))
func MaxAttempts(n int) EnqueueOption {
	return func(c *enqueueConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// UniqueFor ensures at most one message with the same task name and unique
// key exists within the period; duplicates inside the window are skipped.
//
// Example:
//
//	// Retried POSTs for the same job insert one master message.
//	mgr.EnqueueTx(ctx, tx, "bulk_fan_out", payload,
//	    queue.UniqueFor(time.Minute),
//	    queue.UniqueKey(jobID))
func UniqueFor(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		c.uniqueFor = d
	}
}

// UniqueKey sets the deduplication key used together with UniqueFor.
func UniqueKey(key string) EnqueueOption {
	return func(c *enqueueConfig) {
		c.uniqueKey = key
	}
}

// Priority sets message priority; lower values are processed first.
func Priority(p int) EnqueueOption {
	return func(c *enqueueConfig) {
		if p > 0 {
			c.priority = p
		}
	}
}

// Tags attaches metadata tags for filtering and debugging.
func Tags(tags ...string) EnqueueOption {
	return func(c *enqueueConfig) {
		c.tags = append(c.tags, tags...)
	}
}
