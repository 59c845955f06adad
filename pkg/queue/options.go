package queue

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// config holds manager configuration.
type config struct {
	registry    *taskRegistry
	queues      map[string]int
	logger      *slog.Logger
	retryPolicy river.ClientRetryPolicy
	schedules   []scheduleConfig
	maxWorkers  int
}

func newConfig() *config {
	return &config{
		registry: newTaskRegistry(),
		queues:   make(map[string]int),
	}
}

// scheduledHandler is the handler signature for scheduled tasks.
type scheduledHandler func(ctx context.Context) error

// scheduleConfig holds one scheduled task registration.
type scheduleConfig struct {
	handler  scheduledHandler
	name     string
	schedule string
}

// Option configures the queue manager.
type Option func(*config)

// WithTask registers a consumer task using structural typing. The task must
// implement Name() and Handle(ctx, P); the payload type P is inferred from
// the Handle signature.
//
// Example:
//
//	queue.WithTask(bulk.NewItemTask(store, processor, policy, log))
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), newTaskWrapper[P, T](task))
	}
}

// WithScheduledTask registers a periodic task. The task must implement
// Name(), Schedule() (a 5-field cron expression), and Handle(ctx).
//
// Example:
//
//	queue.WithScheduledTask(bulk.NewSweepTask(store, log)) // "*/5 * * * *"
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
			handler:  task.Handle,
		})
	}
}

// WithQueue configures a named queue with a fixed worker count. Worker count
// is the per-process concurrency ceiling for messages on that queue.
//
// Example:
//
//	queue.WithQueue("bulk_master", 1)
//	queue.WithQueue("bulk_items", itemConcurrency)
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithRetryPolicy sets the client-level retry policy controlling redelivery
// delay after a handler error. Defaults to River's built-in policy.
//
// Example:
//
//	queue.WithRetryPolicy(backoff.NewRiverRetryPolicy(backoff.Default()))
func WithRetryPolicy(p river.ClientRetryPolicy) Option {
	return func(c *config) {
		if p != nil {
			c.retryPolicy = p
		}
	}
}

// WithLogger sets the logger for queue processing. Defaults to a no-op
// logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers sets the worker count for the default queue and any queue
// registered without an explicit count. Defaults to 100.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}
