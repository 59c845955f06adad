package queue

import "errors"

// Queue client errors.
var (
	// ErrUnknownTask is returned when attempting to execute or enqueue a
	// task that has not been registered.
	ErrUnknownTask = errors.New("queue: unknown task")

	// ErrInvalidPayload is returned when a delivered payload cannot be
	// unmarshaled into the task's payload type.
	ErrInvalidPayload = errors.New("queue: invalid payload")

	// ErrAlreadyStarted is returned when starting a manager that is
	// already running.
	ErrAlreadyStarted = errors.New("queue: already started")

	// ErrNotStarted is returned when stopping a manager that is not
	// running.
	ErrNotStarted = errors.New("queue: not started")

	// ErrPoolRequired is returned when constructing a manager or enqueuer
	// without a database pool.
	ErrPoolRequired = errors.New("queue: pool is required")
)
