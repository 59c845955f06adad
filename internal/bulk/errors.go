package bulk

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies errors flowing through the orchestration core. Consumers
// branch on kinds, never on message text; the transport boundary maps kinds
// to status codes.
type Kind int

const (
	// KindUnknown marks errors with no explicit classification. The item
	// worker treats unknown processor errors as transient so a bug in
	// classification costs extra retries, not lost work.
	KindUnknown Kind = iota

	// KindValidation rejects malformed input before any state mutates.
	KindValidation

	// KindNotFound reports an absent job or item; never retried.
	KindNotFound

	// KindConflict reports a conditional update whose precondition failed,
	// usually a concurrent worker winning the transition.
	KindConflict

	// KindTransient marks retryable processing failures (timeouts, rate
	// limits, 5xx-equivalents).
	KindTransient

	// KindPermanent marks non-retryable processing failures (validation,
	// 4xx-equivalents); fails the item immediately.
	KindPermanent

	// KindInfrastructure marks failures of the store or queue themselves,
	// surfaced as retryable operational errors.
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Sentinel errors for the store contract.
var (
	ErrJobNotFound  = NotFound(errors.New("bulk: job not found"))
	ErrItemNotFound = NotFound(errors.New("bulk: item not found"))
	ErrConflict     = Conflict(errors.New("bulk: conditional update conflict"))
)

// kindError attaches a Kind to an error without hiding the cause.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }
func (e *kindError) Kind() Kind    { return e.kind }

// WithKind wraps err with an explicit kind. A nil err returns nil.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// Validationf builds a validation error from a format string.
func Validationf(format string, args ...any) error {
	return WithKind(KindValidation, fmt.Errorf(format, args...))
}

// NotFound marks err as a not-found condition.
func NotFound(err error) error { return WithKind(KindNotFound, err) }

// Conflict marks err as a failed conditional update.
func Conflict(err error) error { return WithKind(KindConflict, err) }

// Transient marks err as retryable.
func Transient(err error) error { return WithKind(KindTransient, err) }

// Permanent marks err as non-retryable.
func Permanent(err error) error { return WithKind(KindPermanent, err) }

// Infrastructure marks err as a store or queue failure.
func Infrastructure(err error) error { return WithKind(KindInfrastructure, err) }

// KindOf returns the first explicit kind found in err's chain. Deadline and
// cancellation errors classify as transient; everything else unclassified is
// KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}

	return KindUnknown
}
