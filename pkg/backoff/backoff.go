// Package backoff computes retry delays and exhaustion decisions for
// queue-level redelivery. The base policy is deterministic; jitter is an
// explicit, opt-in variance layered on top of it.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Default retry parameters used for bulk item and master messages.
const (
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxAttempts = 3
)

// Delayer computes the delay before retry attempt n (1-indexed).
type Delayer interface {
	Delay(attempt int) time.Duration
}

// Policy is a deterministic exponential backoff with a bounded attempt budget.
// delay(attempt) = BaseDelay * 2^(attempt-1). Policy values are immutable and
// safe for concurrent use.
type Policy struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

// Default returns the policy used for bulk messages: 2s base, 3 attempts.
func Default() Policy {
	return Policy{BaseDelay: DefaultBaseDelay, MaxAttempts: DefaultMaxAttempts}
}

// Delay returns BaseDelay * 2^(attempt-1). Attempts below 1 are clamped to 1.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << uint(attempt-1)
}

// Exhausted reports whether attempt has consumed the retry budget.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// FullJitter draws uniformly from [0, base.Delay(attempt)]. Use it when many
// retries can fire simultaneously and thundering herd is a concern. The
// exhaustion decision is unchanged from the wrapped policy.
type FullJitter struct {
	Policy
}

// Delay returns a random duration in [0, Policy.Delay(attempt)].
func (j FullJitter) Delay(attempt int) time.Duration {
	base := j.Policy.Delay(attempt)
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(base) + 1)) //nolint:gosec // jitter intentionally uses non-crypto rand
}
