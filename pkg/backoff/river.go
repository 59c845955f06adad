package backoff

import (
	"time"

	"github.com/riverqueue/river/rivertype"
)

// RiverRetryPolicy adapts a Delayer to river.ClientRetryPolicy so queue
// redelivery follows the documented schedule instead of River's default curve.
type RiverRetryPolicy struct {
	Delayer Delayer
}

// NewRiverRetryPolicy wraps a delayer for use as a River client retry policy.
func NewRiverRetryPolicy(d Delayer) *RiverRetryPolicy {
	return &RiverRetryPolicy{Delayer: d}
}

// NextRetry schedules the next attempt relative to now. River passes the
// attempt that just failed in job.Attempt, which maps 1:1 onto the policy's
// 1-indexed attempt numbering.
func (p *RiverRetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	return time.Now().Add(p.Delayer.Delay(job.Attempt))
}
