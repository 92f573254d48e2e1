// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"time"

	"golang.org/x/time/rate"
)

// Regulator bounds how often the scheduler's idle loop re-scans the
// runnable set when nothing is runnable (spec §4.6 "Regulation"),
// independent of the earliest-rt-reschedule-deadline sleep. Disabling
// regulation (spec's NO_REGULATION) is equivalent to an unlimited rate.
type Regulator struct {
	limiter *rate.Limiter
}

// NewRegulator builds a Regulator allowing up to ratePerSec idle polls
// per second. ratePerSec <= 0 disables regulation (NO_REGULATION).
func NewRegulator(ratePerSec int) *Regulator {
	if ratePerSec <= 0 {
		return &Regulator{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Regulator{limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1)}
}

// Allow reports whether the caller may proceed with an idle poll now.
func (r *Regulator) Allow() bool { return r.limiter.Allow() }

// WaitHint estimates how long to wait before the next token is likely
// available, for callers that want to sleep rather than busy-poll Allow.
func (r *Regulator) WaitHint() time.Duration {
	res := r.limiter.Reserve()
	if !res.OK() {
		return time.Millisecond
	}
	d := res.Delay()
	res.Cancel()
	if d <= 0 {
		return time.Millisecond
	}
	return d
}
