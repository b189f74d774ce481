package stream

import (
	"math"
	"time"
)

// Policy controls reconnect backoff.
type Policy struct {
	// MaxAttempts bounds consecutive failed connection attempts per run.
	// Zero retries forever.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultPolicy returns 10 attempts starting at 500ms, doubling, capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 10,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
	}
}

// withDefaults fills unset fields from DefaultPolicy. MaxAttempts is kept as
// given since zero is meaningful.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	return p
}

// Delay returns min(MaxDelay, BaseDelay * Multiplier^(attempt-1)).
// Attempts below 1 are treated as 1.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && (math.IsInf(d, 0) || math.IsNaN(d) || d > float64(p.MaxDelay)) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// exhausted reports whether failures consecutive failed attempts use up the budget.
func (p Policy) exhausted(failures int) bool {
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}
