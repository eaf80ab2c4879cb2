package resilience

import "time"

// Policy bounds retries and breaker behaviour for calls to one dependency.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	BreakerEnabled     bool
	BreakerMinRequests uint32
	BreakerFailRatio   float64
	BreakerOpenFor     time.Duration
	BreakerProbeCalls  uint32
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		Multiplier:     2.0,

		BreakerEnabled:     true,
		BreakerMinRequests: 10,
		BreakerFailRatio:   0.5,
		BreakerOpenFor:     30 * time.Second,
		BreakerProbeCalls:  2,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = max(def.MaxBackoff, p.InitialBackoff)
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = def.Multiplier
	}
	if p.BreakerMinRequests == 0 {
		p.BreakerMinRequests = def.BreakerMinRequests
	}
	if p.BreakerFailRatio <= 0 || p.BreakerFailRatio > 1 {
		p.BreakerFailRatio = def.BreakerFailRatio
	}
	if p.BreakerOpenFor <= 0 {
		p.BreakerOpenFor = def.BreakerOpenFor
	}
	if p.BreakerProbeCalls == 0 {
		p.BreakerProbeCalls = def.BreakerProbeCalls
	}
	return p
}

// backoffFor returns the wait before the given retry (1-based).
func (p Policy) backoffFor(retry int) time.Duration {
	wait := float64(p.InitialBackoff)
	for i := 1; i < retry; i++ {
		wait *= p.Multiplier
		if time.Duration(wait) >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return min(time.Duration(wait), p.MaxBackoff)
}
