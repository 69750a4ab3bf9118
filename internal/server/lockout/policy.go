// Package lockout decides whether an account may attempt to authenticate,
// based on its consecutive failure count and lockout instant. It has no
// storage or clock of its own: callers pass state and "now" in, and persist
// whatever state comes out.
package lockout

import "time"

const (
	DefaultThreshold = 5
	DefaultDuration  = 30 * time.Minute
)

// State is the per-account counter pair persisted by the credential store.
type State struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// Equal reports whether s and o describe the same state.
func (s State) Equal(o State) bool {
	if s.FailedAttempts != o.FailedAttempts {
		return false
	}
	switch {
	case s.LockedUntil == nil && o.LockedUntil == nil:
		return true
	case s.LockedUntil == nil || o.LockedUntil == nil:
		return false
	default:
		return s.LockedUntil.Equal(*o.LockedUntil)
	}
}

// Decision is the outcome of Check.
type Decision struct {
	Locked bool
	// Remaining is whole seconds, rounded up. Zero when not locked.
	Remaining time.Duration
}

type Policy struct {
	threshold int
	duration  time.Duration
}

type Option func(*Policy)

// WithThreshold sets how many consecutive failures lock the account.
// Values below 1 are ignored.
func WithThreshold(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.threshold = n
		}
	}
}

// WithDuration sets how long a lockout lasts. Non-positive values are ignored.
func WithDuration(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.duration = d
		}
	}
}

func NewPolicy(opts ...Option) *Policy {
	p := &Policy{threshold: DefaultThreshold, duration: DefaultDuration}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Policy) Threshold() int          { return p.threshold }
func (p *Policy) Duration() time.Duration { return p.duration }

// Check reports whether s is locked at now.
func (p *Policy) Check(s State, now time.Time) Decision {
	if s.LockedUntil == nil || !s.LockedUntil.After(now) {
		return Decision{}
	}
	remaining := s.LockedUntil.Sub(now)
	if rem := remaining % time.Second; rem != 0 {
		remaining += time.Second - rem
	}
	return Decision{Locked: true, Remaining: remaining}
}

// RegisterFailure applies one failed verification to s. A currently locked
// state is returned unchanged. A lockout that has already expired starts a
// fresh series. justLocked is true when this failure reached the threshold.
func (p *Policy) RegisterFailure(s State, now time.Time) (next State, justLocked bool) {
	if p.Check(s, now).Locked {
		return s, false
	}

	attempts := s.FailedAttempts
	if s.LockedUntil != nil {
		attempts = 0
	}
	attempts++

	if attempts >= p.threshold {
		until := now.Add(p.duration)
		return State{FailedAttempts: attempts, LockedUntil: &until}, true
	}
	return State{FailedAttempts: attempts}, false
}

// RegisterSuccess returns the cleared state stored after a successful
// login or password reset.
func (p *Policy) RegisterSuccess() State {
	return State{}
}
