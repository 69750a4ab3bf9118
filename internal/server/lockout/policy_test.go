package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewPolicy_Defaults(t *testing.T) {
	p := NewPolicy()
	assert.Equal(t, 5, p.Threshold())
	assert.Equal(t, 30*time.Minute, p.Duration())

	p = NewPolicy(WithThreshold(3), WithDuration(time.Minute), WithThreshold(0), WithDuration(-1))
	assert.Equal(t, 3, p.Threshold())
	assert.Equal(t, time.Minute, p.Duration())
}

func TestCheck_UnlockedAndExpired(t *testing.T) {
	p := NewPolicy()
	assert.False(t, p.Check(State{}, t0).Locked)

	past := t0.Add(-time.Second)
	assert.False(t, p.Check(State{FailedAttempts: 5, LockedUntil: &past}, t0).Locked)

	exact := t0
	assert.False(t, p.Check(State{LockedUntil: &exact}, t0).Locked, "lock ends at its instant")
}

func TestCheck_RemainingRoundsUp(t *testing.T) {
	p := NewPolicy()
	until := t0.Add(90*time.Second + 200*time.Millisecond)

	d := p.Check(State{FailedAttempts: 5, LockedUntil: &until}, t0)
	require.True(t, d.Locked)
	assert.Equal(t, 91*time.Second, d.Remaining)

	until = t0.Add(10 * time.Second)
	d = p.Check(State{LockedUntil: &until}, t0)
	assert.Equal(t, 10*time.Second, d.Remaining)
}

func TestRegisterFailure_LocksAtThreshold(t *testing.T) {
	p := NewPolicy()
	s := State{}

	for i := 1; i < 5; i++ {
		var locked bool
		s, locked = p.RegisterFailure(s, t0)
		assert.False(t, locked)
		assert.Equal(t, i, s.FailedAttempts)
		assert.Nil(t, s.LockedUntil)
	}

	s, locked := p.RegisterFailure(s, t0)
	require.True(t, locked)
	assert.Equal(t, 5, s.FailedAttempts)
	require.NotNil(t, s.LockedUntil)
	assert.True(t, s.LockedUntil.Equal(t0.Add(30*time.Minute)))

	d := p.Check(s, t0.Add(time.Second))
	assert.True(t, d.Locked)
	assert.Equal(t, 30*time.Minute-time.Second, d.Remaining)
}

func TestRegisterFailure_WhileLocked_NoIncrement(t *testing.T) {
	p := NewPolicy()
	until := t0.Add(time.Minute)
	s := State{FailedAttempts: 5, LockedUntil: &until}

	next, locked := p.RegisterFailure(s, t0)
	assert.False(t, locked)
	assert.True(t, next.Equal(s))
}

func TestRegisterFailure_AfterExpiry_StartsFreshSeries(t *testing.T) {
	p := NewPolicy()
	until := t0.Add(-time.Minute)
	s := State{FailedAttempts: 5, LockedUntil: &until}

	next, locked := p.RegisterFailure(s, t0)
	assert.False(t, locked)
	assert.Equal(t, 1, next.FailedAttempts)
	assert.Nil(t, next.LockedUntil)
}

func TestRegisterSuccess_Clears(t *testing.T) {
	p := NewPolicy()
	assert.True(t, p.RegisterSuccess().Equal(State{}))
}

func TestState_Equal(t *testing.T) {
	a := t0
	b := t0.In(time.FixedZone("x", 3600))
	c := t0.Add(time.Second)

	assert.True(t, State{1, &a}.Equal(State{1, &b}))
	assert.False(t, State{1, &a}.Equal(State{1, &c}))
	assert.False(t, State{1, &a}.Equal(State{1, nil}))
	assert.False(t, State{1, nil}.Equal(State{2, nil}))
}
