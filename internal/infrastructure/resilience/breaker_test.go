package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errEngine = errors.New("engine failure")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(settings Settings) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := New("test", settings)
	b.now = clock.Now
	b.mu.Lock()
	b.resetGeneration(clock.Now())
	b.mu.Unlock()
	return b, clock
}

func run(b *Breaker, ok bool) error {
	return b.Execute(func() error {
		if ok {
			return nil
		}
		return errEngine
	})
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
			},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "success resets the failure streak",
			settings: Settings{
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
			},
			requests:      []bool{false, true, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBreaker(tt.settings)
			for _, ok := range tt.requests {
				_ = run(b, ok)
			}
			assert.Equal(t, tt.expectedState, b.State())
		})
	}
}

func TestBreakerOpenFailsFast(t *testing.T) {
	b, _ := newTestBreaker(Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	require.ErrorIs(t, run(b, false), errEngine)

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	var transitions []string
	b, clock := newTestBreaker(Settings{
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = run(b, false)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, run(b, true))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Settings{
		Timeout:     time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	_ = run(b, false)
	clock.Advance(2 * time.Second)

	_ = run(b, false)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIntervalClearsCounts(t *testing.T) {
	b, clock := newTestBreaker(Settings{Interval: time.Minute})
	_ = run(b, false)
	_ = run(b, false)
	assert.Equal(t, uint32(2), b.Counts().TotalFailures)

	clock.Advance(2 * time.Minute)
	_ = b.State()
	assert.Equal(t, Counts{}, b.Counts())
}

func TestDoReturnsValue(t *testing.T) {
	b, _ := newTestBreaker(Settings{})
	v, err := Do(b, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, uint32(1), b.Counts().TotalSuccesses)
}

func TestIsFailureClassifier(t *testing.T) {
	benign := errors.New("voice stolen")
	b, _ := newTestBreaker(Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, benign) },
	})

	err := b.Execute(func() error { return benign })
	assert.ErrorIs(t, err, benign)
	assert.Equal(t, StateClosed, b.State())
}

func TestPanicCountsAsFailure(t *testing.T) {
	b, _ := newTestBreaker(Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	assert.Panics(t, func() {
		_ = b.Execute(func() error { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}
