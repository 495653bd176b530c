package audio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/audio"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gate struct{ accepting bool }

func (g *gate) Accepting() bool { return g.accepting }

func TestOpenPassesAPI(t *testing.T) {
	engine := new(testutil.MockEngine)
	engine.On("Init", types.AudioOpenSL).Return(nil).Once()

	b := audio.Open(context.Background(), engine, audio.WithAPI(types.AudioOpenSL))
	assert.False(t, b.Silent())
	assert.Equal(t, types.AudioOpenSL, b.Status().API)
	engine.AssertExpectations(t)
}

func TestInitFailureRunsSilent(t *testing.T) {
	engine := new(testutil.MockEngine)
	engine.On("Init", mock.Anything).Return(errors.New("no output device")).Once()

	b := audio.Open(context.Background(), engine)
	assert.True(t, b.Silent())
	assert.True(t, b.Status().InitFailed)

	s, err := b.Load("zombie_groan")
	require.NoError(t, err)
	assert.Zero(t, s)
	v, err := b.Play(s)
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.NoError(t, b.SetVolume(v, 0.5))
	assert.NoError(t, b.Stop(v))
	assert.NoError(t, b.Dispose(s))
	assert.NoError(t, b.Close())

	engine.AssertNotCalled(t, "Load", mock.Anything)
	engine.AssertNotCalled(t, "Close")
}

func TestCancelledOpenRunsSilent(t *testing.T) {
	engine := new(testutil.MockEngine)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := audio.Open(ctx, engine)
	assert.True(t, b.Silent())
	engine.AssertNotCalled(t, "Init", mock.Anything)
}

func TestLifecycleTracksHandles(t *testing.T) {
	engine := testutil.NewMockEngine(t)
	engine.On("Load", "rain").Return(audio.Sound(10), nil).Once()
	engine.On("Play", audio.Sound(10)).Return(audio.Voice(100), nil).Once()
	engine.On("Play", audio.Sound(10)).Return(audio.Voice(101), nil).Once()
	engine.On("SetVolume", audio.Voice(100), float32(1)).Return(nil).Once()
	engine.On("SetVolume", audio.Voice(101), float32(0)).Return(nil).Once()
	engine.On("Stop", audio.Voice(100)).Return(nil).Once()
	engine.On("Stop", audio.Voice(101)).Return(nil).Once()

	b := audio.Open(context.Background(), engine)

	s, err := b.Load("rain")
	require.NoError(t, err)
	v1, err := b.Play(s)
	require.NoError(t, err)
	v2, err := b.Play(s)
	require.NoError(t, err)

	require.NoError(t, b.SetVolume(v1, 3.5))
	require.NoError(t, b.SetVolume(v2, -1))

	st := b.Status()
	assert.Equal(t, 1, st.Sounds)
	assert.Equal(t, 2, st.Voices)

	require.NoError(t, b.Stop(v1))
	assert.ErrorIs(t, b.Stop(v1), audio.ErrUnknownVoice)

	// dispose stops the remaining voice and releases the sound
	require.NoError(t, b.Dispose(s))
	assert.ErrorIs(t, b.Dispose(s), audio.ErrUnknownSound)
	_, err = b.Play(s)
	assert.ErrorIs(t, err, audio.ErrUnknownSound)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	_, err = b.Load("rain")
	assert.ErrorIs(t, err, audio.ErrBridgeClosed)

	engine.AssertExpectations(t)
	engine.AssertNumberOfCalls(t, "Release", 1)
	engine.AssertNumberOfCalls(t, "Close", 1)
}

func TestCloseReleasesEverything(t *testing.T) {
	engine := testutil.NewMockEngine(t)
	engine.On("Load", "a").Return(audio.Sound(1), nil).Once()
	engine.On("Load", "b").Return(audio.Sound(2), nil).Once()
	engine.On("Play", audio.Sound(1)).Return(audio.Voice(11), nil).Once()
	engine.On("Stop", audio.Voice(11)).Return(nil).Once()

	b := audio.Open(context.Background(), engine)
	a, err := b.Load("a")
	require.NoError(t, err)
	_, err = b.Load("b")
	require.NoError(t, err)
	_, err = b.Play(a)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	engine.AssertNumberOfCalls(t, "Release", 2)
	engine.AssertExpectations(t)
}

func TestBreakerDegradesToSilence(t *testing.T) {
	engine := testutil.NewMockEngine(t)
	engine.On("Load", "boom").Return(audio.Sound(0), errors.New("engine fault")).Times(2)
	engine.On("Load", "boom").Return(audio.Sound(5), nil).Once()

	b := audio.Open(context.Background(), engine, audio.WithBreakerSettings(resilience.Settings{
		Timeout: 200 * time.Millisecond,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	}))

	for i := 0; i < 2; i++ {
		_, err := b.Load("boom")
		assert.Error(t, err)
	}
	assert.True(t, b.Silent())
	assert.Equal(t, "open", b.Status().Breaker)

	// open: calls are no-ops and never reach the engine
	s, err := b.Load("boom")
	require.NoError(t, err)
	assert.Zero(t, s)
	engine.AssertNumberOfCalls(t, "Load", 2)

	time.Sleep(300 * time.Millisecond)
	s, err = b.Load("boom")
	require.NoError(t, err)
	assert.Equal(t, audio.Sound(5), s)
	assert.False(t, b.Silent())
	assert.False(t, b.Status().Degraded)
}

func TestRejectsAfterCrash(t *testing.T) {
	engine := testutil.NewMockEngine(t)
	g := &gate{accepting: true}
	b := audio.Open(context.Background(), engine, audio.WithGate(g))

	g.accepting = false
	_, err := b.Load("x")
	assert.ErrorIs(t, err, errs.ErrSessionCrashed)
	engine.AssertNotCalled(t, "Load", mock.Anything)
}
