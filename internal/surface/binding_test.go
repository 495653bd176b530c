package surface

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindRejectsInvalidTarget(t *testing.T) {
	b := NewBinding(nil)
	assert.ErrorIs(t, b.Bind(0, 10, 10), ErrInvalidTarget)
	assert.ErrorIs(t, b.Bind(1, 0, 10), ErrInvalidTarget)
	assert.False(t, b.Target().Bound())
}

func TestSwapWhileUnboundBuffersOne(t *testing.T) {
	b := NewBinding(nil)

	var presented []Frame
	swap := func(f Frame) error {
		presented = append(presented, f)
		return nil
	}

	require.NoError(t, b.Swap(swap))
	require.NoError(t, b.Swap(swap))
	require.NoError(t, b.Swap(swap))
	assert.Empty(t, presented)
	assert.True(t, b.Pending())
	assert.Equal(t, uint64(2), b.Coalesced())

	require.NoError(t, b.Bind(42, 800, 600))
	assert.Empty(t, presented, "bind must not present on the caller's thread")
	assert.True(t, b.Pending())

	require.NoError(t, b.Swap(swap))
	require.Len(t, presented, 1)
	assert.Equal(t, NativeWindow(42), presented[0].Window)
	assert.True(t, presented[0].Rebound)
	assert.False(t, b.Pending())
	assert.Equal(t, uint64(3), b.Coalesced())

	require.NoError(t, b.Swap(swap))
	require.Len(t, presented, 2)
	assert.False(t, presented[1].Rebound)
}

func TestAcquirePresentsBufferedSwap(t *testing.T) {
	b := NewBinding(nil)

	var presented []Frame
	require.NoError(t, b.Swap(func(f Frame) error {
		presented = append(presented, f)
		return nil
	}))

	// unbound: nothing to present yet
	assert.False(t, b.Acquire().Bound())
	assert.Empty(t, presented)
	b.Release()

	require.NoError(t, b.Bind(9, 640, 480))
	assert.Empty(t, presented)

	target := b.Acquire()
	defer b.Release()
	assert.Equal(t, NativeWindow(9), target.Window)
	require.Len(t, presented, 1)
	assert.True(t, presented[0].Rebound)
	assert.False(t, b.Pending())
}

func TestDirtyReportsRebindOnce(t *testing.T) {
	b := NewBinding(nil)
	require.NoError(t, b.Bind(1, 100, 100))
	assert.False(t, b.Dirty(), "no render thread was using the surface")

	b.Acquire()
	require.NoError(t, b.Bind(2, 200, 100))
	assert.True(t, b.Dirty())
	assert.False(t, b.Dirty())

	w, h := b.Size()
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)
}

func TestUnbindWaitsForRelease(t *testing.T) {
	b := NewBinding(nil)
	require.NoError(t, b.Bind(1, 100, 100))
	b.Acquire()

	var released atomic.Bool
	done := make(chan error, 1)
	go func() { done <- b.Unbind(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Unbind returned while the surface was in use")
	case <-time.After(50 * time.Millisecond):
	}

	released.Store(true)
	b.Release()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, released.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("Unbind did not return after Release")
	}
	assert.False(t, b.Target().Bound())
}

func TestUnbindBoundedByContext(t *testing.T) {
	b := NewBinding(nil)
	require.NoError(t, b.Bind(1, 100, 100))
	b.Acquire()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Unbind(ctx), context.DeadlineExceeded)
	assert.False(t, b.Target().Bound())
}

func TestSwapAfterUnbindReleasesSurface(t *testing.T) {
	b := NewBinding(nil)
	require.NoError(t, b.Bind(1, 100, 100))
	b.Acquire()

	done := make(chan error, 1)
	go func() { done <- b.Unbind(context.Background()) }()

	// render thread keeps swapping; once it sees no target it lets go
	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, b.Swap(func(Frame) error { return nil }))
		select {
		case err := <-done:
			require.NoError(t, err)
			require.NoError(t, b.Bind(2, 100, 100))
			var got Frame
			require.NoError(t, b.Swap(func(f Frame) error { got = f; return nil }))
			assert.Equal(t, NativeWindow(2), got.Window)
			return
		case <-deadline:
			t.Fatal("Unbind never completed")
		default:
		}
	}
}

func TestNoNullTargetDuringRebind(t *testing.T) {
	b := NewBinding(nil)
	require.NoError(t, b.Bind(1, 100, 100))

	var (
		stop     atomic.Bool
		nullSeen atomic.Bool
		frames   atomic.Int64
		wg       sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Acquire()
		defer b.Release()
		for !stop.Load() {
			b.Swap(func(f Frame) error {
				if f.Window == 0 || f.Width == 0 {
					nullSeen.Store(true)
				}
				frames.Add(1)
				return nil
			})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := 0; i < 200; i++ {
		require.NoError(t, b.Unbind(ctx))
		require.NoError(t, b.Bind(NativeWindow(i+2), 100+i, 100))
	}

	stop.Store(true)
	wg.Wait()

	// a swap buffered during the last gap is superseded by the next frame
	require.NoError(t, b.Swap(func(f Frame) error {
		if f.Window == 0 {
			nullSeen.Store(true)
		}
		return nil
	}))

	assert.False(t, nullSeen.Load())
	assert.Positive(t, frames.Load())
	assert.False(t, b.Pending())
}

func TestOnChange(t *testing.T) {
	b := NewBinding(nil)
	var events []bool
	b.OnChange(func(bound bool) { events = append(events, bound) })

	require.NoError(t, b.Bind(1, 10, 10))
	require.NoError(t, b.Unbind(context.Background()))
	assert.Equal(t, []bool{true, false}, events)
}
