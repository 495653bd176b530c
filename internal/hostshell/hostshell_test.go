package hostshell

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	return Event{}
}

func TestBusFansOut(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	id1, a := bus.Subscribe(context.Background())
	id2, b := bus.Subscribe(context.Background())
	assert.NotEqual(t, id1, id2)
	_, err := uuid.Parse(id1)
	assert.NoError(t, err)
	assert.Equal(t, 2, bus.Subscribers())

	bus.Publish(NewEvent(RuntimeStarted, "sess_1", ""))
	assert.Equal(t, RuntimeStarted, recv(t, a).Type)
	assert.Equal(t, "sess_1", recv(t, b).Subject)
}

func TestBusUnsubscribeOnCancel(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	_, ch := bus.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Equal(t, 0, bus.Subscribers())
	bus.Publish(NewEvent(SurfaceLost, "", ""))
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewBus()
	_, ch := bus.Subscribe(context.Background())
	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(NewEvent(ContextInvalidated, "", ""))
	}
	assert.Equal(t, uint64(5), bus.Dropped())
	assert.Len(t, ch, subscriberBuffer)
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	_, ch := bus.Subscribe(context.Background())
	bus.Close()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)

	id, late := bus.Subscribe(context.Background())
	assert.Empty(t, id)
	_, ok = <-late
	assert.False(t, ok)
}

func TestCallbackSlot(t *testing.T) {
	slot := NewCallbackSlot()
	assert.False(t, slot.Invoke(NewEvent(SurfaceBound, "", "")))

	var got atomic.Value
	slot.Set(func(e Event) { got.Store(e.Type) })
	assert.True(t, slot.Invoke(NewEvent(SurfaceBound, "", "")))
	assert.Equal(t, SurfaceBound, got.Load())

	slot.Clear()
	assert.False(t, slot.Invoke(NewEvent(SurfaceLost, "", "")))
}

func TestCallbackSlotClearWaitsForDelivery(t *testing.T) {
	slot := NewCallbackSlot()
	entered := make(chan struct{})
	finish := make(chan struct{})
	slot.Set(func(Event) {
		close(entered)
		<-finish
	})

	go slot.Invoke(NewEvent(RuntimeExited, "", ""))
	<-entered
	assert.Equal(t, 1, slot.Refs())

	cleared := make(chan struct{})
	go func() {
		slot.Clear()
		close(cleared)
	}()

	select {
	case <-cleared:
		t.Fatal("Clear returned while the callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(finish)
	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("Clear did not return")
	}
	assert.Equal(t, 0, slot.Refs())
}

func TestForward(t *testing.T) {
	bus := NewBus()
	slot := NewCallbackSlot()
	got := make(chan Event, 1)
	slot.Set(func(e Event) { got <- e })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bus.Forward(ctx, slot)
		close(done)
	}()

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	bus.Publish(NewEvent(RuntimeCrashed, "sess_x", "SIGSEGV"))
	assert.Equal(t, "SIGSEGV", recv(t, got).Detail)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not stop")
	}
}
