package hostshell

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const subscriberBuffer = 64

type subscriber struct {
	ch chan Event
}

// Bus fans host events out to subscribers. A subscriber that falls behind
// loses events rather than stalling the publisher.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]*subscriber
	closed  bool
	dropped atomic.Uint64
}

// NewBus creates an open bus
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe returns a subscriber ID and its event channel. The channel is
// closed when ctx is done, on Unsubscribe, or when the bus closes.
func (b *Bus) Subscribe(ctx context.Context) (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return "", ch
	}

	id := uuid.NewString()
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}
	b.subs[id] = sub

	context.AfterFunc(ctx, func() { b.Unsubscribe(id) })
	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers e to every subscriber without blocking
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped for slow subscribers
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel; later publishes are ignored
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Forward delivers every event to slot until ctx is done or the bus closes
func (b *Bus) Forward(ctx context.Context, slot *CallbackSlot) {
	_, events := b.Subscribe(ctx)
	for e := range events {
		slot.Invoke(e)
	}
}
