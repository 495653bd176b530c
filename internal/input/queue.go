package input

import (
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
)

const (
	queueSlots = 256
	queueMask  = queueSlots - 1
	// QueueCapacity is the number of events the ring holds; one slot stays empty
	QueueCapacity = queueSlots - 1
	// ReleaseReserve is the ring headroom only release events may use
	ReleaseReserve = 32
	// maxSpill bounds releases held outside the ring once it is full
	maxSpill = queueSlots
)

// Queue is a lock-free single-producer single-consumer event ring.
// Presses and motion are dropped once only the release reserve is left.
// Releases are never dropped while a press could be waiting on them: when
// the ring is full they spill into an ordered side list that Poll drains
// after the ring.
type Queue struct {
	buf [queueSlots]Event

	// head is advanced only by the producer, tail only by the consumer
	head atomic.Uint32
	tail atomic.Uint32

	// spilled is set by the producer and cleared by the consumer once
	// the spill list is empty. While set the producer skips the ring.
	spilled atomic.Bool
	spillMu sync.Mutex
	spill   []Event

	dropped atomic.Uint64
	metrics *monitoring.Metrics
}

// NewQueue creates an empty queue
func NewQueue(metrics *monitoring.Metrics) *Queue {
	return &Queue{metrics: metrics}
}

// Push enqueues e. It returns false when e was dropped.
func (q *Queue) Push(e Event) bool {
	release := e.Releases()
	if q.spilled.Load() {
		return q.pushSpill(e, release)
	}

	head := q.head.Load()
	free := QueueCapacity - int((head-q.tail.Load())&queueMask)
	switch {
	case free == 0 && release:
		return q.pushSpill(e, release)
	case free == 0, !release && free <= ReleaseReserve:
		q.drop()
		return false
	}

	next := (head + 1) & queueMask
	q.buf[next] = e
	q.head.Store(next)
	q.metrics.RecordInputEvent(e.Type.String())
	return true
}

func (q *Queue) pushSpill(e Event, release bool) bool {
	q.spillMu.Lock()
	defer q.spillMu.Unlock()
	if !release || len(q.spill) >= maxSpill {
		q.drop()
		return false
	}
	q.spill = append(q.spill, e)
	q.spilled.Store(true)
	q.metrics.RecordInputEvent(e.Type.String())
	return true
}

func (q *Queue) drop() {
	q.dropped.Add(1)
	q.metrics.RecordInputDropped()
}

// Poll moves queued events into dst in FIFO order and returns the count
func (q *Queue) Poll(dst []Event) int {
	tail := q.tail.Load()
	head := q.head.Load()
	n := 0
	for tail != head && n < len(dst) {
		tail = (tail + 1) & queueMask
		dst[n] = q.buf[tail]
		q.buf[tail] = Event{}
		n++
	}
	q.tail.Store(tail)

	// spilled events are newer than anything in the ring
	if tail != head || n == len(dst) || !q.spilled.Load() {
		return n
	}
	q.spillMu.Lock()
	c := copy(dst[n:], q.spill)
	n += c
	q.spill = append(q.spill[:0], q.spill[c:]...)
	if len(q.spill) == 0 {
		q.spilled.Store(false)
	}
	q.spillMu.Unlock()
	return n
}

// Drain returns every queued event
func (q *Queue) Drain() []Event {
	out := make([]Event, 0, q.Len())
	var batch [32]Event
	for {
		n := q.Poll(batch[:])
		if n == 0 {
			return out
		}
		out = append(out, batch[:n]...)
	}
}

// Len returns the number of queued events
func (q *Queue) Len() int {
	n := int((q.head.Load() - q.tail.Load()) & queueMask)
	if q.spilled.Load() {
		q.spillMu.Lock()
		n += len(q.spill)
		q.spillMu.Unlock()
	}
	return n
}

// Dropped returns how many events were discarded
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
