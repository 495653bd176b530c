package hostshell

import "sync"

// Callback receives host events on the shell side
type Callback func(Event)

// CallbackSlot holds the native shell's event callback. Each delivery
// holds a reference, and replacing or clearing the callback waits until
// no delivery of the old one is in flight, so the shell may free whatever
// the callback closes over as soon as Set or Clear returns.
//
// Set and Clear must not be called from inside the callback.
type CallbackSlot struct {
	mu   sync.Mutex
	cond *sync.Cond
	cb   Callback
	refs int
}

// NewCallbackSlot creates an empty slot
func NewCallbackSlot() *CallbackSlot {
	s := &CallbackSlot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Set installs cb, waiting out in-flight deliveries of the previous one
func (s *CallbackSlot) Set(cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.refs > 0 {
		s.cond.Wait()
	}
	s.cb = cb
}

// Clear removes the callback
func (s *CallbackSlot) Clear() {
	s.Set(nil)
}

// Invoke delivers e and reports whether a callback was installed
func (s *CallbackSlot) Invoke(e Event) bool {
	s.mu.Lock()
	cb := s.cb
	if cb == nil {
		s.mu.Unlock()
		return false
	}
	s.refs++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refs--
		if s.refs == 0 {
			s.cond.Broadcast()
		}
		s.mu.Unlock()
	}()
	cb(e)
	return true
}

// Refs returns the number of deliveries in flight
func (s *CallbackSlot) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}
