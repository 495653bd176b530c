package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
)

// State is a session's lifecycle position. It only moves forward.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateExited
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateExited || s == StateCrashed
}

// Status is a snapshot of a session's outcome so far
type Status struct {
	State  State
	Code   int
	Signal string
	// FaultAddr is the faulting pc or address scraped from crash output
	FaultAddr  string
	Diagnostic string
}

func (s Status) String() string {
	switch s.State {
	case StateExited:
		if s.Signal != "" {
			return fmt.Sprintf("exited (stopped by %s)", s.Signal)
		}
		return fmt.Sprintf("exited (code %d)", s.Code)
	case StateCrashed:
		if s.FaultAddr != "" {
			return fmt.Sprintf("crashed (%s at %s)", s.Signal, s.FaultAddr)
		}
		return fmt.Sprintf("crashed (%s)", s.Signal)
	default:
		return s.State.String()
	}
}

// SessionInfo is the serializable view of a session
type SessionInfo struct {
	ID        id.SessionID `json:"id"`
	Instance  string       `json:"instance"`
	Pid       int          `json:"pid"`
	State     string       `json:"state"`
	Code      int          `json:"code"`
	Signal    string       `json:"signal,omitempty"`
	FaultAddr string       `json:"fault_addr,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
}

// Gate is consulted by bridges before accepting a call from the runtime
type Gate interface {
	Accepting() bool
}

// Admit returns ErrSessionCrashed once g stops accepting calls
func Admit(g Gate) error {
	if g != nil && !g.Accepting() {
		return errs.ErrSessionCrashed
	}
	return nil
}

// Session is one hosted runtime, either a child process or a VM embedded
// in this process
type Session struct {
	ID        id.SessionID
	Instance  string
	StartedAt time.Time

	cmd  *exec.Cmd
	vm   VM
	out  *os.File
	tail *tailBuffer

	mu            sync.RWMutex
	status        Status
	endedAt       time.Time
	stopRequested bool

	runningOnce sync.Once
	running     chan struct{}
	doneOnce    sync.Once
	done        chan struct{}

	onChange func(SessionInfo)
}

func newSession(instance string, cmd *exec.Cmd, tailSize int) *Session {
	return &Session{
		ID:        id.NewSessionID(),
		Instance:  instance,
		StartedAt: time.Now(),
		cmd:       cmd,
		tail:      newTailBuffer(tailSize),
		running:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Status returns the current status
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.Status().State
}

// Done is closed once the process has exited
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the process exits or ctx is done
func (s *Session) Wait(ctx context.Context) (Status, error) {
	select {
	case <-s.done:
		return s.Status(), nil
	case <-ctx.Done():
		return s.Status(), ctx.Err()
	}
}

// Accepting is false once the session has crashed
func (s *Session) Accepting() bool {
	return s.State() != StateCrashed
}

// Pid returns the process id, or 0 before start. An embedded session
// reports this process.
func (s *Session) Pid() int {
	if s.vm != nil {
		return os.Getpid()
	}
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Output returns the most recent output retained for diagnostics
func (s *Session) Output() []byte {
	return s.tail.Bytes()
}

// Info returns a serializable snapshot
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() SessionInfo {
	info := SessionInfo{
		ID:        s.ID,
		Instance:  s.Instance,
		Pid:       s.Pid(),
		State:     s.status.State.String(),
		Code:      s.status.Code,
		Signal:    s.status.Signal,
		FaultAddr: s.status.FaultAddr,
		StartedAt: s.StartedAt,
	}
	if !s.endedAt.IsZero() {
		ended := s.endedAt
		info.EndedAt = &ended
	}
	return info
}

// transition applies next if it moves the state forward
func (s *Session) transition(next Status) bool {
	s.mu.Lock()
	if s.status.State.Terminal() || next.State <= s.status.State {
		s.mu.Unlock()
		return false
	}
	s.status = next
	if next.State.Terminal() {
		s.endedAt = time.Now()
	}
	info := s.infoLocked()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(info)
	}
	return true
}

func (s *Session) markRunning() {
	s.runningOnce.Do(func() {
		if s.transition(Status{State: StateRunning}) {
			close(s.running)
		}
	})
}

func (s *Session) reachedRunning() bool {
	select {
	case <-s.running:
		return true
	default:
		return false
	}
}

func (s *Session) requestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State.Terminal() {
		return false
	}
	s.stopRequested = true
	return true
}

func (s *Session) stopping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopRequested
}

// finish ends the session with st. Only the first call applies; it
// reports whether this one did.
func (s *Session) finish(st Status) bool {
	applied := false
	s.doneOnce.Do(func() {
		applied = s.transition(st)
		close(s.done)
	})
	return applied
}

var (
	jvmFaultPattern    = regexp.MustCompile(`SIG[A-Z]+ \(0x[0-9a-fA-F]+\) at pc=(0x[0-9a-fA-F]+)`)
	nativeFaultPattern = regexp.MustCompile(`fault addr (0x[0-9a-fA-F]+)`)
)

// faultAddress scrapes the faulting address from crash output
func faultAddress(out []byte) string {
	if m := jvmFaultPattern.FindSubmatch(out); m != nil {
		return string(m[1])
	}
	if m := nativeFaultPattern.FindSubmatch(out); m != nil {
		return string(m[1])
	}
	return ""
}

// lastLines returns up to n trailing non-empty lines
func lastLines(out []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(out), "\r\n"), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimRight(lines[i], "\r"); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}

// tailBuffer keeps the last size bytes written to it
type tailBuffer struct {
	mu   sync.Mutex
	data []byte
	size int
	head int
	full bool
}

func newTailBuffer(size int) *tailBuffer {
	if size <= 0 {
		size = 64 * 1024
	}
	return &tailBuffer{data: make([]byte, size), size: size}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.size {
		copy(b.data, p[n-b.size:])
		b.head = 0
		b.full = true
		return n, nil
	}
	for len(p) > 0 {
		c := copy(b.data[b.head:], p)
		p = p[c:]
		b.head += c
		if b.head == b.size {
			b.head = 0
			b.full = true
		}
	}
	return n, nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]byte(nil), b.data[:b.head]...)
	}
	out := make([]byte, 0, b.size)
	out = append(out, b.data[b.head:]...)
	return append(out, b.data[:b.head]...)
}
