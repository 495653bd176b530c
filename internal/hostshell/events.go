package hostshell

import (
	"fmt"
	"time"
)

// EventType names a host lifecycle event
type EventType string

const (
	RuntimeStarted     EventType = "runtime_started"
	RuntimeExited      EventType = "runtime_exited"
	RuntimeCrashed     EventType = "runtime_crashed"
	SurfaceBound       EventType = "surface_bound"
	SurfaceLost        EventType = "surface_lost"
	ContextInvalidated EventType = "context_invalidated"
)

// Event is one lifecycle notification
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	// Subject is the session, binding or context the event is about
	Subject string `json:"subject,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// NewEvent stamps an event with the current time
func NewEvent(t EventType, subject, detail string) Event {
	return Event{Type: t, Time: time.Now(), Subject: subject, Detail: detail}
}

func (e Event) String() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s", e.Type, e.Subject)
	}
	return fmt.Sprintf("%s %s: %s", e.Type, e.Subject, e.Detail)
}
