// Package hostshell is the boundary between the bridge and the mobile
// activity that hosts it.
//
// Lifecycle events (runtime started, exited or crashed, surface bound or
// lost, GPU context invalidated) are published on a Bus. In-process
// subscribers such as the WebSocket stream receive them on channels; the
// native shell registers a single callback in a CallbackSlot, which keeps
// the callback alive for as long as any delivery is in flight.
package hostshell
