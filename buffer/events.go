package buffer

import "github.com/wippyai/vbuf"

// EventType tags buffer handle notifications.
type EventType uint8

const (
	// EventReallocated means the buffer moved to a new handle; Old is
	// already deallocated.
	EventReallocated EventType = iota
	// EventReleased means the buffer was closed.
	EventReleased
)

// Event describes a change of the buffer's backing handle.
type Event struct {
	Old  vbuf.Handle
	New  vbuf.Handle
	Size int
	Type EventType
}

// Observer receives buffer events synchronously, before the mutating call
// returns. Anything holding the raw handle rebinds here.
type Observer interface {
	OnBufferEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnBufferEvent(e Event) { f(e) }
