package store

import (
	stderrors "errors"

	"github.com/wippyai/vbuf"
)

var (
	ErrClosed        = stderrors.New("store closed")
	ErrInvalidHandle = stderrors.New("invalid handle")
	ErrOutOfBounds   = stderrors.New("access out of bounds")
	ErrOutOfMemory   = stderrors.New("linear memory exhausted")
)

// EventType tags allocation lifecycle notifications.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventReleased
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventReleased:
		return "released"
	}
	return "unknown"
}

// Event is one allocation lifecycle change.
type Event struct {
	Handle vbuf.Handle
	Size   int
	Type   EventType
}

// Observer receives allocation events synchronously.
type Observer interface {
	OnStoreEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnStoreEvent(e Event) { f(e) }

// Stats are cumulative store counters.
type Stats struct {
	Live          int
	Bytes         int
	Allocations   uint64
	Deallocations uint64
	Writes        uint64
	Copies        uint64
}
