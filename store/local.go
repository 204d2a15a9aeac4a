package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/errors"
)

// Local is an in-process backing store: a handle table of byte slices.
// It is safe for concurrent use.
type Local struct {
	entries   []entry
	freeList  []vbuf.Handle
	observers []*subscription
	stats     Stats
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	data  []byte
	valid bool
}

var _ vbuf.BackingStore = (*Local)(nil)

// NewLocal creates an empty store.
func NewLocal() *Local {
	return &Local{
		entries:  make([]entry, 0, 16),
		freeList: make([]vbuf.Handle, 0, 4),
	}
}

// Allocate reserves a zeroed region of size bytes.
func (s *Local) Allocate(size int) (vbuf.Handle, error) {
	if size < 0 {
		return 0, errors.Store("allocate", fmt.Errorf("negative size %d", size))
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, errors.Store("allocate", ErrClosed)
	}

	e := entry{data: make([]byte, size), valid: true}
	var h vbuf.Handle
	if n := len(s.freeList); n > 0 {
		h = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.entries[h-1] = e
	} else {
		s.entries = append(s.entries, e)
		h = vbuf.Handle(len(s.entries))
	}
	s.stats.Live++
	s.stats.Bytes += size
	s.stats.Allocations++
	s.mu.Unlock()

	s.notify(Event{Type: EventAllocated, Handle: h, Size: size})
	Logger().Debug("allocated", zapHandle(h), zapSize(size))
	return h, nil
}

// lookup returns the live entry for h. Callers hold mu.
func (s *Local) lookup(h vbuf.Handle) (*entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if h == 0 || int(h) > len(s.entries) || !s.entries[h-1].valid {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return &s.entries[h-1], nil
}

func (s *Local) Write(h vbuf.Handle, offset int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(h)
	if err != nil {
		return errors.Store("write", err)
	}
	if err := checkBounds(offset, len(data), len(e.data)); err != nil {
		return errors.Store("write", err)
	}
	copy(e.data[offset:], data)
	s.stats.Writes++
	return nil
}

// Copy moves length bytes between (or within) allocations. Overlapping ranges
// are handled as if through an intermediate buffer.
func (s *Local) Copy(src vbuf.Handle, srcOffset int, dst vbuf.Handle, dstOffset int, length int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	se, err := s.lookup(src)
	if err != nil {
		return errors.Store("copy", err)
	}
	de, err := s.lookup(dst)
	if err != nil {
		return errors.Store("copy", err)
	}
	if err := checkBounds(srcOffset, length, len(se.data)); err != nil {
		return errors.Store("copy", err)
	}
	if err := checkBounds(dstOffset, length, len(de.data)); err != nil {
		return errors.Store("copy", err)
	}
	copy(de.data[dstOffset:dstOffset+length], se.data[srcOffset:srcOffset+length])
	s.stats.Copies++
	return nil
}

func (s *Local) Deallocate(h vbuf.Handle) error {
	s.mu.Lock()
	e, err := s.lookup(h)
	if err != nil {
		s.mu.Unlock()
		return errors.Store("deallocate", err)
	}
	size := len(e.data)
	e.data = nil
	e.valid = false
	s.freeList = append(s.freeList, h)
	s.stats.Live--
	s.stats.Bytes -= size
	s.stats.Deallocations++
	s.mu.Unlock()

	s.notify(Event{Type: EventReleased, Handle: h, Size: size})
	Logger().Debug("released", zapHandle(h), zapSize(size))
	return nil
}

// Read returns a copy of length bytes at offset.
func (s *Local) Read(h vbuf.Handle, offset, length int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(h)
	if err != nil {
		return nil, errors.Store("read", err)
	}
	if err := checkBounds(offset, length, len(e.data)); err != nil {
		return nil, errors.Store("read", err)
	}
	out := make([]byte, length)
	copy(out, e.data[offset:])
	return out, nil
}

func (s *Local) Size(h vbuf.Handle) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(h)
	if err != nil {
		return 0, false
	}
	return len(e.data), true
}

// Stats returns a snapshot of the store counters.
func (s *Local) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

type subscription struct {
	o Observer
}

// Subscribe adds an observer for allocation events and returns the function
// that removes it. Calling the returned function more than once is a no-op.
func (s *Local) Subscribe(o Observer) (unsubscribe func()) {
	sub := &subscription{o: o}
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, sub)
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		if i := slices.Index(s.observers, sub); i >= 0 {
			s.observers = slices.Delete(slices.Clone(s.observers), i, i+1)
		}
	}
}

// notify runs observers outside the lock so they may unsubscribe.
func (s *Local) notify(e Event) {
	s.obsMu.RLock()
	subs := s.observers
	s.obsMu.RUnlock()
	for _, sub := range subs {
		sub.o.OnStoreEvent(e)
	}
}

// Close releases every allocation. Further calls fail with ErrClosed.
func (s *Local) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.entries = nil
	s.freeList = nil
	s.stats.Live = 0
	s.stats.Bytes = 0
	return nil
}

func checkBounds(offset, length, size int) error {
	if offset < 0 || length < 0 || offset+length > size {
		return fmt.Errorf("%w: offset=%d, length=%d, size=%d", ErrOutOfBounds, offset, length, size)
	}
	return nil
}
