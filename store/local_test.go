package store

import (
	"bytes"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/errors"
)

func TestLocal_Basic(t *testing.T) {
	s := NewLocal()

	h, err := s.Allocate(8)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	if err := s.Write(h, 2, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := s.Read(h, 0, 8)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if want := []byte{0, 0, 1, 2, 3, 0, 0, 0}; !bytes.Equal(got, want) {
		t.Fatalf("Read = %v, want %v", got, want)
	}

	if size, ok := s.Size(h); !ok || size != 8 {
		t.Fatalf("Size = %d, %v", size, ok)
	}

	if err := s.Deallocate(h); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}
	if _, ok := s.Size(h); ok {
		t.Fatal("Expected Size to fail after Deallocate")
	}
}

func TestLocal_HandleReuse(t *testing.T) {
	s := NewLocal()

	h1, _ := s.Allocate(4)
	h2, _ := s.Allocate(4)
	if h1 == h2 {
		t.Fatal("Expected distinct handles")
	}
	_ = s.Deallocate(h1)

	h3, _ := s.Allocate(16)
	if h3 != h1 {
		t.Errorf("Expected freed handle %d to be reused, got %d", h1, h3)
	}
	if size, _ := s.Size(h3); size != 16 {
		t.Errorf("Reused handle size = %d, want 16", size)
	}
}

func TestLocal_Copy(t *testing.T) {
	s := NewLocal()
	src, _ := s.Allocate(4)
	dst, _ := s.Allocate(6)
	_ = s.Write(src, 0, []byte{1, 2, 3, 4})

	if err := s.Copy(src, 1, dst, 3, 3); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	got, _ := s.Read(dst, 0, 6)
	if want := []byte{0, 0, 0, 2, 3, 4}; !bytes.Equal(got, want) {
		t.Fatalf("dst = %v, want %v", got, want)
	}

	// overlapping copy within one allocation
	if err := s.Copy(src, 0, src, 1, 3); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	got, _ = s.Read(src, 0, 4)
	if want := []byte{1, 1, 2, 3}; !bytes.Equal(got, want) {
		t.Fatalf("src = %v, want %v", got, want)
	}
}

func TestLocal_Errors(t *testing.T) {
	s := NewLocal()
	h, _ := s.Allocate(4)

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"zero handle", func() error { return s.Write(0, 0, []byte{1}) }, ErrInvalidHandle},
		{"unknown handle", func() error { return s.Deallocate(99) }, ErrInvalidHandle},
		{"write past end", func() error { return s.Write(h, 3, []byte{1, 2}) }, ErrOutOfBounds},
		{"negative offset", func() error { return s.Write(h, -1, []byte{1}) }, ErrOutOfBounds},
		{"copy past end", func() error { return s.Copy(h, 0, h, 2, 4) }, ErrOutOfBounds},
		{"negative size", func() error { _, err := s.Allocate(-1); return err }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if err == nil {
				t.Fatal("expected error")
			}
			if !stderrors.Is(err, errors.ErrStore) {
				t.Errorf("expected store error, got %v", err)
			}
			if tt.want != nil && !stderrors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLocal_Observers(t *testing.T) {
	s := NewLocal()

	var events []Event
	s.Subscribe(ObserverFunc(func(e Event) { events = append(events, e) }))

	h, _ := s.Allocate(12)
	_ = s.Deallocate(h)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventAllocated || events[0].Handle != h || events[0].Size != 12 {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Type != EventReleased || events[1].Size != 12 {
		t.Errorf("unexpected second event %+v", events[1])
	}
}

func TestLocal_Unsubscribe(t *testing.T) {
	s := NewLocal()

	var first, second, once int
	unsubFirst := s.Subscribe(ObserverFunc(func(Event) { first++ }))
	s.Subscribe(ObserverFunc(func(Event) { second++ }))
	var unsubOnce func()
	unsubOnce = s.Subscribe(ObserverFunc(func(Event) {
		once++
		unsubOnce()
	}))

	unsubFirst()
	unsubFirst()

	h, _ := s.Allocate(4)
	_ = s.Deallocate(h)

	if first != 0 {
		t.Errorf("removed observer saw %d events", first)
	}
	if second != 2 {
		t.Errorf("second observer saw %d events, want 2", second)
	}
	if once != 1 {
		t.Errorf("self-removing observer saw %d events, want 1", once)
	}
}

func TestLocal_Stats(t *testing.T) {
	s := NewLocal()
	a, _ := s.Allocate(10)
	b, _ := s.Allocate(6)
	_ = s.Write(a, 0, []byte{1})
	_ = s.Copy(a, 0, b, 0, 1)
	_ = s.Deallocate(a)

	st := s.Stats()
	if st.Live != 1 || st.Bytes != 6 {
		t.Errorf("Live=%d Bytes=%d, want 1 and 6", st.Live, st.Bytes)
	}
	if st.Allocations != 2 || st.Deallocations != 1 || st.Writes != 1 || st.Copies != 1 {
		t.Errorf("unexpected counters %+v", st)
	}
}

func TestLocal_Close(t *testing.T) {
	s := NewLocal()
	h, _ := s.Allocate(4)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := s.Allocate(4); !stderrors.Is(err, ErrClosed) {
		t.Errorf("Allocate after Close: %v", err)
	}
	if err := s.Write(h, 0, []byte{1}); !stderrors.Is(err, ErrClosed) {
		t.Errorf("Write after Close: %v", err)
	}
}

func TestLocal_Concurrent(t *testing.T) {
	s := NewLocal()
	var wg sync.WaitGroup
	handles := make([]vbuf.Handle, 32)

	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := s.Allocate(8)
			if err != nil {
				t.Errorf("Allocate failed: %v", err)
				return
			}
			_ = s.Write(h, 0, []byte{byte(i)})
			handles[i] = h
		}(i)
	}
	wg.Wait()

	seen := make(map[vbuf.Handle]bool)
	for i, h := range handles {
		if seen[h] {
			t.Fatalf("handle %d issued twice", h)
		}
		seen[h] = true
		b, _ := s.Read(h, 0, 1)
		if b[0] != byte(i) {
			t.Errorf("handle %d holds %d, want %d", h, b[0], i)
		}
	}
}
