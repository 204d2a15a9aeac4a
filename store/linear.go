package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/errors"
)

const (
	pageSize  = 65536
	alignment = 8
)

// memoryModule is a minimal WebAssembly module exporting one page of
// growable memory as "memory".
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

// LinearOptions configure a Linear store.
type LinearOptions struct {
	// MemoryLimitPages caps linear memory in 64KiB pages.
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// Linear is a backing store carved out of a WebAssembly linear memory, so
// buffers can be handed to guest code by offset. Allocation is first-fit
// over a coalescing free list; memory grows page-wise on demand.
// It is safe for concurrent use.
type Linear struct {
	runtime wazero.Runtime
	module  api.Module
	mem     api.Memory
	blocks  map[vbuf.Handle]span
	free    []span
	stats   Stats
	next    vbuf.Handle
	mu      sync.Mutex
	closed  bool
}

type span struct {
	off  uint32
	size uint32
}

func (s span) end() uint32 { return s.off + s.size }

var _ vbuf.BackingStore = (*Linear)(nil)

// NewLinear instantiates a fresh memory module in its own wazero runtime.
func NewLinear(ctx context.Context, opts LinearOptions) (*Linear, error) {
	cfg := wazero.NewRuntimeConfig()
	if opts.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(opts.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	mod, err := rt.Instantiate(ctx, memoryModule)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Store("instantiate", err)
	}
	return NewLinearFromMemory(rt, mod, mod.ExportedMemory("memory"))
}

// NewLinearFromMemory manages an existing exported memory. The store takes
// ownership of rt and mod, closing them on Close; either may be nil.
func NewLinearFromMemory(rt wazero.Runtime, mod api.Module, mem api.Memory) (*Linear, error) {
	if mem == nil {
		return nil, errors.Store("instantiate", fmt.Errorf("module exports no memory"))
	}
	l := &Linear{
		runtime: rt,
		module:  mod,
		mem:     mem,
		blocks:  make(map[vbuf.Handle]span),
	}
	if size := mem.Size(); size > 0 {
		l.free = []span{{off: 0, size: size}}
	}
	return l, nil
}

// Memory exposes the underlying linear memory.
func (l *Linear) Memory() api.Memory { return l.mem }

// Offset returns where an allocation starts in linear memory.
func (l *Linear) Offset(h vbuf.Handle) (uint32, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.blocks[h]
	return b.off, ok
}

func alignUp(n uint32) uint32 {
	return (n + alignment - 1) &^ (alignment - 1)
}

func (l *Linear) Allocate(size int) (vbuf.Handle, error) {
	if size < 0 || uint64(size) > uint64(^uint32(0))-alignment {
		return 0, errors.Store("allocate", fmt.Errorf("invalid size %d", size))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, errors.Store("allocate", ErrClosed)
	}

	want := alignUp(uint32(size))
	b, err := l.reserve(want)
	if err != nil {
		return 0, errors.Store("allocate", err)
	}
	b.size = uint32(size)
	if size > 0 {
		clear(l.view(b))
	}

	l.next++
	h := l.next
	l.blocks[h] = b
	l.stats.Live++
	l.stats.Bytes += size
	l.stats.Allocations++
	Logger().Debug("linear allocated", zapHandle(h), zapSize(size), zapOffset(b.off))
	return h, nil
}

// reserve takes want bytes from the free list, growing memory if no span fits.
func (l *Linear) reserve(want uint32) (span, error) {
	if want == 0 {
		return span{}, nil
	}
	for {
		for i, f := range l.free {
			if f.size < want {
				continue
			}
			b := span{off: f.off, size: want}
			if f.size == want {
				l.free = slices.Delete(l.free, i, i+1)
			} else {
				l.free[i] = span{off: f.off + want, size: f.size - want}
			}
			return b, nil
		}
		if err := l.grow(want); err != nil {
			return span{}, err
		}
	}
}

// grow extends memory so that the trailing free span holds at least want bytes.
func (l *Linear) grow(want uint32) error {
	top := l.mem.Size()
	avail := uint32(0)
	if n := len(l.free); n > 0 && l.free[n-1].end() == top {
		avail = l.free[n-1].size
	}
	pages := (want - avail + pageSize - 1) / pageSize
	prev, ok := l.mem.Grow(pages)
	if !ok {
		return fmt.Errorf("%w: growing by %d pages", ErrOutOfMemory, pages)
	}
	Logger().Debug("linear memory grown", zap32("from_pages", prev), zap32("pages", pages))
	l.release(span{off: prev * pageSize, size: pages * pageSize})
	return nil
}

// release returns a span to the free list, merging it with its neighbours.
func (l *Linear) release(s span) {
	if s.size == 0 {
		return
	}
	i, _ := slices.BinarySearchFunc(l.free, s.off, func(f span, off uint32) int {
		switch {
		case f.off < off:
			return -1
		case f.off > off:
			return 1
		}
		return 0
	})
	l.free = slices.Insert(l.free, i, s)
	if i+1 < len(l.free) && l.free[i].end() == l.free[i+1].off {
		l.free[i].size += l.free[i+1].size
		l.free = slices.Delete(l.free, i+1, i+2)
	}
	if i > 0 && l.free[i-1].end() == l.free[i].off {
		l.free[i-1].size += l.free[i].size
		l.free = slices.Delete(l.free, i, i+1)
	}
}

func (l *Linear) view(b span) []byte {
	v, _ := l.mem.Read(b.off, b.size)
	return v
}

func (l *Linear) block(h vbuf.Handle) (span, error) {
	if l.closed {
		return span{}, ErrClosed
	}
	b, ok := l.blocks[h]
	if !ok {
		return span{}, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return b, nil
}

func (l *Linear) Write(h vbuf.Handle, offset int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.block(h)
	if err != nil {
		return errors.Store("write", err)
	}
	if err := checkBounds(offset, len(data), int(b.size)); err != nil {
		return errors.Store("write", err)
	}
	if !l.mem.Write(b.off+uint32(offset), data) {
		return errors.Store("write", fmt.Errorf("%w: linear offset %d", ErrOutOfBounds, b.off+uint32(offset)))
	}
	l.stats.Writes++
	return nil
}

func (l *Linear) Copy(src vbuf.Handle, srcOffset int, dst vbuf.Handle, dstOffset int, length int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sb, err := l.block(src)
	if err != nil {
		return errors.Store("copy", err)
	}
	db, err := l.block(dst)
	if err != nil {
		return errors.Store("copy", err)
	}
	if err := checkBounds(srcOffset, length, int(sb.size)); err != nil {
		return errors.Store("copy", err)
	}
	if err := checkBounds(dstOffset, length, int(db.size)); err != nil {
		return errors.Store("copy", err)
	}
	if length == 0 {
		return nil
	}
	from := l.view(sb)[srcOffset : srcOffset+length]
	to := l.view(db)[dstOffset : dstOffset+length]
	copy(to, from)
	l.stats.Copies++
	return nil
}

func (l *Linear) Deallocate(h vbuf.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.block(h)
	if err != nil {
		return errors.Store("deallocate", err)
	}
	delete(l.blocks, h)
	l.release(span{off: b.off, size: alignUp(b.size)})
	l.stats.Live--
	l.stats.Bytes -= int(b.size)
	l.stats.Deallocations++
	Logger().Debug("linear released", zapHandle(h), zapSize(int(b.size)))
	return nil
}

// Read returns a copy of length bytes at offset.
func (l *Linear) Read(h vbuf.Handle, offset, length int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.block(h)
	if err != nil {
		return nil, errors.Store("read", err)
	}
	if err := checkBounds(offset, length, int(b.size)); err != nil {
		return nil, errors.Store("read", err)
	}
	out := make([]byte, length)
	copy(out, l.view(b)[offset:])
	return out, nil
}

func (l *Linear) Size(h vbuf.Handle) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.blocks[h]
	return int(b.size), ok && !l.closed
}

func (l *Linear) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Close releases the module and runtime.
func (l *Linear) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.blocks = nil
	l.free = nil

	var firstErr error
	if l.module != nil {
		if err := l.module.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if l.runtime != nil {
		if err := l.runtime.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return errors.Store("close", firstErr)
	}
	return nil
}
