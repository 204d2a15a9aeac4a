package buffer

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/layout"
	"github.com/wippyai/vbuf/schema"
)

// Direction selects which end of an atom receives added data.
type Direction uint8

const (
	// DirectionDefault prepends to end-aligned atoms and appends otherwise.
	DirectionDefault Direction = iota
	Append
	Prepend
)

func (d Direction) String() string {
	switch d {
	case Append:
		return "append"
	case Prepend:
		return "prepend"
	}
	return "default"
}

// Side selects which end of an atom data is deleted from.
type Side uint8

const (
	// SideDefault deletes opposite the atom's growth: from the start of
	// end-aligned atoms and from the end otherwise.
	SideDefault Side = iota
	SideStart
	SideEnd
)

func (s Side) String() string {
	switch s {
	case SideStart:
		return "start"
	case SideEnd:
		return "end"
	}
	return "default"
}

// RebindFunc is called synchronously after the buffer swaps its backing
// handle. The old handle is already deallocated.
type RebindFunc func(old, new vbuf.Handle, size int)

// Initial seeds a new buffer; each atom is sized to hold its initial points.
type Initial struct {
	Layout *layout.Layout
	Data   data.Value
}

// Options configure a VertexBuffer.
type Options struct {
	Resize   ResizeFunc
	OnRebind RebindFunc
	Initial  *Initial
	// Logger overrides the package logger for this buffer.
	Logger *zap.Logger
}

// DefaultOptions returns options with the default resize policy.
func DefaultOptions() Options {
	return Options{Resize: DefaultResize}
}

// VertexBuffer packs a fixed list of atoms into one backing-store
// allocation, one SubBufferView per atom in declaration order.
type VertexBuffer struct {
	store     vbuf.BackingStore
	schema    *schema.Schema
	log       *zap.Logger
	onRebind  RebindFunc
	atoms     []layout.Atom
	views     []*SubBufferView
	observers []*subscription
	handle    vbuf.Handle
	size      int
}

// New validates the atoms, allocates the initial buffer and writes the
// initial data if any.
func New(atoms []layout.Node, s *schema.Schema, st vbuf.BackingStore, opts Options) (*VertexBuffer, error) {
	if st == nil {
		return nil, errors.Config(errors.PhaseValidate, "nil backing store")
	}
	if len(atoms) == 0 {
		return nil, errors.Schema(errors.PhaseValidate, nil, "vertex buffer needs at least one atom")
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	b := &VertexBuffer{
		store:    st,
		schema:   s,
		log:      log,
		onRebind: opts.OnRebind,
		atoms:    make([]layout.Atom, len(atoms)),
	}
	for i, n := range atoms {
		a, err := layout.NewAtom(n, s)
		if err != nil {
			return nil, err
		}
		b.atoms[i] = a
	}

	var initial *AddPlan
	if opts.Initial != nil {
		var err error
		if initial, err = b.SizeDataAdd(opts.Initial.Layout, opts.Initial.Data, AddOptions{}); err != nil {
			return nil, err
		}
	}

	off := 0
	b.views = make([]*SubBufferView, len(b.atoms))
	for i, a := range b.atoms {
		if initial != nil {
			need := initial.PointsAdded[i]
			if a.Kind == layout.RepeatCenter {
				need *= 2
			}
			a.Size = max(a.Size, need)
		}
		v := NewSubBufferView(off, a, opts.Resize)
		b.views[i] = v
		off = v.End()
	}

	h, err := st.Allocate(off)
	if err != nil {
		return nil, err
	}
	b.handle, b.size = h, off
	b.log.Debug("vertex buffer allocated",
		zap.Uint32("handle", uint32(h)), zap.Int("size", off), zap.Int("atoms", len(b.atoms)))

	if initial != nil {
		if err := initial.DoAdd(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *VertexBuffer) Handle() vbuf.Handle { return b.handle }

// Size returns the allocated byte size.
func (b *VertexBuffer) Size() int { return b.size }

func (b *VertexBuffer) Atoms() []layout.Atom { return b.atoms }

func (b *VertexBuffer) Views() []*SubBufferView { return b.views }

func (b *VertexBuffer) Schema() *schema.Schema { return b.schema }

// AtomIndex returns the index of the atom holding input, or -1.
func (b *VertexBuffer) AtomIndex(input string) int {
	for i, a := range b.atoms {
		if a.Has(input) {
			return i
		}
	}
	return -1
}

type subscription struct {
	o Observer
}

// Subscribe adds an observer for handle changes and returns the function
// that removes it. Calling the returned function more than once is a no-op.
func (b *VertexBuffer) Subscribe(o Observer) (unsubscribe func()) {
	sub := &subscription{o: o}
	b.observers = append(b.observers, sub)
	return func() {
		if i := slices.Index(b.observers, sub); i >= 0 {
			b.observers = slices.Delete(slices.Clone(b.observers), i, i+1)
		}
	}
}

func (b *VertexBuffer) notify(e Event) {
	for _, sub := range b.observers {
		sub.o.OnBufferEvent(e)
	}
}

// ReadAtom returns the packed datums of atom i. The store must implement
// vbuf.Reader.
func (b *VertexBuffer) ReadAtom(i int) ([]byte, error) {
	r, ok := b.store.(vbuf.Reader)
	if !ok {
		return nil, errors.Config(errors.PhaseStore, "backing store %T cannot be read back", b.store)
	}
	v := b.views[i]
	return r.Read(b.handle, v.DataStart(), v.Len())
}

// Close deallocates the backing handle.
func (b *VertexBuffer) Close() error {
	if b.handle == 0 {
		return nil
	}
	h := b.handle
	b.handle = 0
	if err := b.store.Deallocate(h); err != nil {
		return err
	}
	b.notify(Event{Type: EventReleased, Old: h, Size: b.size})
	return nil
}

// relocation is one surviving byte range of a view, moved by a reallocation.
type relocation struct {
	src, dst, length int
}

// swap moves every surviving range into a fresh allocation of size bytes,
// releases the old handle and announces the change. On failure the old
// handle stays current and the fresh one is released.
func (b *VertexBuffer) swap(size int, moves []relocation) error {
	old := b.handle
	h, err := b.store.Allocate(size)
	if err != nil {
		return err
	}
	for _, m := range moves {
		if m.length == 0 {
			continue
		}
		if err := b.store.Copy(old, m.src, h, m.dst, m.length); err != nil {
			_ = b.store.Deallocate(h)
			return err
		}
	}
	if err := b.store.Deallocate(old); err != nil {
		_ = b.store.Deallocate(h)
		return err
	}
	b.handle, b.size = h, size
	b.log.Debug("vertex buffer reallocated",
		zap.Uint32("old", uint32(old)), zap.Uint32("new", uint32(h)), zap.Int("size", size))

	if b.onRebind != nil {
		b.onRebind(old, h, size)
	}
	b.notify(Event{Type: EventReallocated, Old: old, New: h, Size: size})
	return nil
}

// snapshot copies the view offsets so a failed reallocation can put them back.
func (b *VertexBuffer) snapshot() []SubBufferView {
	out := make([]SubBufferView, len(b.views))
	for i, v := range b.views {
		out[i] = *v
	}
	return out
}

func (b *VertexBuffer) restore(saved []SubBufferView) {
	for i, v := range b.views {
		*v = saved[i]
		v.pending = pendingNone
	}
}

func (b *VertexBuffer) totalAlloc() int {
	if len(b.views) == 0 {
		return 0
	}
	return b.views[len(b.views)-1].End()
}
