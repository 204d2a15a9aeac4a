package buffer

import (
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/layout"
)

// AddOptions steer SizeDataAdd.
type AddOptions struct {
	// Direction applies to every atom when not DirectionDefault.
	Direction Direction
	// Methods sets the direction per input; inputs of one atom must agree.
	Methods map[string]Direction
	// Transforms reorders the values of an input before packing. An atom
	// with a transformed input is always repacked.
	Transforms map[string]layout.IndexTransform
}

// AddPlan is a sized but uncommitted add. Nothing is written until DoAdd.
type AddPlan struct {
	buf *VertexBuffer
	// PointsAdded holds the datum count per atom.
	PointsAdded []int
	// DirectCopy reports per atom whether the source bytes are written as is.
	DirectCopy      []bool
	DirectCopyCount int
	directions      []Direction
	payloads        [][]byte
	done            bool
}

// direction resolves where atom i receives data.
func (b *VertexBuffer) direction(i int, opts AddOptions) (Direction, error) {
	if opts.Direction != DirectionDefault {
		return opts.Direction, nil
	}
	atom := b.atoms[i]
	dir := DirectionDefault
	for _, in := range atom.Inputs {
		m, ok := opts.Methods[in.Name]
		if !ok || m == DirectionDefault {
			continue
		}
		if dir != DirectionDefault && dir != m {
			return 0, errors.Config(errors.PhaseAdd,
				"all inputs in a layout atom must use the same add method: %s has %s and %s", atom, dir, m)
		}
		dir = m
	}
	if dir != DirectionDefault {
		return dir, nil
	}
	if atom.Kind == layout.RepeatEnd {
		return Prepend, nil
	}
	return Append, nil
}

// SizeDataAdd packs d, read through l, for every atom whose inputs l
// references. It does not touch the buffer.
func (b *VertexBuffer) SizeDataAdd(l *layout.Layout, d data.Value, opts AddOptions) (*AddPlan, error) {
	if l == nil {
		return nil, errors.Schema(errors.PhaseAdd, nil, "nil layout")
	}
	p := &AddPlan{
		buf:         b,
		PointsAdded: make([]int, len(b.atoms)),
		DirectCopy:  make([]bool, len(b.atoms)),
		directions:  make([]Direction, len(b.atoms)),
		payloads:    make([][]byte, len(b.atoms)),
	}
	for i, atom := range b.atoms {
		refs := 0
		for _, in := range atom.Inputs {
			if l.References(in.Name) {
				refs++
			}
		}
		if refs == 0 {
			continue
		}
		if refs != len(atom.Inputs) {
			return nil, errors.Shape(errors.PhaseAdd, atom.Names()[0],
				"layout %s supplies only some inputs of %s", l.Descriptor(), atom)
		}

		dir, err := b.direction(i, opts)
		if err != nil {
			return nil, err
		}
		p.directions[i] = dir

		pl, err := b.payload(l, atom, d, opts.Transforms)
		if err != nil {
			return nil, err
		}
		p.payloads[i] = pl.bytes
		p.PointsAdded[i] = pl.points
		if pl.direct {
			p.DirectCopy[i] = true
			p.DirectCopyCount++
		}
	}
	return p, nil
}

func (b *VertexBuffer) payload(l *layout.Layout, atom layout.Atom, d data.Value, transforms map[string]layout.IndexTransform) (payload, error) {
	transformed := false
	for _, in := range atom.Inputs {
		if transforms[in.Name] != nil {
			transformed = true
		}
	}
	if !transformed {
		pl, ok, err := directCopy(l, atom, d)
		if err != nil {
			return payload{}, err
		}
		if ok {
			return pl, nil
		}
	}
	return repack(l, atom, d, transforms)
}

// DoAdd commits the plan: views grow as planned, the buffer is reallocated
// at most once, then each atom's payload is written. A plan commits once.
func (p *AddPlan) DoAdd() error {
	if p.done {
		return errors.Config(errors.PhaseAdd, "add plan already committed")
	}
	p.done = true
	b := p.buf
	saved := b.snapshot()

	grew := false
	for i, v := range b.views {
		n := len(p.payloads[i])
		if n == 0 {
			continue
		}
		var ok bool
		if p.directions[i] == Prepend {
			_, ok = v.CheckResizePrepend(n)
		} else {
			_, ok = v.CheckResizeAppend(n)
		}
		grew = grew || ok
	}

	moves := make([]relocation, len(b.views))
	offsets := make([]int, len(b.views))
	delta := 0
	for i, v := range b.views {
		moves[i] = relocation{src: v.DataStart(), length: v.Len()}
		before := v.End()
		if delta != 0 {
			v.ShiftByteIndices(delta)
		}
		n := len(p.payloads[i])
		switch {
		case n == 0:
			moves[i].dst = v.DataStart()
		case p.directions[i] == Prepend:
			offsets[i] = v.AdjustWriteIndexPrepend(n)
			moves[i].dst = v.DataStart() + n
		default:
			offsets[i] = v.AdjustWriteIndexAppend(n)
			moves[i].dst = v.DataStart()
		}
		delta = v.End() - before
	}

	if grew {
		if err := b.swap(b.totalAlloc(), moves); err != nil {
			b.restore(saved)
			return err
		}
	}

	for i, pl := range p.payloads {
		if len(pl) == 0 {
			continue
		}
		if err := b.store.Write(b.handle, offsets[i], pl); err != nil {
			return err
		}
	}
	return nil
}
