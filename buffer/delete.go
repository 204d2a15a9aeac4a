package buffer

import (
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/layout"
)

// All deletes every held point.
const All = 0

// DeleteInfo describes a deletion for one input.
type DeleteInfo struct {
	Side Side
	// Amount is the number of points to delete; All (or more than held)
	// deletes everything.
	Amount int
	// Lazy keeps the allocation instead of shrinking it.
	Lazy bool
}

// DeletePlan is a sized but uncommitted delete.
type DeletePlan struct {
	buf *VertexBuffer
	// PointsDeleted holds the datum count per atom.
	PointsDeleted []int
	sides         []Side
	lazy          []bool
	done          bool
}

func (b *VertexBuffer) defaultSide(atom layout.Atom) Side {
	if atom.Kind == layout.RepeatEnd {
		return SideStart
	}
	return SideEnd
}

// SizeDataDelete resolves per-input deletions to per-atom point counts. All
// inputs of an atom must be listed together with identical settings.
func (b *VertexBuffer) SizeDataDelete(infos map[string]DeleteInfo) (*DeletePlan, error) {
	p := &DeletePlan{
		buf:           b,
		PointsDeleted: make([]int, len(b.atoms)),
		sides:         make([]Side, len(b.atoms)),
		lazy:          make([]bool, len(b.atoms)),
	}
	for i, atom := range b.atoms {
		var first DeleteInfo
		present := 0
		for _, in := range atom.Inputs {
			info, ok := infos[in.Name]
			if !ok {
				continue
			}
			if present > 0 && info != first {
				return nil, errors.New(errors.PhaseDelete, errors.KindConfig).
					Input(in.Name).
					Detail("all inputs in a layout atom must have the same values (%s)", atom).
					Build()
			}
			first = info
			present++
		}
		if present == 0 {
			continue
		}
		if present != len(atom.Inputs) {
			return nil, errors.Config(errors.PhaseDelete,
				"all inputs in a layout atom must be deleted together (%s)", atom)
		}

		held := b.views[i].Points()
		amount := first.Amount
		if amount <= All || amount > held {
			amount = held
		}
		side := first.Side
		if side == SideDefault {
			side = b.defaultSide(atom)
		}
		p.PointsDeleted[i] = amount
		p.sides[i] = side
		p.lazy[i] = first.Lazy
	}
	return p, nil
}

// DoDelete commits the plan: views drop their points and release whole
// growth chunks unless lazy, reallocating the buffer at most once.
func (p *DeletePlan) DoDelete() error {
	if p.done {
		return errors.Config(errors.PhaseDelete, "delete plan already committed")
	}
	p.done = true
	b := p.buf
	saved := b.snapshot()

	shrank := false
	for i, v := range b.views {
		n := p.PointsDeleted[i] * v.Atom().DatumBytes
		if n == 0 || p.lazy[i] {
			continue
		}
		var ok bool
		if p.sides[i] == SideStart {
			_, ok = v.CheckResizeStartDelete(n)
		} else {
			_, ok = v.CheckResizeEndDelete(n)
		}
		shrank = shrank || ok
	}

	moves := make([]relocation, len(b.views))
	delta := 0
	for i, v := range b.views {
		n := p.PointsDeleted[i] * v.Atom().DatumBytes
		if p.sides[i] == SideStart {
			moves[i] = relocation{src: v.DataStart() + n, length: v.Len() - n}
		} else {
			moves[i] = relocation{src: v.DataStart(), length: v.Len() - n}
		}
		before := v.End()
		if delta != 0 {
			v.ShiftByteIndices(delta)
		}
		if n > 0 {
			if p.sides[i] == SideStart {
				v.AdjustDeleteStart(n)
			} else {
				v.AdjustDeleteEnd(n)
			}
		}
		moves[i].dst = v.DataStart()
		delta = v.End() - before
	}

	if shrank {
		if err := b.swap(b.totalAlloc(), moves); err != nil {
			b.restore(saved)
			return err
		}
	}
	return nil
}
