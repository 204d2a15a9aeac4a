package buffer

import (
	"sync"

	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/layout"
	"github.com/wippyai/vbuf/schema"
)

const (
	// scratch limits to prevent memory bloat
	scratchChunk  = 4096
	scratchMaxCap = 1 << 20
)

var scratchPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, scratchChunk)
		return &buf
	},
}

func getScratch() *[]byte {
	return scratchPool.Get().(*[]byte)
}

func putScratch(buf *[]byte) {
	if buf == nil || cap(*buf) > scratchMaxCap {
		return // reject oversized
	}
	*buf = (*buf)[:0]
	scratchPool.Put(buf)
}

// extend grows buf by n zero bytes, reallocating in whole chunks.
func extend(buf []byte, n int) []byte {
	if len(buf)+n > cap(buf) {
		want := cap(buf) + scratchChunk
		for want < len(buf)+n {
			want += scratchChunk
		}
		next := make([]byte, len(buf), want)
		copy(next, buf)
		buf = next
	}
	return buf[:len(buf)+n]
}

// payload is the packed bytes for one atom.
type payload struct {
	bytes  []byte
	points int
	direct bool
}

// directCopy returns v's bytes for atom when the layout holds the atom's
// inputs as a single top-level flat repeat with the same arguments and v is
// packed binary.
func directCopy(l *layout.Layout, atom layout.Atom, d data.Value) (payload, bool, error) {
	for _, in := range atom.Inputs {
		if l.Occurrences(in.Name) != 1 {
			return payload{}, false, nil
		}
	}
	for _, top := range l.LoneTopFlatRepeats() {
		if !top.Atom.SameArgs(atom) || !top.IsBinary(d) {
			continue
		}
		v, err := top.Extract(d)
		if err != nil {
			return payload{}, false, err
		}
		b := v.Bytes()
		return payload{bytes: b, points: len(b) / atom.DatumBytes, direct: true}, true, nil
	}
	return payload{}, false, nil
}

// repack marshals the atom's inputs from d in lockstep into packed datums.
func repack(l *layout.Layout, atom layout.Atom, d data.Value, transforms map[string]layout.IndexTransform) (payload, error) {
	its := make([]layout.Iterator, len(atom.Inputs))
	offs := make([]int, len(atom.Inputs))
	off := 0
	for i, in := range atom.Inputs {
		it, err := l.CreateIterator(in.Name, d, transforms[in.Name])
		if err != nil {
			return payload{}, err
		}
		its[i] = it
		offs[i] = off
		off += in.ByteSize()
	}

	scratch := getScratch()
	defer putScratch(scratch)
	buf := *scratch
	comps := make([]float64, 0, schema.MaxSize)

	points := 0
	for {
		var exhausted, live int
		base := len(buf)
		buf = extend(buf, atom.DatumBytes)
		for i, in := range atom.Inputs {
			var ok bool
			var err error
			comps, ok, err = pull(its[i], in, comps[:0])
			if err != nil {
				return payload{}, err
			}
			if !ok {
				exhausted++
				continue
			}
			live++
			tb := in.Type.Bytes()
			for k, c := range comps {
				schema.PutValue(buf[base+offs[i]+k*tb:], in.Type, c)
			}
		}
		if live == 0 {
			buf = buf[:base]
			break
		}
		if exhausted > 0 {
			*scratch = buf
			return payload{}, errors.Shape(errors.PhaseAdd, atom.Names()[0],
				"unequal point counts among inputs of %s after %d points", atom, points)
		}
		points++
	}
	*scratch = buf

	out := make([]byte, len(buf))
	copy(out, buf)
	return payload{bytes: out, points: points}, nil
}

// pull reads one datum's worth of components for in: a number, an array of
// in.Size numbers, or in.Size consecutive numbers from an expanded vector.
func pull(it layout.Iterator, in schema.Input, dst []float64) ([]float64, bool, error) {
	v, ok, err := it.Next()
	if err != nil || !ok {
		return dst, false, err
	}
	if v.Kind() == data.KindArray {
		fs, ok := v.Floats64()
		if !ok || len(fs) != in.Size {
			return dst, false, errors.Shape(errors.PhaseAdd, in.Name,
				"vector %s does not have %d numeric components", v, in.Size)
		}
		return append(dst, fs...), true, nil
	}
	if v.Kind() != data.KindNumber {
		return dst, false, errors.Shape(errors.PhaseAdd, in.Name, "cannot pack %s value", v.Kind())
	}
	dst = append(dst, v.Float())
	for len(dst) < in.Size {
		v, ok, err = it.Next()
		if err != nil {
			return dst, false, err
		}
		if !ok || v.Kind() != data.KindNumber {
			return dst, false, errors.Shape(errors.PhaseAdd, in.Name,
				"expanded vector ended after %d of %d components", len(dst), in.Size)
		}
		dst = append(dst, v.Float())
	}
	return dst, true, nil
}
