package dataset

import (
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/schema"
)

// Locate returns the buffer and atom index holding input.
func (ds *DataSet) Locate(input string) (buf, atom int, ok bool) {
	for i, vb := range ds.buffers {
		if j := vb.AtomIndex(input); j >= 0 {
			return i, j, true
		}
	}
	return -1, -1, false
}

// Values decodes the points currently held for input, one slice of
// components per point. The backing store must support reads.
func (ds *DataSet) Values(input string) ([][]float64, error) {
	bi, ai, ok := ds.Locate(input)
	if !ok {
		return nil, errors.New(errors.PhaseStore, errors.KindSchema).
			Input(input).
			Detail("unknown input").
			Build()
	}
	vb := ds.buffers[bi]
	atom := vb.Atoms()[ai]
	raw, err := vb.ReadAtom(ai)
	if err != nil {
		return nil, err
	}

	var in schema.Input
	off := 0
	for _, a := range atom.Inputs {
		if a.Name == input {
			in = a
			break
		}
		off += a.ByteSize()
	}
	width := in.Type.Bytes()

	points := len(raw) / atom.DatumBytes
	out := make([][]float64, points)
	for p := range out {
		base := p*atom.DatumBytes + off
		comps := make([]float64, in.Size)
		for c := range comps {
			comps[c] = schema.ReadValue(raw[base+c*width:], in.Type)
		}
		out[p] = comps
	}
	return out, nil
}
