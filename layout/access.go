package layout

import (
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
)

func (l *Layout) lookup(input string) (*getter, error) {
	g, ok := l.getters[input]
	if !ok {
		return nil, errors.New(errors.PhaseExtract, errors.KindSchema).
			Input(input).
			Detail("input is not referenced by layout %s", l.desc).
			Build()
	}
	return g, nil
}

// GetValue reads one value of input from d. It takes either one index per
// dimension or a single flattened index counting values in iteration order.
// Indices past the data yield Null.
func (l *Layout) GetValue(input string, d data.Value, indices ...int) (data.Value, error) {
	g, err := l.lookup(input)
	if err != nil {
		return data.Null, err
	}
	switch {
	case len(indices) == g.dim:
		return g.getSeq(d, indices)
	case len(indices) == 1:
		return l.nth(g, d, indices[0])
	default:
		return data.Null, errors.New(errors.PhaseExtract, errors.KindSchema).
			Input(input).
			Value(len(indices)).
			Detail("expected 1 or %d indices, got %d", g.dim, len(indices)).
			Build()
	}
}

func (l *Layout) nth(g *getter, d data.Value, n int) (data.Value, error) {
	if n < 0 {
		return data.Null, nil
	}
	it := newTreeIterator(g, d)
	for i := 0; ; i++ {
		v, ok, err := it.Next()
		if err != nil || !ok {
			return data.Null, err
		}
		if i == n {
			return v, nil
		}
	}
}

func newTreeIterator(g *getter, d data.Value) *treeIterator {
	it := &treeIterator{}
	it.push(seqStep(g, d))
	return it
}

// CreateIterator returns a lazy iterator over every value of input in d. With
// a non-nil transform the values are first collected and then emitted in
// transformed order.
func (l *Layout) CreateIterator(input string, d data.Value, transform IndexTransform) (Iterator, error) {
	g, err := l.lookup(input)
	if err != nil {
		return nil, err
	}
	it := newTreeIterator(g, d)
	if transform == nil {
		return it, nil
	}
	return &transformIterator{src: it, transform: transform, input: input}, nil
}

// Collect drains it into a slice.
func Collect(it Iterator) ([]data.Value, error) {
	var out []data.Value
	for {
		v, ok, err := it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Reverse is an IndexTransform emitting values last to first.
func Reverse(index int, _ data.Value, length int, acc any) (int, any) {
	return length - 1 - index, acc
}
