package layout

import (
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
)

// Iterator yields the values of one input in layout order. It is finite and
// cannot be restarted.
type Iterator interface {
	// Next returns the next value, or ok=false once exhausted.
	Next() (v data.Value, ok bool, err error)
}

// IndexTransform maps the original position of a value to its emitted
// position. acc is threaded through successive calls, starting at nil.
type IndexTransform func(index int, v data.Value, length int, acc any) (int, any)

// step is a deferred continuation. It either emits a value or schedules
// further steps on the iterator's stack.
type step func(it *treeIterator) (data.Value, bool, error)

// treeIterator walks a getter tree depth-first, keeping its resumption points
// on an explicit stack instead of recursing.
type treeIterator struct {
	stack []step
	err   error
}

func (it *treeIterator) push(s step) {
	it.stack = append(it.stack, s)
}

func (it *treeIterator) Next() (data.Value, bool, error) {
	if it.err != nil {
		return data.Null, false, it.err
	}
	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		v, emit, err := top(it)
		if err != nil {
			it.err = err
			it.stack = nil
			return data.Null, false, err
		}
		if emit && !v.IsNull() {
			return v, true, nil
		}
	}
	return data.Null, false, nil
}

func seqStep(g *getter, v data.Value) step {
	return func(it *treeIterator) (data.Value, bool, error) {
		ch, err := chop(g.node, v, g.input)
		if err != nil {
			return data.Null, false, err
		}
		it.push(branchStep(g, ch, 0))
		return data.Null, false, nil
	}
}

// branchStep visits branch i of a sequence getter, scheduling i+1 after it.
func branchStep(g *getter, ch chopped, i int) step {
	return func(it *treeIterator) (data.Value, bool, error) {
		if i+1 < len(g.branches) {
			it.push(branchStep(g, ch, i+1))
		}
		br := g.branches[i]
		count := 0
		if c := g.node.children[br.child]; c.kind == NodeRepeat {
			count = ch.unitCount(c, br.child)
		}
		it.push(visitStep(ch.region, ch.offs[br.child], count, br))
		return data.Null, false, nil
	}
}

// repeatStep visits branch b of unit u, then advances to the next branch or unit.
func repeatStep(g *getter, r region, off, count, u, b int) step {
	return func(it *treeIterator) (data.Value, bool, error) {
		if u >= count {
			return data.Null, false, nil
		}
		nu, nb := u, b+1
		if nb == len(g.branches) {
			nu, nb = u+1, 0
		}
		if nu < count {
			it.push(repeatStep(g, r, off, count, nu, nb))
		}
		br := g.branches[b]
		it.push(visitStep(r, unitPos(g.node, r.binary, off, u, br.child), 0, br))
		return data.Null, false, nil
	}
}

func visitStep(r region, pos, count int, br branch) step {
	return func(it *treeIterator) (data.Value, bool, error) {
		if br.sub == nil {
			it.push(leafStep(r, pos, br.leaf, 0))
			return data.Null, false, nil
		}
		switch br.sub.node.kind {
		case NodeSequence:
			it.push(seqStep(br.sub, r.elem(pos)))
		case NodeRepeat:
			it.push(repeatStep(br.sub, r, pos, count, 0, 0))
		default:
			return data.Null, false, errors.Internal(errors.PhaseExtract, "getter on %s node", br.sub.node.kind)
		}
		return data.Null, false, nil
	}
}

func leafStep(r region, pos int, leaf *cnode, comp int) step {
	return func(it *treeIterator) (data.Value, bool, error) {
		if leaf.expand && comp+1 < leaf.in.Size {
			it.push(leafStep(r, pos, leaf, comp+1))
		}
		v, err := leafAt(r, pos, leaf, comp)
		if err != nil {
			return data.Null, false, err
		}
		return v, true, nil
	}
}

// transformIterator drains its source on first use and re-emits the values
// in transformed order.
type transformIterator struct {
	src       Iterator
	transform IndexTransform
	input     string
	out       []data.Value
	pos       int
	ready     bool
}

func (t *transformIterator) Next() (data.Value, bool, error) {
	if !t.ready {
		if err := t.materialize(); err != nil {
			return data.Null, false, err
		}
		t.ready = true
	}
	if t.pos >= len(t.out) {
		return data.Null, false, nil
	}
	v := t.out[t.pos]
	t.pos++
	return v, true, nil
}

func (t *transformIterator) materialize() error {
	var values []data.Value
	for {
		v, ok, err := t.src.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		values = append(values, v)
	}

	n := len(values)
	t.out = make([]data.Value, n)
	filled := make([]bool, n)
	var acc any
	for i, v := range values {
		var j int
		j, acc = t.transform(i, v, n, acc)
		if j < 0 || j >= n {
			t.out = nil
			return errors.Range(errors.PhaseExtract, t.input, j, n)
		}
		if filled[j] {
			t.out = nil
			return errors.New(errors.PhaseExtract, errors.KindRange).
				Input(t.input).
				Value(j).
				Detail("index transform maps %d to already used index %d", i, j).
				Build()
		}
		filled[j] = true
		t.out[j] = v
	}
	return nil
}
