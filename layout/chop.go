package layout

import (
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/schema"
)

// region is the data backing one sequence: either its array elements or,
// for flat sequences, packed bytes.
type region struct {
	arr    []data.Value
	bin    []byte
	binary bool
}

func (r region) length() int {
	if r.binary {
		return len(r.bin)
	}
	return len(r.arr)
}

func (r region) elem(i int) data.Value {
	if r.binary || i < 0 || i >= len(r.arr) {
		return data.Null
	}
	return r.arr[i]
}

// chopped is a sequence's data split among its children.
type chopped struct {
	region
	offs   []int
	counts []int
}

// available returns how many whole units of repeat n fit in the data from off.
func (c chopped) available(n *cnode, off int) int {
	w := n.widthIn(c.binary, 1)
	if w == 0 {
		return 0
	}
	rest := c.length() - off
	if rest <= 0 {
		return 0
	}
	return rest / w
}

// unitCount returns the unit count of repeat child i, capped at what the data
// actually holds.
func (c chopped) unitCount(n *cnode, i int) int {
	count := c.counts[i]
	if avail := c.available(n, c.offs[i]); avail < count {
		count = avail
	}
	return count
}

// chop assigns each child of sequence n its offset in v. Fixed-size children
// take their declared width; variable repeats share the remainder evenly,
// all with the same unit count.
func chop(n *cnode, v data.Value, input string) (chopped, error) {
	var ch chopped
	if bin, ok := v.BinarySource(); ok {
		if !n.flat {
			return ch, errors.New(errors.PhaseExtract, errors.KindShape).
				Path(n.path...).
				Input(input).
				Detail("binary data supplied for a sequence with nested arrays").
				Build()
		}
		ch.region = region{bin: bin, binary: true}
	} else {
		switch v.Kind() {
		case data.KindArray:
			ch.region = region{arr: v.Elems()}
		case data.KindNull:
			ch.region = region{}
		default:
			return ch, errors.New(errors.PhaseExtract, errors.KindShape).
				Path(n.path...).
				Input(input).
				Detail("expected array or binary data for sequence, got %s", v.Kind()).
				Build()
		}
	}

	fixed, unit := n.fixedSlots, n.varUnitSlots
	if ch.binary {
		fixed, unit = n.fixedBytes, n.varUnitBytes
	}

	varCount := 0
	if unit > 0 {
		rem := ch.length() - fixed
		if rem < 0 || rem%unit != 0 {
			return ch, errors.New(errors.PhaseExtract, errors.KindShape).
				Path(n.path...).
				Input(input).
				Value(ch.length()).
				Detail("cannot chop %d elements into even chunks of %d after %d fixed", ch.length(), unit, fixed).
				Build()
		}
		varCount = rem / unit
	}

	ch.offs = make([]int, len(n.children))
	ch.counts = make([]int, len(n.children))
	off := 0
	for i, c := range n.children {
		count := 0
		if c.kind == NodeRepeat {
			count = c.size
			if count == 0 {
				count = varCount
			}
		}
		ch.offs[i] = off
		ch.counts[i] = count
		off += c.widthIn(ch.binary, count)
	}
	return ch, nil
}

// unitPos returns the position of argument arg of unit u of repeat n that
// starts at off.
func unitPos(n *cnode, binary bool, off, u, arg int) int {
	if binary {
		return off + u*n.bytes + n.argByteOff[arg]
	}
	return off + u*n.slots + n.argSlotOff[arg]
}

// leafAt reads one occurrence of a leaf. comp selects a component of an
// expanded vector and is ignored otherwise. Positions past the data yield
// Null.
func leafAt(r region, pos int, leaf *cnode, comp int) (data.Value, error) {
	in := leaf.in
	if r.binary {
		if pos+leaf.bytes > len(r.bin) {
			return data.Null, nil
		}
		tb := in.Type.Bytes()
		if in.Size == 1 {
			return data.Num(schema.ReadValue(r.bin[pos:], in.Type)), nil
		}
		if leaf.expand {
			return data.Num(schema.ReadValue(r.bin[pos+comp*tb:], in.Type)), nil
		}
		vec := make([]float64, in.Size)
		for k := range vec {
			vec[k] = schema.ReadValue(r.bin[pos+k*tb:], in.Type)
		}
		return data.Vec(vec...), nil
	}

	if leaf.expand {
		e := r.elem(pos + comp)
		if e.IsNull() {
			return data.Null, nil
		}
		if e.Kind() != data.KindNumber {
			return data.Null, shapeAt(leaf, "expanded vector component must be a number, got %s", e.Kind())
		}
		return e, nil
	}

	e := r.elem(pos)
	switch e.Kind() {
	case data.KindNull:
		return data.Null, nil
	case data.KindBinary:
		return data.Null, shapeAt(leaf, "cannot mix binary and array data within a flat repeat")
	case data.KindNumber:
		if in.Size != 1 {
			return data.Null, shapeAt(leaf, "vector of size %d read from a scalar; list it in expandVectors or supply an array", in.Size)
		}
		return e, nil
	default:
		if in.Size == 1 {
			return data.Null, shapeAt(leaf, "expected a scalar, got an array of %d", e.Len())
		}
		if e.Len() != in.Size {
			return data.Null, shapeAt(leaf, "vector dimension %d does not match input size %d", e.Len(), in.Size)
		}
		for _, c := range e.Elems() {
			if c.Kind() != data.KindNumber {
				return data.Null, shapeAt(leaf, "vector component must be a number, got %s", c.Kind())
			}
		}
		return e, nil
	}
}

func shapeAt(leaf *cnode, format string, args ...any) error {
	return errors.New(errors.PhaseExtract, errors.KindShape).
		Path(leaf.path...).
		Input(leaf.in.Name).
		Detail(format, args...).
		Build()
}
