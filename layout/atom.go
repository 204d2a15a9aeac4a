package layout

import (
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/schema"
)

// Atom is a flat repeat: a fixed-width datum made of its inputs in argument
// order, which a VertexBuffer maps onto one contiguous sub-region.
type Atom struct {
	Inputs     []schema.Input
	Size       int
	DatumBytes int
	Kind       RepeatKind
}

func atomOf(n *cnode) Atom {
	a := Atom{
		Kind:       n.repeat,
		Size:       n.size,
		DatumBytes: n.bytes,
		Inputs:     make([]schema.Input, len(n.children)),
	}
	for i, c := range n.children {
		a.Inputs[i] = c.in
	}
	return a
}

// NewAtom validates a buffer atom declaration: a repeat over distinct input
// names of s, with no nested sequences.
func NewAtom(n Node, s *schema.Schema) (Atom, error) {
	if n.Kind != NodeRepeat {
		return Atom{}, errors.Schema(errors.PhaseValidate, nil,
			"buffer atom must be a repeat, got %s", n.Kind)
	}
	c := &compiler{schema: s, seen: make(map[string]bool)}
	cn, err := c.compileRepeat(n, nil, nil)
	if err != nil {
		return Atom{}, err
	}
	if !cn.flat {
		return Atom{}, errors.Schema(errors.PhaseValidate, nil,
			"buffer atom %s must be flat (input names only)", n)
	}
	if len(c.order) != len(cn.children) {
		return Atom{}, errors.Schema(errors.PhaseValidate, nil,
			"buffer atom %s references an input more than once", n)
	}
	return atomOf(cn), nil
}

// Names returns the input names in argument order.
func (a Atom) Names() []string {
	out := make([]string, len(a.Inputs))
	for i, in := range a.Inputs {
		out[i] = in.Name
	}
	return out
}

func (a Atom) Has(name string) bool {
	for _, in := range a.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

// SameArgs reports whether both atoms pack the same inputs in the same order,
// i.e. their datums are byte-for-byte interchangeable.
func (a Atom) SameArgs(b Atom) bool {
	if len(a.Inputs) != len(b.Inputs) {
		return false
	}
	for i := range a.Inputs {
		if a.Inputs[i] != b.Inputs[i] {
			return false
		}
	}
	return true
}

func (a Atom) String() string {
	n := Node{Kind: NodeRepeat, Repeat: a.Kind, Opts: RepeatOptions{Size: a.Size}, Args: Names(a.Names()...)}
	return n.String()
}
