package layout

import (
	"slices"

	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/schema"
)

// Layout is a compiled descriptor: one getter tree per referenced input plus
// the flat repeats (atoms) found in the descriptor.
type Layout struct {
	schema  *schema.Schema
	root    *cnode
	getters map[string]*getter
	leaves  map[string]int
	inputs  []string
	atoms   []layoutAtom
	tops    []TopRepeat
	key     string
	desc    Node
	opts    Options
}

type layoutAtom struct {
	node *cnode
	atom Atom
}

func (*Layout) layoutSpec() {}

// Compile validates a descriptor against an input schema and builds its
// getter trees. A descriptor that is not a sequence is treated as a
// one-element sequence.
func Compile(desc Node, s *schema.Schema, opts Options) (*Layout, error) {
	if s == nil {
		return nil, errors.Schema(errors.PhaseCompile, nil, "nil input schema")
	}
	if desc.Kind != NodeSequence {
		desc = Seq(desc)
	}

	c := &compiler{schema: s, seen: make(map[string]bool), count: make(map[string]int)}
	var expand map[string]bool
	if len(opts.ExpandVectors) > 0 {
		var err error
		if expand, err = c.withExpand(nil, opts.ExpandVectors, nil); err != nil {
			return nil, err
		}
	}

	root, err := c.compile(desc, nil, expand)
	if err != nil {
		return nil, err
	}

	l := &Layout{
		schema:  s,
		root:    root,
		getters: make(map[string]*getter, len(c.order)),
		leaves:  c.count,
		inputs:  c.order,
		desc:    cloneNode(desc),
		opts:    Options{ExpandVectors: slices.Clone(opts.ExpandVectors)},
	}
	for _, name := range c.order {
		l.getters[name] = buildGetter(root, name)
	}
	l.collectAtoms(root)
	for i, child := range root.children {
		if child.kind == NodeRepeat && child.flat {
			l.tops = append(l.tops, TopRepeat{
				layout: l,
				node:   child,
				Atom:   atomOf(child),
				Index:  i,
			})
		}
	}
	l.key = Key(l.desc, l.opts)
	return l, nil
}

// MustCompile is Compile for static descriptors.
func MustCompile(desc Node, s *schema.Schema, opts Options) *Layout {
	l, err := Compile(desc, s, opts)
	if err != nil {
		panic(err)
	}
	return l
}

// Key returns the canonical cache key of a descriptor compiled with opts.
func Key(desc Node, opts Options) string {
	if desc.Kind != NodeSequence {
		desc = Seq(desc)
	}
	k := desc.String()
	if ok := opts.key(); ok != "" {
		k += "|" + ok
	}
	return k
}

func (l *Layout) collectAtoms(n *cnode) {
	if n.kind == NodeRepeat && n.flat {
		l.atoms = append(l.atoms, layoutAtom{node: n, atom: atomOf(n)})
		return
	}
	for _, c := range n.children {
		if c.kind != NodeLeaf {
			l.collectAtoms(c)
		}
	}
}

func (l *Layout) Schema() *schema.Schema { return l.schema }

func (l *Layout) Options() Options { return l.opts }

// Descriptor returns a copy of the compiled descriptor.
func (l *Layout) Descriptor() Node { return cloneNode(l.desc) }

// Key returns the canonical cache key.
func (l *Layout) Key() string { return l.key }

// InputNames lists referenced inputs in order of first appearance.
func (l *Layout) InputNames() []string { return l.inputs }

// References reports whether the layout reads the input.
func (l *Layout) References(input string) bool {
	_, ok := l.getters[input]
	return ok
}

// Occurrences returns how many times the descriptor names input.
func (l *Layout) Occurrences(input string) int {
	return l.leaves[input]
}

// Dimension returns the number of indices GetValue expects for input when
// not using a single flattened index.
func (l *Layout) Dimension(input string) int {
	g, ok := l.getters[input]
	if !ok {
		return 0
	}
	return g.dim
}

// Atoms returns every flat repeat in the descriptor, in descriptor order.
func (l *Layout) Atoms() []Atom {
	out := make([]Atom, len(l.atoms))
	for i, a := range l.atoms {
		out[i] = a.atom
	}
	return out
}

// AtomsReferencing returns the flat repeats that contain input.
func (l *Layout) AtomsReferencing(input string) []Atom {
	var out []Atom
	for _, a := range l.atoms {
		if a.atom.Has(input) {
			out = append(out, a.atom)
		}
	}
	return out
}

// LoneTopFlatRepeats returns the direct children of the root sequence that
// are flat repeats. Their data can be extracted without per-element work.
func (l *Layout) LoneTopFlatRepeats() []TopRepeat {
	return l.tops
}

// IsSameLayout reports whether both layouts were built from the same input
// schema, options and descriptor.
func (l *Layout) IsSameLayout(o *Layout) bool {
	if l == o {
		return true
	}
	if l == nil || o == nil {
		return false
	}
	return l.schema.Equal(o.schema) && l.opts.equal(o.opts) && l.desc.Equal(o.desc)
}

// TopRepeat is a flat repeat sitting directly in the root sequence.
type TopRepeat struct {
	layout *Layout
	node   *cnode
	Atom   Atom
	Index  int
}

// Count returns the number of repeat units present in v.
func (t TopRepeat) Count(v data.Value) (int, error) {
	ch, err := chop(t.layout.root, v, "")
	if err != nil {
		return 0, err
	}
	return ch.unitCount(t.node, t.Index), nil
}

// Extract returns the repeat's portion of v: a Binary slice sharing v's
// bytes when v is packed, otherwise an Array of its slots.
func (t TopRepeat) Extract(v data.Value) (data.Value, error) {
	ch, err := chop(t.layout.root, v, "")
	if err != nil {
		return data.Null, err
	}
	off := ch.offs[t.Index]
	count := ch.unitCount(t.node, t.Index)
	end := off + t.node.widthIn(ch.binary, count)
	if ch.binary {
		return data.Binary(ch.bin[off:end:end]), nil
	}
	return data.Array(ch.arr[off:end:end]...), nil
}

// IsBinary reports whether v supplies this repeat as packed bytes.
func (t TopRepeat) IsBinary(v data.Value) bool {
	_, ok := v.BinarySource()
	return ok
}

func cloneNode(n Node) Node {
	out := n
	out.Opts.ExpandVectors = slices.Clone(n.Opts.ExpandVectors)
	if n.Args != nil {
		out.Args = make([]Node, len(n.Args))
		for i, a := range n.Args {
			out.Args[i] = cloneNode(a)
		}
	}
	return out
}
