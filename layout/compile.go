package layout

import (
	"slices"
	"strconv"

	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/schema"
)

// Options configure layout compilation.
type Options struct {
	// ExpandVectors lists vector inputs read as separate components
	// everywhere in the layout, in addition to per-repeat expansion.
	ExpandVectors []string
}

func (o Options) equal(p Options) bool {
	return slices.Equal(o.ExpandVectors, p.ExpandVectors)
}

func (o Options) key() string {
	if len(o.ExpandVectors) == 0 {
		return ""
	}
	b := []byte("expand=")
	for i, e := range o.ExpandVectors {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendQuote(b, e)
	}
	return string(b)
}

// cnode is a compiled descriptor node annotated with the widths needed to
// chop live data.
type cnode struct {
	in       schema.Input
	children []*cnode
	path     []string

	// repeat: offsets of each argument inside one unit
	argSlotOff []int
	argByteOff []int

	// sequence: widths of fixed children and per-unit widths of variable repeats
	fixedSlots   int
	fixedBytes   int
	varUnitSlots int
	varUnitBytes int

	// leaf: slots taken in an array; repeat: slots per unit
	slots int
	// leaf: packed width; repeat: bytes per unit (flat only)
	bytes int
	// repeat: fixed unit count, zero when variable
	size int

	kind   NodeKind
	repeat RepeatKind
	expand bool
	flat   bool
}

func (n *cnode) isVariableRepeat() bool {
	return n.kind == NodeRepeat && n.size == 0
}

// widthIn returns how much of its parent sequence the node occupies in
// array (slots) or binary (bytes) mode, given a unit count for repeats.
func (n *cnode) widthIn(binary bool, count int) int {
	switch n.kind {
	case NodeLeaf:
		if binary {
			return n.bytes
		}
		return n.slots
	case NodeRepeat:
		if binary {
			return count * n.bytes
		}
		return count * n.slots
	default:
		return 1
	}
}

type compiler struct {
	schema *schema.Schema
	seen   map[string]bool
	count  map[string]int
	order  []string
}

func (c *compiler) compile(n Node, path []string, expand map[string]bool) (*cnode, error) {
	switch n.Kind {
	case NodeLeaf:
		return c.compileLeaf(n, path, expand)
	case NodeRepeat:
		return c.compileRepeat(n, path, expand)
	case NodeSequence:
		return c.compileSequence(n, path, expand)
	default:
		return nil, errors.Schema(errors.PhaseCompile, path, "unknown node kind %d", n.Kind)
	}
}

func (c *compiler) compileLeaf(n Node, path []string, expand map[string]bool) (*cnode, error) {
	in, ok := c.schema.Lookup(n.Input)
	if !ok {
		return nil, errors.New(errors.PhaseCompile, errors.KindSchema).
			Path(path...).
			Input(n.Input).
			Detail("unknown input").
			Build()
	}
	if !c.seen[in.Name] {
		c.seen[in.Name] = true
		c.order = append(c.order, in.Name)
	}
	if c.count != nil {
		c.count[in.Name]++
	}
	leaf := &cnode{
		kind:   NodeLeaf,
		in:     in,
		path:   path,
		slots:  1,
		bytes:  in.ByteSize(),
		expand: expand[in.Name] && in.Size > 1,
		flat:   true,
	}
	if leaf.expand {
		leaf.slots = in.Size
	}
	return leaf, nil
}

func (c *compiler) compileRepeat(n Node, path []string, expand map[string]bool) (*cnode, error) {
	if len(n.Args) == 0 {
		return nil, errors.Schema(errors.PhaseCompile, path, "empty %s repeat", n.Repeat)
	}
	if n.Opts.Size < 0 {
		return nil, errors.Schema(errors.PhaseCompile, path, "negative repeat size %d", n.Opts.Size)
	}
	if n.Repeat > RepeatCenter {
		return nil, errors.Schema(errors.PhaseCompile, path, "unknown repeat type %d", n.Repeat)
	}
	if len(n.Opts.ExpandVectors) > 0 {
		var err error
		if expand, err = c.withExpand(expand, n.Opts.ExpandVectors, path); err != nil {
			return nil, err
		}
	}

	r := &cnode{
		kind:       NodeRepeat,
		repeat:     n.Repeat,
		size:       n.Opts.Size,
		path:       path,
		children:   make([]*cnode, len(n.Args)),
		argSlotOff: make([]int, len(n.Args)),
		argByteOff: make([]int, len(n.Args)),
		flat:       true,
	}
	for i, arg := range n.Args {
		argPath := appendPath(path, i)
		if arg.Kind == NodeRepeat {
			return nil, errors.Schema(errors.PhaseCompile, argPath,
				"naked %s repeat inside a repeat; wrap nested repeats in a sequence", arg.Repeat)
		}
		child, err := c.compile(arg, argPath, expand)
		if err != nil {
			return nil, err
		}
		r.children[i] = child
		r.argSlotOff[i] = r.slots
		r.argByteOff[i] = r.bytes
		r.slots += child.widthIn(false, 1)
		if child.kind == NodeLeaf {
			r.bytes += child.bytes
		} else {
			r.flat = false
		}
	}
	if !r.flat {
		r.bytes = 0
	}
	return r, nil
}

func (c *compiler) compileSequence(n Node, path []string, expand map[string]bool) (*cnode, error) {
	if len(n.Args) == 0 {
		return nil, errors.Schema(errors.PhaseCompile, path, "empty sequence")
	}
	s := &cnode{
		kind:     NodeSequence,
		path:     path,
		slots:    1,
		children: make([]*cnode, len(n.Args)),
		flat:     true,
	}
	for i, elem := range n.Args {
		child, err := c.compile(elem, appendPath(path, i), expand)
		if err != nil {
			return nil, err
		}
		s.children[i] = child
		switch child.kind {
		case NodeLeaf:
			s.fixedSlots += child.slots
			s.fixedBytes += child.bytes
		case NodeSequence:
			s.fixedSlots++
			s.flat = false
		case NodeRepeat:
			if !child.flat {
				s.flat = false
			}
			if child.size > 0 {
				s.fixedSlots += child.size * child.slots
				s.fixedBytes += child.size * child.bytes
			} else {
				s.varUnitSlots += child.slots
				s.varUnitBytes += child.bytes
			}
		}
	}
	return s, nil
}

func (c *compiler) withExpand(expand map[string]bool, names []string, path []string) (map[string]bool, error) {
	next := make(map[string]bool, len(expand)+len(names))
	for k, v := range expand {
		next[k] = v
	}
	for _, name := range names {
		if !c.schema.Has(name) {
			return nil, errors.New(errors.PhaseCompile, errors.KindSchema).
				Path(path...).
				Input(name).
				Detail("expandVectors references unknown input").
				Build()
		}
		next[name] = true
	}
	return next, nil
}

func appendPath(path []string, i int) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = strconv.Itoa(i)
	return out
}
