package layout

import (
	"slices"
	"strconv"
	"strings"
)

// NodeKind tags the variant held by a Node.
type NodeKind uint8

const (
	NodeLeaf NodeKind = iota
	NodeRepeat
	NodeSequence
)

var nodeKindNames = [...]string{
	NodeLeaf:     "input",
	NodeRepeat:   "repeat",
	NodeSequence: "sequence",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "unknown"
}

// RepeatKind is the growth alignment of a repeat combinator.
type RepeatKind uint8

const (
	// RepeatStart reserves room at the tail; data grows forward.
	RepeatStart RepeatKind = iota
	// RepeatEnd reserves room at the head; data grows backward.
	RepeatEnd
	// RepeatCenter grows outward from the middle.
	RepeatCenter
)

var repeatKindNames = [...]string{
	RepeatStart:  "start",
	RepeatEnd:    "end",
	RepeatCenter: "center",
}

func (k RepeatKind) String() string {
	if int(k) < len(repeatKindNames) {
		return repeatKindNames[k]
	}
	return "unknown"
}

// ParseRepeatKind resolves start, end or center.
func ParseRepeatKind(s string) (RepeatKind, bool) {
	for i, n := range repeatKindNames {
		if n == s {
			return RepeatKind(i), true
		}
	}
	return 0, false
}

// RepeatOptions are the per-combinator options of the descriptor grammar.
type RepeatOptions struct {
	// ExpandVectors lists vector inputs whose components occupy separate
	// sequential slots inside this repeat.
	ExpandVectors []string
	// Size pre-allocates (for buffer atoms) or fixes (for data layouts) the
	// repeat count. Zero means variable.
	Size int
}

func (o RepeatOptions) equal(p RepeatOptions) bool {
	return o.Size == p.Size && slices.Equal(o.ExpandVectors, p.ExpandVectors)
}

// Node is one element of a layout descriptor: an input name, a repeat
// combinator over input names and nested sequences, or a nested sequence.
type Node struct {
	Input  string
	Args   []Node
	Opts   RepeatOptions
	Kind   NodeKind
	Repeat RepeatKind
}

// In references an input by name.
func In(name string) Node {
	return Node{Kind: NodeLeaf, Input: name}
}

// Seq builds a sequence. As an argument of a repeat it describes one nested
// array element per repeat unit.
func Seq(elems ...Node) Node {
	if elems == nil {
		elems = []Node{}
	}
	return Node{Kind: NodeSequence, Args: elems}
}

// Names is shorthand for a list of input references.
func Names(names ...string) []Node {
	out := make([]Node, len(names))
	for i, n := range names {
		out[i] = In(n)
	}
	return out
}

// Repeat builds a repeat combinator.
func Repeat(kind RepeatKind, opts RepeatOptions, args ...Node) Node {
	return Node{Kind: NodeRepeat, Repeat: kind, Opts: opts, Args: args}
}

func StartRepeat(args ...Node) Node {
	return Repeat(RepeatStart, RepeatOptions{}, args...)
}

func EndRepeat(args ...Node) Node {
	return Repeat(RepeatEnd, RepeatOptions{}, args...)
}

func CenterRepeat(args ...Node) Node {
	return Repeat(RepeatCenter, RepeatOptions{}, args...)
}

// WithSize returns a copy of a repeat node with its size option set.
func (n Node) WithSize(size int) Node {
	n.Opts.Size = size
	return n
}

// WithExpand returns a copy of a repeat node with vector expansion for the
// given inputs.
func (n Node) WithExpand(inputs ...string) Node {
	n.Opts.ExpandVectors = slices.Clone(inputs)
	return n
}

// Equal reports structural equality: same nesting, same repeat kind and
// options, same argument order.
func (n Node) Equal(o Node) bool {
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case NodeLeaf:
		return n.Input == o.Input
	case NodeRepeat:
		if n.Repeat != o.Repeat || !n.Opts.equal(o.Opts) {
			return false
		}
	}
	if len(n.Args) != len(o.Args) {
		return false
	}
	for i := range n.Args {
		if !n.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// String renders the canonical form used for cache keys.
func (n Node) String() string {
	var b strings.Builder
	n.writeCanonical(&b)
	return b.String()
}

func (n Node) writeCanonical(b *strings.Builder) {
	switch n.Kind {
	case NodeLeaf:
		b.WriteString(strconv.Quote(n.Input))
	case NodeSequence:
		b.WriteByte('[')
		writeArgs(b, n.Args)
		b.WriteByte(']')
	case NodeRepeat:
		b.WriteString(n.Repeat.String())
		if n.Opts.Size != 0 || len(n.Opts.ExpandVectors) > 0 {
			b.WriteByte('{')
			b.WriteString("size=")
			b.WriteString(strconv.Itoa(n.Opts.Size))
			if len(n.Opts.ExpandVectors) > 0 {
				b.WriteString(";expand=")
				for i, e := range n.Opts.ExpandVectors {
					if i > 0 {
						b.WriteByte(',')
					}
					b.WriteString(strconv.Quote(e))
				}
			}
			b.WriteByte('}')
		}
		b.WriteByte('(')
		writeArgs(b, n.Args)
		b.WriteByte(')')
	}
}

func writeArgs(b *strings.Builder, args []Node) {
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		a.writeCanonical(b)
	}
}

// Spec is what data set operations accept as a layout: a descriptor Node or
// a compiled *Layout.
type Spec interface {
	layoutSpec()
}

func (Node) layoutSpec() {}
