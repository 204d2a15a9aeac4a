package layout

import (
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
)

// getter is the part of the descriptor tree that leads to one input. Leaves
// of the same input under one parent share the parent's getter as branches.
type getter struct {
	node     *cnode
	input    string
	branches []branch
	dim      int
}

type branch struct {
	leaf  *cnode
	sub   *getter
	child int
}

func buildGetter(n *cnode, input string) *getter {
	g := &getter{node: n, input: input}
	for i, c := range n.children {
		switch {
		case c.kind == NodeLeaf && c.in.Name == input:
			g.branches = append(g.branches, branch{child: i, leaf: c})
		case c.kind != NodeLeaf:
			if sub := buildGetter(c, input); sub != nil {
				g.branches = append(g.branches, branch{child: i, sub: sub})
			}
		}
	}
	if len(g.branches) == 0 {
		return nil
	}
	deepest := 0
	for _, b := range g.branches {
		if d := b.dim(); d > deepest {
			deepest = d
		}
	}
	g.dim = deepest
	if g.consumesIndex() {
		g.dim++
	}
	return g
}

// consumesIndex reports whether the node selects among its branches or units
// with an index of its own.
func (g *getter) consumesIndex() bool {
	return g.node.kind == NodeRepeat || len(g.branches) > 1
}

func (b branch) dim() int {
	if b.sub != nil {
		return b.sub.dim
	}
	if b.leaf.expand {
		return 1
	}
	return 0
}

// take pops the next index; a missing index reads as zero.
func take(idx []int) (int, []int) {
	if len(idx) == 0 {
		return 0, nil
	}
	return idx[0], idx[1:]
}

func allZero(idx []int) bool {
	for _, i := range idx {
		if i != 0 {
			return false
		}
	}
	return true
}

// getSeq resolves idx under a sequence node whose data is v.
func (g *getter) getSeq(v data.Value, idx []int) (data.Value, error) {
	ch, err := chop(g.node, v, g.input)
	if err != nil {
		return data.Null, err
	}
	b := 0
	if len(g.branches) > 1 {
		b, idx = take(idx)
		if b < 0 || b >= len(g.branches) {
			return data.Null, nil
		}
	}
	br := g.branches[b]
	count := 0
	if c := g.node.children[br.child]; c.kind == NodeRepeat {
		count = ch.unitCount(c, br.child)
	}
	return g.visit(ch.region, ch.offs[br.child], count, br, idx)
}

// getRepeat resolves idx under a repeat node occupying count units of r from
// off. Index i selects unit i/k and branch i%k, k being the branch count.
func (g *getter) getRepeat(r region, off, count int, idx []int) (data.Value, error) {
	i, idx := take(idx)
	k := len(g.branches)
	if i < 0 || i/k >= count {
		return data.Null, nil
	}
	br := g.branches[i%k]
	return g.visit(r, unitPos(g.node, r.binary, off, i/k, br.child), 0, br, idx)
}

func (g *getter) visit(r region, pos, count int, br branch, idx []int) (data.Value, error) {
	if br.sub == nil {
		comp := 0
		if br.leaf.expand {
			comp, idx = take(idx)
			if comp < 0 || comp >= br.leaf.in.Size {
				return data.Null, nil
			}
		}
		if !allZero(idx) {
			return data.Null, nil
		}
		return leafAt(r, pos, br.leaf, comp)
	}
	switch br.sub.node.kind {
	case NodeSequence:
		return br.sub.getSeq(r.elem(pos), idx)
	case NodeRepeat:
		return br.sub.getRepeat(r, pos, count, idx)
	default:
		return data.Null, errors.Internal(errors.PhaseExtract, "getter on %s node", br.sub.node.kind)
	}
}
