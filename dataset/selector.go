package dataset

import "github.com/wippyai/vbuf/buffer"

// Selector picks the points of one input to delete. A zero Amount deletes
// every held point.
type Selector struct {
	Input  string
	Side   buffer.Side
	Amount int
	Lazy   bool
}

// Select returns a selector deleting every point of input from its default side.
func Select(input string) Selector {
	return Selector{Input: input}
}

// From returns a copy deleting from side.
func (s Selector) From(side buffer.Side) Selector {
	s.Side = side
	return s
}

// Take returns a copy deleting n points.
func (s Selector) Take(n int) Selector {
	s.Amount = n
	return s
}

// Keep returns a copy that leaves the allocation untouched.
func (s Selector) Keep() Selector {
	s.Lazy = true
	return s
}

func (s Selector) info() buffer.DeleteInfo {
	return buffer.DeleteInfo{Side: s.Side, Amount: s.Amount, Lazy: s.Lazy}
}
