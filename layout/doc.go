// Package layout compiles layout descriptors against an input schema.
//
// A descriptor is an ordered sequence of input names, repeat combinators and
// nested sequences:
//
//	layout.Seq(
//	    layout.In("origin"),
//	    layout.StartRepeat(layout.In("t"), layout.In("v")),
//	)
//
// Application data for a sequence is an array whose elements are chopped
// among the children: a leaf takes one slot, a nested sequence one nested
// array, and a repeat count*width slots. Repeats without a fixed size share
// the remainder evenly. Sequences made only of inputs and flat repeats may
// instead be supplied as packed little-endian bytes.
//
// A compiled Layout offers random access (GetValue) and resumable depth-first
// iteration (CreateIterator) per input. Flat repeats are the atoms that
// buffers store; flat repeats sitting directly in the root sequence can be
// copied into a matching atom byte for byte.
package layout
