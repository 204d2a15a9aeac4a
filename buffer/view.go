package buffer

import (
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/layout"
)

// ResizeFunc returns how many datums the resizeIndex-th growth chunk of a
// view holds. resizeIndex starts at 1.
type ResizeFunc func(repeatCount, resizeIndex int) int

// DefaultResize grows by repeatCount*resizeIndex datums per step.
func DefaultResize(repeatCount, resizeIndex int) int {
	return repeatCount * resizeIndex
}

type pendingKind uint8

const (
	pendingNone pendingKind = iota
	pendingAppend
	pendingPrepend
	pendingShrinkStart
	pendingShrinkEnd
)

// SubBufferView is the byte region of one atom inside a VertexBuffer. Bytes
// between start and end are allocated; bytes between dataStart and dataEnd
// hold packed datums. Free room sits at the head, the tail or both depending
// on the atom's alignment.
type SubBufferView struct {
	atom        layout.Atom
	resize      ResizeFunc
	start       int
	alloc       int
	dataStart   int
	dataEnd     int
	repeatCount int
	resizes     int

	pending       pendingKind
	pendingBytes  int
	pendingChunks int
}

// NewSubBufferView places an empty view at byte offset start. Its initial
// allocation is atom.Size datums (one when unsized; center views round up
// to an even count so data can start in the middle).
func NewSubBufferView(start int, atom layout.Atom, resize ResizeFunc) *SubBufferView {
	if resize == nil {
		resize = DefaultResize
	}
	rc := atom.Size
	if rc <= 0 {
		rc = 1
	}
	if atom.Kind == layout.RepeatCenter && rc%2 != 0 {
		rc++
	}
	v := &SubBufferView{
		atom:        atom,
		resize:      resize,
		start:       start,
		alloc:       rc * atom.DatumBytes,
		repeatCount: rc,
	}
	switch atom.Kind {
	case layout.RepeatEnd:
		v.dataStart = start + v.alloc
	case layout.RepeatCenter:
		v.dataStart = start + rc/2*atom.DatumBytes
	default:
		v.dataStart = start
	}
	v.dataEnd = v.dataStart
	return v
}

func (v *SubBufferView) Atom() layout.Atom { return v.atom }

func (v *SubBufferView) Start() int { return v.start }

func (v *SubBufferView) End() int { return v.start + v.alloc }

func (v *SubBufferView) DataStart() int { return v.dataStart }

func (v *SubBufferView) DataEnd() int { return v.dataEnd }

// Alloc returns the allocated byte size.
func (v *SubBufferView) Alloc() int { return v.alloc }

// Len returns the occupied byte size.
func (v *SubBufferView) Len() int { return v.dataEnd - v.dataStart }

// Points returns the number of datums held.
func (v *SubBufferView) Points() int { return v.Len() / v.atom.DatumBytes }

// Resizes returns how many growth chunks are currently allocated.
func (v *SubBufferView) Resizes() int { return v.resizes }

func (v *SubBufferView) RepeatCount() int { return v.repeatCount }

func (v *SubBufferView) chunkBytes(i int) int {
	n := v.resize(v.repeatCount, i)
	if n < 1 {
		n = 1
	}
	return n * v.atom.DatumBytes
}

// growth returns the bytes and chunk count needed to make free >= n.
func (v *SubBufferView) growth(free, n int) (int, int) {
	grow, k := 0, 0
	for free+grow < n {
		k++
		grow += v.chunkBytes(v.resizes + k)
	}
	return grow, k
}

func (v *SubBufferView) plan(kind pendingKind, bytes, chunks int) (int, bool) {
	if chunks == 0 {
		v.pending = pendingNone
		return 0, false
	}
	v.pending, v.pendingBytes, v.pendingChunks = kind, bytes, chunks
	return bytes, true
}

func (v *SubBufferView) checkDatums(n int, op string) {
	if n < 0 || n%v.atom.DatumBytes != 0 {
		phase := errors.PhaseAdd
		if op == "delete" {
			phase = errors.PhaseDelete
		}
		panic(errors.Internal(phase, "%s of %d bytes is not a multiple of the %d byte datum of %s",
			op, n, v.atom.DatumBytes, v.atom))
	}
}

// CheckResizeAppend reports how many bytes the allocation must grow by at
// the tail to append n bytes, or ok=false when the free tail suffices. The
// growth is applied by the next AdjustWriteIndexAppend.
func (v *SubBufferView) CheckResizeAppend(n int) (int, bool) {
	v.checkDatums(n, "append")
	grow, k := v.growth(v.End()-v.dataEnd, n)
	return v.plan(pendingAppend, grow, k)
}

// CheckResizePrepend is CheckResizeAppend for the head.
func (v *SubBufferView) CheckResizePrepend(n int) (int, bool) {
	v.checkDatums(n, "prepend")
	grow, k := v.growth(v.dataStart-v.start, n)
	return v.plan(pendingPrepend, grow, k)
}

// AdjustWriteIndexAppend applies a planned growth, claims n bytes at the
// tail and returns the offset to write them at.
func (v *SubBufferView) AdjustWriteIndexAppend(n int) int {
	v.checkDatums(n, "append")
	if v.pending == pendingAppend {
		v.alloc += v.pendingBytes
		v.resizes += v.pendingChunks
		v.pending = pendingNone
	}
	if v.dataEnd+n > v.End() {
		panic(errors.Internal(errors.PhaseAdd, "append of %d bytes to %s was not planned", n, v.atom))
	}
	off := v.dataEnd
	v.dataEnd += n
	return off
}

// AdjustWriteIndexPrepend applies a planned growth at the head, which moves
// the held data up, claims n bytes before it and returns their offset.
func (v *SubBufferView) AdjustWriteIndexPrepend(n int) int {
	v.checkDatums(n, "prepend")
	if v.pending == pendingPrepend {
		v.alloc += v.pendingBytes
		v.resizes += v.pendingChunks
		v.dataStart += v.pendingBytes
		v.dataEnd += v.pendingBytes
		v.pending = pendingNone
	}
	if v.dataStart-n < v.start {
		panic(errors.Internal(errors.PhaseAdd, "prepend of %d bytes to %s was not planned", n, v.atom))
	}
	v.dataStart -= n
	return v.dataStart
}

// calculateShrinkAmount returns how many bytes of growth chunks, newest
// first, fit entirely in free, and how many chunks that is. The base
// allocation is never released.
func (v *SubBufferView) calculateShrinkAmount(free int) (int, int) {
	total, k := 0, v.resizes
	for k > 0 {
		c := v.chunkBytes(k)
		if total+c > free {
			break
		}
		total += c
		k--
	}
	return total, v.resizes - k
}

func (v *SubBufferView) checkDelete(n int) {
	v.checkDatums(n, "delete")
	if n > v.Len() {
		panic(errors.Internal(errors.PhaseDelete, "delete of %d bytes from %s holding %d", n, v.atom, v.Len()))
	}
}

// CheckResizeStartDelete plans dropping n bytes from the head and reports
// how many allocated bytes the head gives back, or ok=false if none.
func (v *SubBufferView) CheckResizeStartDelete(n int) (int, bool) {
	v.checkDelete(n)
	shrink, k := v.calculateShrinkAmount(v.dataStart + n - v.start)
	return v.plan(pendingShrinkStart, shrink, k)
}

// CheckResizeEndDelete is CheckResizeStartDelete for the tail.
func (v *SubBufferView) CheckResizeEndDelete(n int) (int, bool) {
	v.checkDelete(n)
	shrink, k := v.calculateShrinkAmount(v.End() - (v.dataEnd - n))
	return v.plan(pendingShrinkEnd, shrink, k)
}

// AdjustDeleteStart drops n bytes from the head, applying a planned shrink.
func (v *SubBufferView) AdjustDeleteStart(n int) {
	v.checkDelete(n)
	v.dataStart += n
	if v.pending == pendingShrinkStart {
		v.alloc -= v.pendingBytes
		v.resizes -= v.pendingChunks
		v.dataStart -= v.pendingBytes
		v.dataEnd -= v.pendingBytes
		v.pending = pendingNone
	}
}

// AdjustDeleteEnd drops n bytes from the tail, applying a planned shrink.
func (v *SubBufferView) AdjustDeleteEnd(n int) {
	v.checkDelete(n)
	v.dataEnd -= n
	if v.pending == pendingShrinkEnd {
		v.alloc -= v.pendingBytes
		v.resizes -= v.pendingChunks
		v.pending = pendingNone
	}
}

// ShiftByteIndices moves the whole view by delta bytes.
func (v *SubBufferView) ShiftByteIndices(delta int) {
	v.start += delta
	v.dataStart += delta
	v.dataEnd += delta
}
