package data

import (
	"bytes"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindArray
	KindBinary
)

var kindNames = [...]string{
	KindNull:   "null",
	KindNumber: "number",
	KindArray:  "array",
	KindBinary: "binary",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is application data handed to a layout: a number, a nested array of
// values, or a packed little-endian binary buffer. The zero Value is null.
type Value struct {
	arr  []Value
	bin  []byte
	num  float64
	kind Kind
}

// Null is the absent value returned for out-of-range reads.
var Null = Value{}

func Num(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, arr: elems}
}

// Binary wraps packed bytes. The slice is not copied.
func Binary(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBinary, bin: b}
}

// Floats builds a flat array of numbers.
func Floats(fs ...float64) Value {
	elems := make([]Value, len(fs))
	for i, f := range fs {
		elems[i] = Num(f)
	}
	return Value{kind: KindArray, arr: elems}
}

// Vec is an alias of Floats that reads better for vector-valued leaves.
func Vec(fs ...float64) Value {
	return Floats(fs...)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload; zero for non-numbers.
func (v Value) Float() float64 { return v.num }

// Len returns the element count of an array or the byte length of a binary.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindBinary:
		return len(v.bin)
	default:
		return 0
	}
}

// Index returns element i of an array, or Null when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Null
	}
	return v.arr[i]
}

func (v Value) Elems() []Value { return v.arr }

func (v Value) Bytes() []byte { return v.bin }

// BinarySource returns the packed bytes of a binary value, also accepting the
// one-element array wrapper form [binary].
func (v Value) BinarySource() ([]byte, bool) {
	switch v.kind {
	case KindBinary:
		return v.bin, true
	case KindArray:
		if len(v.arr) == 1 && v.arr[0].kind == KindBinary {
			return v.arr[0].bin, true
		}
	}
	return nil, false
}

// Floats64 flattens a number or an array of numbers.
func (v Value) Floats64() ([]float64, bool) {
	switch v.kind {
	case KindNumber:
		return []float64{v.num}, true
	case KindArray:
		out := make([]float64, len(v.arr))
		for i, e := range v.arr {
			if e.kind != KindNumber {
				return nil, false
			}
			out[i] = e.num
		}
		return out, true
	}
	return nil, false
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBinary:
		return bytes.Equal(v.bin, o.bin)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
	}
	return true
}

func (v Value) String() string {
	var b strings.Builder
	v.writeTo(&b)
	return b.String()
}

func (v Value) writeTo(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindNumber:
		b.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindBinary:
		b.WriteString("binary(")
		b.WriteString(strconv.Itoa(len(v.bin)))
		b.WriteByte(')')
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			e.writeTo(b)
		}
		b.WriteByte(']')
	}
}
