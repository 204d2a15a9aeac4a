package schema

import (
	"encoding/binary"
	"math"
)

// PutValue writes v as one little-endian component of type t at the start of dst.
// Integers truncate toward zero and wrap modulo their width; NaN and ±Inf
// become zero.
func PutValue(dst []byte, t Type, v float64) {
	switch t {
	case Float32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case Float16:
		binary.LittleEndian.PutUint16(dst, Float32ToHalf(float32(v)))
	case Int8, Uint8:
		dst[0] = byte(wrapInt(v))
	case Int16, Uint16:
		binary.LittleEndian.PutUint16(dst, uint16(wrapInt(v)))
	case Int32, Uint32:
		binary.LittleEndian.PutUint32(dst, uint32(wrapInt(v)))
	}
}

// ReadValue decodes one little-endian component of type t from the start of src.
func ReadValue(src []byte, t Type) float64 {
	switch t {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src)))
	case Float16:
		return float64(HalfToFloat32(binary.LittleEndian.Uint16(src)))
	case Int8:
		return float64(int8(src[0]))
	case Uint8:
		return float64(src[0])
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(src)))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(src))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(src)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(src))
	}
	return 0
}

func wrapInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Mod(math.Trunc(v), 1<<32))
}

// HalfToFloat32 converts an IEEE 754 half-precision value to float32.
func HalfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int((h >> 10) & 0x1f)
	frac := uint32(h & 0x3ff)

	var bits uint32

	switch exp {
	case 0:
		if frac == 0 {
			bits = sign
		} else {
			// subnormal: normalize
			e, m := 0, frac
			for m&0x400 == 0 {
				m <<= 1
				e++
			}
			bits = sign | uint32(127-14-e)<<23 | (m&0x3ff)<<13
		}
	case 31:
		bits = sign | 0x7f800000 | frac<<13
	default:
		bits = sign | uint32(exp+112)<<23 | frac<<13
	}

	return math.Float32frombits(bits)
}

// Float32ToHalf converts a float32 to IEEE 754 half precision, rounding to
// nearest even. Out-of-range magnitudes saturate to infinity.
func Float32ToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int((bits >> 23) & 0xff)
	mant := bits & 0x7fffff

	if exp == 0xff {
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	}

	e := exp - 127 + 15
	if e >= 0x1f {
		return sign | 0x7c00
	}

	if e <= 0 {
		if e < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - e)
		half := mant >> shift
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return sign | uint16(half)
	}

	half := uint32(e)<<10 | mant>>13
	rem := mant & 0x1fff
	if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
		// carry may roll into the exponent; an all-ones exponent is infinity
		half++
	}
	return sign | uint16(half)
}
