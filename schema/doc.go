// Package schema defines inputs, the primitive numeric types they are stored
// as, and the fixed-width little-endian codec used to pack them.
//
// # Types
//
//	Type      Bytes
//	─────────────────
//	int8      1
//	uint8     1
//	int16     2
//	uint16    2
//	int32     4
//	uint32    4
//	float32   4
//	float16   2
//
// An input has 1 to 4 components of one type; its datum occupies
// Size*Type.Bytes() bytes. Integer packing follows typed-array semantics:
// truncate toward zero, then wrap modulo the width.
package schema
