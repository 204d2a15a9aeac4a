// Package data holds the application data model consumed by layouts.
//
// A Value is a closed tagged union:
//
//	Null            absent (zero value, returned for out-of-range reads)
//	Number(f)       one scalar, stored as float64
//	Array(v...)     nested sequence of values
//	Binary(bytes)   packed little-endian values, read at computed offsets
//
// Arrays may contain a single Binary element; BinarySource unwraps that
// wrapper form so both spellings are accepted wherever packed data is.
package data
