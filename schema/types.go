package schema

import (
	"github.com/wippyai/vbuf/errors"
)

// Type is the primitive numeric type of one input component.
type Type uint8

const (
	Int8 Type = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float16
)

var typeNames = [...]string{
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Float32: "float32",
	Float16: "float16",
}

var typeSizes = [...]int{
	Int8:    1,
	Uint8:   1,
	Int16:   2,
	Uint16:  2,
	Int32:   4,
	Uint32:  4,
	Float32: 4,
	Float16: 2,
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Bytes returns the width of one component.
func (t Type) Bytes() int {
	if int(t) < len(typeSizes) {
		return typeSizes[t]
	}
	return 0
}

func (t Type) Valid() bool {
	return int(t) < len(typeNames)
}

func (t Type) IsFloat() bool {
	return t == Float32 || t == Float16
}

// ParseType resolves a type name as written in descriptors and scenario files.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	switch name {
	case "float", "f32":
		return Float32, nil
	case "half", "f16":
		return Float16, nil
	}
	return 0, errors.New(errors.PhaseValidate, errors.KindSchema).
		Value(name).
		Detail("unsupported input type %q", name).
		Build()
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
