package schema

import (
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	vberrors "github.com/wippyai/vbuf/errors"
)

func TestTypeBytes(t *testing.T) {
	tests := []struct {
		typ   Type
		name  string
		bytes int
	}{
		{Int8, "int8", 1},
		{Uint8, "uint8", 1},
		{Int16, "int16", 2},
		{Uint16, "uint16", 2},
		{Int32, "int32", 4},
		{Uint32, "uint32", 4},
		{Float32, "float32", 4},
		{Float16, "float16", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.typ.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.typ.String(), tt.name)
			}
			if tt.typ.Bytes() != tt.bytes {
				t.Errorf("Bytes() = %d, want %d", tt.typ.Bytes(), tt.bytes)
			}
			parsed, err := ParseType(tt.name)
			if err != nil || parsed != tt.typ {
				t.Errorf("ParseType(%q) = %v, %v", tt.name, parsed, err)
			}
		})
	}

	if _, err := ParseType("float64"); !errors.Is(err, vberrors.ErrSchema) {
		t.Errorf("ParseType(float64) error = %v, want schema error", err)
	}
}

func TestCodecIntegerWrap(t *testing.T) {
	buf := make([]byte, 4)

	tests := []struct {
		name string
		typ  Type
		in   float64
		want float64
	}{
		{"int8 in range", Int8, -5, -5},
		{"int8 wraps", Int8, 200, -56},
		{"uint8 wraps negative", Uint8, -1, 255},
		{"uint8 truncates", Uint8, 3.9, 3},
		{"int16 truncates negative", Int16, -3.9, -3},
		{"uint16 wraps", Uint16, 65537, 1},
		{"int32 min", Int32, math.MinInt32, math.MinInt32},
		{"uint32 max", Uint32, math.MaxUint32, math.MaxUint32},
		{"NaN is zero", Int32, math.NaN(), 0},
		{"Inf is zero", Uint16, math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clear(buf)
			PutValue(buf, tt.typ, tt.in)
			if got := ReadValue(buf, tt.typ); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodecFloat32LittleEndian(t *testing.T) {
	buf := make([]byte, 4)
	PutValue(buf, Float32, 1)
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("bytes = %x, want %x", buf, want)
		}
	}
}

func TestHalf(t *testing.T) {
	tests := []struct {
		name string
		f    float32
		h    uint16
	}{
		{"zero", 0, 0x0000},
		{"one", 1, 0x3c00},
		{"minus two", -2, 0xc000},
		{"half", 0.5, 0x3800},
		{"max", 65504, 0x7bff},
		{"smallest subnormal", float32(math.Ldexp(1, -24)), 0x0001},
		{"subnormal", float32(math.Ldexp(1, -15)), 0x0200},
		{"inf", float32(math.Inf(1)), 0x7c00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Float32ToHalf(tt.f); got != tt.h {
				t.Errorf("Float32ToHalf(%v) = %#04x, want %#04x", tt.f, got, tt.h)
			}
			if got := HalfToFloat32(tt.h); got != tt.f {
				t.Errorf("HalfToFloat32(%#04x) = %v, want %v", tt.h, got, tt.f)
			}
		})
	}

	if got := Float32ToHalf(100000); got != 0x7c00 {
		t.Errorf("overflow = %#04x, want inf", got)
	}
	if got := HalfToFloat32(Float32ToHalf(float32(math.NaN()))); got == got {
		t.Error("NaN should survive the round trip")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		inputs []Input
	}{
		{"empty name", []Input{{Name: "", Size: 1, Type: Float32}}},
		{"size zero", []Input{{Name: "x", Size: 0, Type: Float32}}},
		{"size five", []Input{{Name: "x", Size: 5, Type: Float32}}},
		{"bad type", []Input{{Name: "x", Size: 1, Type: Type(42)}}},
		{"duplicate", []Input{{Name: "x", Size: 1, Type: Float32}, {Name: "x", Size: 2, Type: Int8}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.inputs...)
			if !errors.Is(err, vberrors.ErrSchema) {
				t.Errorf("error = %v, want schema error", err)
			}
		})
	}
}

func TestNormalizedFloatWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	s, err := New(
		Input{Name: "pos", Size: 3, Type: Float32, Normalized: true},
		Input{Name: "col", Size: 4, Type: Uint8, Normalized: true},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if logs.Len() != 1 {
		t.Fatalf("got %d warnings, want 1", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["input"]; got != "pos" {
		t.Errorf("warning input = %v, want pos", got)
	}
}

func TestSchemaLookupAndEqual(t *testing.T) {
	a := MustNew(Input{Name: "x", Size: 1, Type: Float32}, Input{Name: "c", Size: 4, Type: Uint8})
	b := MustNew(Input{Name: "x", Size: 1, Type: Float32}, Input{Name: "c", Size: 4, Type: Uint8})
	c := MustNew(Input{Name: "x", Size: 1, Type: Float32}, Input{Name: "c", Size: 3, Type: Uint8})

	in, ok := a.Lookup("c")
	if !ok || in.ByteSize() != 4 {
		t.Errorf("Lookup(c) = %+v, %v", in, ok)
	}
	if a.Has("missing") {
		t.Error("Has(missing) = true")
	}
	if !a.Equal(b) {
		t.Error("identical schemas should be equal")
	}
	if a.Equal(c) {
		t.Error("schemas differing in size should not be equal")
	}
}
