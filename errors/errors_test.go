package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCompile,
				Kind:   KindSchema,
				Path:   []string{"0", "repeat", "1"},
				Input:  "position",
				Detail: "unknown input",
			},
			contains: []string{"[compile]", "schema", "0.repeat.1", "input position", "unknown input"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseAdd,
				Kind:  KindShape,
			},
			contains: []string{"[add]", "shape"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseStore,
				Kind:   KindStore,
				Detail: "allocate",
				Cause:  errors.New("out of memory"),
			},
			contains: []string{"[store]", "store", "allocate", "caused by", "out of memory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseStore,
		Kind:  KindStore,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseAdd,
		Kind:  KindShape,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseAdd, Kind: KindShape}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseDelete, Kind: KindShape}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseAdd, Kind: KindConfig}) {
		t.Error("Is should not match different kind")
	}

	if !errors.Is(err, ErrShape) {
		t.Error("errors.Is should match kind sentinel")
	}
	if errors.Is(err, ErrSchema) {
		t.Error("errors.Is should not match other kind sentinel")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseCompile, KindSchema).
		Path("1", "repeat").
		Input("color").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "input", "number").
		Build()

	if err.Phase != PhaseCompile {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCompile)
	}
	if err.Kind != KindSchema {
		t.Errorf("Kind = %v, want %v", err.Kind, KindSchema)
	}
	if len(err.Path) != 2 || err.Path[0] != "1" || err.Path[1] != "repeat" {
		t.Errorf("Path = %v, want [1 repeat]", err.Path)
	}
	if err.Input != "color" {
		t.Errorf("Input = %v, want 'color'", err.Input)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected input, got number" {
		t.Errorf("Detail = %v, want 'expected input, got number'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Schema", func(t *testing.T) {
		err := Schema(PhaseCompile, []string{"0"}, "unknown input %q", "x")
		if err.Kind != KindSchema {
			t.Errorf("Kind = %v, want %v", err.Kind, KindSchema)
		}
		if !strings.Contains(err.Detail, `"x"`) {
			t.Errorf("Detail = %v, should contain input name", err.Detail)
		}
	})

	t.Run("Config", func(t *testing.T) {
		err := Config(PhaseDelete, "duplicate selector for %s", "x")
		if err.Kind != KindConfig || err.Phase != PhaseDelete {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("Shape", func(t *testing.T) {
		err := Shape(PhaseExtract, "x", "cannot chop into even chunks")
		if err.Kind != KindShape || err.Input != "x" {
			t.Errorf("got %v input=%q", err.Kind, err.Input)
		}
	})

	t.Run("Range", func(t *testing.T) {
		err := Range(PhaseExtract, "x", 10, 5)
		if err.Kind != KindRange {
			t.Errorf("Kind = %v, want %v", err.Kind, KindRange)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
		if !strings.Contains(err.Detail, "[0, 4]") {
			t.Errorf("Detail = %v, should contain range", err.Detail)
		}
	})

	t.Run("Internal", func(t *testing.T) {
		err := Internal(PhaseAdd, "write index moved by %d without resize check", 16)
		if !errors.Is(err, ErrInternal) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInternal)
		}
	})

	t.Run("Store", func(t *testing.T) {
		cause := errors.New("closed")
		err := Store("write", cause)
		if !errors.Is(err, cause) {
			t.Error("Store should wrap cause")
		}
	})
}
