package schema

import (
	"go.uber.org/zap"

	"github.com/wippyai/vbuf/errors"
)

const (
	MinSize = 1
	MaxSize = 4
)

// Input is one named, typed, fixed-size data channel.
type Input struct {
	Name       string `yaml:"name" json:"name"`
	Size       int    `yaml:"size" json:"size"`
	Type       Type   `yaml:"type" json:"type"`
	Normalized bool   `yaml:"normalized,omitempty" json:"normalized,omitempty"`
}

// ByteSize returns the packed width of one datum of this input.
func (in Input) ByteSize() int {
	return in.Size * in.Type.Bytes()
}

func (in Input) validate() error {
	if in.Name == "" {
		return errors.New(errors.PhaseValidate, errors.KindSchema).
			Detail("input name must not be empty").
			Build()
	}
	if in.Size < MinSize || in.Size > MaxSize {
		return errors.New(errors.PhaseValidate, errors.KindSchema).
			Input(in.Name).
			Value(in.Size).
			Detail("size %d outside [%d, %d]", in.Size, MinSize, MaxSize).
			Build()
	}
	if !in.Type.Valid() {
		return errors.New(errors.PhaseValidate, errors.KindSchema).
			Input(in.Name).
			Value(in.Type).
			Detail("unsupported type %d", in.Type).
			Build()
	}
	if in.Normalized && in.Type.IsFloat() {
		Logger().Warn("normalized flag has no effect on float inputs",
			zap.String("input", in.Name),
			zap.Stringer("type", in.Type))
	}
	return nil
}

// Schema is an immutable, ordered set of inputs with unique names.
type Schema struct {
	byName map[string]int
	inputs []Input
}

// New validates inputs and builds a schema.
func New(inputs ...Input) (*Schema, error) {
	s := &Schema{
		byName: make(map[string]int, len(inputs)),
		inputs: make([]Input, 0, len(inputs)),
	}
	for _, in := range inputs {
		if err := in.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.byName[in.Name]; dup {
			return nil, errors.New(errors.PhaseValidate, errors.KindSchema).
				Input(in.Name).
				Detail("duplicate input name").
				Build()
		}
		s.byName[in.Name] = len(s.inputs)
		s.inputs = append(s.inputs, in)
	}
	return s, nil
}

// MustNew is New for static schemas.
func MustNew(inputs ...Input) *Schema {
	s, err := New(inputs...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Lookup(name string) (Input, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Input{}, false
	}
	return s.inputs[i], true
}

func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Inputs returns the inputs in declaration order. The slice must not be modified.
func (s *Schema) Inputs() []Input {
	return s.inputs
}

func (s *Schema) Len() int {
	return len(s.inputs)
}

// Equal reports whether both schemas declare the same inputs field for field,
// in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || len(s.inputs) != len(o.inputs) {
		return false
	}
	for i := range s.inputs {
		if s.inputs[i] != o.inputs[i] {
			return false
		}
	}
	return true
}
