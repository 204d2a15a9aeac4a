package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile  Phase = "compile"  // layout descriptor compilation
	PhaseExtract  Phase = "extract"  // reading application data through a layout
	PhaseValidate Phase = "validate" // data set construction
	PhaseAdd      Phase = "add"      // append/prepend planning and commit
	PhaseDelete   Phase = "delete"   // delete planning and commit
	PhaseStore    Phase = "store"    // backing store operations
)

// Kind categorizes the error
type Kind string

const (
	// KindSchema is a malformed layout or input descriptor. Always caller-fixable,
	// reported before any buffer mutation.
	KindSchema Kind = "schema"
	// KindConfig is an inconsistent set of per-input directives.
	KindConfig Kind = "config"
	// KindShape is application data disagreeing with the declared layout.
	// May be reported after some atoms of a call were already committed.
	KindShape Kind = "shape"
	// KindRange is an index transform producing an invalid permutation.
	KindRange Kind = "range"
	// KindInternal is a broken state-machine contract inside this module.
	KindInternal Kind = "internal"
	// KindStore is a failure reported by the backing store.
	KindStore Kind = "store"
)

// Sentinels for errors.Is checks that only care about the kind.
var (
	ErrSchema   = &Error{Kind: KindSchema}
	ErrConfig   = &Error{Kind: KindConfig}
	ErrShape    = &Error{Kind: KindShape}
	ErrRange    = &Error{Kind: KindRange}
	ErrInternal = &Error{Kind: KindInternal}
	ErrStore    = &Error{Kind: KindStore}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Input  string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Input != "" {
		b.WriteString(": input ")
		b.WriteString(e.Input)
	}

	if e.Detail != "" {
		if e.Input != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the layout path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Input sets the input name the error relates to
func (b *Builder) Input(name string) *Builder {
	b.err.Input = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Schema creates a schema error
func Schema(phase Phase, path []string, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSchema,
		Path:   path,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Config creates a configuration error
func Config(phase Phase, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConfig,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Shape creates a data shape error
func Shape(phase Phase, input string, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindShape,
		Input:  input,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Range creates a range error
func Range(phase Phase, input string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRange,
		Input:  input,
		Detail: fmt.Sprintf("index %d out of range [0, %d]", index, length-1),
		Value:  index,
	}
}

// Internal creates an internal invariant violation. Callers panic with it.
func Internal(phase Phase, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Store wraps a backing store failure
func Store(op string, cause error) *Error {
	return &Error{
		Phase:  PhaseStore,
		Kind:   KindStore,
		Detail: op,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
