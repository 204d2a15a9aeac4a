// Package errors provides structured error types for the vbuf library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the layout path, the input involved, and the cause chain.
//
// Kinds map to how a caller should react:
//
//	schema    malformed layout or input descriptors, nothing was mutated
//	config    conflicting per-input directives, nothing was mutated
//	shape     data disagrees with the layout, earlier atoms may be committed
//	range     an index transform produced an invalid permutation
//	internal  a defect in this module; raised with panic, never returned
//	store     the backing store refused an operation
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCompile, errors.KindSchema).
//		Path("0", "repeat").
//		Input("position").
//		Detail("unknown input").
//		Build()
//
// Kind-only sentinels work with the standard library:
//
//	if errors.Is(err, vbuferrors.ErrShape) { ... }
package errors
