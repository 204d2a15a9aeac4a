// Package buffer maps layout atoms onto one backing-store allocation.
//
// A VertexBuffer owns a handle and one SubBufferView per atom, laid out back
// to back. Each view keeps free room where its atom grows: at the tail for
// start repeats, at the head for end repeats, on both sides for center
// repeats. When an add does not fit, the view grows by whole resize chunks
// (see ResizeFunc); when a delete frees whole chunks they are given back.
//
// Mutations are split in two phases. SizeDataAdd and SizeDataDelete compute
// point counts and packed payloads without side effects; DoAdd and DoDelete
// then reallocate at most once, copy surviving data to its new place and
// write the payloads:
//
//	plan, err := vb.SizeDataAdd(l, d, buffer.AddOptions{})
//	if err != nil {
//	    return err
//	}
//	if err := plan.DoAdd(); err != nil {
//	    return err
//	}
//
// A failure while committing one atom leaves earlier atoms of the same call
// committed. Broken view bookkeeping panics with an internal error.
package buffer
