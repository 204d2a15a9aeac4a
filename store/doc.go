// Package store provides BackingStore implementations.
//
// Local keeps every allocation as a Go byte slice in a handle table and is
// the natural choice for tests and host-side packing. Linear carves
// allocations out of a WebAssembly linear memory instantiated with wazero,
// so packed buffers can be shared with guest code by offset:
//
//	mem, err := store.NewLinear(ctx, store.LinearOptions{MemoryLimitPages: 256})
//	if err != nil {
//	    return err
//	}
//	defer mem.Close(ctx)
//
//	h, _ := mem.Allocate(1024)
//	off, _ := mem.Offset(h) // guest-visible address
//
// Both stores implement vbuf.Reader and vbuf.Sizer and are safe for
// concurrent use. Local additionally publishes allocation events to
// subscribed observers.
package store
