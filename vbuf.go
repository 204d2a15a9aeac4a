package vbuf

// Handle identifies one allocation inside a BackingStore.
// Handle 0 is reserved and always invalid.
type Handle uint32

// BackingStore is the contiguous-memory provider a VertexBuffer packs into,
// typically a GPU buffer object or a linear memory.
type BackingStore interface {
	Allocate(size int) (Handle, error)
	Write(h Handle, offset int, data []byte) error
	Copy(src Handle, srcOffset int, dst Handle, dstOffset int, length int) error
	Deallocate(h Handle) error
}

// Reader is implemented by stores whose contents can be read back on the host.
type Reader interface {
	Read(h Handle, offset, length int) ([]byte, error)
}

// Sizer provides the size in bytes of a live allocation.
type Sizer interface {
	Size(h Handle) (int, bool)
}
