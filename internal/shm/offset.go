package shm

import "unsafe"

// Offset is a byte position relative to the start of a segment's data
// region. References kept inside the mapped segments — an allocator
// chunk's prev/next links, a node-pool free-list link — and the locations
// of index records and sample payloads are stored as Offsets rather than
// native pointers, since a raw pointer from one process's mapping is
// meaningless in another's. Signal-list links and B-tree nodes themselves
// are ordinary Go-heap values.
type Offset uint64

// NilOffset marks the absence of a reference, the way a nil pointer would
// in process-local memory.
const NilOffset Offset = 0

// Resolve turns a segment-relative offset into a pointer to location T in
// the caller's own mapping of that segment, given the base address the
// caller obtained from Segment.UserBase or Segment.SystemBase.
func Resolve[T any](base uintptr, off Offset) *T {
	return (*T)(unsafe.Pointer(base + uintptr(off)))
}

// OffsetOf computes the segment-relative offset of a value located at ptr
// within the mapping that starts at base.
func OffsetOf(base uintptr, ptr unsafe.Pointer) Offset {
	return Offset(uintptr(ptr) - base)
}
