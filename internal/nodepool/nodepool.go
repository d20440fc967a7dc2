// Package nodepool implements the fixed-size slab allocator (spec §4.2)
// that sits underneath every B-tree index. The allocator of package alloc
// is itself indexed by two B-trees (by-size and by-offset), which creates
// a chicken-and-egg problem: those trees need node storage before the
// variable-size allocator they help manage is usable. The node pool breaks
// that cycle by handing out fixed-size blocks from the system segment
// using nothing more than a singly-linked free list threaded through the
// blocks themselves — no B-tree, no variable-size bookkeeping, just
// pointer-chasing over offsets.
package nodepool

import (
	"sync"
	"unsafe"

	"github.com/iamNilotpal/vsi-core/internal/shm"
	"github.com/iamNilotpal/vsi-core/pkg/errors"
)

// noFree marks the end of the free list. It can never collide with a real
// block offset because the system segment is capped well below MaxUint64.
const noFree = shm.Offset(^uint64(0))

// freeNode is the layout of an unused block: just the offset of the next
// unused block. Live (allocated) blocks repurpose these same bytes for
// whatever the caller stores there — a btree node, typically.
type freeNode struct {
	next shm.Offset
}

// Pool hands out fixed-size blocks from the system segment's data region.
// Every block is exactly blockSize bytes; the pool never splits or
// coalesces, so allocation and release are both O(1).
type Pool struct {
	mu sync.Mutex

	base      uintptr
	blockSize uint64
	capacity  uint64

	freeHead shm.Offset
	freeCnt  uint64
}

// New carves the system segment's data region, starting at base and
// spanning size bytes, into blocks of blockSize bytes and threads them
// onto a free list. blockSize must be at least 8 bytes (to hold the
// free-list pointer) and size should be a multiple of blockSize; any
// remainder is simply unusable padding at the end of the segment.
func New(base uintptr, size uint64, blockSize uint64) (*Pool, error) {
	if blockSize < uint64(unsafe.Sizeof(freeNode{})) {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalid, "node pool block size too small",
		).WithField("blockSize").WithRule("min_size").WithProvided(blockSize)
	}

	capacity := size / blockSize
	p := &Pool{base: base, blockSize: blockSize, capacity: capacity, freeHead: noFree}

	// Thread every block onto the free list, last block first, so the
	// list ends up ordered by ascending offset — a cosmetic nicety that
	// makes the pool's behavior easier to reason about in tests.
	for i := capacity; i > 0; i-- {
		off := shm.Offset((i - 1) * blockSize)
		node := shm.Resolve[freeNode](base, off)
		node.next = p.freeHead
		p.freeHead = off
	}
	p.freeCnt = capacity

	return p, nil
}

// Base returns the base address this pool was constructed with, so
// callers can resolve offsets the pool hands out into pointers.
func (p *Pool) Base() uintptr { return p.base }

// Capacity returns the total number of blocks the pool was initialized
// with.
func (p *Pool) Capacity() uint64 { return p.capacity }

// Available returns the number of blocks currently on the free list.
func (p *Pool) Available() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeCnt
}

// BlockSize returns the fixed size of every block this pool hands out.
func (p *Pool) BlockSize() uint64 { return p.blockSize }

// AllocSys removes one block from the free list and returns its offset.
// Returns an ErrorCodeNoMemory error if the pool is exhausted.
func (p *Pool) AllocSys() (shm.Offset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.freeHead == noFree {
		return shm.NilOffset, errors.NewStorageError(
			nil, errors.ErrorCodeNoMemory, "node pool exhausted",
		).WithDetail("capacity", p.capacity).WithDetail("blockSize", p.blockSize)
	}

	off := p.freeHead
	node := shm.Resolve[freeNode](p.base, off)
	p.freeHead = node.next
	p.freeCnt--

	// Zero the block before handing it to the caller so a btree node
	// built on top of it never observes stale free-list bytes.
	dst := unsafe.Slice((*byte)(unsafe.Pointer(shm.Resolve[byte](p.base, off))), p.blockSize)
	clear(dst)

	return off, nil
}

// FreeSys returns a previously allocated block to the free list.
func (p *Pool) FreeSys(off shm.Offset) {
	p.mu.Lock()
	defer p.mu.Unlock()

	node := shm.Resolve[freeNode](p.base, off)
	node.next = p.freeHead
	p.freeHead = off
	p.freeCnt++
}
