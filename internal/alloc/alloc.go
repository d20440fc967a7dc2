// Package alloc implements the variable-size allocator (spec §4.1) that
// manages the user segment's payload arena: best-fit allocation via a
// by-size index, coalescing of physically adjacent free chunks via the
// prev/next links in each chunk header (a by-offset index of free chunks
// is maintained alongside), and a SPLIT_THRESHOLD below which a found chunk is handed out
// whole rather than split into a sliver too small to ever be reused.
//
// The allocator's own index entries are themselves backed by
// internal/btreeindex, whose storage comes from internal/nodepool rather
// than from this allocator — breaking the chicken-and-egg dependency a
// variable-size allocator would otherwise have on its own bookkeeping.
//
// Go's sync.Mutex is not reentrant, unlike the recursive pthread mutex the
// source specifies for the segment lock, so every exported method takes
// the lock exactly once and delegates to unexported helpers that assume
// it is already held — the allocator never needs to re-enter its own
// lock, which sidesteps the need for a recursive mutex entirely.
package alloc

import (
	"sync"

	"github.com/google/btree"
	"github.com/iamNilotpal/vsi-core/internal/btreeindex"
	"github.com/iamNilotpal/vsi-core/internal/nodepool"
	"github.com/iamNilotpal/vsi-core/internal/shm"
	"github.com/iamNilotpal/vsi-core/pkg/errors"
)

const markerFree uint32 = 0xF4EE0001
const markerInUse uint32 = 0x15E0002

// chunkHeader sits at the start of every chunk in the user segment,
// whether free or in use. size is the chunk's total size including this
// header; prev/next let Free find the chunks physically adjacent to the
// one being released without a separate traversal structure.
type chunkHeader struct {
	marker uint32
	_pad   uint32
	size   uint64
	prev   shm.Offset
	next   shm.Offset
}

const headerSize = uint64(32) // sizeof(chunkHeader), 8-byte aligned

// Allocator manages the user segment's chunk arena.
type Allocator struct {
	mu sync.Mutex

	base           uintptr
	arenaSize      uint64
	splitThreshold uint64

	bySize   *btreeindex.Tree
	byOffset *btreeindex.Tree
}

// sizeRecord is the nodepool-backed persisted record for one entry in the
// by-size tree.
type sizeRecord struct {
	size   uint64
	offset shm.Offset
}

type sizeItem struct {
	recOff shm.Offset
	rec    *sizeRecord
}

func (i *sizeItem) Less(than btree.Item) bool {
	o := than.(*sizeItem)
	if i.rec.size != o.rec.size {
		return i.rec.size < o.rec.size
	}
	return i.rec.offset < o.rec.offset
}
func (i *sizeItem) Record() shm.Offset { return i.recOff }

// offsetRecord is the nodepool-backed persisted record for one entry in
// the by-offset tree.
type offsetRecord struct {
	offset shm.Offset
}

type offsetItem struct {
	recOff shm.Offset
	rec    *offsetRecord
}

func (i *offsetItem) Less(than btree.Item) bool {
	return i.rec.offset < than.(*offsetItem).rec.offset
}
func (i *offsetItem) Record() shm.Offset { return i.recOff }

// New creates an Allocator over the arena [base, base+arenaSize) with a
// single free chunk spanning the whole region. pool supplies the backing
// storage for the by-size/by-offset index entries; order is the B-tree
// order to use for both.
func New(base uintptr, arenaSize uint64, splitThreshold uint64, order int, pool *nodepool.Pool) (*Allocator, error) {
	a := &Allocator{
		base:           base,
		arenaSize:      arenaSize,
		splitThreshold: splitThreshold,
		bySize:         btreeindex.New(order, pool),
		byOffset:       btreeindex.New(order, pool),
	}

	root := shm.Resolve[chunkHeader](base, 0)
	root.marker = markerFree
	root.size = arenaSize
	root.prev = shm.NilOffset
	root.next = shm.NilOffset

	if err := a.indexFreeChunk(0, arenaSize); err != nil {
		return nil, err
	}
	return a, nil
}

// indexFreeChunk allocates one nodepool-backed record per tree for the
// free chunk at off and inserts both into the by-size/by-offset indices.
func (a *Allocator) indexFreeChunk(off shm.Offset, size uint64) error {
	pool := a.bySize.Pool()

	sizeRecOff, err := pool.AllocSys()
	if err != nil {
		return err
	}
	sRec := shm.Resolve[sizeRecord](pool.Base(), sizeRecOff)
	sRec.size = size
	sRec.offset = off

	offRecOff, err := pool.AllocSys()
	if err != nil {
		pool.FreeSys(sizeRecOff)
		return err
	}
	oRec := shm.Resolve[offsetRecord](pool.Base(), offRecOff)
	oRec.offset = off

	a.bySize.Insert(&sizeItem{recOff: sizeRecOff, rec: sRec})
	a.byOffset.Insert(&offsetItem{recOff: offRecOff, rec: oRec})
	return nil
}

// removeFreeChunk removes the by-size/by-offset entries for the free
// chunk at off, if present, freeing their backing records.
func (a *Allocator) removeFreeChunk(off shm.Offset, size uint64) {
	pivotSize := &sizeItem{rec: &sizeRecord{size: size, offset: off}}
	if item, ok := a.bySize.Get(pivotSize); ok {
		a.bySize.Delete(item)
	}
	pivotOff := &offsetItem{rec: &offsetRecord{offset: off}}
	if item, ok := a.byOffset.Get(pivotOff); ok {
		a.byOffset.Delete(item)
	}
}

// Malloc allocates a chunk able to hold at least size bytes of payload,
// returning the offset of the payload (immediately after the chunk
// header). Uses best-fit: the smallest free chunk large enough to satisfy
// the request.
func (a *Allocator) Malloc(size uint64) (shm.Offset, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	needed := roundUp8(size) + headerSize
	if needed > a.arenaSize {
		return shm.NilOffset, errors.NewStorageError(
			nil, errors.ErrorCodeNoMemory, "requested allocation larger than the entire arena",
		).WithDetail("requested", size)
	}

	var found *sizeItem
	pivot := &sizeItem{rec: &sizeRecord{size: needed, offset: shm.NilOffset}}
	a.bySize.AscendGreaterOrEqual(pivot, func(item btreeindex.Item) bool {
		found = item.(*sizeItem)
		return false
	})

	if found == nil {
		return shm.NilOffset, errors.NewStorageError(
			nil, errors.ErrorCodeNoMemory, "no free chunk large enough to satisfy request",
		).WithDetail("requested", needed)
	}

	chunkOff := found.rec.offset
	chunkSize := found.rec.size
	a.removeFreeChunk(chunkOff, chunkSize)

	hdr := shm.Resolve[chunkHeader](a.base, chunkOff)
	remaining := chunkSize - needed

	if remaining >= a.splitThreshold {
		hdr.size = needed
		hdr.marker = markerInUse

		remOff := chunkOff + shm.Offset(needed)
		remHdr := shm.Resolve[chunkHeader](a.base, remOff)
		remHdr.marker = markerFree
		remHdr.size = remaining
		remHdr.prev = chunkOff
		remHdr.next = hdr.next
		hdr.next = remOff

		if remHdr.next != shm.NilOffset {
			shm.Resolve[chunkHeader](a.base, remHdr.next).prev = remOff
		}

		if err := a.indexFreeChunk(remOff, remaining); err != nil {
			return shm.NilOffset, err
		}
	} else {
		hdr.marker = markerInUse
	}

	return chunkOff + shm.Offset(headerSize), nil
}

// Free releases a previously allocated chunk, identified by the payload
// offset Malloc returned, coalescing it with physically adjacent free
// chunks.
func (a *Allocator) Free(payloadOff shm.Offset) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	chunkOff := payloadOff - shm.Offset(headerSize)
	hdr := shm.Resolve[chunkHeader](a.base, chunkOff)
	if hdr.marker != markerInUse {
		return errors.NewStorageError(
			nil, errors.ErrorCodeCorrupt, "freed chunk was not marked in-use",
		).WithOffset(int(chunkOff))
	}

	mergedOff := chunkOff
	mergedSize := hdr.size
	prevOff := hdr.prev
	nextOff := hdr.next

	if nextOff != shm.NilOffset {
		nextHdr := shm.Resolve[chunkHeader](a.base, nextOff)
		if nextHdr.marker == markerFree {
			a.removeFreeChunk(nextOff, nextHdr.size)
			mergedSize += nextHdr.size
			nextOff = nextHdr.next
			if nextOff != shm.NilOffset {
				shm.Resolve[chunkHeader](a.base, nextOff).prev = mergedOff
			}
		}
	}

	// The chunk at offset 0 has no predecessor; every other chunk's prev is
	// a real chunk, even when that chunk sits at offset 0 (== NilOffset).
	if chunkOff != 0 {
		prevHdr := shm.Resolve[chunkHeader](a.base, prevOff)
		if prevHdr.marker == markerFree {
			a.removeFreeChunk(prevOff, prevHdr.size)
			mergedSize += prevHdr.size
			mergedOff = prevOff
			prevOff = prevHdr.prev
		}
	}

	hdr = shm.Resolve[chunkHeader](a.base, mergedOff)
	hdr.marker = markerFree
	hdr.size = mergedSize
	hdr.prev = prevOff
	hdr.next = nextOff
	if prevOff != shm.NilOffset {
		shm.Resolve[chunkHeader](a.base, prevOff).next = mergedOff
	}
	if nextOff != shm.NilOffset {
		shm.Resolve[chunkHeader](a.base, nextOff).prev = mergedOff
	}

	return a.indexFreeChunk(mergedOff, mergedSize)
}

// PayloadSize returns the usable payload size of the chunk containing
// payloadOff — the total chunk size minus its header.
func (a *Allocator) PayloadSize(payloadOff shm.Offset) uint64 {
	chunkOff := payloadOff - shm.Offset(headerSize)
	hdr := shm.Resolve[chunkHeader](a.base, chunkOff)
	return hdr.size - headerSize
}

func roundUp8(n uint64) uint64 { return (n + 7) &^ 7 }
