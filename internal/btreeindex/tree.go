// Package btreeindex wraps github.com/google/btree to provide the ordered
// index structure used throughout the VSI core: the allocator's by-size
// and by-offset trees (package alloc) and the catalog's id/name/private-id/
// group-id indices (package catalog). Spec treats the B-tree's internal
// balancing as a black-box collaborator, so this package does not
// reimplement one — it delegates ordering and search to google/btree and
// adds exactly the bookkeeping the rest of this module needs on top: each
// inserted item owns a fixed-size record allocated from a nodepool.Pool,
// so the index's membership is backed by real shared-memory blocks rather
// than bare Go-heap values, mirroring how the allocator's own trees must
// be bootstrapped before the allocator itself is usable.
package btreeindex

import (
	"sync"

	"github.com/google/btree"
	"github.com/iamNilotpal/vsi-core/internal/nodepool"
	"github.com/iamNilotpal/vsi-core/internal/shm"
)

// Item is anything that can live in a Tree. It must be orderable the way
// google/btree requires, and it must know which nodepool block backs its
// persisted record so the Tree can release that block when the item is
// replaced or removed.
type Item interface {
	btree.Item
	Record() shm.Offset
}

// Tree is an ordered index over Item values, synchronized for concurrent
// access from multiple goroutines.
type Tree struct {
	mu   sync.RWMutex
	tree *btree.BTree
	pool *nodepool.Pool
}

// New creates a Tree of the given order (google/btree's "degree"),
// releasing superseded/removed records back to pool.
func New(order int, pool *nodepool.Pool) *Tree {
	return &Tree{tree: btree.New(order), pool: pool}
}

// Insert adds item to the tree. If an item with an equal key already
// exists, it is replaced and its backing record is freed back to the pool.
func (t *Tree) Insert(item Item) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.tree.ReplaceOrInsert(item)
	if prev != nil {
		if old, ok := prev.(Item); ok && old.Record() != item.Record() {
			t.pool.FreeSys(old.Record())
		}
	}
}

// Delete removes the item matching key, if present, freeing its backing
// record. Reports whether anything was removed.
func (t *Tree) Delete(key btree.Item) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := t.tree.Delete(key)
	if removed == nil {
		return false
	}
	if item, ok := removed.(Item); ok {
		t.pool.FreeSys(item.Record())
	}
	return true
}

// Get returns the item matching key, if present.
func (t *Tree) Get(key btree.Item) (Item, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	got := t.tree.Get(key)
	if got == nil {
		return nil, false
	}
	return got.(Item), true
}

// AscendGreaterOrEqual calls fn for every item >= pivot in ascending
// order, stopping early if fn returns false. This backs the allocator's
// best-fit search over the by-size tree.
func (t *Tree) AscendGreaterOrEqual(pivot btree.Item, fn func(Item) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.tree.AscendGreaterOrEqual(pivot, func(i btree.Item) bool {
		return fn(i.(Item))
	})
}

// Ascend calls fn for every item in ascending order, stopping early if fn
// returns false.
func (t *Tree) Ascend(fn func(Item) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.tree.Ascend(func(i btree.Item) bool {
		return fn(i.(Item))
	})
}

// Len returns the number of items currently in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tree.Len()
}

// Pool returns the nodepool this tree allocates item records from, so
// callers building new Items know where to allocate their backing record.
func (t *Tree) Pool() *nodepool.Pool { return t.pool }
