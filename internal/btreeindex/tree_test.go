package btreeindex

import (
	"testing"
	"unsafe"

	"github.com/google/btree"
	"github.com/iamNilotpal/vsi-core/internal/nodepool"
	"github.com/iamNilotpal/vsi-core/internal/shm"
	"github.com/stretchr/testify/require"
)

type intRecord struct{ val int }

type intItem struct {
	recOff shm.Offset
	rec    *intRecord
}

func (i *intItem) Less(than btree.Item) bool { return i.rec.val < than.(*intItem).rec.val }
func (i *intItem) Record() shm.Offset        { return i.recOff }

func newPool(t *testing.T, blocks int) *nodepool.Pool {
	t.Helper()
	buf := make([]byte, blocks*64)
	base := uintptr(unsafe.Pointer(&buf[0]))
	pool, err := nodepool.New(base, uint64(len(buf)), 64)
	require.NoError(t, err)
	return pool
}

func insertInt(t *testing.T, tree *Tree, pool *nodepool.Pool, val int) *intItem {
	t.Helper()
	off, err := pool.AllocSys()
	require.NoError(t, err)
	rec := shm.Resolve[intRecord](pool.Base(), off)
	rec.val = val
	item := &intItem{recOff: off, rec: rec}
	tree.Insert(item)
	return item
}

func TestInsertGetDelete(t *testing.T) {
	pool := newPool(t, 16)
	tree := New(32, pool)

	for _, v := range []int{5, 1, 9, 3} {
		insertInt(t, tree, pool, v)
	}
	require.Equal(t, 4, tree.Len())

	got, ok := tree.Get(&intItem{rec: &intRecord{val: 9}})
	require.True(t, ok)
	require.Equal(t, 9, got.(*intItem).rec.val)

	require.True(t, tree.Delete(&intItem{rec: &intRecord{val: 9}}))
	require.Equal(t, 3, tree.Len())
	_, ok = tree.Get(&intItem{rec: &intRecord{val: 9}})
	require.False(t, ok)
}

func TestInsertReplaceFreesOldRecord(t *testing.T) {
	pool := newPool(t, 16)
	tree := New(32, pool)

	// Two distinct items that compare equal under Less (same val) to
	// exercise the replace path.
	insertInt(t, tree, pool, 7)
	before := pool.Available()

	insertInt(t, tree, pool, 7)
	require.Equal(t, 1, tree.Len())
	require.Equal(t, before, pool.Available(), "replacing an equal key should free the superseded record")
}

func TestAscendGreaterOrEqualFindsBestFit(t *testing.T) {
	pool := newPool(t, 16)
	tree := New(32, pool)

	for _, v := range []int{10, 20, 30, 40} {
		insertInt(t, tree, pool, v)
	}

	var found *intItem
	tree.AscendGreaterOrEqual(&intItem{rec: &intRecord{val: 25}}, func(i Item) bool {
		found = i.(*intItem)
		return false
	})
	require.NotNil(t, found)
	require.Equal(t, 30, found.rec.val)
}

func TestAscendVisitsInOrder(t *testing.T) {
	pool := newPool(t, 16)
	tree := New(32, pool)
	for _, v := range []int{3, 1, 2} {
		insertInt(t, tree, pool, v)
	}

	var seen []int
	tree.Ascend(func(i Item) bool {
		seen = append(seen, i.(*intItem).rec.val)
		return true
	})
	require.Equal(t, []int{1, 2, 3}, seen)
}
