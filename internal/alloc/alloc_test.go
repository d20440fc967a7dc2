package alloc

import (
	"testing"
	"unsafe"

	"github.com/iamNilotpal/vsi-core/internal/nodepool"
	"github.com/iamNilotpal/vsi-core/internal/shm"
	"github.com/stretchr/testify/require"
)

func newAllocator(t *testing.T, arenaSize uint64, splitThreshold uint64) (*Allocator, uintptr) {
	t.Helper()

	userBuf := make([]byte, arenaSize)
	userBase := uintptr(unsafe.Pointer(&userBuf[0]))

	systemBuf := make([]byte, 64*1024)
	systemBase := uintptr(unsafe.Pointer(&systemBuf[0]))
	pool, err := nodepool.New(systemBase, uint64(len(systemBuf)), 64)
	require.NoError(t, err)

	a, err := New(userBase, arenaSize, splitThreshold, 32, pool)
	require.NoError(t, err)
	return a, userBase
}

func TestMallocFreeRoundTrip(t *testing.T) {
	a, base := newAllocator(t, 4096, 64)

	off, err := a.Malloc(100)
	require.NoError(t, err)

	dst := shm.Resolve[byte](base, off)
	*dst = 0x42
	require.Equal(t, byte(0x42), *shm.Resolve[byte](base, off))

	require.NoError(t, a.Free(off))
}

func TestMallocRejectsOversizeRequest(t *testing.T) {
	a, _ := newAllocator(t, 4096, 64)
	_, err := a.Malloc(1 << 20)
	require.Error(t, err)
}

func TestFreeDetectsDoubleFree(t *testing.T) {
	a, _ := newAllocator(t, 4096, 64)
	off, err := a.Malloc(64)
	require.NoError(t, err)
	require.NoError(t, a.Free(off))
	require.Error(t, a.Free(off))
}

func TestFreeCoalescesAdjacentChunks(t *testing.T) {
	a, _ := newAllocator(t, 4096, 64)

	o1, err := a.Malloc(200)
	require.NoError(t, err)
	o2, err := a.Malloc(200)
	require.NoError(t, err)
	o3, err := a.Malloc(200)
	require.NoError(t, err)

	require.NoError(t, a.Free(o1))
	require.NoError(t, a.Free(o3))
	require.NoError(t, a.Free(o2))

	// After freeing all three in non-adjacent order, the whole arena
	// should have coalesced back into one chunk able to satisfy a
	// near-full-arena allocation.
	big, err := a.Malloc(4096 - 64 - 8)
	require.NoError(t, err)
	require.NotEqual(t, shm.NilOffset, big)
}

func TestMallocReusesFreedSpace(t *testing.T) {
	a, _ := newAllocator(t, 4096, 64)

	off, err := a.Malloc(1000)
	require.NoError(t, err)
	require.NoError(t, a.Free(off))

	off2, err := a.Malloc(1000)
	require.NoError(t, err)
	require.Equal(t, off, off2)
}

func TestSplitThresholdPreventsSliverSplit(t *testing.T) {
	a, _ := newAllocator(t, 512, 64)

	// Allocate almost the entire arena, leaving a remainder under the
	// split threshold; the allocator should hand out the whole chunk
	// rather than carve off an unusable sliver.
	off, err := a.Malloc(512 - 32 - 16)
	require.NoError(t, err)

	got := a.PayloadSize(off)
	require.GreaterOrEqual(t, got, uint64(512-32-16))
}

func TestPayloadSizeReflectsRoundedAllocation(t *testing.T) {
	a, _ := newAllocator(t, 4096, 8)
	off, err := a.Malloc(10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, a.PayloadSize(off), uint64(10))
}

func TestMallocFreeStressCycle(t *testing.T) {
	a, _ := newAllocator(t, 64*1024, 64)

	var live []shm.Offset
	for i := 0; i < 500; i++ {
		size := uint64(16 + (i%37)*8)
		off, err := a.Malloc(size)
		require.NoError(t, err)
		live = append(live, off)

		if len(live) > 5 {
			a.Free(live[0])
			live = live[1:]
		}
	}
	for _, off := range live {
		require.NoError(t, a.Free(off))
	}

	// The arena should be fully reclaimed: one big allocation near the
	// full arena size should now succeed.
	_, err := a.Malloc(64*1024 - 1024)
	require.NoError(t, err)
}
