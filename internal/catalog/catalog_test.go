package catalog

import (
	"testing"
	"unsafe"

	"github.com/iamNilotpal/vsi-core/internal/alloc"
	"github.com/iamNilotpal/vsi-core/internal/nodepool"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	userBuf := make([]byte, 64*1024)
	userBase := uintptr(unsafe.Pointer(&userBuf[0]))

	systemBuf := make([]byte, 128*1024)
	systemBase := uintptr(unsafe.Pointer(&systemBuf[0]))
	pool, err := nodepool.New(systemBase, uint64(len(systemBuf)), RecordBlockSize)
	require.NoError(t, err)

	a, err := alloc.New(userBase, uint64(len(userBuf)), 64, 32, pool)
	require.NoError(t, err)

	return New(32, pool, a, userBase)
}

func TestDefineThenLookup(t *testing.T) {
	c := newTestCatalog(t)

	list, err := c.Define(1, 10, "vehicle.speed", 500, 0)
	require.NoError(t, err)
	require.NotNil(t, list)

	got, err := c.Lookup(1, 10)
	require.NoError(t, err)
	require.Same(t, list, got)
}

func TestDefineDuplicateReturnsAlreadyExists(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Define(1, 10, "vehicle.speed", 0, 0)
	require.NoError(t, err)

	_, err = c.Define(1, 10, "other.name", 0, 0)
	require.Error(t, err)
}

func TestNameToIDAndIDToName(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Define(2, 42, "vehicle.rpm", 0, 0)
	require.NoError(t, err)

	id, err := c.NameToID(2, "vehicle.rpm")
	require.NoError(t, err)
	require.EqualValues(t, 42, id)

	name, err := c.IDToName(2, 42)
	require.NoError(t, err)
	require.Equal(t, "vehicle.rpm", name)
}

func TestPrivateIDToID(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Define(1, 7, "vehicle.fuel", 999, 0)
	require.NoError(t, err)

	id, err := c.PrivateIDToID(1, 999)
	require.NoError(t, err)
	require.EqualValues(t, 7, id)
}

func TestNameToIDUnknownReturnsError(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.NameToID(1, "does.not.exist")
	require.Error(t, err)
}

func TestDefineRejectsOverlongName(t *testing.T) {
	c := newTestCatalog(t)
	longName := make([]byte, maxNameLen+1)
	for i := range longName {
		longName[i] = 'a'
	}
	_, err := c.Define(1, 1, string(longName), 0, 0)
	require.Error(t, err)
}

func TestDefineWithoutNameOrPrivateIDStillDefinesByID(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.Define(1, 55, "", 0, 0)
	require.NoError(t, err)

	_, err = c.Lookup(1, 55)
	require.NoError(t, err)

	_, err = c.IDToName(1, 55)
	require.NoError(t, err)
}

func TestGroupCreateDeleteRecreate(t *testing.T) {
	c := newTestCatalog(t)

	require.NoError(t, c.CreateGroup(1))
	require.True(t, c.GroupExists(1))

	require.Error(t, c.CreateGroup(1), "creating an already-existing group must fail")

	require.NoError(t, c.DeleteGroup(1))
	require.False(t, c.GroupExists(1))

	require.NoError(t, c.CreateGroup(1), "a deleted group id must be reusable")
}

func TestFindOrCreateRegistersUndefinedSignal(t *testing.T) {
	c := newTestCatalog(t)

	list, err := c.FindOrCreate(3, 77)
	require.NoError(t, err)
	require.NotNil(t, list)

	// The lazily created signal must now be resolvable through Lookup...
	got, err := c.Lookup(3, 77)
	require.NoError(t, err)
	require.Same(t, list, got)

	// ...and must appear in the id-index, but with no name or private id.
	_, err = c.IDToName(3, 77)
	require.NoError(t, err)
	name, _ := c.IDToName(3, 77)
	require.Empty(t, name)
}

func TestFindOrCreateIsIdempotent(t *testing.T) {
	c := newTestCatalog(t)

	first, err := c.FindOrCreate(1, 1)
	require.NoError(t, err)

	second, err := c.FindOrCreate(1, 1)
	require.NoError(t, err)
	require.Same(t, first, second, "repeated FindOrCreate for the same pair must return the same list")
}

func TestFindOrCreateReturnsAlreadyDefinedSignal(t *testing.T) {
	c := newTestCatalog(t)

	defined, err := c.Define(1, 1, "vehicle.speed", 0, 0)
	require.NoError(t, err)

	found, err := c.FindOrCreate(1, 1)
	require.NoError(t, err)
	require.Same(t, defined, found)
}

func TestDomainsDoNotCollideOnSameSignalID(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Define(1, 10, "speed", 0, 0)
	require.NoError(t, err)
	_, err = c.Define(2, 10, "speed", 0, 0)
	require.NoError(t, err, "the same signal id must be definable in a different domain")

	id1, err := c.NameToID(1, "speed")
	require.NoError(t, err)
	id2, err := c.NameToID(2, "speed")
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}
