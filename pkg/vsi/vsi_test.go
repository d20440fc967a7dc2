package vsi

import (
	"context"
	"testing"

	"github.com/iamNilotpal/vsi-core/pkg/errors"
	"github.com/iamNilotpal/vsi-core/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestInstance(t *testing.T) *Instance {
	t.Helper()
	dir := t.TempDir()

	inst, err := New(
		context.Background(),
		"vsi-test",
		options.WithSegmentDir(dir),
		options.WithUserSegmentSize(options.MinUserSegmentSize),
		options.WithSystemSegmentSize(options.MinSystemSegmentSize),
	)
	require.NoError(t, err)
	t.Cleanup(func() { inst.Close() })
	return inst
}

func TestDefineFireGetOldest(t *testing.T) {
	inst := newTestInstance(t)

	require.NoError(t, inst.Define(1, 10, "vehicle.speed", 0))
	require.NoError(t, inst.Fire(1, 10, []byte("65mph")))

	got, err := inst.GetOldest(context.Background(), 1, 10, false)
	require.NoError(t, err)
	require.Equal(t, "65mph", string(got))
}

func TestFireByNameAndGetNewestByName(t *testing.T) {
	inst := newTestInstance(t)

	require.NoError(t, inst.Define(1, 20, "vehicle.rpm", 0))
	require.NoError(t, inst.FireByName(1, "vehicle.rpm", []byte("3000")))

	got, err := inst.GetNewestByName(context.Background(), 1, "vehicle.rpm", false)
	require.NoError(t, err)
	require.Equal(t, "3000", string(got))
}

func TestCloseIsIdempotentAndBlocksOperations(t *testing.T) {
	dir := t.TempDir()
	inst, err := New(
		context.Background(), "vsi-test-close",
		options.WithSegmentDir(dir),
		options.WithUserSegmentSize(options.MinUserSegmentSize),
		options.WithSystemSegmentSize(options.MinSystemSegmentSize),
	)
	require.NoError(t, err)

	require.NoError(t, inst.Close())
	require.Error(t, inst.Close())

	require.ErrorIs(t, inst.Define(1, 1, "x", 0), ErrInstanceClosed)
}

func TestExitCodeForErrorMapsErrorCodes(t *testing.T) {
	require.Equal(t, ExitOK, ExitCodeForError(nil))
	require.Equal(t, ExitNoEntry, ExitCodeForError(errors.NewNoEntryError(1, 1)))
	require.Equal(t, ExitAlreadyExists, ExitCodeForError(errors.NewGroupAlreadyExistsError(1)))
}

func TestGroupLifecycleThroughInstance(t *testing.T) {
	inst := newTestInstance(t)

	require.NoError(t, inst.Define(1, 1, "a", 0))
	require.NoError(t, inst.Define(1, 2, "b", 0))
	require.NoError(t, inst.CreateGroup(5))
	require.NoError(t, inst.AddMemberToGroup(5, 1, 1))
	require.NoError(t, inst.AddMemberToGroup(5, 1, 2))

	require.NoError(t, inst.Fire(1, 1, []byte("x")))
	members, values, err := inst.GetNewestInGroup(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "x", string(values[0]))

	require.NoError(t, inst.DeleteGroup(5))
}

func TestFireLazilyCreatesUndefinedSignal(t *testing.T) {
	inst := newTestInstance(t)

	require.NoError(t, inst.Fire(1, 99, []byte("no prior Define")))

	got, err := inst.GetOldest(context.Background(), 1, 99, false)
	require.NoError(t, err)
	require.Equal(t, "no prior Define", string(got))
}

func TestGetOldestLazilyCreatesUndefinedSignal(t *testing.T) {
	inst := newTestInstance(t)

	_, err := inst.GetOldest(context.Background(), 2, 5, false)
	require.Error(t, err, "no data yet, but the signal must now exist rather than NO_ENTRY-ing")
	require.Equal(t, errors.ErrorCodeNoData, errors.GetErrorCode(err),
		"GetOldest on a never-referenced signal must lazily create it and fail with NO_DATA, not NO_ENTRY")
}

func TestAddMemberToGroupWithNoPriorDefine(t *testing.T) {
	// Mirrors spec scenario §8.2(3): create_group then add_member with no
	// prior Define of the target signal.
	inst := newTestInstance(t)

	require.NoError(t, inst.CreateGroup(10))
	require.NoError(t, inst.AddMemberToGroup(10, 0, 4))

	require.NoError(t, inst.Fire(0, 4, []byte("from a lazily created member")))
	members, values, err := inst.GetNewestInGroup(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "from a lazily created member", string(values[0]))
}

func TestNameToIDIDToNamePrivateIDRoundTrip(t *testing.T) {
	inst := newTestInstance(t)

	require.NoError(t, inst.Define(1, 30, "vehicle.fuel", 777))

	id, err := inst.NameToID(1, "vehicle.fuel")
	require.NoError(t, err)
	require.EqualValues(t, 30, id)

	name, err := inst.IDToName(1, 30)
	require.NoError(t, err)
	require.Equal(t, "vehicle.fuel", name)

	id2, err := inst.PrivateIDToID(1, 777)
	require.NoError(t, err)
	require.EqualValues(t, 30, id2)
}
