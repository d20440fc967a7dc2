package group

import (
	"context"
	"testing"
	"time"
	"unsafe"

	"github.com/iamNilotpal/vsi-core/internal/alloc"
	"github.com/iamNilotpal/vsi-core/internal/catalog"
	"github.com/iamNilotpal/vsi-core/internal/nodepool"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	userBuf := make([]byte, 64*1024)
	userBase := uintptr(unsafe.Pointer(&userBuf[0]))

	systemBuf := make([]byte, 128*1024)
	systemBase := uintptr(unsafe.Pointer(&systemBuf[0]))
	pool, err := nodepool.New(systemBase, uint64(len(systemBuf)), catalog.RecordBlockSize)
	require.NoError(t, err)

	a, err := alloc.New(userBase, uint64(len(userBuf)), 64, 32, pool)
	require.NoError(t, err)

	cat := catalog.New(32, pool, a, userBase)
	return New(cat)
}

func TestAddMemberGetNewestInGroup(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateGroup(1))

	_, err := m.catalog.Define(0, 1, "a", 0, 0)
	require.NoError(t, err)
	_, err = m.catalog.Define(0, 2, "b", 0, 0)
	require.NoError(t, err)

	require.NoError(t, m.AddMember(1, 0, 1))
	require.NoError(t, m.AddMember(1, 0, 2))

	listA, err := m.catalog.Lookup(0, 1)
	require.NoError(t, err)
	require.NoError(t, listA.Publish([]byte("valueA")))

	members, values, err := m.GetNewestInGroup(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, members, 1, "only the member with data should be returned")
	require.Equal(t, "valueA", string(values[0]))
}

func TestAddMemberLazilyCreatesUndefinedSignal(t *testing.T) {
	// Mirrors spec scenario §8.2(3): create_group then add_member with no
	// prior Define of the target signal.
	m := newTestManager(t)
	require.NoError(t, m.CreateGroup(10))
	require.NoError(t, m.AddMember(10, 0, 4))

	list, err := m.catalog.Lookup(0, 4)
	require.NoError(t, err)
	require.NoError(t, list.Publish([]byte("z")))

	members, values, err := m.GetNewestInGroup(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "z", string(values[0]))
}

func TestRemoveMemberStopsAppearingInGroup(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateGroup(1))

	_, err := m.catalog.Define(0, 1, "a", 0, 0)
	require.NoError(t, err)
	require.NoError(t, m.AddMember(1, 0, 1))
	require.NoError(t, m.RemoveMember(1, 0, 1))

	list, err := m.catalog.Lookup(0, 1)
	require.NoError(t, err)
	require.NoError(t, list.Publish([]byte("x")))

	members, _, err := m.GetNewestInGroup(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestFlushGroupDrainsEveryMember(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateGroup(1))

	_, err := m.catalog.Define(0, 1, "a", 0, 0)
	require.NoError(t, err)
	_, err = m.catalog.Define(0, 2, "b", 0, 0)
	require.NoError(t, err)
	require.NoError(t, m.AddMember(1, 0, 1))
	require.NoError(t, m.AddMember(1, 0, 2))

	listA, _ := m.catalog.Lookup(0, 1)
	listB, _ := m.catalog.Lookup(0, 2)
	require.NoError(t, listA.Publish([]byte("x")))
	require.NoError(t, listB.Publish([]byte("y")))

	require.NoError(t, m.FlushGroup(1))
	require.Equal(t, 0, listA.Depth())
	require.Equal(t, 0, listB.Depth())
}

func TestListenAnyInGroupReturnsFirstArrival(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newTestManager(t)
	require.NoError(t, m.CreateGroup(1))

	_, err := m.catalog.Define(0, 1, "a", 0, 0)
	require.NoError(t, err)
	_, err = m.catalog.Define(0, 2, "b", 0, 0)
	require.NoError(t, err)
	require.NoError(t, m.AddMember(1, 0, 1))
	require.NoError(t, m.AddMember(1, 0, 2))

	listB, err := m.catalog.Lookup(0, 2)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		listB.Publish([]byte("fromB"))
	}()

	member, data, err := m.ListenAnyInGroup(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, member.SignalID)
	require.Equal(t, "fromB", string(data))
}

func TestListenAnyInGroupNoMembersErrors(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateGroup(1))

	_, _, err := m.ListenAnyInGroup(context.Background(), 1)
	require.Error(t, err)
}

func TestListenAllInGroupWaitsForEveryMember(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newTestManager(t)
	require.NoError(t, m.CreateGroup(1))

	_, err := m.catalog.Define(0, 1, "a", 0, 0)
	require.NoError(t, err)
	_, err = m.catalog.Define(0, 2, "b", 0, 0)
	require.NoError(t, err)
	require.NoError(t, m.AddMember(1, 0, 1))
	require.NoError(t, m.AddMember(1, 0, 2))

	listA, _ := m.catalog.Lookup(0, 1)
	listB, _ := m.catalog.Lookup(0, 2)
	require.NoError(t, listA.Publish([]byte("x")))

	go func() {
		time.Sleep(20 * time.Millisecond)
		listB.Publish([]byte("y"))
	}()

	members, values, err := m.ListenAllInGroup(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Len(t, values, 2)

	require.Equal(t, 1, listA.Depth(), "ListenAllInGroup must peek, not consume")
}

func TestDeleteGroupThenOperationsFail(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CreateGroup(1))
	require.NoError(t, m.DeleteGroup(1))

	_, _, err := m.GetNewestInGroup(context.Background(), 1)
	require.Error(t, err)
}
