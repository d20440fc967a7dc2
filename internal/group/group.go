// Package group implements signal groups (spec §4.5): named collections
// of signals that can be fetched or listened to collectively. A group's
// membership list is a Go-native slice of *signal.List pointers rather
// than an offset-based reference list — the Go-idiomatic equivalent for a
// primarily intra-process design, since the signal.List values themselves
// are already Go-heap objects (see package signal's doc comment).
//
// listen_any_in_group's cooperative cancellation is implemented with
// context.WithCancel: each member's blocking fetch runs in its own
// goroutine, and as soon as one succeeds the rest are canceled via the
// shared context rather than a pthread_cancel the source would use.
package group

import (
	"context"
	"sync"

	"github.com/iamNilotpal/vsi-core/internal/catalog"
	"github.com/iamNilotpal/vsi-core/internal/signal"
	"github.com/iamNilotpal/vsi-core/pkg/errors"
)

// Member pairs a signal's identity with its FIFO, returned by the
// collective fetch operations so callers know which signal a value came
// from.
type Member struct {
	Domain   uint16
	SignalID uint32
	List     *signal.List
}

type groupMembers struct {
	mu      sync.Mutex
	members []*signal.List
}

// Manager owns every defined group's membership list.
type Manager struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog
	groups  map[uint32]*groupMembers
}

// New creates a group Manager backed by the given catalog, which is
// responsible for the group-id index itself.
func New(cat *catalog.Catalog) *Manager {
	return &Manager{catalog: cat, groups: make(map[uint32]*groupMembers)}
}

// CreateGroup registers a new, empty group.
func (m *Manager) CreateGroup(groupID uint32) error {
	if err := m.catalog.CreateGroup(groupID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[groupID] = &groupMembers{}
	return nil
}

// DeleteGroup removes a group and drops its membership list. Member
// signals themselves are not affected.
func (m *Manager) DeleteGroup(groupID uint32) error {
	if err := m.catalog.DeleteGroup(groupID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, groupID)
	return nil
}

func (m *Manager) group(groupID uint32) (*groupMembers, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[groupID]
	if !ok {
		return nil, errors.NewGroupNotFoundError(groupID)
	}
	return g, nil
}

// AddMember adds (domain, signalID)'s FIFO to groupID's membership,
// lazily creating the signal list (spec §4.5's find-or-create) if
// (domain, signalID) was never Defined.
func (m *Manager) AddMember(groupID uint32, domain uint16, signalID uint32) error {
	g, err := m.group(groupID)
	if err != nil {
		return err
	}

	list, err := m.catalog.FindOrCreate(domain, signalID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.members {
		if existing == list {
			return nil
		}
	}
	g.members = append(g.members, list)
	return nil
}

// RemoveMember removes (domain, signalID) from groupID's membership, if
// present.
func (m *Manager) RemoveMember(groupID uint32, domain uint16, signalID uint32) error {
	g, err := m.group(groupID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.members {
		if existing.Domain() == domain && existing.SignalID() == signalID {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (g *groupMembers) snapshot() []*signal.List {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*signal.List, len(g.members))
	copy(out, g.members)
	return out
}

// GetNewestInGroup returns the newest available sample from every member,
// without consuming any of them. Members with no sample yet are skipped
// rather than causing the whole call to fail.
func (m *Manager) GetNewestInGroup(ctx context.Context, groupID uint32) ([]Member, [][]byte, error) {
	g, err := m.group(groupID)
	if err != nil {
		return nil, nil, err
	}

	var members []Member
	var values [][]byte
	for _, list := range g.snapshot() {
		data, err := list.FetchNewest(ctx, false)
		if err != nil {
			continue
		}
		members = append(members, Member{Domain: list.Domain(), SignalID: list.SignalID(), List: list})
		values = append(values, data)
	}
	return members, values, nil
}

// GetOldestInGroup pops the oldest available sample from every member
// that has one queued. Members with no sample are skipped.
func (m *Manager) GetOldestInGroup(ctx context.Context, groupID uint32) ([]Member, [][]byte, error) {
	g, err := m.group(groupID)
	if err != nil {
		return nil, nil, err
	}

	var members []Member
	var values [][]byte
	for _, list := range g.snapshot() {
		data, err := list.FetchOldest(ctx, false)
		if err != nil {
			continue
		}
		members = append(members, Member{Domain: list.Domain(), SignalID: list.SignalID(), List: list})
		values = append(values, data)
	}
	return members, values, nil
}

// FlushGroup flushes every member's FIFO.
func (m *Manager) FlushGroup(groupID uint32) error {
	g, err := m.group(groupID)
	if err != nil {
		return err
	}
	for _, list := range g.snapshot() {
		list.Flush()
	}
	return nil
}

// ListenAnyInGroup blocks until any one member's FIFO has a sample,
// consumes it (FIFO order), and returns which member it came from. Every
// other member's blocking wait is canceled as soon as the first arrives.
func (m *Manager) ListenAnyInGroup(ctx context.Context, groupID uint32) (Member, []byte, error) {
	g, err := m.group(groupID)
	if err != nil {
		return Member{}, nil, err
	}
	members := g.snapshot()
	if len(members) == 0 {
		return Member{}, nil, errors.NewStorageError(
			nil, errors.ErrorCodeNoData, "group has no members",
		).WithDetail("group", groupID)
	}

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		member Member
		data   []byte
		err    error
	}
	results := make(chan result, len(members))

	var wg sync.WaitGroup
	for _, list := range members {
		wg.Add(1)
		go func(list *signal.List) {
			defer wg.Done()
			data, err := list.FetchOldest(childCtx, true)
			results <- result{
				member: Member{Domain: list.Domain(), SignalID: list.SignalID(), List: list},
				data:   data,
				err:    err,
			}
		}(list)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err == nil {
			cancel()
			return r.member, r.data, nil
		}
	}
	return Member{}, nil, errors.NewStorageError(
		ctx.Err(), errors.ErrorCodeTimedOut, "listen_any_in_group canceled before any member produced data",
	).WithDetail("group", groupID)
}

// ListenAllInGroup blocks until every member has at least one sample
// available, then returns the newest sample from each without consuming
// any of them.
func (m *Manager) ListenAllInGroup(ctx context.Context, groupID uint32) ([]Member, [][]byte, error) {
	g, err := m.group(groupID)
	if err != nil {
		return nil, nil, err
	}
	members := g.snapshot()

	type result struct {
		idx    int
		member Member
		data   []byte
		err    error
	}
	results := make(chan result, len(members))

	var wg sync.WaitGroup
	for idx, list := range members {
		wg.Add(1)
		go func(idx int, list *signal.List) {
			defer wg.Done()
			data, err := list.FetchNewest(ctx, true)
			results <- result{
				idx:    idx,
				member: Member{Domain: list.Domain(), SignalID: list.SignalID(), List: list},
				data:   data,
				err:    err,
			}
		}(idx, list)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	outMembers := make([]Member, len(members))
	outValues := make([][]byte, len(members))
	for r := range results {
		if r.err != nil {
			return nil, nil, r.err
		}
		outMembers[r.idx] = r.member
		outValues[r.idx] = r.data
	}
	return outMembers, outValues, nil
}
