// Package vsi is the public entry point to the VSI core: a single
// Instance wires together the shared segment, the variable-size
// allocator, the node pool, the id/name/private-id/group-id catalog, and
// signal groups, and exposes one method per operation in the abstract API
// surface — Define, Fire, the fetch family, Flush, the group operations,
// and name/id resolution.
package vsi

import (
	"context"
	stdErrors "errors"
	"sync/atomic"

	"github.com/iamNilotpal/vsi-core/internal/alloc"
	"github.com/iamNilotpal/vsi-core/internal/catalog"
	"github.com/iamNilotpal/vsi-core/internal/group"
	"github.com/iamNilotpal/vsi-core/internal/nodepool"
	"github.com/iamNilotpal/vsi-core/internal/shm"
	"github.com/iamNilotpal/vsi-core/pkg/errors"
	"github.com/iamNilotpal/vsi-core/pkg/logger"
	"github.com/iamNilotpal/vsi-core/pkg/options"
	"go.uber.org/zap"
)

// ErrInstanceClosed is returned when attempting to perform operations on
// a closed Instance.
var ErrInstanceClosed = stdErrors.New("operation failed: cannot access closed instance")

// Instance is a live VSI core: one shared segment pair, attached and
// ready to serve Define/Fire/Fetch/Group operations.
type Instance struct {
	options *options.Options
	log     *zap.SugaredLogger
	closed  atomic.Bool

	segment *shm.Segment
	pool    *nodepool.Pool
	alloc   *alloc.Allocator
	catalog *catalog.Catalog
	groups  *group.Manager
}

// New creates and attaches a new VSI Instance, formatting its backing
// segment files on first use.
func New(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	cfg := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	segment, err := shm.New(ctx, &shm.Config{Options: &cfg, Logger: log})
	if err != nil {
		return nil, err
	}

	pool, err := nodepool.New(segment.SystemBase(), segment.SystemSize(), catalog.RecordBlockSize)
	if err != nil {
		segment.Close()
		return nil, err
	}

	allocator, err := alloc.New(segment.UserBase(), segment.UserSize(), cfg.SplitThreshold, cfg.NodeOrder, pool)
	if err != nil {
		segment.Close()
		return nil, err
	}

	cat := catalog.New(cfg.NodeOrder, pool, allocator, segment.UserBase())
	groups := group.New(cat)

	log.Infow("vsi instance initialized", "service", service)
	return &Instance{
		options: &cfg,
		log:     log,
		segment: segment,
		pool:    pool,
		alloc:   allocator,
		catalog: cat,
		groups:  groups,
	}, nil
}

// Close detaches the Instance's shared segment. It is safe to call more
// than once.
func (i *Instance) Close() error {
	if !i.closed.CompareAndSwap(false, true) {
		return ErrInstanceClosed
	}
	i.log.Infow("closing vsi instance")
	return i.segment.Close()
}

// Define registers a signal under (domain, signalID), optionally with a
// textual name and a private id, and creates its backing FIFO.
func (i *Instance) Define(domain uint16, signalID uint32, name string, privateID uint32) error {
	if i.closed.Load() {
		return ErrInstanceClosed
	}
	_, err := i.catalog.Define(domain, signalID, name, privateID, 0)
	return err
}

// Fire publishes data to (domain, signalID)'s FIFO, lazily creating the
// signal list on first reference if it was never Defined.
func (i *Instance) Fire(domain uint16, signalID uint32, data []byte) error {
	if i.closed.Load() {
		return ErrInstanceClosed
	}
	list, err := i.catalog.FindOrCreate(domain, signalID)
	if err != nil {
		return err
	}
	return list.Publish(data)
}

// FireByName resolves name within domain and publishes data to its FIFO.
func (i *Instance) FireByName(domain uint16, name string, data []byte) error {
	id, err := i.catalog.NameToID(domain, name)
	if err != nil {
		return err
	}
	return i.Fire(domain, id, data)
}

// GetOldest removes and returns the oldest queued sample for (domain,
// signalID), lazily creating the signal list on first reference if it was
// never Defined. If wait is true, it blocks until a sample is available
// or ctx is done; otherwise it returns immediately with NO_DATA when
// empty.
func (i *Instance) GetOldest(ctx context.Context, domain uint16, signalID uint32, wait bool) ([]byte, error) {
	if i.closed.Load() {
		return nil, ErrInstanceClosed
	}
	list, err := i.catalog.FindOrCreate(domain, signalID)
	if err != nil {
		return nil, err
	}
	return list.FetchOldest(ctx, wait)
}

// GetOldestByName is GetOldest resolved by name.
func (i *Instance) GetOldestByName(ctx context.Context, domain uint16, name string, wait bool) ([]byte, error) {
	id, err := i.catalog.NameToID(domain, name)
	if err != nil {
		return nil, err
	}
	return i.GetOldest(ctx, domain, id, wait)
}

// GetNewest returns the most recently published sample for (domain,
// signalID) without removing it from the queue, lazily creating the
// signal list on first reference if it was never Defined. If wait is
// true, it blocks until a sample is available or ctx is done.
func (i *Instance) GetNewest(ctx context.Context, domain uint16, signalID uint32, wait bool) ([]byte, error) {
	if i.closed.Load() {
		return nil, ErrInstanceClosed
	}
	list, err := i.catalog.FindOrCreate(domain, signalID)
	if err != nil {
		return nil, err
	}
	return list.FetchNewest(ctx, wait)
}

// GetNewestByName is GetNewest resolved by name.
func (i *Instance) GetNewestByName(ctx context.Context, domain uint16, name string, wait bool) ([]byte, error) {
	id, err := i.catalog.NameToID(domain, name)
	if err != nil {
		return nil, err
	}
	return i.GetNewest(ctx, domain, id, wait)
}

// Flush drains (domain, signalID)'s FIFO.
func (i *Instance) Flush(domain uint16, signalID uint32) error {
	list, err := i.catalog.Lookup(domain, signalID)
	if err != nil {
		return err
	}
	list.Flush()
	return nil
}

// FlushByName is Flush resolved by name.
func (i *Instance) FlushByName(domain uint16, name string) error {
	id, err := i.catalog.NameToID(domain, name)
	if err != nil {
		return err
	}
	return i.Flush(domain, id)
}

// NameToID resolves a signal name to its numeric id within a domain.
func (i *Instance) NameToID(domain uint16, name string) (uint32, error) {
	return i.catalog.NameToID(domain, name)
}

// IDToName resolves a (domain, signalID) pair back to its textual name.
func (i *Instance) IDToName(domain uint16, signalID uint32) (string, error) {
	return i.catalog.IDToName(domain, signalID)
}

// PrivateIDToID resolves a private id to its numeric signal id.
func (i *Instance) PrivateIDToID(domain uint16, privateID uint32) (uint32, error) {
	return i.catalog.PrivateIDToID(domain, privateID)
}

// CreateGroup registers a new, empty signal group.
func (i *Instance) CreateGroup(groupID uint32) error { return i.groups.CreateGroup(groupID) }

// DeleteGroup removes a signal group.
func (i *Instance) DeleteGroup(groupID uint32) error { return i.groups.DeleteGroup(groupID) }

// AddMemberToGroup adds (domain, signalID) to groupID's membership.
func (i *Instance) AddMemberToGroup(groupID uint32, domain uint16, signalID uint32) error {
	return i.groups.AddMember(groupID, domain, signalID)
}

// RemoveMemberFromGroup removes (domain, signalID) from groupID's
// membership.
func (i *Instance) RemoveMemberFromGroup(groupID uint32, domain uint16, signalID uint32) error {
	return i.groups.RemoveMember(groupID, domain, signalID)
}

// GetNewestInGroup returns the newest available sample from every member
// of groupID that has one, without consuming any of them.
func (i *Instance) GetNewestInGroup(ctx context.Context, groupID uint32) ([]group.Member, [][]byte, error) {
	return i.groups.GetNewestInGroup(ctx, groupID)
}

// GetOldestInGroup pops the oldest available sample from every member of
// groupID that has one queued.
func (i *Instance) GetOldestInGroup(ctx context.Context, groupID uint32) ([]group.Member, [][]byte, error) {
	return i.groups.GetOldestInGroup(ctx, groupID)
}

// ListenAnyInGroup blocks until any one member of groupID has a sample,
// consumes it, and reports which member it came from.
func (i *Instance) ListenAnyInGroup(ctx context.Context, groupID uint32) (group.Member, []byte, error) {
	return i.groups.ListenAnyInGroup(ctx, groupID)
}

// ListenAllInGroup blocks until every member of groupID has at least one
// sample available, then returns the newest sample from each.
func (i *Instance) ListenAllInGroup(ctx context.Context, groupID uint32) ([]group.Member, [][]byte, error) {
	return i.groups.ListenAllInGroup(ctx, groupID)
}

// FlushGroup flushes every member FIFO in groupID.
func (i *Instance) FlushGroup(groupID uint32) error { return i.groups.FlushGroup(groupID) }

// ExitCode maps a VSI error code (spec §7) to the process exit code a
// CLI caller should use (spec §6.4).
type ExitCode int

const (
	ExitOK            ExitCode = 0
	ExitInvalid       ExitCode = 1
	ExitNoEntry       ExitCode = 2
	ExitAlreadyExists ExitCode = 3
	ExitNoData        ExitCode = 4
	ExitNoMemory      ExitCode = 5
	ExitNoSys         ExitCode = 6
	ExitTimedOut      ExitCode = 7
	ExitCorrupt       ExitCode = 8
	ExitInternalError ExitCode = 9
)

// ExitCodeForError maps err to the exit code a CLI wrapping this library
// should return. It never calls os.Exit itself — the library leaves exit
// behavior up to its caller.
func ExitCodeForError(err error) ExitCode {
	if err == nil {
		return ExitOK
	}

	switch errors.GetErrorCode(err) {
	case errors.ErrorCodeInvalid:
		return ExitInvalid
	case errors.ErrorCodeNoEntry:
		return ExitNoEntry
	case errors.ErrorCodeAlreadyExists:
		return ExitAlreadyExists
	case errors.ErrorCodeNoData:
		return ExitNoData
	case errors.ErrorCodeNoMemory:
		return ExitNoMemory
	case errors.ErrorCodeNoSys:
		return ExitNoSys
	case errors.ErrorCodeTimedOut:
		return ExitTimedOut
	case errors.ErrorCodeCorrupt:
		return ExitCorrupt
	default:
		return ExitInternalError
	}
}
