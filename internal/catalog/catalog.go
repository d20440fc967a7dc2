// Package catalog implements the id-index, name-index, private-id-index,
// and group-id-index of spec §4.5/§4.6: resolving a signal between its
// numeric (domain, signal) identity, its textual name, and an optional
// private id, plus tracking which group ids exist. A signal need not be
// explicitly Defined before use: FindOrCreate lazily registers a bare
// (domain, signalID) pair the first time anything publishes, fetches, or
// adds it to a group, per spec §3.3 and §4.4.1.
//
// Each index is a btreeindex.Tree whose entries are backed by
// nodepool-allocated records — the genuine shared-memory bookkeeping the
// source keeps in its id/name/private-id trees. The signal.List values
// those records describe are Go-heap objects (package signal's own design
// note applies here too: Go has no portable way to put a synchronized
// FIFO inside mmap'd bytes), so the catalog also keeps a Go-native map
// from (domain, signal) to *signal.List alongside the index records.
package catalog

import (
	"sync"

	"github.com/google/btree"
	"github.com/iamNilotpal/vsi-core/internal/alloc"
	"github.com/iamNilotpal/vsi-core/internal/btreeindex"
	"github.com/iamNilotpal/vsi-core/internal/nodepool"
	"github.com/iamNilotpal/vsi-core/internal/shm"
	"github.com/iamNilotpal/vsi-core/internal/signal"
	"github.com/iamNilotpal/vsi-core/pkg/errors"
)

const maxNameLen = 63

// RecordBlockSize is the nodepool block size every index record in this
// package (and the allocator's own by-size/by-offset records) is sized
// to fit within. signalRecord is the largest of them at 76 bytes;
// 128 leaves headroom for future fields without another migration.
const RecordBlockSize = 128

// signalRecord is the nodepool-backed persisted record describing one
// defined signal. A copy is stored behind each of the id/name/private-id
// trees that reference it.
type signalRecord struct {
	domain    uint16
	nameLen   uint8
	_pad      uint8
	signalID  uint32
	privateID uint32
	name      [maxNameLen]byte
}

func (r *signalRecord) nameString() string { return string(r.name[:r.nameLen]) }

type idItem struct {
	recOff shm.Offset
	rec    *signalRecord
}

func (i *idItem) Less(than btree.Item) bool {
	o := than.(*idItem)
	if i.rec.domain != o.rec.domain {
		return i.rec.domain < o.rec.domain
	}
	return i.rec.signalID < o.rec.signalID
}
func (i *idItem) Record() shm.Offset { return i.recOff }

type nameItem struct {
	recOff shm.Offset
	rec    *signalRecord
}

func (i *nameItem) Less(than btree.Item) bool {
	o := than.(*nameItem)
	if i.rec.domain != o.rec.domain {
		return i.rec.domain < o.rec.domain
	}
	return i.rec.nameString() < o.rec.nameString()
}
func (i *nameItem) Record() shm.Offset { return i.recOff }

type privateIDItem struct {
	recOff shm.Offset
	rec    *signalRecord
}

func (i *privateIDItem) Less(than btree.Item) bool {
	o := than.(*privateIDItem)
	if i.rec.domain != o.rec.domain {
		return i.rec.domain < o.rec.domain
	}
	return i.rec.privateID < o.rec.privateID
}
func (i *privateIDItem) Record() shm.Offset { return i.recOff }

// groupRecord is the nodepool-backed record for one defined group.
type groupRecord struct {
	groupID uint32
}

type groupItem struct {
	recOff shm.Offset
	rec    *groupRecord
}

func (i *groupItem) Less(than btree.Item) bool {
	return i.rec.groupID < than.(*groupItem).rec.groupID
}
func (i *groupItem) Record() shm.Offset { return i.recOff }

type listKey struct {
	domain   uint16
	signalID uint32
}

// Catalog is the VSI core's combined id/name/private-id/group-id index.
type Catalog struct {
	mu sync.RWMutex

	pool  *nodepool.Pool
	alloc *alloc.Allocator
	base  uintptr

	byID        *btreeindex.Tree
	byName      *btreeindex.Tree
	byPrivateID *btreeindex.Tree
	byGroup     *btreeindex.Tree

	lists map[listKey]*signal.List
}

// New creates an empty Catalog. pool backs the index records; a backs the
// per-signal payload chunks handed to signal.List; base is the user
// segment's data-region base.
func New(order int, pool *nodepool.Pool, a *alloc.Allocator, base uintptr) *Catalog {
	return &Catalog{
		pool:        pool,
		alloc:       a,
		base:        base,
		byID:        btreeindex.New(order, pool),
		byName:      btreeindex.New(order, pool),
		byPrivateID: btreeindex.New(order, pool),
		byGroup:     btreeindex.New(order, pool),
		lists:       make(map[listKey]*signal.List),
	}
}

// Define registers a new signal under (domain, signalID), optionally with
// a textual name and a private id, and creates its backing FIFO. Returns
// ALREADY_EXISTS if the (domain, signalID) pair is already defined.
func (c *Catalog) Define(domain uint16, signalID uint32, name string, privateID uint32, maxDepth int) (*signal.List, error) {
	if len(name) > maxNameLen {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalid, "signal name too long",
		).WithField("name").WithRule("max_length").WithProvided(len(name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.lists[listKey{domain, signalID}]; exists {
		return nil, errors.NewCatalogError(
			nil, errors.ErrorCodeAlreadyExists, "signal already defined",
		).WithDomain(domain).WithSignalID(signalID).WithOperation("Define")
	}

	return c.createLocked(domain, signalID, name, privateID, maxDepth)
}

// Lookup resolves (domain, signalID) to its signal.List. Returns NO_ENTRY
// if findOrCreateSignalList has never been invoked for the pair.
func (c *Catalog) Lookup(domain uint16, signalID uint32) (*signal.List, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.lists[listKey{domain, signalID}]
	if !ok {
		return nil, errors.NewNoEntryError(domain, signalID)
	}
	return list, nil
}

// FindOrCreate resolves (domain, signalID) to its signal.List, creating an
// unnamed, unbounded entry with no private id if this is the first
// reference by either a publish or a fetch (spec §4.4.1's
// findOrCreateSignalList, invoked by insert/fetch_oldest/fetch_newest and
// by add_member). A signal created this way appears in the id-index but
// not the name- or private-id-index, since no name or private id was
// ever supplied for it.
func (c *Catalog) FindOrCreate(domain uint16, signalID uint32) (*signal.List, error) {
	key := listKey{domain, signalID}

	c.mu.RLock()
	if list, ok := c.lists[key]; ok {
		c.mu.RUnlock()
		return list, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if list, ok := c.lists[key]; ok {
		return list, nil
	}
	return c.createLocked(domain, signalID, "", 0, 0)
}

// createLocked allocates the id/name/private-id records and the backing
// signal.List for (domain, signalID). Callers must hold c.mu for writing
// and must already have confirmed the pair is not yet registered.
func (c *Catalog) createLocked(domain uint16, signalID uint32, name string, privateID uint32, maxDepth int) (*signal.List, error) {
	idRecOff, err := c.pool.AllocSys()
	if err != nil {
		return nil, err
	}
	rec := shm.Resolve[signalRecord](c.pool.Base(), idRecOff)
	rec.domain = domain
	rec.signalID = signalID
	rec.privateID = privateID
	rec.nameLen = uint8(len(name))
	copy(rec.name[:], name)

	c.byID.Insert(&idItem{recOff: idRecOff, rec: rec})

	if name != "" {
		nameRecOff, err := c.pool.AllocSys()
		if err != nil {
			return nil, err
		}
		nameRec := shm.Resolve[signalRecord](c.pool.Base(), nameRecOff)
		*nameRec = *rec
		c.byName.Insert(&nameItem{recOff: nameRecOff, rec: nameRec})
	}

	if privateID != 0 {
		pidRecOff, err := c.pool.AllocSys()
		if err != nil {
			return nil, err
		}
		pidRec := shm.Resolve[signalRecord](c.pool.Base(), pidRecOff)
		*pidRec = *rec
		c.byPrivateID.Insert(&privateIDItem{recOff: pidRecOff, rec: pidRec})
	}

	list := signal.New(domain, signalID, c.alloc, c.base, maxDepth)
	c.lists[listKey{domain, signalID}] = list
	return list, nil
}

// NameToID resolves a signal name to its numeric id within a domain.
func (c *Catalog) NameToID(domain uint16, name string) (uint32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pivot := &nameItem{rec: &signalRecord{domain: domain, nameLen: uint8(len(name))}}
	copy(pivot.rec.name[:], name)

	item, ok := c.byName.Get(pivot)
	if !ok {
		return 0, errors.NewNameNotFoundError(domain, name)
	}
	return item.(*nameItem).rec.signalID, nil
}

// IDToName resolves a (domain, signalID) pair back to its textual name,
// if one was given at Define time.
func (c *Catalog) IDToName(domain uint16, signalID uint32) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pivot := &idItem{rec: &signalRecord{domain: domain, signalID: signalID}}
	item, ok := c.byID.Get(pivot)
	if !ok {
		return "", errors.NewNoEntryError(domain, signalID)
	}
	return item.(*idItem).rec.nameString(), nil
}

// PrivateIDToID resolves a private id within domain to its signal id.
func (c *Catalog) PrivateIDToID(domain uint16, privateID uint32) (uint32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pivot := &privateIDItem{rec: &signalRecord{domain: domain, privateID: privateID}}
	item, ok := c.byPrivateID.Get(pivot)
	if !ok {
		return 0, errors.NewCatalogError(
			nil, errors.ErrorCodeNoEntry, "no signal registered under that private id",
		).WithDomain(domain).WithOperation("PrivateIdToId")
	}
	return item.(*privateIDItem).rec.signalID, nil
}

// CreateGroup registers a new, empty group id.
func (c *Catalog) CreateGroup(groupID uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pivot := &groupItem{rec: &groupRecord{groupID: groupID}}
	if _, ok := c.byGroup.Get(pivot); ok {
		return errors.NewGroupAlreadyExistsError(groupID)
	}

	recOff, err := c.pool.AllocSys()
	if err != nil {
		return err
	}
	rec := shm.Resolve[groupRecord](c.pool.Base(), recOff)
	rec.groupID = groupID
	c.byGroup.Insert(&groupItem{recOff: recOff, rec: rec})
	return nil
}

// DeleteGroup removes a group id from the catalog.
func (c *Catalog) DeleteGroup(groupID uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pivot := &groupItem{rec: &groupRecord{groupID: groupID}}
	if !c.byGroup.Delete(pivot) {
		return errors.NewGroupNotFoundError(groupID)
	}
	return nil
}

// GroupExists reports whether groupID has been created.
func (c *Catalog) GroupExists(groupID uint32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pivot := &groupItem{rec: &groupRecord{groupID: groupID}}
	_, ok := c.byGroup.Get(pivot)
	return ok
}
