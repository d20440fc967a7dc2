// Package signal implements the per-(domain, signal) FIFO described in
// spec §4.4: a bounded-memory queue of samples with non-blocking publish
// and blocking or non-blocking fetch, a "peek" fetch that returns the newest
// sample without consuming it, a flush that drains everything, and
// FetchOldest's broadcast-on-any wakeup with eventual consumption — every
// waiter blocked on an empty list at publish time copies the same
// sample, and only the one that observes waiterCount back at zero
// actually dequeues it (§4.4.3).
//
// The source specifies a process-shared semaphore (mutex + condition
// variable + message/waiter counts) for this. Go has no process-shared
// condition variable, so this package uses sync.Mutex/sync.Cond — the
// primitive every wait/notify pattern in this module's reference material
// is built on — which covers the primary, tested mode of multiple
// goroutines inside one process sharing the mapped segment. Cancellation
// of a blocking fetch uses the same ctx.Done()+cond.Broadcast() pattern
// used to unstick a blocked consumer elsewhere in this module, standing
// in for the pthread_cancel the source would use.
package signal

import (
	"context"
	"sync"

	"github.com/iamNilotpal/vsi-core/internal/alloc"
	"github.com/iamNilotpal/vsi-core/internal/shm"
	"github.com/iamNilotpal/vsi-core/pkg/errors"
)

// sample is one published payload, stored as a node in a Go-native
// doubly-linked list. The payload bytes themselves live in the user
// segment, allocated through alloc.Allocator, so fetch/publish genuinely
// exercises the shared allocator rather than just copying into Go-heap
// buffers.
type sample struct {
	offset shm.Offset
	size   uint64
	next   *sample
	prev   *sample
}

// List is the FIFO for one (domain, signal) pair.
type List struct {
	mu   sync.Mutex
	cond *sync.Cond

	domain   uint16
	signalID uint32

	alloc *alloc.Allocator
	base  uintptr

	head, tail *sample
	count      int
	waiters    int
	maxDepth   int
}

// New creates an empty signal list backed by the given allocator.
// maxDepth bounds how many samples may be queued before Publish returns
// NO_MEMORY; maxDepth <= 0 means unbounded.
func New(domain uint16, signalID uint32, a *alloc.Allocator, base uintptr, maxDepth int) *List {
	l := &List{domain: domain, signalID: signalID, alloc: a, base: base, maxDepth: maxDepth}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Domain returns the signal list's domain.
func (l *List) Domain() uint16 { return l.domain }

// SignalID returns the signal list's signal id.
func (l *List) SignalID() uint32 { return l.signalID }

// Depth returns the number of samples currently queued.
func (l *List) Depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// waiterCount returns the number of goroutines currently blocked in
// FetchOldest/FetchNewest. Used by tests to synchronize on every waiter
// having registered before publishing.
func (l *List) waiterCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters
}

// Publish appends data to the tail of the FIFO, copying it into a
// freshly-allocated chunk in the user segment, and wakes any goroutine
// blocked in FetchOldest/FetchNewest.
func (l *List) Publish(data []byte) error {
	off, err := l.alloc.Malloc(uint64(len(data)))
	if err != nil {
		return err
	}
	dst := shm.Resolve[byte](l.base, off)
	copy(unsafeSlice(dst, len(data)), data)

	l.mu.Lock()
	if l.maxDepth > 0 && l.count >= l.maxDepth {
		l.mu.Unlock()
		l.alloc.Free(off)
		return errors.NewStorageError(
			nil, errors.ErrorCodeNoMemory, "signal list is at capacity",
		).WithDetail("domain", l.domain).WithDetail("signal", l.signalID)
	}

	node := &sample{offset: off, size: uint64(len(data))}
	if l.tail == nil {
		l.head, l.tail = node, node
	} else {
		node.prev = l.tail
		l.tail.next = node
		l.tail = node
	}
	l.count++
	l.mu.Unlock()

	l.cond.Broadcast()
	return nil
}

// FetchOldest returns the oldest queued sample (FIFO order). If wait is
// true and the list is empty, it blocks until a sample arrives or ctx is
// done; if wait is false, it returns an ErrorCodeNoData error immediately
// when the list is empty.
//
// A publish wakes every goroutine blocked in FetchOldest at once
// (broadcast-on-any): each one copies the same oldest sample, but the
// node is only unlinked and freed once waiterCount has dropped back to
// zero — the last of the woken goroutines to run does the actual
// dequeue. This is the eventual-consumption ordering spec §4.4.3
// prescribes; it must not be short-circuited into handing the sample to
// only the first waiter.
func (l *List) FetchOldest(ctx context.Context, wait bool) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.waitForData(ctx, wait); err != nil {
		return nil, err
	}

	node := l.head
	out := make([]byte, node.size)
	copy(out, unsafeSlice(shm.Resolve[byte](l.base, node.offset), int(node.size)))

	if l.waiters == 0 {
		l.head = node.next
		if l.head != nil {
			l.head.prev = nil
		} else {
			l.tail = nil
		}
		l.count--
		l.alloc.Free(node.offset)
	}

	return out, nil
}

// FetchNewest returns a copy of the most recently published sample
// without removing it — repeated calls with no intervening Publish keep
// returning the same data (spec's "newest peek" law). If wait is true and
// the list is empty, it blocks until a sample arrives or ctx is done.
func (l *List) FetchNewest(ctx context.Context, wait bool) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.waitForData(ctx, wait); err != nil {
		return nil, err
	}

	node := l.tail
	out := make([]byte, node.size)
	copy(out, unsafeSlice(shm.Resolve[byte](l.base, node.offset), int(node.size)))
	return out, nil
}

// Flush drains every queued sample, releasing their backing chunks, and
// returns the list to the empty state.
func (l *List) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for n := l.head; n != nil; {
		next := n.next
		l.alloc.Free(n.offset)
		n = next
	}
	l.head, l.tail = nil, nil
	l.count = 0
}

// waitForData must be called with l.mu held. It blocks until l.count > 0,
// wait is false, or ctx is canceled.
func (l *List) waitForData(ctx context.Context, wait bool) error {
	if l.count > 0 {
		return nil
	}
	if !wait {
		return errors.NewStorageError(
			nil, errors.ErrorCodeNoData, "signal list is empty",
		).WithDetail("domain", l.domain).WithDetail("signal", l.signalID)
	}

	l.waiters++
	defer func() { l.waiters-- }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.cond.Broadcast()
		case <-done:
		}
	}()

	for l.count == 0 {
		if ctx.Err() != nil {
			return errors.NewStorageError(
				ctx.Err(), errors.ErrorCodeTimedOut, "timed out waiting for a sample",
			).WithDetail("domain", l.domain).WithDetail("signal", l.signalID)
		}
		l.cond.Wait()
	}
	return nil
}

func unsafeSlice(p *byte, n int) []byte {
	return unsafeSliceImpl(p, n)
}

// Domain/SignalID helpers above also back the id half of a group member
// key; package group references List by pointer rather than by value.
