package processing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LeaseRegistry tracks in-flight verification attempts within the process
// and guarantees at most one active attempt per document. It also backs
// cancellation: cancelling a lease aborts the attempt's context.
//
// The registry is created empty at startup; shutdown drains it by
// cancelling the worker context, which releases every lease.
type LeaseRegistry struct {
	mu     sync.Mutex
	active map[uuid.UUID]context.CancelFunc
}

// NewLeaseRegistry creates an empty registry.
func NewLeaseRegistry() *LeaseRegistry {
	return &LeaseRegistry{
		active: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Acquire takes the lease for a document and returns a context bound to
// it. Returns false when the document already has an active attempt.
func (l *LeaseRegistry) Acquire(ctx context.Context, documentID uuid.UUID) (context.Context, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.active[documentID]; held {
		return nil, false
	}

	leaseCtx, cancel := context.WithCancel(ctx)
	l.active[documentID] = cancel
	return leaseCtx, true
}

// Release returns a document's lease and cancels its context.
func (l *LeaseRegistry) Release(documentID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cancel, held := l.active[documentID]; held {
		cancel()
		delete(l.active, documentID)
	}
}

// Cancel aborts an in-flight attempt. Returns false when the document has
// no active attempt. The lease itself is released by the worker when the
// aborted attempt unwinds.
func (l *LeaseRegistry) Cancel(documentID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cancel, held := l.active[documentID]
	if !held {
		return false
	}
	cancel()
	return true
}

// Len reports the number of active leases.
func (l *LeaseRegistry) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}
