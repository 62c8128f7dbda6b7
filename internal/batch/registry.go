package batch

import (
	"sync"

	"github.com/polistern/pboted/internal/wire"
)

// Registry maintains the process-wide set of live batches and the
// CID → batch lookup used to correlate inbound responses.
type Registry struct {
	mu      sync.RWMutex
	byCID   map[wire.CID]*Batch
	batches map[*Batch]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byCID:   make(map[wire.CID]*Batch),
		batches: make(map[*Batch]struct{}),
	}
}

// Register adds b to the registry, indexing every CID currently in its
// outbound set. Call this after the batch's outbound slots are fully
// populated (Add calls made before Register), and before dispatching
// any of it through the transport, so a response arriving immediately
// after send is guaranteed to be routable.
func (r *Registry) Register(b *Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b] = struct{}{}
	for cid := range b.Destinations() {
		r.byCID[cid] = b
	}
}

// Deliver routes resp to its owning batch, if any is registered for
// its CID. Returns true iff a batch accepted it.
func (r *Registry) Deliver(resp wire.Response) bool {
	r.mu.RLock()
	b, ok := r.byCID[resp.CID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return b.Accept(resp)
}

// Remove unregisters every CID owned by b and drops it from the live
// set. Verbs call this unconditionally before returning, whether they
// completed via responses or via timeout (spec.md §4.5).
func (r *Registry) Remove(b *Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.batches, b)
	for cid := range b.Destinations() {
		if r.byCID[cid] == b {
			delete(r.byCID, cid)
		}
	}
}

// Len returns the number of currently live batches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.batches)
}
