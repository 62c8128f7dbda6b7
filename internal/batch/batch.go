// Package batch implements the Batch Registry: correlation of
// outgoing request CIDs to pending DHT operations, with blocking wait
// primitives bounded by a deadline.
//
// The correlation pattern (mutex-protected CID → channel map, resolved
// via select against a timer) is grounded on the teacher's
// dht.DHT.QueryFindNode, generalized from a single-response RPC to a
// multi-destination batch with two distinct wait semantics.
package batch

import (
	"sync"
	"time"

	"github.com/polistern/pboted/internal/wire"
)

// Outbound is one queued-but-not-yet-answered request within a batch.
type Outbound struct {
	Destination string
	Bytes       []byte
}

// Batch is an in-flight group of outbound requests sharing an owner
// label (typically the verb name and target key, for logging). CIDs
// are unique within a batch; accept() applied to an unknown CID is a
// no-op, per spec.md §4.5.
type Batch struct {
	Owner string

	mu        sync.Mutex
	outbound  map[wire.CID]Outbound
	responses map[wire.CID]wire.Response
	notify    chan struct{}
}

// New returns an empty batch labeled owner.
func New(owner string) *Batch {
	return &Batch{
		Owner:     owner,
		outbound:  make(map[wire.CID]Outbound),
		responses: make(map[wire.CID]wire.Response),
		notify:    make(chan struct{}, 1),
	}
}

// Add appends an outbound slot. It panics if cid is already present in
// this batch, since duplicate CIDs within one batch indicate a caller
// bug (spec.md §8: "the second add(CID, ...) into the same batch is
// rejected").
func (b *Batch) Add(cid wire.CID, destination string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.outbound[cid]; exists {
		panic("batch: duplicate cid added to batch")
	}
	b.outbound[cid] = Outbound{Destination: destination, Bytes: data}
}

// Destinations returns every outbound slot's destination and bytes,
// for the transport to dispatch.
func (b *Batch) Destinations() map[wire.CID]Outbound {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[wire.CID]Outbound, len(b.outbound))
	for cid, ob := range b.outbound {
		out[cid] = ob
	}
	return out
}

// Accept records resp if its CID belongs to this batch's outbound set;
// otherwise it is a no-op (the caller falls through to general inbound
// handling instead of treating this as an error).
func (b *Batch) Accept(resp wire.Response) bool {
	b.mu.Lock()
	if _, wanted := b.outbound[resp.CID]; !wanted {
		b.mu.Unlock()
		return false
	}
	b.responses[resp.CID] = resp
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// ResponseCount returns the number of responses recorded so far.
func (b *Batch) ResponseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.responses)
}

// Responses returns a snapshot of every response recorded so far.
func (b *Batch) Responses() []wire.Response {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]wire.Response, 0, len(b.responses))
	for _, r := range b.responses {
		out = append(out, r)
	}
	return out
}

// WaitFirst blocks until at least one response has been recorded or
// deadline elapses, whichever comes first.
func (b *Batch) WaitFirst(deadline time.Duration) []wire.Response {
	if b.ResponseCount() > 0 {
		return b.Responses()
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for {
		select {
		case <-b.notify:
			if b.ResponseCount() > 0 {
				return b.Responses()
			}
		case <-timer.C:
			return b.Responses()
		}
	}
}

// WaitLast blocks until no response has arrived for a full deadline
// window (i.e. it keeps extending its wait every time a new response
// lands, up to deadline of silence).
func (b *Batch) WaitLast(deadline time.Duration) []wire.Response {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for {
		select {
		case <-b.notify:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(deadline)
		case <-timer.C:
			return b.Responses()
		}
	}
}
