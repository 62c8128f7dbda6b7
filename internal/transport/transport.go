// Package transport implements the Transport Adapter: the boundary
// between the overlay-network session's send/receive queues and the
// core. It does no routing or retry; it is pure I/O plumbing over the
// Overlay collaborator (spec.md §4.4, §6).
//
// Grounded on the teacher's p2p.Sender interface boundary
// (internal/p2p/node.go's SendToPeer/Logf shape): a narrow interface
// separating the transport-facing send call from everything the core
// does with it.
package transport

import (
	"crypto/rand"
	"fmt"

	"github.com/polistern/pboted/internal/batch"
	"github.com/polistern/pboted/internal/wire"
)

// Datagram is one inbound (source, bytes) pair yielded by the overlay.
type Datagram struct {
	From string
	Data []byte
}

// Overlay is the narrow boundary the core requires of the
// overlay-network session collaborator: send an opaque payload to an
// opaque destination string. Received datagrams do not come through
// this interface; the overlay hands them to Adapter.Deliver. No IP
// semantics, no fragmentation logic — the overlay handles both.
type Overlay interface {
	Send(destination string, data []byte) error
}

// Adapter moves datagrams between an Overlay and the core's packet
// dispatcher. RecvQueue is exposed directly as a channel per spec.md's
// "blocking FIFO" contract; callers range over it.
type Adapter struct {
	overlay   Overlay
	RecvQueue chan Datagram
}

// New returns an Adapter wrapping overlay, with a receive queue of the
// given buffer depth.
func New(overlay Overlay, recvQueueDepth int) *Adapter {
	if recvQueueDepth <= 0 {
		recvQueueDepth = 256
	}
	return &Adapter{overlay: overlay, RecvQueue: make(chan Datagram, recvQueueDepth)}
}

// Send enqueues one datagram for transmission to destination.
func (a *Adapter) Send(destination string, data []byte) error {
	if err := a.overlay.Send(destination, data); err != nil {
		return fmt.Errorf("transport: send to %s: %w", destination, err)
	}
	return nil
}

// SendBatch dispatches every outbound slot in b through Send. Send
// errors are ignored and nothing is returned; per spec.md §7, a
// per-node send failure is not fatal to the verb — that destination
// simply produces no response.
func (a *Adapter) SendBatch(b *batch.Batch) {
	for _, ob := range b.Destinations() {
		_ = a.Send(ob.Destination, ob.Bytes)
	}
}

// Deliver pushes an inbound datagram onto RecvQueue, dropping it if the
// queue is full rather than blocking the overlay's own read loop.
func (a *Adapter) Deliver(from string, data []byte) bool {
	select {
	case a.RecvQueue <- Datagram{From: from, Data: data}:
		return true
	default:
		return false
	}
}

// RandomCID fills a fresh CID with cryptographically random bytes.
func RandomCID() (wire.CID, error) {
	var cid wire.CID
	if _, err := rand.Read(cid[:]); err != nil {
		return wire.CID{}, fmt.Errorf("transport: generate cid: %w", err)
	}
	return cid, nil
}
