package dht

import (
	"github.com/polistern/pboted/internal/batch"
	"github.com/polistern/pboted/internal/transport"
	"github.com/polistern/pboted/internal/wire"
)

// selectNodes implements the shared node-selection step of find and
// store (spec.md §4.6 step 1): run an iterative lookup, then fall back
// to the full unlocked table if that didn't surface enough candidates,
// then fail outright if it's still short.
func (e *Engine) selectNodes(key Hash) []NodeRecord {
	discovered := e.ClosestNodesLookup(key)
	if len(discovered) < MinClosestNodes {
		discovered = e.Table.Unlocked()
	}
	if len(discovered) < MinClosestNodes {
		return nil
	}
	return discovered
}

// buildBatch constructs a fresh batch for nodes, keyed by owner, using
// makePayload to build each per-node CID and wire-encoded packet. It
// also returns the CID→NodeRecord mapping so callers can attribute a
// response back to the node that sent it without a destination-string
// linear scan.
func buildBatch(owner string, nodes []NodeRecord, makePayload func(cid wire.CID) []byte) (*batch.Batch, map[wire.CID]NodeRecord, error) {
	b := batch.New(owner)
	cidToNode := make(map[wire.CID]NodeRecord, len(nodes))
	for _, n := range nodes {
		cid, err := transport.RandomCID()
		if err != nil {
			return nil, nil, err
		}
		b.Add(cid, n.Dest, makePayload(cid))
		cidToNode[cid] = n
	}
	return b, cidToNode, nil
}

// dispatchAndWait registers b, sends it, waits per exhaustive, then
// unregisters it unconditionally (spec.md §4.5: "Verbs always remove
// their batch before returning, even on timeout").
func (e *Engine) dispatchAndWait(b *batch.Batch, exhaustive bool) []wire.Response {
	e.registry.Register(b)
	defer e.registry.Remove(b)

	e.transport.SendBatch(b)
	if exhaustive {
		return b.WaitLast(ResponseTimeout)
	}
	return b.WaitFirst(ResponseTimeout)
}

// Find implements the client verb `find`: look up key for class, either
// stopping at the first response (exhaustive=false) or waiting out the
// full silence window to collect every response (exhaustive=true).
// Resends the batch up to MaxSendAttempts times if zero responses come
// back; in the zero-response case the resend loop waits at most
// MaxSendAttempts * ResponseTimeout, on top of the time node selection's
// ClosestNodesLookup takes beforehand.
func (e *Engine) Find(key Hash, class wire.ContentClass, exhaustive bool) []wire.Response {
	nodes := e.selectNodes(key)
	if len(nodes) == 0 {
		return nil
	}

	b, _, err := buildBatch("find", nodes, func(cid wire.CID) []byte {
		req := wire.RetrieveRequest{CID: cid, DataType: class, Key: key}
		return buildEnvelope(wire.PacketRetrieveRequest, defaultRequestVersion, cid, wire.EncodeRetrieveRequest(req))
	})
	if err != nil {
		e.log.Warningf("dht: find: build batch: %v", err)
		return nil
	}

	e.registry.Register(b)
	defer e.registry.Remove(b)

	var responses []wire.Response
	for attempt := 1; attempt <= MaxSendAttempts; attempt++ {
		e.transport.SendBatch(b)
		if exhaustive {
			responses = b.WaitLast(ResponseTimeout)
		} else {
			responses = b.WaitFirst(ResponseTimeout)
		}
		if len(responses) > 0 {
			break
		}
	}
	return responses
}

// FindOne is Find with exhaustive=false.
func (e *Engine) FindOne(key Hash, class wire.ContentClass) []wire.Response {
	return e.Find(key, class, false)
}

// FindAll is Find with exhaustive=true.
func (e *Engine) FindAll(key Hash, class wire.ContentClass) []wire.Response {
	return e.Find(key, class, true)
}

// Store implements the client verb `store`: same node-selection and
// retry logic as Find, but every attempt gets freshly randomized CIDs
// since store requests are not idempotent from the server's
// perspective. class tags the payload (see wire.EncodeStorePayload)
// since StoreRequest itself carries none. Returns the destination of
// every node that responded.
func (e *Engine) Store(key Hash, class wire.ContentClass, hashcash, data []byte) []string {
	nodes := e.selectNodes(key)
	if len(nodes) == 0 {
		return nil
	}

	payload := wire.EncodeStorePayload(class, data)
	var responders []string
	for attempt := 1; attempt <= MaxSendAttempts; attempt++ {
		b, cidToNode, err := buildBatch("store", nodes, func(cid wire.CID) []byte {
			req := wire.StoreRequest{CID: cid, Hashcash: hashcash, Data: payload}
			return buildEnvelope(wire.PacketStoreRequest, defaultRequestVersion, cid, wire.EncodeStoreRequest(req))
		})
		if err != nil {
			e.log.Warningf("dht: store: build batch: %v", err)
			return nil
		}

		responses := e.dispatchAndWait(b, true)
		if len(responses) > 0 {
			for _, r := range responses {
				if n, ok := cidToNode[r.CID]; ok {
					responders = append(responders, n.Dest)
				}
			}
			break
		}
	}
	return responders
}

// DeleteEmail implements the client verb `delete_email`: ask the nodes
// holding key (class 'E') to erase it, presenting deleteAuth as proof
// of authorization. Same node-selection and exhaustive-wait shape as
// Store; the caller (Check Round) does not need per-node attribution,
// only whether anyone accepted.
func (e *Engine) DeleteEmail(key Hash, deleteAuth [32]byte) []wire.Response {
	nodes := e.selectNodes(key)
	if len(nodes) == 0 {
		return nil
	}

	b, _, err := buildBatch("delete-email", nodes, func(cid wire.CID) []byte {
		req := wire.EmailDeleteRequest{CID: cid, Key: key, DeleteAuth: deleteAuth}
		return buildEnvelope(wire.PacketEmailDelete, defaultRequestVersion, cid, wire.EncodeEmailDeleteRequest(req))
	})
	if err != nil {
		e.log.Warningf("dht: delete_email: build batch: %v", err)
		return nil
	}
	return e.dispatchAndWait(b, true)
}

// DeleteIndexEntry implements the client verb `delete_index_entry`: ask
// the nodes holding the index owned by owner to remove the single entry
// keyed by key, presenting deleteAuth.
func (e *Engine) DeleteIndexEntry(owner, key Hash, deleteAuth [32]byte) []wire.Response {
	nodes := e.selectNodes(owner)
	if len(nodes) == 0 {
		return nil
	}

	entries := []wire.IndexDeleteEntry{{Key: key, DeleteAuth: deleteAuth}}
	b, _, err := buildBatch("delete-index-entry", nodes, func(cid wire.CID) []byte {
		req := wire.IndexDeleteRequest{CID: cid, Owner: owner, Entries: entries}
		return buildEnvelope(wire.PacketIndexDelete, defaultRequestVersion, cid, wire.EncodeIndexDeleteRequest(req))
	})
	if err != nil {
		e.log.Warningf("dht: delete_index_entry: build batch: %v", err)
		return nil
	}
	return e.dispatchAndWait(b, true)
}
