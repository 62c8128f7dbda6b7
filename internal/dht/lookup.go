package dht

import (
	"time"

	"github.com/polistern/pboted/internal/identity"
	"github.com/polistern/pboted/internal/wire"
)

// ClosestNodesLookup implements the iterative Kademlia discovery verb
// (spec.md §4.6). It queries every reachable node with a
// FindClosePeersRequest, folding discovered peers into the node table
// and into the returned accumulator, until the active query set is
// exhausted, the overall timeout elapses, or a round meets
// MinClosestNodes worth of fresh responses.
func (e *Engine) ClosestNodesLookup(key Hash) []NodeRecord {
	start := time.Now()

	active := make(map[Hash]NodeRecord)
	for _, n := range e.Table.All() {
		active[n.Hash] = n
	}

	var accumulated []NodeRecord
	seen := make(map[Hash]bool)

	for len(active) > 0 && time.Since(start) < ClosestNodesLookupTimeout {
		nodes := make([]NodeRecord, 0, len(active))
		for _, n := range active {
			nodes = append(nodes, n)
		}

		b, cidToNode, err := buildBatch("closest_nodes_lookup", nodes, func(cid wire.CID) []byte {
			req := wire.FindClosePeersRequest{CID: cid, Key: key}
			return buildEnvelope(wire.PacketFindClosePeers, findClosePeersVersion, cid, wire.EncodeFindClosePeersRequest(req))
		})
		if err != nil {
			e.log.Warningf("dht: closest_nodes_lookup: build batch: %v", err)
			break
		}

		responses := e.dispatchAndWait(b, true)
		if len(responses) == 0 {
			// Drop this round's batch and retry with the same active set.
			continue
		}

		roundResponses := 0
		for _, r := range responses {
			node, ok := cidToNode[r.CID]
			if !ok {
				continue
			}
			hash := node.Hash
			delete(active, hash)
			e.Table.MarkResponse(hash)
			roundResponses++

			if r.Status != wire.StatusOK {
				continue
			}
			pl, err := wire.DecodePeerList(r.Data)
			if err != nil {
				e.log.Warningf("dht: closest_nodes_lookup: bad peer list from %x: %v", hash, err)
				continue
			}
			for _, peer := range pl.Peers {
				e.observePeer(peer)
				peerHash := Hash(peer.Hash())
				if seen[peerHash] {
					continue
				}
				seen[peerHash] = true
				if rec, ok := e.Table.Find(peerHash); ok {
					accumulated = append(accumulated, rec)
				}
			}
		}

		if roundResponses >= MinClosestNodes {
			break
		}
	}

	return accumulated
}

// observePeer unique-inserts a peer discovered via a peer-list reply.
// New nodes are added on first observation, never duplicated, per
// spec.md §3's Node invariant.
func (e *Engine) observePeer(id identity.Identity) {
	e.Table.Add(id, identity.Destination(id))
}
