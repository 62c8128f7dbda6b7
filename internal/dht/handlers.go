package dht

import (
	"crypto/sha256"

	"github.com/polistern/pboted/internal/identity"
	"github.com/polistern/pboted/internal/store"
	"github.com/polistern/pboted/internal/wire"
)

// Dispatch is the inbound packet state machine (spec.md §4.6's
// PARSING → CORRELATED/LOCAL_DISPATCH state machine): it decodes a raw
// datagram, first offers it to the batch registry as a correlated
// response, and falls through to the local handler set otherwise. It
// answers every recognized inbound request type with exactly one
// Response, and answers unrecognized types with INVALID_PACKET, except
// the reserved relay variants which return silently per spec.md §4.6.
//
// Every handler that runs also performs add_node(from) as a side
// effect, per spec.md §4.6 ("Every handler attempts add_node(packet.from)")
// and the reference behavior (DHTworker.cpp's receiveRetrieveRequest,
// receiveStoreRequest, receiveEmailPacketDeleteRequest,
// receiveIndexPacketDeleteRequest and receiveDeletionQuery all call
// addNode(packet->from) first). from is itself the peer's
// self-describing address (see identity.Destination); a from that
// doesn't parse as one (the bundled UDP dev overlay's literal
// "host:port" destinations, for instance) has no attributable identity
// and no node is added.
func (e *Engine) Dispatch(from string, raw []byte) {
	if e.limiter != nil && !e.limiter.Allow(from) {
		return
	}

	pkt, err := wire.Decode(raw)
	if err != nil {
		e.log.Warningf("dht: dispatch: malformed packet from %s: %v", from, err)
		return
	}

	if pkt.Type == wire.PacketResponse {
		resp, err := wire.DecodeResponse(pkt.Payload)
		if err != nil && err != wire.ErrLengthMismatch {
			e.log.Warningf("dht: dispatch: malformed response from %s: %v", from, err)
			return
		}
		if e.registry.Deliver(resp) {
			return
		}
		// Unknown CID: fall through to general inbound handling, though
		// a bare Response with no matching batch has no handler; log and drop.
		e.log.Debugf("dht: dispatch: response with unrecognized cid from %s", from)
		return
	}

	if !wire.KnownType(pkt.Type) {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}

	switch pkt.Type {
	case wire.PacketRelay, wire.PacketRelayReturn:
		return // reserved, not implemented; reference returns silently
	case wire.PacketRetrieveRequest:
		e.handleRetrieve(from, pkt)
	case wire.PacketStoreRequest:
		e.handleStore(from, pkt)
	case wire.PacketEmailDelete:
		e.handleEmailDelete(from, pkt)
	case wire.PacketIndexDelete:
		e.handleIndexDelete(from, pkt)
	case wire.PacketDeletionQuery:
		e.handleDeletionQuery(from, pkt)
	case wire.PacketFindClosePeers:
		e.handleFindClosePeers(from, pkt)
	case wire.PacketPeerListRequest:
		e.handlePeerListRequest(from, pkt)
	default:
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
	}
}

// addNode is the add_node(packet.from) side effect every inbound
// handler performs before serving its request. from is silently
// dropped if it doesn't parse as a self-describing address.
func (e *Engine) addNode(from string) {
	id, err := identity.ParseAddress(from)
	if err != nil {
		return
	}
	e.Table.Add(id, from)
}

func (e *Engine) reply(dest string, cid wire.CID, status wire.Status, data []byte) {
	resp := wire.Response{CID: cid, Status: status, Data: data}
	payload := wire.EncodeResponse(resp)
	packet := buildEnvelope(wire.PacketResponse, defaultRequestVersion, cid, payload)
	if err := e.transport.Send(dest, packet); err != nil {
		e.log.Warningf("dht: reply to %s: %v", dest, err)
	}
}

func classFor(tag wire.ContentClass) store.Class {
	switch tag {
	case wire.ClassIndex:
		return store.ClassIndex
	case wire.ClassEncryptedEmail:
		return store.ClassEncryptedEmail
	case wire.ClassDirectoryEntry:
		return store.ClassDirectoryEntry
	default:
		return ""
	}
}

// handleRetrieve serves Q packets: look up key in the content store for
// the requested class.
func (e *Engine) handleRetrieve(from string, pkt wire.CommunicationPacket) {
	e.addNode(from)
	req, err := wire.DecodeRetrieveRequest(pkt.Payload)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}
	class := classFor(req.DataType)
	if class == "" {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}
	data, err := e.store.Get(class, req.Key)
	if err == store.ErrNotFound {
		e.reply(from, pkt.CID, wire.StatusNoDataFound, nil)
		return
	}
	if err != nil {
		e.log.Warningf("dht: retrieve: store error: %v", err)
		e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
		return
	}
	e.reply(from, pkt.CID, wire.StatusOK, data)
}

// handleStore serves S packets. Acceptance policy is left open by
// spec.md §4.6 ("the protocol requires returning a response"); this
// implementation always accepts and persists (see DESIGN.md for the
// Open Question decision), unlike the reference's unconditional
// NO_DISK_SPACE. The request's class isn't carried by StoreRequest
// itself; per the reference protocol, the leading byte of Data names it
// (see wire.EncodeStorePayload).
func (e *Engine) handleStore(from string, pkt wire.CommunicationPacket) {
	e.addNode(from)
	req, err := wire.DecodeStoreRequest(pkt.Payload)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}
	class, body, err := wire.DecodeStorePayload(req.Data)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}

	switch class {
	case wire.ClassEncryptedEmail:
		pkt2, err := wire.DecodeEmailEncryptedPacket(body)
		if err != nil {
			e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
			return
		}
		// The DHT key is derived, never trusted from the wire, per
		// spec.md §8's testable property tying it to the ciphertext.
		pkt2.DHTKey = wire.EncryptedEmailKey(pkt2.Ciphertext)
		if err := e.store.Put(store.ClassEncryptedEmail, pkt2.DHTKey, wire.EncodeEmailEncryptedPacket(pkt2)); err != nil {
			e.log.Warningf("dht: store: %v", err)
			e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
			return
		}
	case wire.ClassIndex:
		idx, err := wire.DecodeIndexPacket(body)
		if err != nil {
			e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
			return
		}
		if err := e.store.Put(store.ClassIndex, idx.Owner, body); err != nil {
			e.log.Warningf("dht: store: %v", err)
			e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
			return
		}
	default:
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}
	e.reply(from, pkt.CID, wire.StatusOK, nil)
}

// handleEmailDelete serves D packets: erase an encrypted email after
// verifying the supplied delete-auth hashes to the packet's stored
// delete-verification hash.
func (e *Engine) handleEmailDelete(from string, pkt wire.CommunicationPacket) {
	e.addNode(from)
	req, err := wire.DecodeEmailDeleteRequest(pkt.Payload)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}
	raw, err := e.store.Get(store.ClassEncryptedEmail, req.Key)
	if err == store.ErrNotFound {
		e.reply(from, pkt.CID, wire.StatusNoDataFound, nil)
		return
	}
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
		return
	}
	stored, err := wire.DecodeEmailEncryptedPacket(raw)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
		return
	}
	if sha256.Sum256(req.DeleteAuth[:]) != stored.DeleteVerificationHash {
		e.reply(from, pkt.CID, wire.StatusNoDataFound, nil)
		return
	}
	if err := e.store.Delete(store.ClassEncryptedEmail, req.Key); err != nil {
		e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
		return
	}
	e.reply(from, pkt.CID, wire.StatusOK, nil)
}

// handleIndexDelete serves X packets: per-entry, verify
// (key, delete-auth) against the stored index's entries and remove
// those that match.
func (e *Engine) handleIndexDelete(from string, pkt wire.CommunicationPacket) {
	e.addNode(from)
	req, err := wire.DecodeIndexDeleteRequest(pkt.Payload)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}
	raw, err := e.store.Get(store.ClassIndex, req.Owner)
	if err == store.ErrNotFound {
		e.reply(from, pkt.CID, wire.StatusNoDataFound, nil)
		return
	}
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
		return
	}
	idx, err := wire.DecodeIndexPacket(raw)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
		return
	}

	remaining := idx.Entries[:0:0]
	removed := 0
	for _, entry := range idx.Entries {
		match := false
		for _, del := range req.Entries {
			if entry.Key == del.Key && sha256.Sum256(del.DeleteAuth[:]) == entry.DeleteVerificationHash {
				match = true
				break
			}
		}
		if match {
			removed++
			continue
		}
		remaining = append(remaining, entry)
	}
	if removed == 0 {
		e.reply(from, pkt.CID, wire.StatusNoDataFound, nil)
		return
	}
	idx.Entries = remaining
	if err := e.store.Put(store.ClassIndex, req.Owner, wire.EncodeIndexPacket(idx)); err != nil {
		e.reply(from, pkt.CID, wire.StatusGeneralError, nil)
		return
	}
	e.reply(from, pkt.CID, wire.StatusOK, nil)
}

// handleDeletionQuery serves Y packets: a read-only probe for whether
// a stored artifact under key still exists. Left as a pure existence
// probe rather than a delete-authorizing side effect (see DESIGN.md
// Open Question decision).
func (e *Engine) handleDeletionQuery(from string, pkt wire.CommunicationPacket) {
	e.addNode(from)
	req, err := wire.DecodeDeletionQuery(pkt.Payload)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}
	if _, err := e.store.Get(store.ClassEncryptedEmail, req.Key); err == nil {
		e.reply(from, pkt.CID, wire.StatusNoDataFound, nil) // still present: not deleted
		return
	}
	e.reply(from, pkt.CID, wire.StatusOK, nil) // absent: deletion confirmed
}

// handleFindClosePeers serves F packets: reply with the closest known
// nodes (default policy) or the full table, per Engine.ReturnAllOnFindClose.
func (e *Engine) handleFindClosePeers(from string, pkt wire.CommunicationPacket) {
	e.addNode(from)
	req, err := wire.DecodeFindClosePeersRequest(pkt.Payload)
	if err != nil {
		e.reply(from, pkt.CID, wire.StatusInvalidPacket, nil)
		return
	}
	e.replyPeerList(from, pkt, req.Key)
}

// handlePeerListRequest serves A packets: a bare ask for known peers,
// answered the same way as F but without biasing toward a target key.
func (e *Engine) handlePeerListRequest(from string, pkt wire.CommunicationPacket) {
	e.addNode(from)
	e.replyPeerList(from, pkt, e.Self)
}

func (e *Engine) replyPeerList(from string, pkt wire.CommunicationPacket, biasKey Hash) {
	var nodes []NodeRecord
	if e.ReturnAllOnFindClose {
		nodes = e.Table.Unlocked()
	} else {
		nodes = e.Table.ClosestTo(biasKey, 20, false)
	}

	identities := make([]identity.Identity, 0, len(nodes))
	for _, n := range nodes {
		identities = append(identities, n.Identity)
	}
	pl := wire.PeerList{Tag: wire.PeerListP, Version: pkt.Version, Peers: identities}
	e.reply(from, pkt.CID, wire.StatusOK, wire.EncodePeerList(pl))
}
