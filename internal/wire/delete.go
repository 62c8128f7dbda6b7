package wire

// EmailDeleteRequest is the payload of a PacketEmailDelete ('D') packet:
// an encrypted-email DHT key plus the delete-auth token authorizing its
// removal.
type EmailDeleteRequest struct {
	CID          CID
	Key          [32]byte
	DeleteAuth   [32]byte
}

const emailDeleteLen = CIDSize + 32 + 32

func EncodeEmailDeleteRequest(r EmailDeleteRequest) []byte {
	out := make([]byte, emailDeleteLen)
	copy(out[0:CIDSize], r.CID[:])
	copy(out[CIDSize:CIDSize+32], r.Key[:])
	copy(out[CIDSize+32:], r.DeleteAuth[:])
	return out
}

func DecodeEmailDeleteRequest(b []byte) (EmailDeleteRequest, error) {
	if len(b) < emailDeleteLen {
		return EmailDeleteRequest{}, ErrTruncated
	}
	var r EmailDeleteRequest
	copy(r.CID[:], b[0:CIDSize])
	copy(r.Key[:], b[CIDSize:CIDSize+32])
	copy(r.DeleteAuth[:], b[CIDSize+32:emailDeleteLen])
	return r, nil
}

// IndexDeleteEntry names one (key, delete-auth) pair to remove from an
// index packet.
type IndexDeleteEntry struct {
	Key        [32]byte
	DeleteAuth [32]byte
}

// IndexDeleteRequest is the payload of a PacketIndexDelete ('X') packet:
// the owning index's DHT key (the recipient identity hash) and the set
// of entries to remove.
//
// Open Question (spec.md §9): the reference implementation's entry loop
// uses a decrementing index where an incrementing one is clearly
// intended, silently skipping every other entry. This implementation
// walks entries with i++ and is covered by TestIndexDeleteAllEntriesParsed
// to guard the regression.
type IndexDeleteRequest struct {
	CID     CID
	Owner   [32]byte
	Entries []IndexDeleteEntry
}

const indexDeleteEntryLen = 32 + 32

func EncodeIndexDeleteRequest(r IndexDeleteRequest) []byte {
	out := make([]byte, 0, CIDSize+32+2+len(r.Entries)*indexDeleteEntryLen)
	out = append(out, r.CID[:]...)
	out = append(out, r.Owner[:]...)
	cnt := make([]byte, 2)
	putUint16(cnt, uint16(len(r.Entries)))
	out = append(out, cnt...)
	for _, e := range r.Entries {
		out = append(out, e.Key[:]...)
		out = append(out, e.DeleteAuth[:]...)
	}
	return out
}

func DecodeIndexDeleteRequest(b []byte) (IndexDeleteRequest, error) {
	if len(b) < CIDSize+32+2 {
		return IndexDeleteRequest{}, ErrTruncated
	}
	var r IndexDeleteRequest
	copy(r.CID[:], b[0:CIDSize])
	copy(r.Owner[:], b[CIDSize:CIDSize+32])
	off := CIDSize + 32
	count := int(getUint16(b[off : off+2]))
	off += 2

	r.Entries = make([]IndexDeleteEntry, 0, count)
	for i := 0; i < count; i++ {
		if len(b) < off+indexDeleteEntryLen {
			return r, ErrLengthMismatch
		}
		var e IndexDeleteEntry
		copy(e.Key[:], b[off:off+32])
		copy(e.DeleteAuth[:], b[off+32:off+indexDeleteEntryLen])
		off += indexDeleteEntryLen
		r.Entries = append(r.Entries, e)
	}
	return r, nil
}

// DeletionQuery is the payload of a PacketDeletionQuery ('Y') packet: a
// read-only probe for whether a deletion record exists for Key.
type DeletionQuery struct {
	CID CID
	Key [32]byte
}

const deletionQueryLen = CIDSize + 32

func EncodeDeletionQuery(q DeletionQuery) []byte {
	out := make([]byte, deletionQueryLen)
	copy(out[0:CIDSize], q.CID[:])
	copy(out[CIDSize:], q.Key[:])
	return out
}

func DecodeDeletionQuery(b []byte) (DeletionQuery, error) {
	if len(b) < deletionQueryLen {
		return DeletionQuery{}, ErrTruncated
	}
	var q DeletionQuery
	copy(q.CID[:], b[0:CIDSize])
	copy(q.Key[:], b[CIDSize:deletionQueryLen])
	return q, nil
}
