package wire

// RetrieveRequest is the payload of a PacketRetrieveRequest ('Q')
// packet: cid(32) ‖ data_type(1) ‖ key(32).
type RetrieveRequest struct {
	CID      CID
	DataType ContentClass
	Key      [32]byte
}

const retrieveRequestLen = CIDSize + 1 + 32

func EncodeRetrieveRequest(r RetrieveRequest) []byte {
	out := make([]byte, retrieveRequestLen)
	copy(out[0:CIDSize], r.CID[:])
	out[CIDSize] = byte(r.DataType)
	copy(out[CIDSize+1:], r.Key[:])
	return out
}

// DecodeRetrieveRequest parses a RetrieveRequest. A data_type outside
// {'I','E','C'} is reported as ErrInvalidPacket so the caller can answer
// with StatusInvalidPacket rather than misrouting the lookup.
func DecodeRetrieveRequest(b []byte) (RetrieveRequest, error) {
	if len(b) < retrieveRequestLen {
		return RetrieveRequest{}, ErrTruncated
	}
	var r RetrieveRequest
	copy(r.CID[:], b[0:CIDSize])
	r.DataType = ContentClass(b[CIDSize])
	copy(r.Key[:], b[CIDSize+1:retrieveRequestLen])
	if !ValidClass(r.DataType) {
		return r, ErrInvalidPacket
	}
	return r, nil
}
