package wire

// Response is the sub-packet payload of a PacketResponse ('N') packet:
// cid(32) ‖ status(1) ‖ length(u16 BE) ‖ data(length).
//
// The CID here duplicates the envelope's CID (the reference wire format
// carries it twice: once in the fixed header, once in the payload) so
// that a Response can be decoded standalone from a payload slice.
type Response struct {
	CID    CID
	Status Status
	Data   []byte
}

const responseHeaderLen = CIDSize + 1 + 2

// EncodeResponse serializes r into a payload suitable for
// CommunicationPacket.Payload.
func EncodeResponse(r Response) []byte {
	out := make([]byte, responseHeaderLen+len(r.Data))
	copy(out[0:CIDSize], r.CID[:])
	out[CIDSize] = byte(r.Status)
	putUint16(out[CIDSize+1:CIDSize+3], uint16(len(r.Data)))
	copy(out[responseHeaderLen:], r.Data)
	return out
}

// DecodeResponse parses a Response sub-packet. If the declared data
// length disagrees with the number of remaining bytes, it returns the
// best-effort parse (the bytes present, cut to the declared length when
// more follow; a short payload is kept as-is, not padded) alongside
// ErrLengthMismatch, per spec.md §4.1's non-fatal LENGTH_MISMATCH
// signal. A declared length of 0 is a valid empty payload, not a
// mismatch.
func DecodeResponse(b []byte) (Response, error) {
	if len(b) < responseHeaderLen {
		return Response{}, ErrTruncated
	}
	var r Response
	copy(r.CID[:], b[0:CIDSize])
	r.Status = Status(b[CIDSize])
	declared := int(getUint16(b[CIDSize+1 : CIDSize+3]))
	rest := b[responseHeaderLen:]

	if declared == len(rest) {
		r.Data = append([]byte(nil), rest...)
		return r, nil
	}

	if declared > len(rest) {
		// Truncated payload: take what's there and flag the mismatch.
		r.Data = append([]byte(nil), rest...)
		return r, ErrLengthMismatch
	}

	// declared < len(rest): extra trailing bytes present; keep only the
	// declared portion but still flag the mismatch.
	r.Data = append([]byte(nil), rest[:declared]...)
	return r, ErrLengthMismatch
}
