package wire

// EncodeStorePayload prepends the single-byte content-class tag that
// disambiguates a StoreRequest's opaque Data field, since the request
// itself carries no class of its own: data[0] names the class, the
// remainder is the class's own encoded packet (EmailEncryptedPacket for
// 'E', IndexPacket for 'I').
func EncodeStorePayload(class ContentClass, data []byte) []byte {
	out := make([]byte, 1+len(data))
	out[0] = byte(class)
	copy(out[1:], data)
	return out
}

// DecodeStorePayload reverses EncodeStorePayload.
func DecodeStorePayload(b []byte) (ContentClass, []byte, error) {
	if len(b) < 1 {
		return 0, nil, ErrTruncated
	}
	return ContentClass(b[0]), b[1:], nil
}

// StoreRequest is the payload of a PacketStoreRequest ('S') packet:
// cid(32) ‖ hc_length(u16 BE) ‖ hashcash(hc_length) ‖ length(u16 BE) ‖
// data(length).
type StoreRequest struct {
	CID      CID
	Hashcash []byte
	Data     []byte
}

func EncodeStoreRequest(r StoreRequest) []byte {
	out := make([]byte, 0, CIDSize+2+len(r.Hashcash)+2+len(r.Data))
	out = append(out, r.CID[:]...)
	hcLen := make([]byte, 2)
	putUint16(hcLen, uint16(len(r.Hashcash)))
	out = append(out, hcLen...)
	out = append(out, r.Hashcash...)
	dLen := make([]byte, 2)
	putUint16(dLen, uint16(len(r.Data)))
	out = append(out, dLen...)
	out = append(out, r.Data...)
	return out
}

func DecodeStoreRequest(b []byte) (StoreRequest, error) {
	if len(b) < CIDSize+2 {
		return StoreRequest{}, ErrTruncated
	}
	var r StoreRequest
	copy(r.CID[:], b[0:CIDSize])
	off := CIDSize

	hcLen := int(getUint16(b[off : off+2]))
	off += 2
	if len(b) < off+hcLen+2 {
		return StoreRequest{}, ErrTruncated
	}
	r.Hashcash = append([]byte(nil), b[off:off+hcLen]...)
	off += hcLen

	dLen := int(getUint16(b[off : off+2]))
	off += 2
	if len(b) < off+dLen {
		r.Data = append([]byte(nil), b[off:]...)
		return r, ErrLengthMismatch
	}
	r.Data = append([]byte(nil), b[off:off+dLen]...)
	return r, nil
}
