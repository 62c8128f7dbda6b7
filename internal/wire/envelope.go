// Package wire implements pboted's on-the-wire packet codec: the
// communication envelope and the typed sub-packets it carries, per
// spec.md §3-4.1. All multi-byte integers are big-endian.
package wire

import "encoding/binary"

// PacketType is the single-character type tag opening a communication
// packet's fixed header.
type PacketType byte

const (
	PacketRelay             PacketType = 'R' // reserved; not implemented
	PacketRelayReturn       PacketType = 'K' // reserved; not implemented
	PacketResponse          PacketType = 'N'
	PacketPeerListRequest   PacketType = 'A'
	PacketRetrieveRequest   PacketType = 'Q'
	PacketDeletionQuery     PacketType = 'Y'
	PacketStoreRequest      PacketType = 'S'
	PacketEmailDelete       PacketType = 'D'
	PacketIndexDelete       PacketType = 'X'
	PacketFindClosePeers    PacketType = 'F'
)

// ContentClass is the single-character tag identifying which of the
// three content families a request or record concerns.
type ContentClass byte

const (
	ClassIndex          ContentClass = 'I'
	ClassEncryptedEmail ContentClass = 'E'
	ClassDirectoryEntry ContentClass = 'C'
)

// ValidClass reports whether c is one of the three known content
// classes.
func ValidClass(c ContentClass) bool {
	switch c {
	case ClassIndex, ClassEncryptedEmail, ClassDirectoryEntry:
		return true
	default:
		return false
	}
}

// Prefix opens every on-wire communication packet.
var Prefix = [4]byte{0x6D, 0x30, 0x52, 0xE9}

// CIDSize is the length in bytes of a request-correlation identifier.
const CIDSize = 32

// CID is a 32-byte request-correlation identifier.
type CID [CIDSize]byte

// SupportedVersion reports whether v is one of the two accepted protocol
// versions.
func SupportedVersion(v byte) bool { return v == 4 || v == 5 }

// CommunicationPacket is the outermost envelope: prefix(4) ‖ type(1) ‖
// version(1) ‖ cid(32) ‖ payload.
type CommunicationPacket struct {
	Type    PacketType
	Version byte
	CID     CID
	Payload []byte
}

// headerLen is prefix + type + version + cid.
const headerLen = 4 + 1 + 1 + CIDSize

// Encode serializes p to its wire form.
func (p CommunicationPacket) Encode() []byte {
	out := make([]byte, headerLen+len(p.Payload))
	copy(out[0:4], Prefix[:])
	out[4] = byte(p.Type)
	out[5] = p.Version
	copy(out[6:6+CIDSize], p.CID[:])
	copy(out[headerLen:], p.Payload)
	return out
}

// Decode parses a communication packet from buf. It rejects a buffer
// missing the fixed prefix, truncated before the end of the CID, or
// carrying a protocol version outside {4, 5}. It does not validate the
// type tag against the known set — callers that need UNKNOWN_TYPE
// detection should check KnownType(p.Type) after a successful Decode,
// since an unrecognized type still yields a well-formed envelope that
// the dispatcher must answer with INVALID_PACKET (spec.md §4.6).
func Decode(buf []byte) (CommunicationPacket, error) {
	if len(buf) < headerLen {
		return CommunicationPacket{}, ErrTruncated
	}
	if buf[0] != Prefix[0] || buf[1] != Prefix[1] || buf[2] != Prefix[2] || buf[3] != Prefix[3] {
		return CommunicationPacket{}, ErrBadPrefix
	}
	version := buf[5]
	if !SupportedVersion(version) {
		return CommunicationPacket{}, ErrUnsupportedVersion
	}
	var p CommunicationPacket
	p.Type = PacketType(buf[4])
	p.Version = version
	copy(p.CID[:], buf[6:6+CIDSize])
	p.Payload = append([]byte(nil), buf[headerLen:]...)
	return p, nil
}

// KnownType reports whether t is one of the type tags spec.md §3
// defines, including the reserved-but-unimplemented relay variants.
func KnownType(t PacketType) bool {
	switch t {
	case PacketRelay, PacketRelayReturn, PacketResponse, PacketPeerListRequest,
		PacketRetrieveRequest, PacketDeletionQuery, PacketStoreRequest,
		PacketEmailDelete, PacketIndexDelete, PacketFindClosePeers:
		return true
	default:
		return false
	}
}

func putUint16(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func getUint16(b []byte) uint16    { return binary.BigEndian.Uint16(b) }
func putUint32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func getUint32(b []byte) uint32    { return binary.BigEndian.Uint32(b) }
