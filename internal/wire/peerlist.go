package wire

import "github.com/polistern/pboted/internal/identity"

// PeerListTag distinguishes the two peer-list payload shapes that ride
// inside a Response's data ('L' or 'P'; the reference protocol uses both
// tags interchangeably to mean "list of encoded identities").
type PeerListTag byte

const (
	PeerListL PeerListTag = 'L'
	PeerListP PeerListTag = 'P'
)

// PeerListV4EntryLen is the fixed size of a version-4 peer-list entry: a
// 384-byte identity blob. Bytes 384..386 of the historical wire format
// carry a key-type field the reference implementation always zeroes; per
// spec.md §9 Open Questions, this implementation documents but does not
// interpret those trailing bytes for v4 (v4 identities are always the
// two ECDH256/ECDH521-based combinations, whose canonical blob never
// exceeds 384 bytes; the field is reserved padding here).
const PeerListV4EntryLen = 384

// PeerList is the payload of a peer-list response: tag(1) ‖ version(1)
// ‖ count(u16 BE) ‖ entries. Version 4 entries are fixed 384-byte
// identity blobs; version 5 entries are variable-length, parsed
// incrementally via identity.RawLen.
type PeerList struct {
	Tag     PeerListTag
	Version byte
	Peers   []identity.Identity
}

// EncodePeerList serializes a peer list. For version 4 the identity's
// raw v1 inner blob is padded (or, if it happens to already be exactly
// PeerListV4EntryLen, used as-is) to the fixed entry size; for version 5
// entries are written back-to-back at their natural self-describing
// length.
func EncodePeerList(pl PeerList) []byte {
	out := make([]byte, 0, 4+len(pl.Peers)*64)
	out = append(out, byte(pl.Tag), pl.Version)
	cnt := make([]byte, 2)
	putUint16(cnt, uint16(len(pl.Peers)))
	out = append(out, cnt...)

	for _, id := range pl.Peers {
		blob := identity.EncodeRaw(id)
		if pl.Version == 4 {
			entry := make([]byte, PeerListV4EntryLen)
			copy(entry, blob)
			out = append(out, entry...)
		} else {
			out = append(out, blob...)
		}
	}
	return out
}

// DecodePeerList parses a peer-list payload. In version 4, a malformed
// fixed-size entry is skipped; in version 5, an entry that fails to
// parse ends decoding with ErrTruncated. A truncated payload yields
// ErrTruncated in both versions.
func DecodePeerList(b []byte) (PeerList, error) {
	if len(b) < 4 {
		return PeerList{}, ErrTruncated
	}
	pl := PeerList{Tag: PeerListTag(b[0]), Version: b[1]}
	count := int(getUint16(b[2:4]))
	off := 4

	pl.Peers = make([]identity.Identity, 0, count)
	for i := 0; i < count; i++ {
		if pl.Version == 4 {
			if off+PeerListV4EntryLen > len(b) {
				return pl, ErrTruncated
			}
			entry := b[off : off+PeerListV4EntryLen]
			off += PeerListV4EntryLen
			id, _, err := identity.DecodeRaw(entry)
			if err != nil {
				continue // padded/zeroed slot or unrecognized key type; skip
			}
			pl.Peers = append(pl.Peers, id)
			continue
		}

		// Version 5: self-describing length.
		n, err := identity.RawLen(b[off:])
		if err != nil {
			return pl, ErrTruncated
		}
		id, _, err := identity.DecodeRaw(b[off : off+n])
		if err != nil {
			return pl, ErrTruncated
		}
		off += n
		pl.Peers = append(pl.Peers, id)
	}
	return pl, nil
}
