package wire

import "crypto/sha256"

// EncryptedEmailKey computes the DHT content key an encrypted-email
// blob is stored/retrieved under: SHA-256(BE16(len(ciphertext)) ‖
// ciphertext). Both the Send Round (computing the key before storing)
// and a Store handler (verifying the key it was asked to store under)
// use this same derivation, per spec.md §4.7 step 7 and §8's testable
// property tying stored keys to this formula.
func EncryptedEmailKey(ciphertext []byte) [32]byte {
	lenPrefix := make([]byte, 2)
	putUint16(lenPrefix, uint16(len(ciphertext)))
	h := sha256.New()
	h.Write(lenPrefix)
	h.Write(ciphertext)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// IndexEntry is one row of an IndexPacket: the encrypted-email key it
// points at, the delete-verification hash guarding removal, and the
// time it was added.
type IndexEntry struct {
	Key                    [32]byte
	DeleteVerificationHash [32]byte
	Timestamp              int32
}

const indexEntryLen = 32 + 32 + 4

// IndexPacket is a mailbox listing: an owner identity hash and its
// entries. This is the content stored under content class 'I', keyed by
// the owner's identity hash.
type IndexPacket struct {
	Owner   [32]byte
	Entries []IndexEntry
}

// EncodeIndexPacket serializes an IndexPacket to its stored/wire form:
// owner(32) ‖ count(u16 BE) ‖ entries.
func EncodeIndexPacket(p IndexPacket) []byte {
	out := make([]byte, 0, 32+2+len(p.Entries)*indexEntryLen)
	out = append(out, p.Owner[:]...)
	cnt := make([]byte, 2)
	putUint16(cnt, uint16(len(p.Entries)))
	out = append(out, cnt...)
	for _, e := range p.Entries {
		out = append(out, e.Key[:]...)
		out = append(out, e.DeleteVerificationHash[:]...)
		ts := make([]byte, 4)
		putUint32(ts, uint32(e.Timestamp))
		out = append(out, ts...)
	}
	return out
}

func DecodeIndexPacket(b []byte) (IndexPacket, error) {
	if len(b) < 34 {
		return IndexPacket{}, ErrTruncated
	}
	var p IndexPacket
	copy(p.Owner[:], b[0:32])
	count := int(getUint16(b[32:34]))
	off := 34

	p.Entries = make([]IndexEntry, 0, count)
	for i := 0; i < count; i++ {
		if off+indexEntryLen > len(b) {
			return p, ErrLengthMismatch
		}
		var e IndexEntry
		copy(e.Key[:], b[off:off+32])
		copy(e.DeleteVerificationHash[:], b[off+32:off+64])
		e.Timestamp = int32(getUint32(b[off+64 : off+indexEntryLen]))
		off += indexEntryLen
		p.Entries = append(p.Entries, e)
	}
	return p, nil
}

// EmailUnencryptedPacket is the plaintext form of an email before ECIES
// encryption (Send Round) or after decryption (Check Round): the
// delete-auth secret authorizing later removal, followed by the raw
// MIME bytes. The delete-auth travels here, inside the encrypted
// envelope, rather than in a MIME header, so only the recipient who can
// decrypt the packet ever learns it.
type EmailUnencryptedPacket struct {
	DeleteAuth [32]byte
	MIME       []byte
}

// EncodeEmailUnencryptedPacket serializes p: delete_auth(32) ‖ mime.
func EncodeEmailUnencryptedPacket(p EmailUnencryptedPacket) []byte {
	out := make([]byte, 32+len(p.MIME))
	copy(out[0:32], p.DeleteAuth[:])
	copy(out[32:], p.MIME)
	return out
}

// DecodeEmailUnencryptedPacket reverses EncodeEmailUnencryptedPacket.
func DecodeEmailUnencryptedPacket(b []byte) (EmailUnencryptedPacket, error) {
	if len(b) < 32 {
		return EmailUnencryptedPacket{}, ErrTruncated
	}
	var p EmailUnencryptedPacket
	copy(p.DeleteAuth[:], b[0:32])
	p.MIME = append([]byte(nil), b[32:]...)
	return p, nil
}

// EmailEncryptedPacket is the stored/wire form of an encrypted email:
// the DHT key it's addressed by, the delete-verification hash, the key
// type used to encrypt it, the time it was stored, and the ciphertext
// itself.
type EmailEncryptedPacket struct {
	DHTKey                 [32]byte
	DeleteVerificationHash [32]byte
	KeyType                byte
	StoredTime             uint32
	Ciphertext             []byte
}

const emailEncryptedHeaderLen = 32 + 32 + 1 + 4 + 2

// EncodeEmailEncryptedPacket serializes p: key(32) ‖
// delete_verification_hash(32) ‖ key_type(1) ‖ stored_time(u32 BE) ‖
// ct_len(u16 BE) ‖ ciphertext.
func EncodeEmailEncryptedPacket(p EmailEncryptedPacket) []byte {
	out := make([]byte, emailEncryptedHeaderLen+len(p.Ciphertext))
	copy(out[0:32], p.DHTKey[:])
	copy(out[32:64], p.DeleteVerificationHash[:])
	out[64] = p.KeyType
	putUint32(out[65:69], p.StoredTime)
	putUint16(out[69:71], uint16(len(p.Ciphertext)))
	copy(out[emailEncryptedHeaderLen:], p.Ciphertext)
	return out
}

func DecodeEmailEncryptedPacket(b []byte) (EmailEncryptedPacket, error) {
	if len(b) < emailEncryptedHeaderLen {
		return EmailEncryptedPacket{}, ErrTruncated
	}
	var p EmailEncryptedPacket
	copy(p.DHTKey[:], b[0:32])
	copy(p.DeleteVerificationHash[:], b[32:64])
	p.KeyType = b[64]
	p.StoredTime = getUint32(b[65:69])
	ctLen := int(getUint16(b[69:71]))
	rest := b[emailEncryptedHeaderLen:]
	if ctLen > len(rest) {
		p.Ciphertext = append([]byte(nil), rest...)
		return p, ErrLengthMismatch
	}
	p.Ciphertext = append([]byte(nil), rest[:ctLen]...)
	return p, nil
}
