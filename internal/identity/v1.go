package identity

import (
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"
)

// FormatTag is the single format-tag byte that opens every v1 inner blob.
const FormatTag = 1

// EncodeRaw produces the self-describing inner blob shared by the v1 text
// address and by wire-format v5 peer-list entries:
//
//	format-tag(1) ‖ crypto-kind(1) ‖ sign-kind(1) ‖ symm-kind(1) ‖ hash-kind(1) ‖ identity-bytes
func EncodeRaw(id Identity) []byte {
	out := make([]byte, 0, 5+len(id.CryptoPub)+len(id.SigningPub))
	out = append(out, FormatTag, byte(id.Pair.Crypto), byte(id.Pair.Sign), byte(id.Pair.Symm), byte(id.Pair.Hash))
	out = append(out, id.CryptoPub...)
	out = append(out, id.SigningPub...)
	return out
}

// DecodeRaw parses a self-describing inner blob from the front of b,
// returning the identity and the number of bytes it consumed. This is
// used both for v1 text addresses and for wire-format v5 peer-list
// entries, which are parsed "incrementally using the identity's
// self-describing length" (spec.md §4.1).
func DecodeRaw(b []byte) (Identity, int, error) {
	if len(b) < 5 {
		return Identity{}, 0, fmt.Errorf("identity: raw blob truncated before header")
	}
	if b[0] != FormatTag {
		return Identity{}, 0, fmt.Errorf("identity: unsupported format tag %d", b[0])
	}
	pair := KeyTypePair{
		Crypto: CryptoKind(b[1]),
		Sign:   SignKind(b[2]),
		Symm:   SymmKind(b[3]),
		Hash:   HashKind(b[4]),
	}
	if !pair.valid() {
		return Identity{}, 0, fmt.Errorf("identity: unsupported key-type combination %+v", pair)
	}
	cl, err := cryptoPubLen(pair.Crypto)
	if err != nil {
		return Identity{}, 0, err
	}
	sl, err := signPubLen(pair.Sign)
	if err != nil {
		return Identity{}, 0, err
	}
	need := 5 + cl + sl
	if len(b) < need {
		return Identity{}, 0, fmt.Errorf("identity: raw blob truncated: need %d bytes, have %d", need, len(b))
	}
	id, err := New(pair, b[5:5+cl], b[5+cl:need])
	if err != nil {
		return Identity{}, 0, err
	}
	return id, need, nil
}

// RawLen returns the number of bytes DecodeRaw would consume from b
// without materializing the identity, or an error if the header is
// truncated or names an unsupported combination.
func RawLen(b []byte) (int, error) {
	_, n, err := DecodeRaw(b)
	return n, err
}

// Destination returns the overlay destination string an identity is
// addressed by: the base64 form of its v1 self-describing blob. The
// reference protocol's Bote address doubles as its I2P destination
// once split by key role, so no separate address type is needed here.
func Destination(id Identity) string {
	return EncodeAddressV1(id, false)
}

// v1 prefixes select the base encoding of the inner blob.
const (
	prefixBase32 = "b32."
	prefixBase64 = "b64."
)

// ParseAddressV1 parses a v1 address: a dotted prefix ("b32." or "b64.")
// followed by the base-encoded inner blob (see EncodeRaw).
func ParseAddressV1(s string) (Identity, error) {
	var raw []byte
	var err error
	switch {
	case strings.HasPrefix(s, prefixBase32):
		raw, err = base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(s[len(prefixBase32):]))
	case strings.HasPrefix(s, prefixBase64):
		raw, err = base64.RawStdEncoding.DecodeString(s[len(prefixBase64):])
	default:
		return Identity{}, fmt.Errorf("identity: v1 address missing b32./b64. prefix")
	}
	if err != nil {
		return Identity{}, fmt.Errorf("identity: v1 address is not validly encoded: %w", err)
	}
	id, n, err := DecodeRaw(raw)
	if err != nil {
		return Identity{}, err
	}
	if n != len(raw) {
		return Identity{}, fmt.Errorf("identity: v1 address has %d trailing bytes", len(raw)-n)
	}
	return id, nil
}

// EncodeAddressV1 renders an identity as a v1 text address using the
// requested base encoding ("b32." or "b64.").
func EncodeAddressV1(id Identity, base32Form bool) string {
	raw := EncodeRaw(id)
	if base32Form {
		return prefixBase32 + strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw))
	}
	return prefixBase64 + base64.RawStdEncoding.EncodeToString(raw)
}

// ParseAddress accepts either the v0 (bare base64) or v1 (dotted-prefix)
// form, dispatching on the presence of the v1 prefix.
func ParseAddress(s string) (Identity, error) {
	if strings.HasPrefix(s, prefixBase32) || strings.HasPrefix(s, prefixBase64) {
		return ParseAddressV1(s)
	}
	return ParseAddressV0(s)
}
