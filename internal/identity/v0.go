package identity

import (
	"encoding/base64"
	"fmt"
)

// ParseAddressV0 parses the raw v0 form: base64 of (crypto public key ‖
// signing public key), with the decoded length disambiguating which of
// the two v0-supported key-type pairs was used.
func ParseAddressV0(s string) (Identity, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// I2P-Bote addresses commonly travel in the URL-safe alphabet too.
		raw, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return Identity{}, fmt.Errorf("identity: v0 address is not valid base64: %w", err)
		}
	}
	return DecodeAddressV0(raw)
}

// DecodeAddressV0 disambiguates and decodes raw v0 identity bytes.
func DecodeAddressV0(raw []byte) (Identity, error) {
	l256, _ := cryptoPubLen(CryptoECDH256)
	s256, _ := signPubLen(SignECDSA256)
	l521, _ := cryptoPubLen(CryptoECDH521)
	s521, _ := signPubLen(SignECDSA521)

	switch len(raw) {
	case l256 + s256:
		return New(PairECDH256ECDSA256, raw[:l256], raw[l256:])
	case l521 + s521:
		return New(PairECDH521ECDSA521, raw[:l521], raw[l521:])
	default:
		return Identity{}, fmt.Errorf("identity: v0 address has unrecognized length %d", len(raw))
	}
}

// SerializeV0 returns the raw v0 form (crypto public key ‖ signing public
// key); the caller base64-encodes it for the wire text form.
func SerializeV0(id Identity) []byte {
	return id.canonicalBytes()
}

// EncodeAddressV0 returns the base64 text form of a v0 address.
func EncodeAddressV0(id Identity) string {
	return base64.StdEncoding.EncodeToString(SerializeV0(id))
}
