package identity

import (
	"crypto/sha256"
	"fmt"
)

// Identity is a parsed Bote address: an encryption keypair's public half,
// a signing keypair's public half, and the key-type combination that
// disambiguates their lengths.
type Identity struct {
	Pair       KeyTypePair
	CryptoPub  []byte
	SigningPub []byte
}

// New builds an Identity from raw public key bytes, validating their
// lengths against pair.
func New(pair KeyTypePair, cryptoPub, signingPub []byte) (Identity, error) {
	if !pair.valid() {
		return Identity{}, fmt.Errorf("identity: unsupported key-type pair %+v", pair)
	}
	cl, err := cryptoPubLen(pair.Crypto)
	if err != nil {
		return Identity{}, err
	}
	sl, err := signPubLen(pair.Sign)
	if err != nil {
		return Identity{}, err
	}
	if len(cryptoPub) != cl {
		return Identity{}, fmt.Errorf("identity: crypto pub key must be %d bytes, got %d", cl, len(cryptoPub))
	}
	if len(signingPub) != sl {
		return Identity{}, fmt.Errorf("identity: signing pub key must be %d bytes, got %d", sl, len(signingPub))
	}
	return Identity{
		Pair:       pair,
		CryptoPub:  append([]byte(nil), cryptoPub...),
		SigningPub: append([]byte(nil), signingPub...),
	}, nil
}

// canonicalBytes is the crypto-pub || signing-pub concatenation used both
// as the v0 wire form and as the input to Hash. Both v0- and
// v1-encoded addresses referring to the same keypair hash identically.
func (id Identity) canonicalBytes() []byte {
	out := make([]byte, 0, len(id.CryptoPub)+len(id.SigningPub))
	out = append(out, id.CryptoPub...)
	out = append(out, id.SigningPub...)
	return out
}

// Hash returns the 32-byte identity hash: SHA-256 over the identity's
// canonical encoding.
func (id Identity) Hash() [32]byte {
	return sha256.Sum256(id.canonicalBytes())
}

// Equal reports whether two identities carry the same keys and key types.
func (id Identity) Equal(other Identity) bool {
	return id.Pair == other.Pair &&
		bytesEqual(id.CryptoPub, other.CryptoPub) &&
		bytesEqual(id.SigningPub, other.SigningPub)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
