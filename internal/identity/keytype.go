// Package identity implements the Bote address formats: the raw v0
// encoding and the self-describing, tag-prefixed v1 encoding, plus the
// identity-hash derivation shared by both.
package identity

import "fmt"

// CryptoKind selects the key-exchange scheme of an identity's encryption
// keypair.
type CryptoKind byte

// SignKind selects the signature scheme of an identity's signing keypair.
type SignKind byte

// SymmKind selects the symmetric cipher used alongside the key-exchange
// scheme for hybrid encryption.
type SymmKind byte

// HashKind selects the hash function used for identity/content hashing.
type HashKind byte

const (
	CryptoECDH256 CryptoKind = 1
	CryptoECDH521 CryptoKind = 2
	CryptoX25519  CryptoKind = 3
)

const (
	SignECDSA256   SignKind = 1
	SignECDSA521   SignKind = 2
	SignEdDSA25519 SignKind = 3
)

const (
	SymmAES256 SymmKind = 1
)

const (
	HashSHA256 HashKind = 1
)

// cryptoPubLen returns the serialized public-key length for a crypto kind.
func cryptoPubLen(k CryptoKind) (int, error) {
	switch k {
	case CryptoECDH256:
		return 64, nil
	case CryptoECDH521:
		return 132, nil
	case CryptoX25519:
		return 32, nil
	default:
		return 0, fmt.Errorf("identity: unknown crypto kind %d", k)
	}
}

func signPubLen(k SignKind) (int, error) {
	switch k {
	case SignECDSA256:
		return 64, nil
	case SignECDSA521:
		return 132, nil
	case SignEdDSA25519:
		return 32, nil
	default:
		return 0, fmt.Errorf("identity: unknown sign kind %d", k)
	}
}

// KeyTypePair names one of the three supported (crypto, sign) combinations.
type KeyTypePair struct {
	Crypto CryptoKind
	Sign   SignKind
	Symm   SymmKind
	Hash   HashKind
}

// Supported v1 key-type combinations, per spec.md's "three supported
// key-type combinations".
var (
	PairECDH256ECDSA256 = KeyTypePair{CryptoECDH256, SignECDSA256, SymmAES256, HashSHA256}
	PairECDH521ECDSA521 = KeyTypePair{CryptoECDH521, SignECDSA521, SymmAES256, HashSHA256}
	PairX25519EdDSA     = KeyTypePair{CryptoX25519, SignEdDSA25519, SymmAES256, HashSHA256}
)

func (p KeyTypePair) valid() bool {
	return p == PairECDH256ECDSA256 || p == PairECDH521ECDSA521 || p == PairX25519EdDSA
}
