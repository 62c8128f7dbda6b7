// Package email implements the Email Worker: the Check Round and Send
// Round pipelines that turn DHT verbs into mailbox operations, per
// spec.md §4.7.
package email

import (
	"fmt"

	"github.com/polistern/pboted/internal/dht"
	"github.com/polistern/pboted/internal/identity"
)

// LocalIdentity pairs a parsed Bote address with the private halves of
// its keypairs. The DHT/wire layers only ever see identity.Identity
// (public data); private key material lives here, at the boundary the
// Email Worker needs it: decrypting inbound mail, and, in a future
// signature-verification pass, signing outbound mail.
type LocalIdentity struct {
	Name        string
	Identity    identity.Identity
	CryptoPriv  []byte
	SigningPriv []byte
}

// Hash returns the identity hash used as this identity's index-packet
// owner key and DHT routing key.
func (li LocalIdentity) Hash() dht.Hash {
	return dht.Hash(li.Identity.Hash())
}

// GenerateLocalIdentity creates a fresh local identity for pair, useful
// for provisioning a new mailbox and for tests.
func GenerateLocalIdentity(name string, pair identity.KeyTypePair) (LocalIdentity, error) {
	cryptoPriv, cryptoPub, err := identity.GenerateKeyPair(pair.Crypto)
	if err != nil {
		return LocalIdentity{}, fmt.Errorf("email: generate crypto keypair: %w", err)
	}
	signingPriv, signingPub, err := identity.GenerateSignKeyPair(pair.Sign)
	if err != nil {
		return LocalIdentity{}, fmt.Errorf("email: generate signing keypair: %w", err)
	}
	id, err := identity.New(pair, cryptoPub, signingPub)
	if err != nil {
		return LocalIdentity{}, err
	}
	return LocalIdentity{Name: name, Identity: id, CryptoPriv: cryptoPriv, SigningPriv: signingPriv}, nil
}
