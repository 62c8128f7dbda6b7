package email

import (
	"testing"

	"github.com/polistern/pboted/internal/identity"
)

func TestGenerateLocalIdentityRoundTrips(t *testing.T) {
	li, err := GenerateLocalIdentity("alice", identity.PairECDH256ECDSA256)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if li.Name != "alice" {
		t.Fatalf("expected name alice, got %q", li.Name)
	}
	if len(li.CryptoPriv) == 0 || len(li.SigningPriv) == 0 {
		t.Fatal("expected non-empty private key material")
	}

	addr := identity.EncodeAddressV1(li.Identity, true)
	parsed, err := identity.ParseAddress(addr)
	if err != nil {
		t.Fatalf("parse round-tripped address: %v", err)
	}
	if !parsed.Equal(li.Identity) {
		t.Fatal("expected round-tripped identity to equal original")
	}
	if li.Hash() != parsed.Hash() {
		t.Fatal("expected LocalIdentity.Hash to match the parsed identity's hash")
	}
}

func TestGenerateLocalIdentityEachKeyTypePair(t *testing.T) {
	for _, pair := range []identity.KeyTypePair{
		identity.PairECDH256ECDSA256,
		identity.PairECDH521ECDSA521,
		identity.PairX25519EdDSA,
	} {
		if _, err := GenerateLocalIdentity("id", pair); err != nil {
			t.Fatalf("generate for %+v: %v", pair, err)
		}
	}
}
