package email

import (
	"path/filepath"
	"testing"

	"github.com/polistern/pboted/internal/identity"
)

func TestEncodeDecodeLocalIdentityRoundTrips(t *testing.T) {
	li, err := GenerateLocalIdentity("alice", identity.KeyTypePair{
		Crypto: identity.CryptoX25519, Sign: identity.SignEdDSA25519,
		Symm: identity.SymmAES256, Hash: identity.HashSHA256,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	line := EncodeLocalIdentity(li)
	got, err := DecodeLocalIdentity(line)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != li.Name || !got.Identity.Equal(li.Identity) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, li)
	}
	if string(got.CryptoPriv) != string(li.CryptoPriv) || string(got.SigningPriv) != string(li.SigningPriv) {
		t.Fatal("private key round trip mismatch")
	}
}

func TestSaveLoadIdentitiesRoundTrips(t *testing.T) {
	a, _ := GenerateLocalIdentity("alice", identity.KeyTypePair{
		Crypto: identity.CryptoECDH256, Sign: identity.SignECDSA256,
		Symm: identity.SymmAES256, Hash: identity.HashSHA256,
	})
	b, _ := GenerateLocalIdentity("", identity.KeyTypePair{
		Crypto: identity.CryptoX25519, Sign: identity.SignEdDSA25519,
		Symm: identity.SymmAES256, Hash: identity.HashSHA256,
	})

	path := filepath.Join(t.TempDir(), "identities", "identities.txt")
	if err := SaveIdentities(path, []LocalIdentity{a, b}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadIdentities(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(got))
	}
	if got[0].Name != "alice" || got[1].Name != "" {
		t.Errorf("unexpected names: %q, %q", got[0].Name, got[1].Name)
	}
	if !got[0].Identity.Equal(a.Identity) || !got[1].Identity.Equal(b.Identity) {
		t.Error("loaded identities don't match saved ones")
	}
}

func TestLoadIdentitiesMissingFileYieldsNone(t *testing.T) {
	got, err := LoadIdentities(filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil slice, got %v", got)
	}
}
