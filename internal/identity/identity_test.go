package identity

import (
	"bytes"
	"testing"
)

func fill(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestParseAddressV0RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pair KeyTypePair
	}{
		{"ecdh256/ecdsa256", PairECDH256ECDSA256},
		{"ecdh521/ecdsa521", PairECDH521ECDSA521},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl, _ := cryptoPubLen(c.pair.Crypto)
			sl, _ := signPubLen(c.pair.Sign)
			id, err := New(c.pair, fill(cl, 1), fill(sl, 2))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			text := EncodeAddressV0(id)
			got, err := ParseAddressV0(text)
			if err != nil {
				t.Fatalf("ParseAddressV0: %v", err)
			}
			if !got.Equal(id) {
				t.Fatalf("round-trip mismatch: got %+v want %+v", got, id)
			}
		})
	}
}

func TestParseAddressV1RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pair KeyTypePair
	}{
		{"ecdh256/ecdsa256", PairECDH256ECDSA256},
		{"ecdh521/ecdsa521", PairECDH521ECDSA521},
		{"x25519/eddsa", PairX25519EdDSA},
	}
	for _, c := range cases {
		for _, b32 := range []bool{true, false} {
			cl, _ := cryptoPubLen(c.pair.Crypto)
			sl, _ := signPubLen(c.pair.Sign)
			id, err := New(c.pair, fill(cl, 3), fill(sl, 7))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			text := EncodeAddressV1(id, b32)
			got, err := ParseAddressV1(text)
			if err != nil {
				t.Fatalf("%s ParseAddressV1(%q): %v", c.name, text, err)
			}
			if !got.Equal(id) {
				t.Fatalf("%s round-trip mismatch", c.name)
			}

			// Re-serializing the inner identity bytes reproduces the
			// input after the v1 header, per spec.md §8.
			raw := EncodeRaw(id)
			gotRaw := EncodeRaw(got)
			if !bytes.Equal(raw, gotRaw) {
				t.Fatalf("inner blob mismatch")
			}
		}
	}
}

func TestDecodeRawTruncated(t *testing.T) {
	if _, _, err := DecodeRaw(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, _, err := DecodeRaw([]byte{FormatTag, byte(CryptoECDH256), byte(SignECDSA256), byte(SymmAES256), byte(HashSHA256)}); err == nil {
		t.Fatal("expected error for truncated key material")
	}
}

func TestParseAddressDispatch(t *testing.T) {
	cl, _ := cryptoPubLen(PairECDH256ECDSA256.Crypto)
	sl, _ := signPubLen(PairECDH256ECDSA256.Sign)
	id, _ := New(PairECDH256ECDSA256, fill(cl, 9), fill(sl, 11))

	if _, err := ParseAddress(EncodeAddressV0(id)); err != nil {
		t.Fatalf("v0 dispatch: %v", err)
	}
	if _, err := ParseAddress(EncodeAddressV1(id, true)); err != nil {
		t.Fatalf("v1 b32 dispatch: %v", err)
	}
}
