package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// This file is the concrete default implementation of the
// "Cryptographic collaborator" spec.md §6 names as an external boundary
// (key-pair generation, ECIES-style hybrid encryption, SHA-256,
// ECDSA/EdDSA signatures): callers that need the real algorithms use
// this package directly rather than through an injected interface,
// since pboted has no second crypto backend to swap in — the boundary
// exists so the DHT/wire/store layers never import crypto/ecdh directly.

// curveFor maps a CryptoKind to its stdlib ECDH curve. X25519 is handled
// separately since crypto/ecdh.X25519 uses a different key encoding.
func curveFor(k CryptoKind) (ecdh.Curve, error) {
	switch k {
	case CryptoECDH256:
		return ecdh.P256(), nil
	case CryptoECDH521:
		return ecdh.P521(), nil
	default:
		return nil, fmt.Errorf("identity: crypto kind %d has no ECDH curve", k)
	}
}

// ecdhPublicKeyBytes converts a canonical (uncompressed, no 0x04 prefix,
// fixed-width X‖Y) public key blob, as stored on Identity.CryptoPub, into
// the form crypto/ecdh expects (0x04-prefixed SEC1 encoding).
func ecdhPublicKeyBytes(curve ecdh.Curve, raw []byte) ([]byte, error) {
	if len(raw)%2 == 1 && raw[0] == 0x04 {
		return raw, nil
	}
	out := make([]byte, 0, len(raw)+1)
	out = append(out, 0x04)
	out = append(out, raw...)
	return out, nil
}

// canonicalECDHPub strips the 0x04 SEC1 prefix crypto/ecdh always emits,
// matching the fixed-width X‖Y form Identity.CryptoPub carries.
func canonicalECDHPub(pub *ecdh.PublicKey) []byte {
	b := pub.Bytes()
	if len(b) > 0 && b[0] == 0x04 {
		return b[1:]
	}
	return b
}

// GenerateKeyPair creates a fresh (private, public) pair for pair's
// crypto kind, returning the public half in Identity.CryptoPub's
// canonical encoding and the private scalar's raw bytes.
func GenerateKeyPair(kind CryptoKind) (priv, pub []byte, err error) {
	if kind == CryptoX25519 {
		key, err := ecdh.X25519().GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("identity: generate x25519 key: %w", err)
		}
		return key.Bytes(), key.PublicKey().Bytes(), nil
	}
	curve, err := curveFor(kind)
	if err != nil {
		return nil, nil, err
	}
	key, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: generate ecdh key: %w", err)
	}
	return key.Bytes(), canonicalECDHPub(key.PublicKey()), nil
}

// EncryptedEnvelope is the ECIES-style hybrid ciphertext produced by
// EncryptFor: an ephemeral public key, the AES-CBC IV, and the
// ciphertext itself.
type EncryptedEnvelope struct {
	EphemeralPub []byte
	IV           []byte
	Ciphertext   []byte
}

const aesKeySize = 32 // AES-256

// Encode serializes an EncryptedEnvelope to the flat byte blob stored as
// an EmailEncryptedPacket's ciphertext: eph_pub_len(u16 BE) ‖ eph_pub ‖
// iv(16, fixed to aes.BlockSize) ‖ ciphertext.
func (env EncryptedEnvelope) Encode() []byte {
	out := make([]byte, 0, 2+len(env.EphemeralPub)+len(env.IV)+len(env.Ciphertext))
	lenPrefix := make([]byte, 2)
	lenPrefix[0] = byte(len(env.EphemeralPub) >> 8)
	lenPrefix[1] = byte(len(env.EphemeralPub))
	out = append(out, lenPrefix...)
	out = append(out, env.EphemeralPub...)
	out = append(out, env.IV...)
	out = append(out, env.Ciphertext...)
	return out
}

// DecodeEncryptedEnvelope reverses Encode.
func DecodeEncryptedEnvelope(b []byte) (EncryptedEnvelope, error) {
	if len(b) < 2 {
		return EncryptedEnvelope{}, fmt.Errorf("identity: encrypted envelope truncated before header")
	}
	ephLen := int(b[0])<<8 | int(b[1])
	off := 2
	if len(b) < off+ephLen+aes.BlockSize {
		return EncryptedEnvelope{}, fmt.Errorf("identity: encrypted envelope truncated")
	}
	env := EncryptedEnvelope{
		EphemeralPub: append([]byte(nil), b[off:off+ephLen]...),
		IV:           append([]byte(nil), b[off+ephLen:off+ephLen+aes.BlockSize]...),
		Ciphertext:   append([]byte(nil), b[off+ephLen+aes.BlockSize:]...),
	}
	return env, nil
}

// EncryptFor performs ECIES-style hybrid encryption of plaintext under
// the recipient's crypto public key, per spec.md step "Encrypt the
// packet bytes for the recipient's crypto public key under the
// sender's key-type scheme (ECIES-like hybrid)": an ephemeral ECDH
// keypair is generated, its shared secret with the recipient's public
// key is passed through HKDF-SHA256 to derive an AES-256 key, and the
// plaintext is encrypted with AES-256-CBC per spec.md §6's named
// symmetric primitive.
func EncryptFor(kind CryptoKind, recipientPub, plaintext []byte) (EncryptedEnvelope, error) {
	sharedSecret, ephPub, err := ecdhExchange(kind, recipientPub, nil)
	if err != nil {
		return EncryptedEnvelope{}, err
	}

	key, err := deriveKey(sharedSecret)
	if err != nil {
		return EncryptedEnvelope{}, err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return EncryptedEnvelope{}, fmt.Errorf("identity: generate iv: %w", err)
	}
	ciphertext, err := aesCBCEncrypt(key, iv, plaintext)
	if err != nil {
		return EncryptedEnvelope{}, err
	}

	return EncryptedEnvelope{EphemeralPub: ephPub, IV: iv, Ciphertext: ciphertext}, nil
}

// DecryptWith reverses EncryptFor using the recipient's private key.
func DecryptWith(kind CryptoKind, recipientPriv []byte, env EncryptedEnvelope) ([]byte, error) {
	sharedSecret, _, err := ecdhExchange(kind, env.EphemeralPub, recipientPriv)
	if err != nil {
		return nil, err
	}
	key, err := deriveKey(sharedSecret)
	if err != nil {
		return nil, err
	}
	return aesCBCDecrypt(key, env.IV, env.Ciphertext)
}

// ecdhExchange computes a shared secret. If localPriv is nil, a fresh
// ephemeral keypair is generated and its public half returned alongside
// the secret (the encrypt side); otherwise localPriv is used directly
// against peerPub (the decrypt side, where peerPub is the sender's
// ephemeral public key).
func ecdhExchange(kind CryptoKind, peerPub, localPriv []byte) (secret, localPub []byte, err error) {
	if kind == CryptoX25519 {
		curve := ecdh.X25519()
		peer, err := curve.NewPublicKey(peerPub)
		if err != nil {
			return nil, nil, fmt.Errorf("identity: parse x25519 peer key: %w", err)
		}
		var local *ecdh.PrivateKey
		if localPriv == nil {
			local, err = curve.GenerateKey(rand.Reader)
		} else {
			local, err = curve.NewPrivateKey(localPriv)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("identity: x25519 key: %w", err)
		}
		secret, err = local.ECDH(peer)
		if err != nil {
			return nil, nil, fmt.Errorf("identity: x25519 exchange: %w", err)
		}
		return secret, local.PublicKey().Bytes(), nil
	}

	curve, err := curveFor(kind)
	if err != nil {
		return nil, nil, err
	}
	peerBytes, err := ecdhPublicKeyBytes(curve, peerPub)
	if err != nil {
		return nil, nil, err
	}
	peer, err := curve.NewPublicKey(peerBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: parse ecdh peer key: %w", err)
	}
	var local *ecdh.PrivateKey
	if localPriv == nil {
		local, err = curve.GenerateKey(rand.Reader)
	} else {
		local, err = curve.NewPrivateKey(localPriv)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("identity: ecdh key: %w", err)
	}
	secret, err = local.ECDH(peer)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: ecdh exchange: %w", err)
	}
	return secret, canonicalECDHPub(local.PublicKey()), nil
}

// deriveKey stretches an ECDH shared secret into an AES-256 key via
// HKDF-SHA256, with no salt and a fixed context info string binding the
// derivation to this package's use.
func deriveKey(secret []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nil, []byte("pboted-hybrid-encryption"))
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("identity: derive key: %w", err)
	}
	return key, nil
}

func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("identity: aes cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("identity: ciphertext not a multiple of block size")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("identity: aes cipher: %w", err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	padLen := blockSize - len(b)%blockSize
	pad := make([]byte, padLen)
	for i := range pad {
		pad[i] = byte(padLen)
	}
	return append(append([]byte(nil), b...), pad...)
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("identity: empty padded buffer")
	}
	padLen := int(b[len(b)-1])
	if padLen == 0 || padLen > len(b) {
		return nil, fmt.Errorf("identity: invalid pkcs7 padding")
	}
	return b[:len(b)-padLen], nil
}

// Sign produces a detached signature over message using the signing
// scheme sign selects. For ECDSA schemes, priv is the raw big-endian
// scalar; for EdDSA, priv is the 32-byte seed.
func Sign(sign SignKind, priv, message []byte) ([]byte, error) {
	switch sign {
	case SignECDSA256:
		return signECDSA(elliptic.P256(), priv, message)
	case SignECDSA521:
		return signECDSA(elliptic.P521(), priv, message)
	case SignEdDSA25519:
		if len(priv) != ed25519.SeedSize {
			return nil, fmt.Errorf("identity: ed25519 seed must be %d bytes", ed25519.SeedSize)
		}
		return ed25519.Sign(ed25519.NewKeyFromSeed(priv), message), nil
	default:
		return nil, fmt.Errorf("identity: unknown sign kind %d", sign)
	}
}

// Verify checks a Sign-produced signature against pub (the canonical
// public key bytes carried on Identity.SigningPub).
func Verify(sign SignKind, pub, message, sig []byte) (bool, error) {
	switch sign {
	case SignECDSA256:
		return verifyECDSA(elliptic.P256(), pub, message, sig)
	case SignECDSA521:
		return verifyECDSA(elliptic.P521(), pub, message, sig)
	case SignEdDSA25519:
		if len(pub) != ed25519.PublicKeySize {
			return false, fmt.Errorf("identity: ed25519 public key must be %d bytes", ed25519.PublicKeySize)
		}
		return ed25519.Verify(pub, message, sig), nil
	default:
		return false, fmt.Errorf("identity: unknown sign kind %d", sign)
	}
}

// GenerateSignKeyPair creates a fresh signing keypair for sign, returning
// the private half in the form Sign expects and the public half in
// Identity.SigningPub's canonical fixed-width encoding.
func GenerateSignKeyPair(sign SignKind) (priv, pub []byte, err error) {
	switch sign {
	case SignECDSA256:
		return generateECDSAKeyPair(elliptic.P256())
	case SignECDSA521:
		return generateECDSAKeyPair(elliptic.P521())
	case SignEdDSA25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("identity: generate ed25519 key: %w", err)
		}
		return priv.Seed(), pub, nil
	default:
		return nil, nil, fmt.Errorf("identity: unknown sign kind %d", sign)
	}
}

// fixedWidth left-pads b with zeroes to n bytes, matching elliptic
// curve coordinate encoding conventions.
func fixedWidth(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func generateECDSAKeyPair(curve elliptic.Curve) (priv, pub []byte, err error) {
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: generate ecdsa key: %w", err)
	}
	coordLen := (curve.Params().BitSize + 7) / 8
	x := fixedWidth(key.X.Bytes(), coordLen)
	y := fixedWidth(key.Y.Bytes(), coordLen)
	pub = append(append([]byte(nil), x...), y...)
	priv = fixedWidth(key.D.Bytes(), coordLen)
	return priv, pub, nil
}

func signECDSA(curve elliptic.Curve, priv, message []byte) ([]byte, error) {
	d := new(big.Int).SetBytes(priv)
	key := &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{Curve: curve}, D: d}
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(priv)
	digest := sha512.Sum512(message)
	return ecdsa.SignASN1(rand.Reader, key, digest[:])
}

func verifyECDSA(curve elliptic.Curve, pub, message, sig []byte) (bool, error) {
	half := len(pub) / 2
	if half == 0 {
		return false, fmt.Errorf("identity: empty ecdsa public key")
	}
	x := new(big.Int).SetBytes(pub[:half])
	y := new(big.Int).SetBytes(pub[half:])
	key := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	digest := sha512.Sum512(message)
	return ecdsa.VerifyASN1(key, digest[:], sig), nil
}
