package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/polistern/pboted/internal/identity"
)

func mkCID(seed byte) CID {
	var c CID
	for i := range c {
		c[i] = seed + byte(i)
	}
	return c
}

func TestEnvelopeRoundTrip(t *testing.T) {
	p := CommunicationPacket{
		Type:    PacketRetrieveRequest,
		Version: 5,
		CID:     mkCID(1),
		Payload: []byte("hello"),
	}
	got, err := Decode(p.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type != p.Type || got.Version != p.Version || got.CID != p.CID || !bytes.Equal(got.Payload, p.Payload) {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, p)
	}
}

func TestDecodeRejectsBadPrefix(t *testing.T) {
	buf := CommunicationPacket{Type: PacketResponse, Version: 4, CID: mkCID(2)}.Encode()
	buf[0] ^= 0xFF
	if _, err := Decode(buf); !errors.Is(err, ErrBadPrefix) {
		t.Fatalf("expected ErrBadPrefix, got %v", err)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	buf := CommunicationPacket{Type: PacketResponse, Version: 4, CID: mkCID(3)}.Encode()
	if _, err := Decode(buf[:len(buf)-10]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeUnknownTypeStillParses(t *testing.T) {
	// An unknown type tag is a well-formed envelope; the dispatcher (not
	// Decode) is responsible for answering INVALID_PACKET. This mirrors
	// spec.md §8 scenario 6.
	buf := CommunicationPacket{Type: PacketType(0xFF), Version: 4, CID: mkCID(4)}.Encode()
	p, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if KnownType(p.Type) {
		t.Fatalf("0xFF should not be a known type")
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	buf := CommunicationPacket{Type: PacketResponse, Version: 9, CID: mkCID(5)}.Encode()
	if _, err := Decode(buf); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	r := Response{CID: mkCID(6), Status: StatusOK, Data: []byte("payload-bytes")}
	got, err := DecodeResponse(EncodeResponse(r))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if got.CID != r.CID || got.Status != r.Status || !bytes.Equal(got.Data, r.Data) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestResponseEmptyPayloadIsNotMismatch(t *testing.T) {
	r := Response{CID: mkCID(7), Status: StatusNoDataFound}
	got, err := DecodeResponse(EncodeResponse(r))
	if err != nil {
		t.Fatalf("unexpected error for zero-length payload: %v", err)
	}
	if len(got.Data) != 0 {
		t.Fatalf("expected empty data, got %v", got.Data)
	}
}

func TestResponseLengthMismatchNonFatal(t *testing.T) {
	r := Response{CID: mkCID(8), Status: StatusOK, Data: []byte("0123456789")}
	buf := EncodeResponse(r)
	// Lie about the length: declare more than what follows.
	putUint16(buf[CIDSize+1:CIDSize+3], 9999)
	got, err := DecodeResponse(buf)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if !bytes.Equal(got.Data, r.Data) {
		t.Fatalf("expected best-effort data recovery, got %v", got.Data)
	}
}

func TestRetrieveRequestRoundTrip(t *testing.T) {
	r := RetrieveRequest{CID: mkCID(9), DataType: ClassEncryptedEmail, Key: [32]byte{1, 2, 3}}
	got, err := DecodeRetrieveRequest(EncodeRetrieveRequest(r))
	if err != nil {
		t.Fatalf("DecodeRetrieveRequest: %v", err)
	}
	if got != r {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, r)
	}
}

func TestRetrieveRequestInvalidClass(t *testing.T) {
	r := RetrieveRequest{CID: mkCID(10), DataType: 'Z', Key: [32]byte{9}}
	_, err := DecodeRetrieveRequest(EncodeRetrieveRequest(r))
	if !errors.Is(err, ErrInvalidPacket) {
		t.Fatalf("expected ErrInvalidPacket, got %v", err)
	}
}

func TestStoreRequestRoundTrip(t *testing.T) {
	r := StoreRequest{CID: mkCID(11), Hashcash: []byte("hc"), Data: []byte("ciphertext-bytes")}
	got, err := DecodeStoreRequest(EncodeStoreRequest(r))
	if err != nil {
		t.Fatalf("DecodeStoreRequest: %v", err)
	}
	if got.CID != r.CID || !bytes.Equal(got.Hashcash, r.Hashcash) || !bytes.Equal(got.Data, r.Data) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestIndexDeleteAllEntriesParsed(t *testing.T) {
	// Regression test for spec.md §9's Open Question: the reference
	// implementation's i-- typo skips every other entry. This decoder
	// must walk every entry.
	req := IndexDeleteRequest{
		CID:   mkCID(12),
		Owner: [32]byte{1},
		Entries: []IndexDeleteEntry{
			{Key: [32]byte{1}, DeleteAuth: [32]byte{2}},
			{Key: [32]byte{3}, DeleteAuth: [32]byte{4}},
			{Key: [32]byte{5}, DeleteAuth: [32]byte{6}},
		},
	}
	got, err := DecodeIndexDeleteRequest(EncodeIndexDeleteRequest(req))
	if err != nil {
		t.Fatalf("DecodeIndexDeleteRequest: %v", err)
	}
	if len(got.Entries) != len(req.Entries) {
		t.Fatalf("expected %d entries, got %d", len(req.Entries), len(got.Entries))
	}
	for i := range req.Entries {
		if got.Entries[i] != req.Entries[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got.Entries[i], req.Entries[i])
		}
	}
}

func TestDeletionQueryRoundTrip(t *testing.T) {
	q := DeletionQuery{CID: mkCID(13), Key: [32]byte{7}}
	got, err := DecodeDeletionQuery(EncodeDeletionQuery(q))
	if err != nil {
		t.Fatalf("DecodeDeletionQuery: %v", err)
	}
	if got != q {
		t.Fatalf("round-trip mismatch")
	}
}

func TestFindClosePeersRequestRoundTrip(t *testing.T) {
	r := FindClosePeersRequest{CID: mkCID(14), Key: [32]byte{8}}
	got, err := DecodeFindClosePeersRequest(EncodeFindClosePeersRequest(r))
	if err != nil {
		t.Fatalf("DecodeFindClosePeersRequest: %v", err)
	}
	if got != r {
		t.Fatalf("round-trip mismatch")
	}
}

func testIdentity(t *testing.T, pair identity.KeyTypePair, seed byte) identity.Identity {
	t.Helper()
	// Sizes mirror identity_test.go's fixtures.
	var cl, sl int
	switch pair {
	case identity.PairECDH256ECDSA256:
		cl, sl = 64, 64
	case identity.PairECDH521ECDSA521:
		cl, sl = 132, 132
	case identity.PairX25519EdDSA:
		cl, sl = 32, 32
	}
	cpub := make([]byte, cl)
	spub := make([]byte, sl)
	for i := range cpub {
		cpub[i] = seed + byte(i)
	}
	for i := range spub {
		spub[i] = seed + 100 + byte(i)
	}
	id, err := identity.New(pair, cpub, spub)
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	return id
}

func TestPeerListV5RoundTrip(t *testing.T) {
	peers := []identity.Identity{
		testIdentity(t, identity.PairECDH256ECDSA256, 1),
		testIdentity(t, identity.PairECDH521ECDSA521, 40),
		testIdentity(t, identity.PairX25519EdDSA, 90),
	}
	pl := PeerList{Tag: PeerListP, Version: 5, Peers: peers}
	got, err := DecodePeerList(EncodePeerList(pl))
	if err != nil {
		t.Fatalf("DecodePeerList: %v", err)
	}
	if len(got.Peers) != len(peers) {
		t.Fatalf("expected %d peers, got %d", len(peers), len(got.Peers))
	}
	for i := range peers {
		if !got.Peers[i].Equal(peers[i]) {
			t.Fatalf("peer %d mismatch", i)
		}
	}
}

func TestPeerListV4RoundTrip(t *testing.T) {
	peers := []identity.Identity{
		testIdentity(t, identity.PairECDH256ECDSA256, 5),
		testIdentity(t, identity.PairECDH256ECDSA256, 200),
	}
	pl := PeerList{Tag: PeerListL, Version: 4, Peers: peers}
	got, err := DecodePeerList(EncodePeerList(pl))
	if err != nil {
		t.Fatalf("DecodePeerList: %v", err)
	}
	if len(got.Peers) != len(peers) {
		t.Fatalf("expected %d peers, got %d", len(peers), len(got.Peers))
	}
	for i := range peers {
		if !got.Peers[i].Equal(peers[i]) {
			t.Fatalf("peer %d mismatch", i)
		}
	}
}

func TestIndexPacketRoundTrip(t *testing.T) {
	p := IndexPacket{
		Owner: [32]byte{1},
		Entries: []IndexEntry{
			{Key: [32]byte{2}, DeleteVerificationHash: [32]byte{3}, Timestamp: 1000},
			{Key: [32]byte{4}, DeleteVerificationHash: [32]byte{5}, Timestamp: 2000},
		},
	}
	got, err := DecodeIndexPacket(EncodeIndexPacket(p))
	if err != nil {
		t.Fatalf("DecodeIndexPacket: %v", err)
	}
	if got.Owner != p.Owner || len(got.Entries) != len(p.Entries) {
		t.Fatalf("round-trip mismatch")
	}
	for i := range p.Entries {
		if got.Entries[i] != p.Entries[i] {
			t.Fatalf("entry %d mismatch", i)
		}
	}
}

func TestEmailEncryptedPacketRoundTrip(t *testing.T) {
	p := EmailEncryptedPacket{
		DHTKey:                 [32]byte{1},
		DeleteVerificationHash: [32]byte{2},
		KeyType:                1,
		StoredTime:             1234567,
		Ciphertext:             []byte("some-ciphertext-bytes"),
	}
	got, err := DecodeEmailEncryptedPacket(EncodeEmailEncryptedPacket(p))
	if err != nil {
		t.Fatalf("DecodeEmailEncryptedPacket: %v", err)
	}
	if got.DHTKey != p.DHTKey || got.DeleteVerificationHash != p.DeleteVerificationHash ||
		got.KeyType != p.KeyType || got.StoredTime != p.StoredTime || !bytes.Equal(got.Ciphertext, p.Ciphertext) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestEncryptedEmailKeyIsDeterministicAndLengthSensitive(t *testing.T) {
	ct := []byte("some-ciphertext-bytes")
	k1 := EncryptedEmailKey(ct)
	k2 := EncryptedEmailKey(ct)
	if k1 != k2 {
		t.Fatal("expected deterministic key for the same ciphertext")
	}
	if EncryptedEmailKey([]byte("x")) == EncryptedEmailKey([]byte("y")) {
		t.Fatal("expected different single-byte ciphertexts to hash differently")
	}
}
