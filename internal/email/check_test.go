package email

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/polistern/pboted/internal/dht"
	"github.com/polistern/pboted/internal/identity"
	"github.com/polistern/pboted/internal/paths"
	"github.com/polistern/pboted/internal/store"
	"github.com/polistern/pboted/internal/transport"
	"github.com/polistern/pboted/internal/wire"
)

func newTestChecker(t *testing.T) (*Checker, *Mailbox, *store.Store) {
	t.Helper()
	dir := t.TempDir()

	mailbox, err := NewMailbox(dir)
	if err != nil {
		t.Fatalf("new mailbox: %v", err)
	}
	tr := transport.New(discardOverlay{}, 8)
	st := store.New(filepath.Join(dir, "content"))
	engine := dht.New(dht.Hash{}, tr, st, nil)

	return NewChecker(mailbox, engine, st, nil), mailbox, st
}

// seedLocalMail plants an index entry and its encrypted email directly in
// the local content store, as if a store handler had received them from a
// peer, so CheckRound's local-store merge path has something to find.
func seedLocalMail(t *testing.T, st *store.Store, recipient LocalIdentity, mime string) wire.IndexEntry {
	t.Helper()

	deleteAuth, err := newDeleteAuth()
	if err != nil {
		t.Fatalf("new delete auth: %v", err)
	}
	hash := deleteVerificationHash(deleteAuth)

	plainPkt := wire.EmailUnencryptedPacket{DeleteAuth: deleteAuth, MIME: []byte(mime)}
	plainBytes := wire.EncodeEmailUnencryptedPacket(plainPkt)

	env, err := identity.EncryptFor(recipient.Identity.Pair.Crypto, recipient.Identity.CryptoPub, plainBytes)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	ciphertext := env.Encode()
	dhtKey := wire.EncryptedEmailKey(ciphertext)

	encPkt := wire.EmailEncryptedPacket{
		DHTKey:                 dhtKey,
		DeleteVerificationHash: hash,
		KeyType:                byte(recipient.Identity.Pair.Crypto),
		Ciphertext:             ciphertext,
	}
	if err := st.Put(store.ClassEncryptedEmail, dhtKey, wire.EncodeEmailEncryptedPacket(encPkt)); err != nil {
		t.Fatalf("put encrypted email: %v", err)
	}

	entry := wire.IndexEntry{Key: dhtKey, DeleteVerificationHash: hash}
	idxPkt := wire.IndexPacket{Owner: recipient.Identity.Hash(), Entries: []wire.IndexEntry{entry}}
	if err := st.Put(store.ClassIndex, idxPkt.Owner, wire.EncodeIndexPacket(idxPkt)); err != nil {
		t.Fatalf("put index: %v", err)
	}
	return entry
}

func TestCheckRoundDeliversAndPurgesLocalCopy(t *testing.T) {
	recipient, err := GenerateLocalIdentity("carol", identity.PairECDH256ECDSA256)
	if err != nil {
		t.Fatalf("generate recipient: %v", err)
	}
	c, mailbox, st := newTestChecker(t)
	entry := seedLocalMail(t, st, recipient, "From: bob\r\nTo: carol\r\n\r\nhello\r\n")

	c.CheckRound(recipient)

	data, err := readInbox(t, mailbox, entry)
	if err != nil {
		t.Fatalf("expected verified mail delivered to inbox: %v", err)
	}
	if string(data) != "From: bob\r\nTo: carol\r\n\r\nhello\r\n" {
		t.Fatalf("unexpected inbox contents: %q", data)
	}

	if _, err := st.Get(store.ClassEncryptedEmail, entry.Key); err != store.ErrNotFound {
		t.Fatalf("expected local encrypted-email copy purged after delivery, got err=%v", err)
	}
}

func TestCheckRoundIgnoresMailForOtherIdentities(t *testing.T) {
	recipient, err := GenerateLocalIdentity("carol", identity.PairECDH256ECDSA256)
	if err != nil {
		t.Fatalf("generate recipient: %v", err)
	}
	stranger, err := GenerateLocalIdentity("dave", identity.PairECDH256ECDSA256)
	if err != nil {
		t.Fatalf("generate stranger: %v", err)
	}
	c, mailbox, st := newTestChecker(t)
	entry := seedLocalMail(t, st, recipient, "From: bob\r\nTo: carol\r\n\r\nhello\r\n")

	c.CheckRound(stranger)

	if _, err := readInbox(t, mailbox, entry); err == nil {
		t.Fatal("expected no mail delivered for an identity the email wasn't addressed to")
	}
	if _, err := st.Get(store.ClassEncryptedEmail, entry.Key); err != nil {
		t.Fatalf("expected the encrypted email to remain in the store untouched, got %v", err)
	}
}

func readInbox(t *testing.T, mailbox *Mailbox, entry wire.IndexEntry) ([]byte, error) {
	t.Helper()
	filename := fmt.Sprintf("%x.eml", entry.Key)
	return os.ReadFile(mailbox.path(paths.InboxDir, filename))
}
