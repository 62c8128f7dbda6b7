package email

import (
	"time"

	"github.com/polistern/pboted/internal/dht"
	"github.com/polistern/pboted/internal/emailmeta"
	"github.com/polistern/pboted/internal/identity"
	"github.com/polistern/pboted/internal/store"
	"github.com/polistern/pboted/internal/wire"
)

// Logger is the narrow logging boundary the Email Worker needs,
// mirroring dht.Logger's shape so both packages can share a
// *logging.Logger without either importing the other's package for it.
type Logger interface {
	Warningf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warningf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})    {}
func (nopLogger) Debugf(string, ...interface{})   {}

// Sender drives the Send Round (spec.md §4.7 steps 1-10): single
// goroutine, one pass over the outbox per invocation.
type Sender struct {
	mailbox *Mailbox
	meta    *emailmeta.Store
	book    AddressBook
	engine  *dht.Engine
	store   *store.Store
	log     Logger
	now     func() time.Time
}

// NewSender builds a Sender. now defaults to time.Now if nil, overridable
// by tests for deterministic index-entry timestamps.
func NewSender(mailbox *Mailbox, meta *emailmeta.Store, book AddressBook, engine *dht.Engine, st *store.Store, log Logger, now func() time.Time) *Sender {
	if log == nil {
		log = nopLogger{}
	}
	if now == nil {
		now = time.Now
	}
	return &Sender{mailbox: mailbox, meta: meta, book: book, engine: engine, store: st, log: log, now: now}
}

// SendRound scans the outbox once and attempts to send every composed
// file it finds, per spec.md §4.7 step 1.
func (s *Sender) SendRound() {
	names, err := s.mailbox.OutboxFiles()
	if err != nil {
		s.log.Warningf("email: send: list outbox: %v", err)
		return
	}
	for _, name := range names {
		s.sendOne(name)
	}
}

func (s *Sender) markSkip(name string, rec emailmeta.Record) {
	rec.Skip = true
	if err := s.meta.Put(name, rec); err != nil {
		s.log.Warningf("email: send: mark skip %s: %v", name, err)
	}
}

// sendOne carries a single outbox file through spec.md §4.7 steps 2-10.
// A parse, address, ID-generation, encryption or DHT store failure marks
// the file skip and returns; a failure reading the file or reading or
// writing its metadata returns without marking it. Either way the file
// stays in the outbox and is retried on the next round rather than
// treated as fatal, per spec.md §7's "user-visible failure" policy.
func (s *Sender) sendOne(name string) {
	raw, err := s.mailbox.ReadOutbox(name)
	if err != nil {
		s.log.Warningf("email: send: read %s: %v", name, err)
		return
	}
	rec, _, err := s.meta.Get(name)
	if err != nil {
		s.log.Warningf("email: send: meta get %s: %v", name, err)
		return
	}

	parsed, err := parseMessage(raw)
	if err != nil {
		s.log.Warningf("email: send: parse %s: %v", name, err)
		s.markSkip(name, rec)
		return
	}
	if err := parsed.resolveAddresses(s.book); err != nil {
		s.log.Warningf("email: send: resolve addresses %s: %v", name, err)
		s.markSkip(name, rec)
		return
	}

	recipient, err := identity.ParseAddress(parsed.To)
	if err != nil {
		s.log.Warningf("email: send: parse To %s: %v", name, err)
		s.markSkip(name, rec)
		return
	}
	if _, err := identity.ParseAddress(parsed.From); err != nil {
		s.log.Warningf("email: send: parse From %s: %v", name, err)
		s.markSkip(name, rec)
		return
	}

	messageID, err := ensureMessageID(rec.MessageID)
	if err != nil {
		s.log.Warningf("email: send: message-id %s: %v", name, err)
		s.markSkip(name, rec)
		return
	}
	if rec.MessageID == "" {
		deleteAuth, err := newDeleteAuth()
		if err != nil {
			s.log.Warningf("email: send: delete-auth %s: %v", name, err)
			s.markSkip(name, rec)
			return
		}
		rec.DeleteAuth = deleteAuth
	}
	rec.MessageID = messageID
	rec.DeleteVerificationHash = deleteVerificationHash(rec.DeleteAuth)
	if err := s.meta.Put(name, rec); err != nil {
		s.log.Warningf("email: send: persist meta %s: %v", name, err)
		return
	}

	plainPkt := buildUnencryptedPacket(parsed, messageID, rec.DeleteAuth, rec.DeleteVerificationHash)
	plainBytes := wire.EncodeEmailUnencryptedPacket(plainPkt)

	env, err := identity.EncryptFor(recipient.Pair.Crypto, recipient.CryptoPub, plainBytes)
	if err != nil {
		s.log.Warningf("email: send: encrypt %s: %v", name, err)
		s.markSkip(name, rec)
		return
	}
	ciphertext := env.Encode()
	dhtKey := wire.EncryptedEmailKey(ciphertext)
	rec.DHTKey = dhtKey
	if err := s.meta.Put(name, rec); err != nil {
		s.log.Warningf("email: send: persist dht key %s: %v", name, err)
		return
	}

	encPkt := wire.EmailEncryptedPacket{
		DHTKey:                 dhtKey,
		DeleteVerificationHash: rec.DeleteVerificationHash,
		KeyType:                byte(recipient.Pair.Crypto),
		StoredTime:             stampSentTime(s.now()),
		Ciphertext:             ciphertext,
	}
	encBytes := wire.EncodeEmailEncryptedPacket(encPkt)

	responders := s.engine.Store(dht.Hash(dhtKey), wire.ClassEncryptedEmail, nil, encBytes)
	if len(responders) == 0 {
		s.log.Warningf("email: send: no store responders for %s, skipping", name)
		s.markSkip(name, rec)
		return
	}
	if err := s.store.Put(store.ClassEncryptedEmail, dhtKey, encBytes); err != nil {
		s.log.Warningf("email: send: local store %s: %v", name, err)
	}

	recipientHash := recipient.Hash()
	idxPkt := wire.IndexPacket{
		Owner: recipientHash,
		Entries: []wire.IndexEntry{{
			Key:                    dhtKey,
			DeleteVerificationHash: rec.DeleteVerificationHash,
			Timestamp:              int32(s.now().Unix()),
		}},
	}
	idxBytes := wire.EncodeIndexPacket(idxPkt)

	idxResponders := s.engine.Store(dht.Hash(recipientHash), wire.ClassIndex, nil, idxBytes)
	if len(idxResponders) == 0 {
		s.log.Warningf("email: send: no index-store responders for %s, skipping", name)
		s.markSkip(name, rec)
		return
	}
	if err := s.store.Put(store.ClassIndex, recipientHash, idxBytes); err != nil {
		s.log.Warningf("email: send: local index store %s: %v", name, err)
	}

	if err := s.mailbox.MoveToSent(name); err != nil {
		s.log.Warningf("email: send: move to sent %s: %v", name, err)
		return
	}
	if err := s.meta.Delete(name); err != nil {
		s.log.Warningf("email: send: clear meta %s: %v", name, err)
	}
}
