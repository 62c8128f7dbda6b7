package email

import (
	"crypto/sha256"
	"fmt"

	"github.com/polistern/pboted/internal/dht"
	"github.com/polistern/pboted/internal/identity"
	"github.com/polistern/pboted/internal/store"
	"github.com/polistern/pboted/internal/wire"
)

// Checker drives the Check Round (spec.md §4.7 steps 1-4) for one local
// identity; the supervisor starts one Checker loop per identity.
type Checker struct {
	mailbox *Mailbox
	engine  *dht.Engine
	store   *store.Store
	log     Logger
}

// NewChecker builds a Checker.
func NewChecker(mailbox *Mailbox, engine *dht.Engine, st *store.Store, log Logger) *Checker {
	if log == nil {
		log = nopLogger{}
	}
	return &Checker{mailbox: mailbox, engine: engine, store: st, log: log}
}

// CheckRound retrieves id's mailbox index, then every entry's encrypted
// email, decrypts and verifies each, writes verified mail to inbox, and
// issues delete_email/delete_index_entry for what it consumed.
func (c *Checker) CheckRound(id LocalIdentity) {
	idHash := id.Hash()
	for _, entry := range c.collectIndexEntries(idHash) {
		for _, raw := range c.collectCiphertexts(dht.Hash(entry.Key)) {
			c.processEntry(id, idHash, entry, raw)
		}
	}
}

// collectIndexEntries implements step 1: find_all the index, merged
// with the locally stored copy, deduplicated by entry key.
func (c *Checker) collectIndexEntries(idHash dht.Hash) []wire.IndexEntry {
	seen := make(map[[32]byte]wire.IndexEntry)
	add := func(data []byte) {
		pkt, err := wire.DecodeIndexPacket(data)
		if err != nil {
			c.log.Warningf("email: check: decode index: %v", err)
			return
		}
		for _, e := range pkt.Entries {
			seen[e.Key] = e
		}
	}
	for _, r := range c.engine.FindAll(idHash, wire.ClassIndex) {
		if r.Status == wire.StatusOK && len(r.Data) > 0 {
			add(r.Data)
		}
	}
	if local, err := c.store.Get(store.ClassIndex, [32]byte(idHash)); err == nil {
		add(local)
	}
	out := make([]wire.IndexEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	return out
}

// collectCiphertexts implements step 2: find_all the encrypted email
// for one index entry's key, merged with any locally stored copy.
func (c *Checker) collectCiphertexts(key dht.Hash) [][]byte {
	var out [][]byte
	for _, r := range c.engine.FindAll(key, wire.ClassEncryptedEmail) {
		if r.Status == wire.StatusOK && len(r.Data) > 0 {
			out = append(out, r.Data)
		}
	}
	if local, err := c.store.Get(store.ClassEncryptedEmail, [32]byte(key)); err == nil {
		out = append(out, local)
	}
	return out
}

// processEntry implements steps 3-4 for one (index entry, stored
// packet) pair: decrypt, verify the delete-auth against the entry's
// published delete-verification hash, write to inbox, and issue the two
// deletion verbs.
func (c *Checker) processEntry(id LocalIdentity, idHash dht.Hash, entry wire.IndexEntry, raw []byte) {
	stored, err := wire.DecodeEmailEncryptedPacket(raw)
	if err != nil {
		c.log.Warningf("email: check: decode stored packet: %v", err)
		return
	}
	env, err := identity.DecodeEncryptedEnvelope(stored.Ciphertext)
	if err != nil {
		c.log.Warningf("email: check: decode envelope: %v", err)
		return
	}
	plainBytes, err := identity.DecryptWith(id.Identity.Pair.Crypto, id.CryptoPriv, env)
	if err != nil {
		// Not addressed to this identity, or corrupt; neither is an
		// error worth logging above debug.
		c.log.Debugf("email: check: decrypt failed for key %x: %v", entry.Key, err)
		return
	}
	plainPkt, err := wire.DecodeEmailUnencryptedPacket(plainBytes)
	if err != nil {
		c.log.Warningf("email: check: decode plaintext: %v", err)
		return
	}
	if sha256.Sum256(plainPkt.DeleteAuth[:]) != entry.DeleteVerificationHash {
		c.log.Warningf("email: check: delete-auth mismatch for key %x, dropping", entry.Key)
		return
	}

	filename := fmt.Sprintf("%x.eml", entry.Key)
	if err := c.mailbox.WriteInbox(filename, plainPkt.MIME); err != nil {
		c.log.Warningf("email: check: write inbox %s: %v", filename, err)
		return
	}

	c.engine.DeleteEmail(dht.Hash(entry.Key), plainPkt.DeleteAuth)
	c.engine.DeleteIndexEntry(idHash, entry.Key, plainPkt.DeleteAuth)
	if err := c.store.Delete(store.ClassEncryptedEmail, entry.Key); err != nil {
		c.log.Warningf("email: check: local delete %x: %v", entry.Key, err)
	}
}
