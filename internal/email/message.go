package email

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"net/mail"
	"sort"
	"time"

	"github.com/polistern/pboted/internal/wire"
)

// Headers spec.md §4.7 names explicitly, stashed into a message's own
// MIME headers as bookkeeping the Check Round on the far end and a
// resend on this end can both recover from.
const (
	headerDeleteAuthHash = "X-I2PBote-Delete-Auth-Hash"
	headerDHTKey         = "X-I2PBote-Dht-Key"
	headerMessageID      = "Message-Id"
)

// ParsedMessage is a composed outbox file, header-rewritten and ready
// for the rest of the Send Round pipeline.
type ParsedMessage struct {
	From    string
	To      string
	Headers mail.Header
	Body    []byte
}

// parseMessage reads a MIME message from raw.
func parseMessage(raw []byte) (ParsedMessage, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ParsedMessage{}, fmt.Errorf("email: parse message: %w", err)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return ParsedMessage{}, fmt.Errorf("email: read message body: %w", err)
	}
	return ParsedMessage{Headers: msg.Header, Body: body}, nil
}

// resolveAddresses rewrites From/To against book, per spec.md §4.7 step
// 2. An unresolvable alias is returned as an error naming it; the
// caller marks the file skip.
func (m *ParsedMessage) resolveAddresses(book AddressBook) error {
	from, err := resolveHeaderAddress(m.Headers.Get("From"), book)
	if err != nil {
		return fmt.Errorf("email: From: %w", err)
	}
	to, err := resolveHeaderAddress(m.Headers.Get("To"), book)
	if err != nil {
		return fmt.Errorf("email: To: %w", err)
	}
	m.From = from
	m.To = to
	return nil
}

// ensureMessageID returns the header's own Message-Id if present,
// otherwise a freshly generated one, per spec.md §4.7 step 3 ("generate
// a stable Message-ID on first processing and persist it so retries
// reuse it") — persistence is the caller's job (see emailmeta.Store);
// this just supplies a value when none exists yet.
func ensureMessageID(existing string) (string, error) {
	if existing != "" {
		return existing, nil
	}
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("email: generate message-id: %w", err)
	}
	return fmt.Sprintf("<%x@pboted>", raw), nil
}

// deleteAuth is a fresh 32-byte secret authorizing later deletion of
// the stored encrypted email; SHA256(deleteAuth) is what's published as
// the delete-verification hash.
func newDeleteAuth() ([32]byte, error) {
	var auth [32]byte
	if _, err := rand.Read(auth[:]); err != nil {
		return auth, fmt.Errorf("email: generate delete-auth: %w", err)
	}
	return auth, nil
}

func deleteVerificationHash(deleteAuth [32]byte) [32]byte {
	return sha256.Sum256(deleteAuth[:])
}

// buildUnencryptedPacket assembles the plaintext EmailUnencryptedPacket
// that gets ECIES-encrypted for the recipient, per spec.md §4.7 step 4:
// the delete-auth secret travels as a structured field (so only the
// decrypting recipient ever learns it) alongside the MIME bytes, which
// additionally carry the delete-verification hash as a display header.
func buildUnencryptedPacket(m ParsedMessage, messageID string, deleteAuth, deleteAuthHash [32]byte) wire.EmailUnencryptedPacket {
	extra := map[string]string{
		headerMessageID:      messageID,
		headerDeleteAuthHash: fmt.Sprintf("%x", deleteAuthHash),
		"From":               m.From,
		"To":                 m.To,
	}
	mime := serializeMessage(m.Headers, extra, m.Body)
	return wire.EmailUnencryptedPacket{DeleteAuth: deleteAuth, MIME: mime}
}

// serializeMessage renders headers (overridden/extended by extra) and
// body back into RFC 5322 wire form. Header order is sorted for
// deterministic output; RFC 5322 does not mandate header ordering.
func serializeMessage(headers mail.Header, extra map[string]string, body []byte) []byte {
	merged := make(map[string]string, len(headers)+len(extra))
	for k, v := range headers {
		if len(v) > 0 {
			merged[k] = v[0]
		}
	}
	for k, v := range extra {
		merged[k] = v
	}

	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, k := range names {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, merged[k])
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}

// stampSentTime returns the current time as the uint32 stored-time an
// EmailEncryptedPacket carries. Passed in by the caller rather than
// read from time.Now() directly so tests can supply a fixed clock.
func stampSentTime(now time.Time) uint32 {
	return uint32(now.Unix())
}
