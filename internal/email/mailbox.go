package email

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/polistern/pboted/internal/paths"
)

// Mailbox is the filesystem collaborator spec.md §6 names: the four
// mailbox directories rooted under a node's data directory. Its
// operations are the ones the Email Worker uses (list, read and
// overwrite outbox files, move an outbox file to sent/, write an inbox
// file); it has no remove, exists or last-modified operation. It is a
// direct os/filepath wrapper, justified in DESIGN.md as a boundary too
// thin to warrant a library. The
// subdirectory names themselves come from internal/paths, which also
// names the node's data-directory and nodes-file conventions.
type Mailbox struct {
	root string
}

// NewMailbox creates (if absent) and returns a Mailbox rooted at
// dataDir/mail.
func NewMailbox(dataDir string) (*Mailbox, error) {
	root := filepath.Join(dataDir, "mail")
	for _, sub := range []string{paths.InboxDir, paths.OutboxDir, paths.SentDir, paths.IncompleteDir} {
		if _, err := paths.MailboxDir(root, sub); err != nil {
			return nil, fmt.Errorf("email: create mailbox dir %s: %w", sub, err)
		}
	}
	return &Mailbox{root: root}, nil
}

func (m *Mailbox) path(sub, name string) string { return filepath.Join(m.root, sub, name) }

// OutboxFiles lists composed MIME files waiting to be sent, sorted by
// name for deterministic processing order.
func (m *Mailbox) OutboxFiles() ([]string, error) {
	return m.listDir(paths.OutboxDir)
}

func (m *Mailbox) listDir(sub string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.root, sub))
	if err != nil {
		return nil, fmt.Errorf("email: read %s: %w", sub, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadOutbox returns the raw bytes of an outbox file.
func (m *Mailbox) ReadOutbox(name string) ([]byte, error) {
	return os.ReadFile(m.path(paths.OutboxDir, name))
}

// WriteOutbox overwrites an outbox file's bytes in place, used when the
// Send Round stashes computed headers back before moving to sent/.
func (m *Mailbox) WriteOutbox(name string, data []byte) error {
	return os.WriteFile(m.path(paths.OutboxDir, name), data, 0o644)
}

// MoveToSent relocates an outbox file to sent/ after a fully successful
// send, per spec.md §4.7 step 10.
func (m *Mailbox) MoveToSent(name string) error {
	return os.Rename(m.path(paths.OutboxDir, name), m.path(paths.SentDir, name))
}

// WriteInbox writes a decrypted, verified email into inbox/ under name,
// used by the Check Round.
func (m *Mailbox) WriteInbox(name string, data []byte) error {
	return os.WriteFile(m.path(paths.InboxDir, name), data, 0o644)
}
