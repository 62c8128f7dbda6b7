// Package paths centralizes the on-disk layout conventions used by pboted:
// where the data directory lives, and where the mailbox subdirectories and
// the node persistence file sit within it.
package paths

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns a per-user directory appropriate for persisting
// node state. It prefers os.UserConfigDir and falls back to the current
// directory.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "pboted")
	}
	return ".pboted"
}

// EnsureDir makes sure dir exists and returns the cleaned path.
func EnsureDir(dir string) (string, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Mailbox subdirectory names, relative to the mailbox root
// (email.NewMailbox places it at the data directory's mail/).
const (
	InboxDir      = "inbox"
	OutboxDir     = "outbox"
	SentDir       = "sent"
	IncompleteDir = "incomplete"
)

// NodesFile is the flat file of persisted peer identities, at the data
// directory root.
const NodesFile = "nodes.txt"

// MailboxDir joins dataDir (the mailbox root; email.NewMailbox passes
// <data dir>/mail) with one of the mailbox subdirectories, creating it
// if necessary.
func MailboxDir(dataDir, name string) (string, error) {
	return EnsureDir(filepath.Join(dataDir, name))
}
