// Package store implements the content store: a persistent key→bytes
// store for the three DHT content classes, sharded across directories
// by the first character of the key.
package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Class names one of the three content families a stored artifact
// belongs to. Each gets its own root subdirectory.
type Class string

const (
	ClassIndex          Class = "DHTindex"
	ClassEncryptedEmail Class = "DHTemail"
	ClassDirectoryEntry Class = "DHTdirectory"
)

func (c Class) valid() bool {
	switch c {
	case ClassIndex, ClassEncryptedEmail, ClassDirectoryEntry:
		return true
	default:
		return false
	}
}

func (c Class) suffix() string {
	switch c {
	case ClassIndex:
		return "iidx"
	case ClassEncryptedEmail:
		return "eml"
	case ClassDirectoryEntry:
		return "dir"
	default:
		return "dat"
	}
}

// ErrNotFound is returned by Get when the key has no stored value
// (LastModified reports 0 instead).
var ErrNotFound = errors.New("store: not found")

// Store is a filesystem-backed content store rooted at a data
// directory. It is safe for concurrent use; per-key file operations are
// atomic (write-to-tempfile + rename), so no in-process locking is
// needed for correctness, but a mutex still serializes directory
// creation to avoid duplicate MkdirAll races under heavy concurrency.
type Store struct {
	root string

	mu      sync.Mutex
	madeDir map[string]bool
}

// New returns a Store rooted at root. The root directory is created
// lazily, per-class, on first write.
func New(root string) *Store {
	return &Store{root: root, madeDir: make(map[string]bool)}
}

// sanitize replaces path separators in a key identifier so it cannot
// escape the sharded directory layout.
func sanitize(id string) string {
	id = strings.ReplaceAll(id, "/", "-")
	id = strings.ReplaceAll(id, "\\", "-")
	return id
}

// paths returns the shard directory and full file path for (class, key),
// following root/<class>/<first-char>/<key>.<suffix>.
func (s *Store) paths(class Class, key [32]byte) (dir, file string) {
	id := sanitize(hex.EncodeToString(key[:]))
	shard := id[:1]
	dir = filepath.Join(s.root, string(class), shard)
	file = filepath.Join(dir, id+"."+class.suffix())
	return dir, file
}

func (s *Store) ensureDir(dir string) error {
	s.mu.Lock()
	made := s.madeDir[dir]
	s.mu.Unlock()
	if made {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create shard dir: %w", err)
	}
	s.mu.Lock()
	s.madeDir[dir] = true
	s.mu.Unlock()
	return nil
}

// Put persists data under (class, key), replacing any prior value.
// Writes are atomic: data is written to a tempfile in the shard
// directory, then renamed into place.
func (s *Store) Put(class Class, key [32]byte, data []byte) error {
	if !class.valid() {
		return fmt.Errorf("store: unknown class %q", class)
	}
	dir, file := s.paths(class, key)
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create tempfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write tempfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close tempfile: %w", err)
	}
	if err := os.Rename(tmpName, file); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

// Get returns the bytes stored under (class, key), or ErrNotFound.
func (s *Store) Get(class Class, key [32]byte) ([]byte, error) {
	if !class.valid() {
		return nil, fmt.Errorf("store: unknown class %q", class)
	}
	_, file := s.paths(class, key)
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read: %w", err)
	}
	return data, nil
}

// Delete removes the value stored under (class, key). It is not an
// error if no value was stored.
func (s *Store) Delete(class Class, key [32]byte) error {
	if !class.valid() {
		return fmt.Errorf("store: unknown class %q", class)
	}
	_, file := s.paths(class, key)
	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

// LastModified returns the modification time (as a Unix timestamp) of
// the value stored under (class, key), or 0 if it has no stored value.
func (s *Store) LastModified(class Class, key [32]byte) (int64, error) {
	if !class.valid() {
		return 0, fmt.Errorf("store: unknown class %q", class)
	}
	_, file := s.paths(class, key)
	info, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("store: stat: %w", err)
	}
	return info.ModTime().Unix(), nil
}

// Entry is one (key, bytes) pair yielded by Iter.
type Entry struct {
	Key  [32]byte
	Data []byte
}

// Iter walks every stored value in class, calling fn for each. A
// corrupt or unreadable individual file is skipped rather than aborting
// the walk; a shard directory that fails to open is likewise skipped.
// fn's return value stops iteration early without treating it as an
// error condition of Iter itself; iteration errors are only returned
// for failures reading the class root itself.
func (s *Store) Iter(class Class, fn func(Entry) bool) error {
	if !class.valid() {
		return fmt.Errorf("store: unknown class %q", class)
	}
	root := filepath.Join(s.root, string(class))
	shards, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: read class root: %w", err)
	}

	suffix := "." + class.suffix()
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, shard.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, suffix) || strings.HasPrefix(name, ".tmp-") {
				continue
			}
			hexKey := strings.TrimSuffix(name, suffix)
			raw, err := hex.DecodeString(hexKey)
			if err != nil || len(raw) != 32 {
				continue
			}
			data, err := os.ReadFile(filepath.Join(root, shard.Name(), name))
			if err != nil {
				continue
			}
			var key [32]byte
			copy(key[:], raw)
			if !fn(Entry{Key: key, Data: data}) {
				return nil
			}
		}
	}
	return nil
}
