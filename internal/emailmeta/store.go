// Package emailmeta persists the Send Round's per-outbox-file
// bookkeeping across process restarts: the stable Message-ID assigned
// on first processing, the computed DHT key and delete-verification
// hash, and whether the file is currently marked skip.
//
// Grounded on internal/storage/grantsbolt/store.go's bbolt-backed
// bucket layout and Open/Close/timeout conventions.
package emailmeta

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketByFile = "outbox_meta"
	openTimeout  = 2 * time.Second
)

// Record is the persisted state for one outbox file, keyed by its
// filename within the outbox directory.
type Record struct {
	MessageID              string   `json:"message_id"`
	DHTKey                 [32]byte `json:"dht_key"`
	DeleteVerificationHash [32]byte `json:"delete_verification_hash"`
	DeleteAuth             [32]byte `json:"delete_auth"`
	Skip                   bool     `json:"skip"`
}

// Store is a BoltDB-backed key→Record store, one bucket, one file
// bbolt owns exclusively for the process lifetime.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a BoltDB database at path, creating the
// bucket on first use.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("emailmeta: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("emailmeta: create db dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("emailmeta: open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketByFile))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("emailmeta: create bucket: %w", err)
	}
	return s, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the record stored for filename, or ok=false if none
// exists yet (the caller is processing this outbox file for the first
// time).
func (s *Store) Get(filename string) (rec Record, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketByFile)).Get([]byte(filename))
		if raw == nil {
			return nil
		}
		if unmarshalErr := json.Unmarshal(raw, &rec); unmarshalErr != nil {
			return fmt.Errorf("emailmeta: corrupt record for %q: %w", filename, unmarshalErr)
		}
		ok = true
		return nil
	})
	return rec, ok, err
}

// Put persists rec for filename, replacing any prior value.
func (s *Store) Put(filename string, rec Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("emailmeta: marshal record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketByFile)).Put([]byte(filename), val)
	})
}

// Delete removes the persisted record for filename, once the file has
// moved to sent/ and its metadata no longer matters. Not an error if
// no record existed.
func (s *Store) Delete(filename string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketByFile)).Delete([]byte(filename))
	})
}

// Iter walks every persisted (filename, Record) pair, for startup
// reconciliation against the current outbox directory listing. A
// corrupt individual record is skipped rather than aborting the walk,
// mirroring grantsbolt.Store.LoadAll's corruption tolerance.
func (s *Store) Iter(fn func(filename string, rec Record) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketByFile)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if !fn(string(k), rec) {
				return nil
			}
		}
		return nil
	})
}
