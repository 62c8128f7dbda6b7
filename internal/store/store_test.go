package store

import (
	"testing"
)

func mkKey(seed byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = seed + byte(i)
	}
	return k
}

func TestPutGetRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	key := mkKey(1)
	if err := s.Put(ClassEncryptedEmail, key, []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ClassEncryptedEmail, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q", got)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Get(ClassIndex, mkKey(2)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutReplacesExisting(t *testing.T) {
	s := New(t.TempDir())
	key := mkKey(3)
	if err := s.Put(ClassDirectoryEntry, key, []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ClassDirectoryEntry, key, []byte("second")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ClassDirectoryEntry, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected replaced value, got %q", got)
	}
}

func TestDeleteThenMissing(t *testing.T) {
	s := New(t.TempDir())
	key := mkKey(4)
	if err := s.Put(ClassIndex, key, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ClassIndex, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ClassIndex, key); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Delete(ClassIndex, mkKey(5)); err != nil {
		t.Fatalf("expected no error deleting missing key, got %v", err)
	}
}

func TestLastModifiedZeroWhenMissing(t *testing.T) {
	s := New(t.TempDir())
	ts, err := s.LastModified(ClassEncryptedEmail, mkKey(6))
	if err != nil {
		t.Fatalf("LastModified: %v", err)
	}
	if ts != 0 {
		t.Fatalf("expected 0, got %d", ts)
	}
}

func TestLastModifiedAfterPut(t *testing.T) {
	s := New(t.TempDir())
	key := mkKey(7)
	if err := s.Put(ClassEncryptedEmail, key, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ts, err := s.LastModified(ClassEncryptedEmail, key)
	if err != nil {
		t.Fatalf("LastModified: %v", err)
	}
	if ts == 0 {
		t.Fatalf("expected non-zero timestamp")
	}
}

func TestIterVisitsAllKeys(t *testing.T) {
	s := New(t.TempDir())
	want := map[[32]byte]string{
		mkKey(10): "a",
		mkKey(20): "b",
		mkKey(30): "c",
	}
	for k, v := range want {
		if err := s.Put(ClassIndex, k, []byte(v)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	got := make(map[[32]byte]string)
	err := s.Iter(ClassIndex, func(e Entry) bool {
		got[e.Key] = string(e.Data)
		return true
	})
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("entry %x: got %q want %q", k, got[k], v)
		}
	}
}

func TestIterStopsEarly(t *testing.T) {
	s := New(t.TempDir())
	for i := byte(0); i < 5; i++ {
		if err := s.Put(ClassIndex, mkKey(i*10), []byte{i}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	count := 0
	err := s.Iter(ClassIndex, func(Entry) bool {
		count++
		return count < 2
	})
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected iteration to stop after 2, got %d", count)
	}
}

func TestIterEmptyClassIsNotError(t *testing.T) {
	s := New(t.TempDir())
	err := s.Iter(ClassDirectoryEntry, func(Entry) bool { return true })
	if err != nil {
		t.Fatalf("expected no error for empty class, got %v", err)
	}
}

func TestPathSanitization(t *testing.T) {
	// Keys are fixed 32-byte arrays, hex-encoded, so a literal separator
	// can never appear in an identifier; sanitize is exercised directly
	// to guard against a future identifier format that could carry one.
	if got := sanitize("a/b\\c"); got != "a-b-c" {
		t.Fatalf("sanitize: got %q", got)
	}
}

func TestClassesAreIsolated(t *testing.T) {
	s := New(t.TempDir())
	key := mkKey(42)
	if err := s.Put(ClassIndex, key, []byte("index")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(ClassEncryptedEmail, key); err != ErrNotFound {
		t.Fatalf("expected classes to be isolated, got %v", err)
	}
}
