package email

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/polistern/pboted/internal/dht"
	"github.com/polistern/pboted/internal/emailmeta"
	"github.com/polistern/pboted/internal/identity"
	"github.com/polistern/pboted/internal/store"
	"github.com/polistern/pboted/internal/transport"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	dir := t.TempDir()

	mailbox, err := NewMailbox(dir)
	if err != nil {
		t.Fatalf("new mailbox: %v", err)
	}
	meta, err := emailmeta.Open(filepath.Join(dir, "outbox-meta.db"))
	if err != nil {
		t.Fatalf("open emailmeta: %v", err)
	}
	t.Cleanup(func() { meta.Close() })

	tr := transport.New(discardOverlay{}, 8)
	st := store.New(filepath.Join(dir, "content"))
	engine := dht.New(dht.Hash{}, tr, st, nil)

	sender := NewSender(mailbox, meta, NewStaticAddressBook(nil), engine, st, nil, nil)
	checker := NewChecker(mailbox, engine, st, nil)

	cfg := WorkerConfig{CheckInterval: 5 * time.Millisecond, SendInterval: 5 * time.Millisecond}
	return NewWorker(sender, checker, cfg, nil)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	w := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Let the ticker fire at least once before tearing down.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return promptly after ctx cancellation")
	}
}

func TestWorkerSetIdentitiesStartsAndStopsCheckLoops(t *testing.T) {
	w := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)
	time.Sleep(5 * time.Millisecond)

	idA, err := GenerateLocalIdentity("a", identity.PairECDH256ECDSA256)
	if err != nil {
		t.Fatalf("generate a: %v", err)
	}
	idB, err := GenerateLocalIdentity("b", identity.PairECDH256ECDSA256)
	if err != nil {
		t.Fatalf("generate b: %v", err)
	}

	w.SetIdentities(ctx, []LocalIdentity{idA, idB})
	time.Sleep(10 * time.Millisecond)

	w.mu.Lock()
	running := len(w.running)
	w.mu.Unlock()
	if running != 2 {
		t.Fatalf("expected 2 running check loops, got %d", running)
	}

	w.SetIdentities(ctx, []LocalIdentity{idA})
	time.Sleep(10 * time.Millisecond)

	w.mu.Lock()
	running = len(w.running)
	_, stillHasA := w.running[idA.Hash()]
	w.mu.Unlock()
	if running != 1 || !stillHasA {
		t.Fatalf("expected only identity a's check loop to survive, got %d running, hasA=%v", running, stillHasA)
	}
}
