package transport

import (
	"errors"
	"testing"

	"github.com/polistern/pboted/internal/batch"
	"github.com/polistern/pboted/internal/wire"
)

type fakeOverlay struct {
	sent    map[string][]byte
	failErr error
}

func (f *fakeOverlay) Send(dest string, data []byte) error {
	if f.failErr != nil {
		return f.failErr
	}
	if f.sent == nil {
		f.sent = make(map[string][]byte)
	}
	f.sent[dest] = data
	return nil
}

func TestSendDeliversToOverlay(t *testing.T) {
	ov := &fakeOverlay{}
	a := New(ov, 0)
	if err := a.Send("dest-a", []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(ov.sent["dest-a"]) != "hello" {
		t.Fatalf("expected overlay to receive payload, got %v", ov.sent)
	}
}

func TestSendWrapsOverlayError(t *testing.T) {
	ov := &fakeOverlay{failErr: errors.New("boom")}
	a := New(ov, 0)
	if err := a.Send("dest-a", []byte("x")); err == nil {
		t.Fatal("expected wrapped error")
	}
}

func TestSendBatchDispatchesEverySlot(t *testing.T) {
	ov := &fakeOverlay{}
	a := New(ov, 0)
	b := batch.New("test")
	var cid1, cid2 wire.CID
	cid1[0], cid2[0] = 1, 2
	b.Add(cid1, "dest-a", []byte("one"))
	b.Add(cid2, "dest-b", []byte("two"))

	a.SendBatch(b)

	if string(ov.sent["dest-a"]) != "one" || string(ov.sent["dest-b"]) != "two" {
		t.Fatalf("expected both destinations to receive payloads, got %v", ov.sent)
	}
}

func TestDeliverAndDropWhenFull(t *testing.T) {
	a := New(&fakeOverlay{}, 1)
	if !a.Deliver("src", []byte("a")) {
		t.Fatal("expected first delivery to succeed")
	}
	if a.Deliver("src", []byte("b")) {
		t.Fatal("expected second delivery to be dropped when queue is full")
	}
}

func TestRandomCIDIsNotAllZero(t *testing.T) {
	cid, err := RandomCID()
	if err != nil {
		t.Fatalf("RandomCID: %v", err)
	}
	var zero wire.CID
	if cid == zero {
		t.Fatal("expected non-zero random cid (astronomically unlikely collision)")
	}
}
