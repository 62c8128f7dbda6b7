package batch

import (
	"testing"
	"time"

	"github.com/polistern/pboted/internal/wire"
)

func mkCID(seed byte) wire.CID {
	var c wire.CID
	for i := range c {
		c[i] = seed + byte(i)
	}
	return c
}

func TestAddDuplicateCIDPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate cid")
		}
	}()
	b := New("test")
	cid := mkCID(1)
	b.Add(cid, "dest-a", []byte("x"))
	b.Add(cid, "dest-b", []byte("y"))
}

func TestAcceptUnknownCIDIsNoop(t *testing.T) {
	b := New("test")
	b.Add(mkCID(1), "dest-a", []byte("x"))
	accepted := b.Accept(wire.Response{CID: mkCID(99), Status: wire.StatusOK})
	if accepted {
		t.Fatal("expected unknown cid to be rejected")
	}
	if b.ResponseCount() != 0 {
		t.Fatalf("expected 0 responses, got %d", b.ResponseCount())
	}
}

func TestAcceptKnownCID(t *testing.T) {
	b := New("test")
	cid := mkCID(2)
	b.Add(cid, "dest-a", []byte("x"))
	if !b.Accept(wire.Response{CID: cid, Status: wire.StatusOK, Data: []byte("hi")}) {
		t.Fatal("expected known cid to be accepted")
	}
	if b.ResponseCount() != 1 {
		t.Fatalf("expected 1 response, got %d", b.ResponseCount())
	}
}

func TestWaitFirstReturnsAfterOneResponse(t *testing.T) {
	b := New("test")
	cid1, cid2 := mkCID(3), mkCID(4)
	b.Add(cid1, "a", nil)
	b.Add(cid2, "b", nil)

	go func() {
		time.Sleep(5 * time.Millisecond)
		b.Accept(wire.Response{CID: cid1, Status: wire.StatusOK})
	}()

	start := time.Now()
	got := b.WaitFirst(2 * time.Second)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("WaitFirst took too long: %v", elapsed)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 response, got %d", len(got))
	}
}

func TestWaitFirstTimesOutWithZeroResponses(t *testing.T) {
	b := New("test")
	b.Add(mkCID(5), "a", nil)
	got := b.WaitFirst(20 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("expected 0 responses, got %d", len(got))
	}
}

func TestWaitLastExtendsOnEachResponse(t *testing.T) {
	b := New("test")
	cid1, cid2 := mkCID(6), mkCID(7)
	b.Add(cid1, "a", nil)
	b.Add(cid2, "b", nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Accept(wire.Response{CID: cid1, Status: wire.StatusOK})
		time.Sleep(10 * time.Millisecond)
		b.Accept(wire.Response{CID: cid2, Status: wire.StatusOK})
	}()

	got := b.WaitLast(30 * time.Millisecond)
	if len(got) != 2 {
		t.Fatalf("expected 2 responses after silence window, got %d", len(got))
	}
}

func TestRegistryDeliverRoutesToOwningBatch(t *testing.T) {
	reg := NewRegistry()
	b := New("test")
	cid := mkCID(8)
	b.Add(cid, "a", nil)
	reg.Register(b)

	if !reg.Deliver(wire.Response{CID: cid, Status: wire.StatusOK}) {
		t.Fatal("expected delivery to succeed")
	}
	if b.ResponseCount() != 1 {
		t.Fatalf("expected 1 response, got %d", b.ResponseCount())
	}
}

func TestRegistryDeliverUnknownCIDFails(t *testing.T) {
	reg := NewRegistry()
	if reg.Deliver(wire.Response{CID: mkCID(9), Status: wire.StatusOK}) {
		t.Fatal("expected delivery of unregistered cid to fail")
	}
}

func TestRegistryRemoveUnregistersCIDs(t *testing.T) {
	reg := NewRegistry()
	b := New("test")
	cid := mkCID(10)
	b.Add(cid, "a", nil)
	reg.Register(b)
	reg.Remove(b)

	if reg.Deliver(wire.Response{CID: cid, Status: wire.StatusOK}) {
		t.Fatal("expected delivery to fail after removal")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected 0 live batches, got %d", reg.Len())
	}
}
