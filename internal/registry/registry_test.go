package registry

import (
	"errors"
	"testing"
)

type fakeTransport struct {
	writes [][]byte
	failed bool
	closed bool
}

func (f *fakeTransport) Write(payload []byte) error {
	if f.failed {
		return errors.New("transport severed")
	}
	f.writes = append(f.writes, payload)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestRegister_DuplicateTransportReturnsSameHandle(t *testing.T) {
	reg := New()
	transport := &fakeTransport{}

	h1 := reg.Register(transport, Metadata{SessionID: "s1"})
	h2 := reg.Register(transport, Metadata{SessionID: "s1"})

	if h1.ID != h2.ID {
		t.Fatalf("expected same handle for duplicate registration, got %s and %s", h1.ID, h2.ID)
	}
	if reg.Count() != 1 {
		t.Fatalf("expected one registered connection, got %d", reg.Count())
	}
}

func TestRegister_PopulatesHandleMetadata(t *testing.T) {
	reg := New()
	h := reg.Register(&fakeTransport{}, Metadata{SessionID: "s1", ClientType: "mobile"})

	if h.ID == "" {
		t.Fatal("expected generated handle ID")
	}
	if h.SessionID != "s1" || h.ClientType != "mobile" {
		t.Fatalf("unexpected metadata: %+v", h)
	}
	if h.ConnectedAt.IsZero() {
		t.Fatal("expected connected_at to be set")
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	reg := New()
	h := reg.Register(&fakeTransport{}, Metadata{})

	reg.Unregister(h)
	reg.Unregister(h)
	reg.Unregister(nil)

	if reg.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Count())
	}
}

func TestSend_TransportFailureUnregistersSilently(t *testing.T) {
	reg := New()
	transport := &fakeTransport{failed: true}
	h := reg.Register(transport, Metadata{})

	reg.Send(h, []byte("hello"))

	if reg.Count() != 0 {
		t.Fatalf("expected failed handle removed, got %d connections", reg.Count())
	}
	if !transport.closed {
		t.Fatal("expected transport closed on removal")
	}

	// Second send on the removed handle is a no-op.
	reg.Send(h, []byte("again"))
}

func TestBroadcast_IsolatesFailedHandle(t *testing.T) {
	reg := New()
	first := &fakeTransport{}
	second := &fakeTransport{failed: true}
	third := &fakeTransport{}
	reg.Register(first, Metadata{})
	reg.Register(second, Metadata{})
	reg.Register(third, Metadata{})

	reg.Broadcast([]byte("to everyone"))

	if len(first.writes) != 1 || len(third.writes) != 1 {
		t.Fatalf("expected healthy connections to receive broadcast, got %d and %d writes",
			len(first.writes), len(third.writes))
	}
	if reg.Count() != 2 {
		t.Fatalf("expected failed connection removed, got %d", reg.Count())
	}
}

func TestSendToSession_TargetsOnlyMatchingConnections(t *testing.T) {
	reg := New()
	inSession := &fakeTransport{}
	other := &fakeTransport{}
	alsoInSession := &fakeTransport{}
	reg.Register(inSession, Metadata{SessionID: "s1"})
	reg.Register(other, Metadata{SessionID: "s2"})
	reg.Register(alsoInSession, Metadata{SessionID: "s1"})

	reg.SendToSession("s1", []byte("session message"))

	if len(inSession.writes) != 1 || len(alsoInSession.writes) != 1 {
		t.Fatal("expected both s1 connections to receive the message")
	}
	if len(other.writes) != 0 {
		t.Fatalf("expected s2 connection untouched, got %d writes", len(other.writes))
	}
}
