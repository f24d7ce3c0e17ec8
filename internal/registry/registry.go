package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transport is the write side of one live connection. The concrete type is a
// websocket conn in production and a fake in tests.
type Transport interface {
	Write(payload []byte) error
	Close() error
}

// Metadata is the session information carried alongside a connection.
type Metadata struct {
	SessionID  string
	ClientType string
}

// Handle is the opaque registry-held identity for one live connection.
// Handles are keyed by a generated ID rather than the transport itself, so
// ownership transfers never depend on transport identity semantics.
type Handle struct {
	ID          string
	SessionID   string
	ClientType  string
	ConnectedAt time.Time
}

type entry struct {
	handle    *Handle
	transport Transport
}

// Registry tracks live streaming connections. All mutation and broadcast
// iteration happen under one mutex; a handle present in the table is always
// writable, and removal plus metadata deletion is a single atomic step.
type Registry struct {
	mu          sync.Mutex
	conns       map[string]*entry
	byTransport map[Transport]string
}

func New() *Registry {
	return &Registry{
		conns:       make(map[string]*entry),
		byTransport: make(map[Transport]string),
	}
}

// Register adds a connection and returns its handle. Registering the same
// transport twice returns the existing handle instead of a duplicate entry.
func (r *Registry) Register(t Transport, meta Metadata) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byTransport[t]; ok {
		return r.conns[id].handle
	}

	h := &Handle{
		ID:          uuid.NewString(),
		SessionID:   meta.SessionID,
		ClientType:  meta.ClientType,
		ConnectedAt: time.Now(),
	}
	r.conns[h.ID] = &entry{handle: h, transport: t}
	r.byTransport[t] = h.ID
	slog.Info("connection registered", "handle_id", h.ID, "session_id", h.SessionID, "total_connections", len(r.conns))
	return h
}

// Unregister removes a connection. Calling it twice for the same handle is
// a no-op the second time.
func (r *Registry) Unregister(h *Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.removeLocked(h.ID)
	remaining := len(r.conns)
	r.mu.Unlock()
	slog.Info("connection unregistered", "handle_id", h.ID, "total_connections", remaining)
}

// Send writes payload to one connection. A transport failure unregisters the
// handle and is swallowed; callers never observe send errors, only the side
// effect of the handle disappearing.
func (r *Registry) Send(h *Handle, payload []byte) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[h.ID]
	if !ok {
		return
	}
	if err := e.transport.Write(payload); err != nil {
		slog.Error("send failed; dropping connection", "error", err, "handle_id", h.ID)
		r.removeLocked(h.ID)
	}
}

// Broadcast delivers payload best-effort to every registered connection.
// Failed handles are removed only after the iteration completes, so one bad
// transport never hides the rest of the table.
func (r *Registry) Broadcast(payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []string
	for id, e := range r.conns {
		if err := e.transport.Write(payload); err != nil {
			slog.Error("broadcast send failed", "error", err, "handle_id", id)
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		r.removeLocked(id)
	}
}

// SendToSession writes payload to every connection sharing a session ID.
func (r *Registry) SendToSession(sessionID string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []string
	for id, e := range r.conns {
		if e.handle.SessionID != sessionID {
			continue
		}
		if err := e.transport.Write(payload); err != nil {
			slog.Error("session send failed", "error", err, "handle_id", id, "session_id", sessionID)
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		r.removeLocked(id)
	}
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// removeLocked drops the entry and its metadata in one step and closes the
// underlying transport so a half-dead connection cannot linger as a reader.
func (r *Registry) removeLocked(id string) {
	e, ok := r.conns[id]
	if !ok {
		return
	}
	delete(r.conns, id)
	delete(r.byTransport, e.transport)
	_ = e.transport.Close()
}
