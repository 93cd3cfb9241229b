package gateway

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/domain"
)

type entry struct {
	identity domain.Identity
	conn     Conn
}

// Registry maps identities to their single live connection. All access goes
// through its methods; the table itself is never exposed.
type Registry struct {
	mu      sync.Mutex
	conns   map[string]entry
	logger  *zap.Logger
	metrics Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, metrics Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Registry{
		conns:   make(map[string]entry),
		logger:  logger,
		metrics: metrics,
	}
}

// Register binds identity to conn, replacing any previous connection, and
// announces the join to every registered connection including conn itself.
// The superseded connection, if any, is returned; it receives no further
// pushes.
func (r *Registry) Register(identity domain.Identity, conn Conn) Conn {
	r.mu.Lock()
	prev, replaced := r.conns[identity.ID]
	r.conns[identity.ID] = entry{identity: identity, conn: conn}
	targets := r.snapshotLocked()
	r.mu.Unlock()

	fields := []zap.Field{zap.String("identity_id", identity.ID), zap.String("conn_id", conn.ID())}
	if replaced {
		fields = append(fields, zap.String("replaced_conn_id", prev.conn.ID()))
	}
	r.logger.Info("connection registered", fields...)

	r.broadcast(targets, identity.DisplayName+" has joined")
	if replaced {
		return prev.conn
	}
	return nil
}

// Unregister removes the entry owning conn. The leave announcement is sent
// only when an entry was actually removed; unknown or superseded handles are
// a silent no-op.
func (r *Registry) Unregister(conn Conn) (domain.Identity, bool) {
	r.mu.Lock()
	var (
		removed entry
		found   bool
	)
	for id, e := range r.conns {
		if e.conn == conn {
			removed, found = e, true
			delete(r.conns, id)
			break
		}
	}
	var targets []Conn
	if found {
		targets = r.snapshotLocked()
	}
	r.mu.Unlock()

	if !found {
		return domain.Identity{}, false
	}

	r.logger.Info("connection unregistered",
		zap.String("identity_id", removed.identity.ID),
		zap.String("conn_id", conn.ID()),
	)
	r.broadcast(targets, removed.identity.DisplayName+" has left")
	return removed.identity, true
}

// Lookup returns the live connection for an identity id.
func (r *Registry) Lookup(id string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Count returns the number of registered identities.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Registry) snapshotLocked() []Conn {
	out := make([]Conn, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.conn)
	}
	return out
}

func (r *Registry) broadcast(targets []Conn, message string) {
	frame := Frame{Channel: ChannelGeneral, Payload: message}
	for _, conn := range targets {
		if conn.Push(frame) {
			r.metrics.Pushed(ChannelGeneral)
			continue
		}
		r.metrics.FrameDropped()
		r.logger.Warn("announcement dropped", zap.String("conn_id", conn.ID()))
	}
}
