package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/events"
)

type route struct {
	audience events.Audience
	// legacy routes were pushed on both channels regardless of audience
	legacyBoth bool
	message    func(events.Event) string
}

func staticMessage(msg string) func(events.Event) string {
	return func(events.Event) string { return msg }
}

func deletedMessage(e events.Event) string {
	count := 0
	switch p := e.Data.(type) {
	case events.TasksDeletedPayload:
		count = p.Count
	case *events.TasksDeletedPayload:
		if p != nil {
			count = p.Count
		}
	}
	if count == 1 {
		return "1 task was deleted"
	}
	return fmt.Sprintf("%d tasks were deleted", count)
}

var routes = map[events.Kind]route{
	events.KindTaskCreated:        {audience: events.AudiencePrivate, message: staticMessage("A new task was added")},
	events.KindTaskUpdated:        {audience: events.AudiencePrivate, message: staticMessage("A task was updated")},
	events.KindTasksDeleted:       {audience: events.AudiencePrivate, message: deletedMessage},
	events.KindUserJoined:         {audience: events.AudienceGeneral, legacyBoth: true, message: staticMessage("A new user just joined")},
	events.KindUserProfileUpdated: {audience: events.AudiencePrivate, legacyBoth: true, message: staticMessage("Profile Update")},
}

// Bridge turns domain events into pushes on the subject's connection.
type Bridge struct {
	registry *Registry
	legacy   bool
	logger   *zap.Logger
	metrics  Metrics
}

// BridgeOption customises a Bridge.
type BridgeOption func(*Bridge)

// WithLegacyAudience pushes user events on both channels, matching clients
// built against the earlier always-both behaviour.
func WithLegacyAudience(enabled bool) BridgeOption {
	return func(b *Bridge) { b.legacy = enabled }
}

// WithBridgeLogger sets the logger.
func WithBridgeLogger(logger *zap.Logger) BridgeOption {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBridgeMetrics sets the metrics sink.
func WithBridgeMetrics(metrics Metrics) BridgeOption {
	return func(b *Bridge) {
		if metrics != nil {
			b.metrics = metrics
		}
	}
}

// NewBridge creates a bridge over the registry.
func NewBridge(registry *Registry, opts ...BridgeOption) *Bridge {
	b := &Bridge{registry: registry, logger: zap.NewNop(), metrics: nopMetrics{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers the bridge for every routed event kind.
func (b *Bridge) Subscribe(d events.Dispatcher) {
	for kind := range routes {
		d.Subscribe(kind, b.handle)
	}
}

func (b *Bridge) handle(_ context.Context, e events.Event) error {
	b.Dispatch(e)
	return nil
}

// Dispatch pushes e to its subject's live connection and returns the number
// of frames accepted. An offline subject or unrouted kind yields zero.
func (b *Bridge) Dispatch(e events.Event) int {
	r, ok := routes[e.Kind]
	if !ok {
		b.logger.Debug("no route for event", zap.String("kind", string(e.Kind)))
		return 0
	}

	conn, ok := b.registry.Lookup(e.Subject.ID)
	if !ok {
		b.logger.Debug("recipient offline, event dropped",
			zap.String("event_id", e.ID),
			zap.String("identity_id", e.Subject.ID),
		)
		return 0
	}

	audience := b.audience(e, r)
	payload := Envelope{Event: string(e.Kind), Message: r.message(e), Data: e.Data}

	pushed := 0
	if audience.Private() && b.push(conn, Frame{Channel: e.Subject.PrivateChannel(), Payload: payload}, "private") {
		pushed++
	}
	if audience.General() && b.push(conn, Frame{Channel: ChannelGeneral, Payload: payload}, ChannelGeneral) {
		pushed++
	}
	return pushed
}

func (b *Bridge) audience(e events.Event, r route) events.Audience {
	if b.legacy && r.legacyBoth {
		return events.AudienceBoth
	}
	if e.Audience != "" {
		return e.Audience
	}
	return r.audience
}

func (b *Bridge) push(conn Conn, frame Frame, label string) bool {
	if conn.Push(frame) {
		b.metrics.Pushed(label)
		return true
	}
	b.metrics.FrameDropped()
	b.logger.Warn("frame dropped",
		zap.String("conn_id", conn.ID()),
		zap.String("channel", frame.Channel),
	)
	return false
}
