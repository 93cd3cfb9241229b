package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Publish when the event queue has no room.
var ErrQueueFull = errors.New("event queue full")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(kind Kind, handler EventHandler)
}

// DropRecorder is notified of events that never reached a handler.
type DropRecorder interface {
	EventDropped(kind string)
}

// Bus is a queued in-process dispatcher. Publish only enqueues; Run drains
// the queue and invokes handlers, so a workflow never waits on delivery.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Kind][]EventHandler
	queue     chan Event
	logger    *zap.Logger
	drops     DropRecorder
}

// NewBus creates a bus with the given queue capacity.
func NewBus(size int, logger *zap.Logger, drops DropRecorder) *Bus {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		listeners: make(map[Kind][]EventHandler),
		queue:     make(chan Event, size),
		logger:    logger,
		drops:     drops,
	}
}

// Publish enqueues the event without blocking.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("event queue full, dropping event",
			zap.String("event_id", event.ID),
			zap.String("kind", string(event.Kind)),
		)
		if b.drops != nil {
			b.drops.EventDropped(string(event.Kind))
		}
		return ErrQueueFull
	}
}

// Subscribe registers a handler for the given event kind.
func (b *Bus) Subscribe(kind Kind, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[kind] = append(b.listeners[kind], handler)
}

// Run delivers queued events until ctx is cancelled. Events still queued at
// cancellation are drained before returning.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case event := <-b.queue:
			b.deliver(ctx, event)
		case <-ctx.Done():
			b.drain()
			return
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case event := <-b.queue:
			b.deliver(context.Background(), event)
		default:
			return
		}
	}
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int {
	return len(b.queue)
}

func (b *Bus) deliver(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler{}, b.listeners[event.Kind]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.invoke(ctx, handler, event); err != nil {
			// continue processing other handlers despite errors
			b.logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
		}
	}
}

func (b *Bus) invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}
