package worker

import (
	"context"

	"go.uber.org/zap"
)

// Runner drains an event queue until its context is cancelled.
type Runner interface {
	Run(ctx context.Context)
	Pending() int
}

// DispatchWorker drives the event bus on its own goroutine.
type DispatchWorker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartDispatchWorker starts delivering events from bus. The worker stops
// when ctx is cancelled or Stop is called.
func StartDispatchWorker(ctx context.Context, bus Runner, logger *zap.Logger) *DispatchWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &DispatchWorker{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		logger.Info("dispatch worker started")
		bus.Run(ctx)
		logger.Info("dispatch worker stopped", zap.Int("pending", bus.Pending()))
	}()
	return w
}

// Stop cancels the worker and waits for queued events to be delivered or
// for ctx to expire.
func (w *DispatchWorker) Stop(ctx context.Context) error {
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the worker has exited.
func (w *DispatchWorker) Done() <-chan struct{} {
	return w.done
}
