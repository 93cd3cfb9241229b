package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/events"
)

// publisher raises domain events after a write has committed. Failures are
// logged and never reach the caller.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, kind events.Kind, subject domain.Identity, audience events.Audience, data interface{}) {
	if p.dispatcher == nil {
		return
	}
	event := events.NewEvent(kind, subject, audience, data)
	// the write is already committed, so a cancelled request must not drop it
	if err := p.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		p.logger.Warn("publish event",
			zap.String("kind", string(kind)),
			zap.String("subject_id", subject.ID),
			zap.Error(err),
		)
	}
}
