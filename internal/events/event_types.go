package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-gateway/internal/domain"
)

// Kind enumerates the domain events routed to live connections.
type Kind string

const (
	KindTaskCreated        Kind = "task.created"
	KindTaskUpdated        Kind = "task.updated"
	KindTasksDeleted       Kind = "tasks.deleted"
	KindUserJoined         Kind = "user.joined"
	KindUserProfileUpdated Kind = "user.profile_updated"
)

// Audience selects which channels an event is pushed on.
type Audience string

const (
	AudiencePrivate Audience = "self-private"
	AudienceGeneral Audience = "broadcast-general"
	AudienceBoth    Audience = "both"
)

// Private reports whether the subject's private channel is targeted.
func (a Audience) Private() bool { return a == AudiencePrivate || a == AudienceBoth }

// General reports whether the general channel is targeted.
func (a Audience) General() bool { return a == AudienceGeneral || a == AudienceBoth }

// Event is raised by a workflow after its state change has committed.
type Event struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Subject   domain.Identity `json:"subject"`
	Audience  Audience        `json:"audience"`
	Timestamp time.Time       `json:"timestamp"`
	Data      interface{}     `json:"data"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(kind Kind, subject domain.Identity, audience Audience, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Subject:   subject,
		Audience:  audience,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// TasksDeletedPayload carries the ids removed by a bulk delete.
type TasksDeletedPayload struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}
