// Package events is the in-process publish/subscribe layer. Event payloads
// live in internal/events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is anything published on a Bus. EventName doubles as the
// subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// TenantScoped is implemented by events that belong to one organization.
// The bus tags handler failures with the tenant.
type TenantScoped interface {
	EventTenant() uuid.UUID
}

// BaseEvent is embedded by every payload.
type BaseEvent struct {
	EventID   uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{EventID: uuid.New(), Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus delivers events to subscribers. Publish is fire-and-forget;
// PublishSync returns once every handler ran, with their errors joined.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

// logFields is the key/value list used when a handler fails.
func logFields(event Event, err error) []any {
	fields := []any{"event", event.EventName(), "error", err}
	if scoped, ok := event.(TenantScoped); ok {
		fields = append(fields, "tenantId", scoped.EventTenant())
	}
	return fields
}
