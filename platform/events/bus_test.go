package events

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type pingEvent struct{ BaseEvent }

func (pingEvent) EventName() string { return "test.ping" }

type tenantEvent struct {
	BaseEvent
	TenantID uuid.UUID
}

func (tenantEvent) EventName() string        { return "test.tenant" }
func (e tenantEvent) EventTenant() uuid.UUID { return e.TenantID }

func TestPublishSyncJoinsErrorsAndRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	var calls int32
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("first failed")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	}))
	bus.Subscribe("test.other", HandlerFunc(func(context.Context, Event) error {
		t.Fatal("unrelated handler must not run")
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{NewBaseEvent()})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestPublishRunsHandlersAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	var calls int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pingEvent{NewBaseEvent()})
	cancel()
	bus.Wait()

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 handler calls, got %d", got)
	}
}

func TestHandlerFailureLogsTenant(t *testing.T) {
	var buf bytes.Buffer
	bus := NewInMemoryBus(logger.NewWithWriter("production", &buf))
	bus.Subscribe("test.tenant", HandlerFunc(func(context.Context, Event) error {
		return errors.New("smtp down")
	}))

	tenantID := uuid.New()
	if err := bus.PublishSync(context.Background(), tenantEvent{BaseEvent: NewBaseEvent(), TenantID: tenantID}); err == nil {
		t.Fatal("expected handler error")
	}
	if !strings.Contains(buf.String(), tenantID.String()) {
		t.Fatalf("expected tenant id in log, got %s", buf.String())
	}
}

func TestNewBaseEventAssignsID(t *testing.T) {
	a, b := NewBaseEvent(), NewBaseEvent()
	if a.EventID == uuid.Nil || a.EventID == b.EventID {
		t.Fatalf("expected distinct non-nil ids, got %s and %s", a.EventID, b.EventID)
	}
}
