package events

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []int64
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e.TicketID)
		return nil
	})
	d.Subscribe(EventTextBlockAdded, func(context.Context, Event) error {
		t.Fatalf("unexpected delivery to other event type")
		return nil
	})

	event := NewEvent(EventTicketCreated, 3, domain.User{ID: 5}, TicketCreatedPayload{Title: "x"})
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("unexpected deliveries: %v", got)
	}
	if event.ID == "" || event.Actor.UserID != 5 {
		t.Fatalf("event not stamped: %+v", event)
	}
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	called := false
	d.Subscribe(EventTicketStateChanged, func(context.Context, Event) error { return boom })
	d.Subscribe(EventTicketStateChanged, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketStateChanged})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if !called {
		t.Fatalf("second handler should still run")
	}
}

func TestPreviewTruncatesRunes(t *testing.T) {
	if got := Preview("héllo", 10); got != "héllo" {
		t.Fatalf("short content should pass through, got %q", got)
	}
	if got := Preview("héllo world", 5); got != "héllo…" {
		t.Fatalf("unexpected preview %q", got)
	}
}
