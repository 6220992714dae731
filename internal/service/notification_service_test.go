package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/repository"
)

func TestNotificationServiceLogsLifecycle(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{
		EmailFrom:  "desk@example.com",
		WebhookURL: "https://hooks.example.com/tickets",
	}).RegisterHandlers()

	store := repository.NewMemoryStore()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:    store.Tickets(),
		TextBlockRepo: store.TextBlocks(),
		Dispatcher:    dispatcher,
	})
	ticket, _, err := svc.CreateTicket(context.Background(), owner, TicketCreateInput{Title: "t", Category: "inquiry", Description: "d"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if _, err := svc.AddTextBlock(context.Background(), owner, ticket.ID, "more"); err != nil {
		t.Fatalf("add text block: %v", err)
	}

	if n := logs.FilterMessage("TicketCreated").Len(); n != 1 {
		t.Fatalf("expected one TicketCreated log, got %d", n)
	}
	if n := logs.FilterMessage("TextBlockAdded").Len(); n != 1 {
		t.Fatalf("expected one TextBlockAdded log, got %d", n)
	}
	if n := logs.FilterMessage("sendWebhook").Len(); n != 1 {
		t.Fatalf("expected one webhook dispatch, got %d", n)
	}
	if n := logs.FilterMessage("sendEmail").Len(); n != 2 {
		t.Fatalf("expected two email dispatches, got %d", n)
	}
}

func TestTicketServiceLogsFailedHandlers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		return errors.New("webhook unreachable")
	})

	store := repository.NewMemoryStore()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:    store.Tickets(),
		TextBlockRepo: store.TextBlocks(),
		Dispatcher:    dispatcher,
		Logger:        zap.New(core),
	})
	ticket, _, err := svc.CreateTicket(context.Background(), owner, TicketCreateInput{Title: "t", Category: "inquiry", Description: "d"})
	if err != nil {
		t.Fatalf("handler failure must not fail the request: %v", err)
	}

	entries := logs.FilterMessage("event handlers failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_type"] != string(events.EventTicketCreated) || fields["ticket_id"] != ticket.ID {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
