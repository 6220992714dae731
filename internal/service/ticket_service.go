package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/policy"
	"github.com/spec-kit/ticket-desk/internal/repository"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util"
)

// TicketService coordinates ticket workflows: load, authorize, mutate, then
// publish the resulting event.
type TicketService struct {
	tickets    repository.TicketRepository
	textBlocks repository.TextBlockRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	TextBlockRepo repository.TextBlockRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Category    string
	Description string
}

// TicketUpdateInput carries the optional raw fields of an update.
type TicketUpdateInput struct {
	State    *string
	Category *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		textBlocks: deps.TextBlockRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// ListTickets returns every ticket ordered by id.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket returns a ticket the actor may read.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.User, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(actor, *ticket) {
		return nil, apperrors.NewForbidden(policy.ErrNotOwner.Error())
	}
	return ticket, nil
}

// CreateTicket opens a ticket owned by actor. The description becomes the
// first text block and is written in the same transaction.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.User, input TicketCreateInput) (*domain.Ticket, *domain.TextBlock, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	details := map[string]any{}
	if title == "" {
		details["title"] = "title is required"
	}
	if description == "" {
		details["description"] = "description is required"
	}
	category, err := domain.ParseTicketCategory(input.Category)
	if err != nil {
		details["category"] = err.Error()
	}
	if len(details) > 0 {
		return nil, nil, apperrors.NewValidationError("invalid payload", details)
	}

	ticket := &domain.Ticket{
		OwnerID:   actor.ID,
		OwnerName: actor.Name,
		Title:     title,
		Category:  category,
		State:     domain.TicketStateOpen,
	}
	initial := &domain.TextBlock{
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Content:    description,
	}
	if err := s.tickets.Create(ctx, ticket, initial); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, actor, events.TicketCreatedPayload{
		Title:    ticket.Title,
		Category: ticket.Category,
	}))
	return ticket, initial, nil
}

// UpdateTicket applies a state and/or category change. Input is validated
// before the ticket is loaded. Callers who cannot read the ticket are denied
// even for no-op changes. Every part must be authorized before anything is
// written, and parts that would not change the ticket are skipped.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.User, ticketID int64, input TicketUpdateInput) (*domain.Ticket, error) {
	change, err := domain.NewTicketChange(input.State, input.Category)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyChange) {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		return nil, apperrors.NewValidationError("invalid payload", map[string]any{"change": err.Error()})
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(actor, *ticket) {
		return nil, apperrors.NewForbidden(policy.ErrNotOwner.Error())
	}
	if err := policy.AuthorizeChange(actor, *ticket, change); err != nil {
		return nil, mapPolicyError(err)
	}

	effective, ok := change.Effective(*ticket)
	if !ok {
		return ticket, nil
	}

	updated, err := s.tickets.Update(ctx, ticket.ID, effective)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if effective.HasState() {
		s.publishEvent(ctx, events.NewEvent(events.EventTicketStateChanged, ticket.ID, actor, events.TicketStateChangedPayload{
			OldState: ticket.State,
			NewState: updated.State,
		}))
	}
	if effective.HasCategory() {
		s.publishEvent(ctx, events.NewEvent(events.EventTicketCategoryChanged, ticket.ID, actor, events.TicketCategoryChangedPayload{
			OldCategory: ticket.Category,
			NewCategory: updated.Category,
		}))
	}
	return updated, nil
}

// ListTextBlocks returns the ticket's thread in creation order.
func (s *TicketService) ListTextBlocks(ctx context.Context, actor domain.User, ticketID int64) ([]domain.TextBlock, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(actor, *ticket) {
		return nil, apperrors.NewForbidden(policy.ErrNotOwner.Error())
	}
	blocks, err := s.textBlocks.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return blocks, nil
}

// AddTextBlock appends a reply authored by actor.
func (s *TicketService) AddTextBlock(ctx context.Context, actor domain.User, ticketID int64, content string) (*domain.TextBlock, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("invalid payload", map[string]any{"content": "content is required"})
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeTextBlock(actor, *ticket); err != nil {
		return nil, mapPolicyError(err)
	}

	block := &domain.TextBlock{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Content:    content,
	}
	if err := s.textBlocks.Create(ctx, block); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTextBlockAdded, ticket.ID, actor, events.TextBlockAddedPayload{
		TextBlockID: block.ID,
		AuthorID:    block.AuthorID,
		Preview:     events.Preview(block.Content, 80),
	}))
	return block, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func mapPolicyError(err error) error {
	switch {
	case policy.IsDenial(err):
		return apperrors.NewForbidden(err.Error())
	case errors.Is(err, domain.ErrEmptyChange):
		return apperrors.NewValidationError(err.Error(), nil)
	default:
		return apperrors.MapError(err)
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
