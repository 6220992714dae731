// Package policy holds the ticket authorization and state-transition rules.
// Every function here is pure: callers load the actor and ticket, ask for a
// decision, and only then touch storage.
package policy

import (
	"errors"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

var (
	ErrNotOwner          = errors.New("only the ticket owner or an admin may do this")
	ErrCategoryAdminOnly = errors.New("only admins may change a ticket category")
	ErrReopenAdminOnly   = errors.New("only admins may reopen a closed ticket")
	ErrInvalidTransition = errors.New("invalid ticket state transition")
	ErrTicketClosed      = errors.New("ticket is closed")
)

func isOwnerOrAdmin(actor domain.User, ticket domain.Ticket) bool {
	return actor.IsAdmin || actor.ID == ticket.OwnerID
}

// CanRead reports whether actor may view a single ticket and its thread.
func CanRead(actor domain.User, ticket domain.Ticket) bool {
	return isOwnerOrAdmin(actor, ticket)
}

// CanChangeCategory is true for admins only, whatever the ticket state.
func CanChangeCategory(actor domain.User, _ domain.Ticket) bool {
	return actor.IsAdmin
}

// CanClose reports whether actor may move an open ticket to closed.
func CanClose(actor domain.User, ticket domain.Ticket) bool {
	return ticket.State == domain.TicketStateOpen && isOwnerOrAdmin(actor, ticket)
}

// CanReopen reports whether actor may move a closed ticket back to open.
func CanReopen(actor domain.User, ticket domain.Ticket) bool {
	return ticket.State == domain.TicketStateClosed && actor.IsAdmin
}

// CanAddTextBlock reports whether actor may reply on ticket.
func CanAddTextBlock(actor domain.User, ticket domain.Ticket) bool {
	return ticket.State == domain.TicketStateOpen && isOwnerOrAdmin(actor, ticket)
}

// CanTransition decides a requested state against the ticket's current one.
// Same-state requests are no-ops and always allowed.
func CanTransition(actor domain.User, ticket domain.Ticket, next domain.TicketState) error {
	if next == ticket.State {
		return nil
	}
	switch {
	case ticket.State == domain.TicketStateOpen && next == domain.TicketStateClosed:
		if !CanClose(actor, ticket) {
			return ErrNotOwner
		}
		return nil
	case ticket.State == domain.TicketStateClosed && next == domain.TicketStateOpen:
		if !CanReopen(actor, ticket) {
			return ErrReopenAdminOnly
		}
		return nil
	default:
		return ErrInvalidTransition
	}
}

// AuthorizeChange decides a whole update. A change touching both fields is
// allowed only when each part is.
func AuthorizeChange(actor domain.User, ticket domain.Ticket, change domain.TicketChange) error {
	switch change.Kind {
	case domain.ChangeCategory, domain.ChangeState, domain.ChangeBoth:
	default:
		return domain.ErrEmptyChange
	}
	if change.HasCategory() && !CanChangeCategory(actor, ticket) {
		return ErrCategoryAdminOnly
	}
	if change.HasState() {
		if err := CanTransition(actor, ticket, change.State); err != nil {
			return err
		}
	}
	return nil
}

// AuthorizeTextBlock decides whether actor may append a reply to ticket.
func AuthorizeTextBlock(actor domain.User, ticket domain.Ticket) error {
	if ticket.State != domain.TicketStateOpen {
		return ErrTicketClosed
	}
	if !isOwnerOrAdmin(actor, ticket) {
		return ErrNotOwner
	}
	return nil
}

// IsDenial reports whether err is one of the rule denials above.
func IsDenial(err error) bool {
	return errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrCategoryAdminOnly) ||
		errors.Is(err, ErrReopenAdminOnly) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrTicketClosed)
}
