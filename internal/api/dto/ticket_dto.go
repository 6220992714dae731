package dto

import (
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// CreateTicketRequest payload. Owner and state are never taken from the client.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Category    string `json:"category" validate:"required,ticket_category"`
	Description string `json:"description" validate:"required,max=10000"`
}

// UpdateTicketRequest payload. At least one field must be present.
type UpdateTicketRequest struct {
	State    *string `json:"state" validate:"omitempty,ticket_state"`
	Category *string `json:"category" validate:"omitempty,ticket_category"`
}

// CreateTextBlockRequest payload.
type CreateTextBlockRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID        int64                 `json:"id"`
	OwnerID   int64                 `json:"owner_id"`
	OwnerName string                `json:"owner_name"`
	Title     string                `json:"title"`
	Category  domain.TicketCategory `json:"category"`
	State     domain.TicketState    `json:"state"`
	CreatedAt time.Time             `json:"created_at"`
}

// TextBlockResponse represents one reply in a ticket thread.
type TextBlockResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
