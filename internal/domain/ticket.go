package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen   TicketState = "open"
	TicketStateClosed TicketState = "closed"
)

// TicketCategory enumerates the fixed ticket categories.
type TicketCategory string

const (
	CategoryInquiry        TicketCategory = "inquiry"
	CategoryMaintenance    TicketCategory = "maintenance"
	CategoryNewFeature     TicketCategory = "new feature"
	CategoryAdministrative TicketCategory = "administrative"
	CategoryPayment        TicketCategory = "payment"
)

// Categories lists every valid category in display order.
var Categories = []TicketCategory{
	CategoryInquiry,
	CategoryMaintenance,
	CategoryNewFeature,
	CategoryAdministrative,
	CategoryPayment,
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID        int64
	OwnerID   int64
	OwnerName string
	Title     string
	Category  TicketCategory
	State     TicketState
	CreatedAt time.Time
}

// ParseTicketState accepts "open" or "closed", case-insensitively.
func ParseTicketState(raw string) (TicketState, error) {
	switch s := TicketState(strings.ToLower(strings.TrimSpace(raw))); s {
	case TicketStateOpen, TicketStateClosed:
		return s, nil
	default:
		return "", fmt.Errorf("invalid ticket state %q", raw)
	}
}

// ParseTicketCategory accepts one of Categories, case-insensitively.
func ParseTicketCategory(raw string) (TicketCategory, error) {
	c := TicketCategory(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid ticket category %q", raw)
}
