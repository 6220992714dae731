package domain

import "time"

// TextBlock is an append-only message in a ticket thread. The first block of
// a ticket carries its description.
type TextBlock struct {
	ID         int64
	TicketID   int64
	AuthorID   int64
	AuthorName string
	Content    string
	CreatedAt  time.Time
}
