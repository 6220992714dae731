package domain

import "errors"

// ChangeKind tags which mutable ticket fields an update touches.
type ChangeKind int

const (
	ChangeCategory ChangeKind = iota + 1
	ChangeState
	ChangeBoth
)

// ErrEmptyChange is returned when an update names no field.
var ErrEmptyChange = errors.New("update must set state or category")

// TicketChange is a requested mutation of a ticket's state and/or category.
// Build it with CategoryChange, StateChange, BothChange or NewTicketChange;
// the zero value is not a valid change.
type TicketChange struct {
	Kind     ChangeKind
	State    TicketState
	Category TicketCategory
}

// CategoryChange requests a new category only.
func CategoryChange(c TicketCategory) TicketChange {
	return TicketChange{Kind: ChangeCategory, Category: c}
}

// StateChange requests a new state only.
func StateChange(s TicketState) TicketChange {
	return TicketChange{Kind: ChangeState, State: s}
}

// BothChange requests a new state and a new category.
func BothChange(s TicketState, c TicketCategory) TicketChange {
	return TicketChange{Kind: ChangeBoth, State: s, Category: c}
}

// HasState reports whether the change touches the state.
func (c TicketChange) HasState() bool {
	return c.Kind == ChangeState || c.Kind == ChangeBoth
}

// HasCategory reports whether the change touches the category.
func (c TicketChange) HasCategory() bool {
	return c.Kind == ChangeCategory || c.Kind == ChangeBoth
}

// NewTicketChange parses optional raw field values. Malformed values are
// rejected here so no mutation is ever attempted with them.
func NewTicketChange(state, category *string) (TicketChange, error) {
	var (
		s   TicketState
		c   TicketCategory
		err error
	)
	if state != nil {
		if s, err = ParseTicketState(*state); err != nil {
			return TicketChange{}, err
		}
	}
	if category != nil {
		if c, err = ParseTicketCategory(*category); err != nil {
			return TicketChange{}, err
		}
	}
	switch {
	case state != nil && category != nil:
		return BothChange(s, c), nil
	case state != nil:
		return StateChange(s), nil
	case category != nil:
		return CategoryChange(c), nil
	default:
		return TicketChange{}, ErrEmptyChange
	}
}

// Effective drops the parts of the change that would not alter t. The second
// result is false when nothing is left to write.
func (c TicketChange) Effective(t Ticket) (TicketChange, bool) {
	keepState := c.HasState() && c.State != t.State
	keepCategory := c.HasCategory() && c.Category != t.Category
	switch {
	case keepState && keepCategory:
		return BothChange(c.State, c.Category), true
	case keepState:
		return StateChange(c.State), true
	case keepCategory:
		return CategoryChange(c.Category), true
	default:
		return TicketChange{}, false
	}
}
