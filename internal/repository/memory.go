package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// MemoryStore keeps users, tickets and text blocks in-process. It backs the
// service when no POSTGRES_DSN is configured and doubles as the test store.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]domain.User
	tickets    map[int64]domain.Ticket
	blocks     []domain.TextBlock
	nextUser   int64
	nextTicket int64
	nextBlock  int64
	lastStamp  time.Time
	now        func() time.Time
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[int64]domain.User),
		tickets: make(map[int64]domain.Ticket),
		now:     time.Now,
	}
}

// stamp returns a creation time that never goes backwards, so insertion order
// and timestamp order agree. Callers hold mu.
func (m *MemoryStore) stamp() time.Time {
	t := m.now().UTC()
	if t.Before(m.lastStamp) {
		t = m.lastStamp
	}
	m.lastStamp = t
	return t
}

// Users returns a UserRepository view of the store.
func (m *MemoryStore) Users() UserRepository { return memoryUsers{m} }

// Tickets returns a TicketRepository view of the store.
func (m *MemoryStore) Tickets() TicketRepository { return memoryTickets{m} }

// TextBlocks returns a TextBlockRepository view of the store.
func (m *MemoryStore) TextBlocks() TextBlockRepository { return memoryTextBlocks{m} }

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	r.m.nextUser++
	user.ID = r.m.nextUser
	r.m.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	user, ok := r.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, user := range r.m.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

type memoryTickets struct{ m *MemoryStore }

func (r memoryTickets) Create(_ context.Context, ticket *domain.Ticket, initial *domain.TextBlock) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextTicket++
	ticket.ID = r.m.nextTicket
	ticket.CreatedAt = r.m.stamp()
	r.m.tickets[ticket.ID] = *ticket
	if initial != nil {
		initial.TicketID = ticket.ID
		r.m.appendBlock(initial)
	}
	return nil
}

func (r memoryTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	ticket, ok := r.m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (r memoryTickets) List(_ context.Context) ([]domain.Ticket, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	result := make([]domain.Ticket, 0, len(r.m.tickets))
	for _, ticket := range r.m.tickets {
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r memoryTickets) Update(_ context.Context, id int64, change domain.TicketChange) (*domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ticket, ok := r.m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if change.HasState() {
		ticket.State = change.State
	}
	if change.HasCategory() {
		ticket.Category = change.Category
	}
	r.m.tickets[id] = ticket
	return &ticket, nil
}

type memoryTextBlocks struct{ m *MemoryStore }

func (r memoryTextBlocks) Create(_ context.Context, block *domain.TextBlock) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.tickets[block.TicketID]; !ok {
		return ErrNotFound
	}
	r.m.appendBlock(block)
	return nil
}

func (r memoryTextBlocks) ListByTicket(_ context.Context, ticketID int64) ([]domain.TextBlock, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	result := []domain.TextBlock{}
	for _, block := range r.m.blocks {
		if block.TicketID == ticketID {
			result = append(result, block)
		}
	}
	return result, nil
}

// appendBlock assigns id and timestamp. Callers hold mu.
func (m *MemoryStore) appendBlock(block *domain.TextBlock) {
	m.nextBlock++
	block.ID = m.nextBlock
	block.CreatedAt = m.stamp()
	m.blocks = append(m.blocks, *block)
}
