package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts ticket and, when initial is non-nil, its first text
	// block in the same transaction.
	Create(ctx context.Context, ticket *domain.Ticket, initial *domain.TextBlock) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
	// Update applies change to a single row and returns the stored ticket.
	Update(ctx context.Context, id int64, change domain.TicketChange) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_id, owner_name, title, category, state, created_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, initial *domain.TextBlock) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (owner_id, owner_name, title, category, state)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query,
		ticket.OwnerID,
		ticket.OwnerName,
		ticket.Title,
		ticket.Category,
		ticket.State,
	).Scan(&ticket.ID, &ticket.CreatedAt); err != nil {
		return err
	}

	if initial != nil {
		initial.TicketID = ticket.ID
		if err := insertTextBlock(ctx, tx, initial); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Update(ctx context.Context, id int64, change domain.TicketChange) (*domain.Ticket, error) {
	var state, category *string
	if change.HasState() {
		s := string(change.State)
		state = &s
	}
	if change.HasCategory() {
		c := string(change.Category)
		category = &c
	}
	query := `
        UPDATE tickets SET state=COALESCE($1, state), category=COALESCE($2, category)
        WHERE id=$3
        RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, state, category, id))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.OwnerName,
		&ticket.Title,
		&ticket.Category,
		&ticket.State,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
