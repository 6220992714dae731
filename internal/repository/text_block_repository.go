package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// TextBlockRepository manages the append-only ticket thread.
type TextBlockRepository interface {
	Create(ctx context.Context, block *domain.TextBlock) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TextBlock, error)
}

type textBlockRepository struct {
	pool *pgxpool.Pool
}

// NewTextBlockRepository builds repository.
func NewTextBlockRepository(pool *pgxpool.Pool) TextBlockRepository {
	return &textBlockRepository{pool: pool}
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertTextBlock(ctx context.Context, q rowQuerier, block *domain.TextBlock) error {
	const query = `
        INSERT INTO ticket_text_blocks (ticket_id, author_id, author_name, content)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		block.TicketID,
		block.AuthorID,
		block.AuthorName,
		block.Content,
	).Scan(&block.ID, &block.CreatedAt)
}

func (r *textBlockRepository) Create(ctx context.Context, block *domain.TextBlock) error {
	return constraintError(insertTextBlock(ctx, r.pool, block))
}

func (r *textBlockRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TextBlock, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_name, content, created_at
        FROM ticket_text_blocks WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TextBlock{}
	for rows.Next() {
		var block domain.TextBlock
		if err := rows.Scan(
			&block.ID,
			&block.TicketID,
			&block.AuthorID,
			&block.AuthorName,
			&block.Content,
			&block.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, block)
	}
	return result, rows.Err()
}
