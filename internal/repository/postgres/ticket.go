package postgres

import (
	"context"
	"database/sql"

	"mercado/internal/domain"
	"mercado/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TicketRepository serves ticket reads and self-service creation. Every
// mutation of an existing ticket (replies, closure, escalation writes)
// runs through the transactional store instead.
type TicketRepository struct {
	db *sqlx.DB
}

func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `
	id, user_id, asunto, mensaje, tipo, prioridad, estado,
	asignado_a, closed_at, created_at, updated_at
`

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query := `
		INSERT INTO tickets (
			id, user_id, asunto, mensaje, tipo, prioridad, estado,
			asignado_a, closed_at, created_at, updated_at
		) VALUES (
			:id, :user_id, :asunto, :mensaje, :tipo, :prioridad, :estado,
			:asignado_a, :closed_at, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, ticket); err != nil {
		return errors.Wrap(err, "failed to create ticket")
	}
	return nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	if err := r.db.GetContext(ctx, &ticket, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTicketNotFound
		}
		return nil, errors.Wrap(err, "failed to find ticket")
	}
	return &ticket, nil
}

func (r *TicketRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &tickets, query, userID, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to list tickets")
	}
	return tickets, nil
}

func (r *TicketRepository) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]*domain.TicketMessage, error) {
	var messages []*domain.TicketMessage
	query := `
		SELECT id, ticket_id, sender_id, mensaje, es_admin, created_at
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at ASC
	`
	if err := r.db.SelectContext(ctx, &messages, query, ticketID); err != nil {
		return nil, errors.Wrap(err, "failed to list ticket messages")
	}
	return messages, nil
}
