// Package postgres implements the store contracts over sqlx.
package postgres

import (
	"context"
	"database/sql"

	"mercado/internal/domain"
	"mercado/internal/store"
	"mercado/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store opens transactional units of work against Postgres.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over an open sqlx handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// WithTx runs fn inside one database transaction. Any error (or panic)
// rolls the whole unit back.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Storage(err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Storage(err)
	}
	return nil
}

// sqlTx implements store.Tx over one open transaction.
type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) SellerByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.SellerProfile, error) {
	var profile domain.SellerProfile
	query := `
		SELECT id, user_id, estado_validacion, estado_admin,
		       kyc_checklist, kyc_score, kyc_riesgo, kyc_reviewed_by, kyc_reviewed_at,
		       observaciones, notas_internas,
		       doc_dpi_frente, doc_dpi_reverso, doc_selfie,
		       created_at, updated_at
		FROM seller_profiles
		WHERE user_id = $1
		FOR UPDATE
	`
	if err := t.tx.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrSellerNotFound
		}
		return nil, errors.Storage(err)
	}
	return &profile, nil
}

func (t *sqlTx) UpdateSeller(ctx context.Context, profile *domain.SellerProfile) error {
	query := `
		UPDATE seller_profiles SET
			estado_validacion = :estado_validacion,
			estado_admin = :estado_admin,
			kyc_checklist = :kyc_checklist,
			kyc_score = :kyc_score,
			kyc_riesgo = :kyc_riesgo,
			kyc_reviewed_by = :kyc_reviewed_by,
			kyc_reviewed_at = :kyc_reviewed_at,
			observaciones = :observaciones,
			notas_internas = :notas_internas,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := t.tx.NamedExecContext(ctx, query, profile)
	if err != nil {
		return errors.Storage(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Storage(err)
	}
	if rows == 0 {
		return errors.ErrSellerNotFound
	}
	return nil
}

func (t *sqlTx) AppendAuditEvent(ctx context.Context, event *domain.AdminAuditEvent) error {
	query := `
		INSERT INTO admin_audit_events (
			id, entity_type, entity_id, action, performed_by, comment, metadata, created_at
		) VALUES (
			:id, :entity_type, :entity_id, :action, :performed_by, :comment, :metadata, :created_at
		)
	`
	if _, err := t.tx.NamedExecContext(ctx, query, event); err != nil {
		return errors.Storage(err)
	}
	return nil
}

func (t *sqlTx) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	query := `
		INSERT INTO tickets (
			id, user_id, asunto, mensaje, tipo, prioridad, estado,
			asignado_a, closed_at, created_at, updated_at
		) VALUES (
			:id, :user_id, :asunto, :mensaje, :tipo, :prioridad, :estado,
			:asignado_a, :closed_at, :created_at, :updated_at
		)
	`
	if _, err := t.tx.NamedExecContext(ctx, query, ticket); err != nil {
		return errors.Storage(err)
	}
	return nil
}

func (t *sqlTx) CreateTicketMessage(ctx context.Context, message *domain.TicketMessage) error {
	query := `
		INSERT INTO ticket_messages (id, ticket_id, sender_id, mensaje, es_admin, created_at)
		VALUES (:id, :ticket_id, :sender_id, :mensaje, :es_admin, :created_at)
	`
	if _, err := t.tx.NamedExecContext(ctx, query, message); err != nil {
		return errors.Storage(err)
	}
	return nil
}

func (t *sqlTx) TicketByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	query := `
		SELECT id, user_id, asunto, mensaje, tipo, prioridad, estado,
		       asignado_a, closed_at, created_at, updated_at
		FROM tickets
		WHERE id = $1
		FOR UPDATE
	`
	if err := t.tx.GetContext(ctx, &ticket, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTicketNotFound
		}
		return nil, errors.Storage(err)
	}
	return &ticket, nil
}

func (t *sqlTx) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	query := `
		UPDATE tickets SET
			estado = :estado,
			prioridad = :prioridad,
			asignado_a = :asignado_a,
			closed_at = :closed_at,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := t.tx.NamedExecContext(ctx, query, ticket)
	if err != nil {
		return errors.Storage(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Storage(err)
	}
	if rows == 0 {
		return errors.ErrTicketNotFound
	}
	return nil
}

func (t *sqlTx) TicketHasAdminReply(ctx context.Context, ticketID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ticket_messages WHERE ticket_id = $1 AND es_admin = TRUE)`
	if err := t.tx.GetContext(ctx, &exists, query, ticketID); err != nil {
		return false, errors.Storage(err)
	}
	return exists, nil
}
