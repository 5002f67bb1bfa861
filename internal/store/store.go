// Package store defines the persistence contracts consumed by the
// governance, audit, and ticket services. The postgres package implements
// them; services never touch database/sql directly.
package store

import (
	"context"

	"mercado/internal/domain"

	"github.com/google/uuid"
)

// Tx is the unit of work behind a single governance operation. Row reads
// take locks, so two concurrent transitions on the same seller serialize
// at the store.
type Tx interface {
	// SellerByUserIDForUpdate reads the profile row with a row lock.
	SellerByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.SellerProfile, error)
	UpdateSeller(ctx context.Context, profile *domain.SellerProfile) error

	// AppendAuditEvent inserts exactly one immutable audit row.
	AppendAuditEvent(ctx context.Context, event *domain.AdminAuditEvent) error

	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	CreateTicketMessage(ctx context.Context, message *domain.TicketMessage) error
	TicketByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) error
	TicketHasAdminReply(ctx context.Context, ticketID uuid.UUID) (bool, error)
}

// Store opens transactions. The callback either commits as a whole or
// leaves no trace.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
