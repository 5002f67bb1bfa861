// Package ticket implements the support ticket thread between sellers and
// the admin team, including the escalation slice driven by governance.
package ticket

import (
	"context"
	"strings"
	"time"

	"mercado/internal/domain"
	"mercado/internal/store"
	"mercado/pkg/errors"
	"mercado/pkg/logger"

	"github.com/google/uuid"
)

// Gate mirrors the governance authorization gate.
type Gate interface {
	HasRole(ctx context.Context, userID uuid.UUID, rol domain.Rol) (bool, error)
}

// Reader serves non-transactional ticket reads.
type Reader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Ticket, error)
	ListMessages(ctx context.Context, ticketID uuid.UUID) ([]*domain.TicketMessage, error)
}

// Writer persists new self-service tickets. Everything that mutates an
// existing ticket goes through the transactional store instead.
type Writer interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
}

// Clock supplies timestamps so tests can pin time.
type Clock interface {
	Now() time.Time
}

type Service struct {
	store  store.Store
	reader Reader
	writer Writer
	gate   Gate
	clock  Clock
	logger logger.Logger
}

func NewService(st store.Store, reader Reader, writer Writer, gate Gate, clock Clock, log logger.Logger) *Service {
	return &Service{store: st, reader: reader, writer: writer, gate: gate, clock: clock, logger: log}
}

// NewEscalation builds the verification ticket and initial admin message
// opened when governance re-requests documents. Pure construction; the
// caller persists both inside its own transaction.
func NewEscalation(sellerUserID, adminID uuid.UUID, reason string, now time.Time) (*domain.Ticket, *domain.TicketMessage) {
	ticket := &domain.Ticket{
		ID:        uuid.New(),
		UserID:    sellerUserID,
		Asunto:    "Verificación: se requieren documentos adicionales",
		Mensaje:   reason,
		Tipo:      domain.TicketTipoVerificacion,
		Prioridad: domain.PrioridadAlta,
		Estado:    domain.TicketAbierto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	message := &domain.TicketMessage{
		ID:        uuid.New(),
		TicketID:  ticket.ID,
		SenderID:  adminID,
		Mensaje:   reason,
		EsAdmin:   true,
		CreatedAt: now,
	}
	return ticket, message
}

// CreateEscalation opens a verification ticket outside a governance
// transition, for admins chasing documentation manually.
func (s *Service) CreateEscalation(ctx context.Context, sellerUserID, adminID uuid.UUID, reason string) (*domain.Ticket, error) {
	if ok, err := s.gate.HasRole(ctx, adminID, domain.RolAdmin); err != nil {
		return nil, errors.Wrap(err, "failed to check admin role")
	} else if !ok {
		return nil, errors.ErrUnauthorized
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.Validation("reason", "is required")
	}

	var ticket *domain.Ticket
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var message *domain.TicketMessage
		ticket, message = NewEscalation(sellerUserID, adminID, reason, s.clock.Now())
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return err
		}
		return tx.CreateTicketMessage(ctx, message)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("escalation ticket opened", map[string]interface{}{
		"ticket_id":      ticket.ID,
		"seller_user_id": sellerUserID,
		"admin_id":       adminID,
	})
	return ticket, nil
}

// Close resolves a ticket. A ticket cannot close until an admin has
// replied at least once, so sellers never get silently dismissed.
func (s *Service) Close(ctx context.Context, ticketID, adminID uuid.UUID) (*domain.Ticket, error) {
	if ok, err := s.gate.HasRole(ctx, adminID, domain.RolAdmin); err != nil {
		return nil, errors.Wrap(err, "failed to check admin role")
	} else if !ok {
		return nil, errors.ErrUnauthorized
	}

	var closed *domain.Ticket
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		ticket, err := tx.TicketByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Estado == domain.TicketCerrado {
			return errors.Wrap(errors.ErrInvalidTransition, "ticket already closed")
		}
		replied, err := tx.TicketHasAdminReply(ctx, ticketID)
		if err != nil {
			return err
		}
		if !replied {
			return errors.Wrap(errors.ErrPreconditionFailed, "ticket has no admin reply")
		}

		prevEstado := ticket.Estado
		now := s.clock.Now()
		ticket.Estado = domain.TicketCerrado
		ticket.ClosedAt = &now
		ticket.AsignadoA = &adminID
		ticket.UpdatedAt = now
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}

		if err := tx.AppendAuditEvent(ctx, &domain.AdminAuditEvent{
			ID:          uuid.New(),
			EntityType:  domain.EntityTicket,
			EntityID:    ticket.ID,
			Action:      domain.AuditTicketClosed,
			PerformedBy: adminID,
			Metadata: domain.NewAuditableChange().
				Set("estado", string(prevEstado), string(domain.TicketCerrado)).
				Context("user_id", ticket.UserID.String()).
				Metadata(),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		closed = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket closed", map[string]interface{}{
		"ticket_id": ticketID,
		"admin_id":  adminID,
	})
	return closed, nil
}

// Open starts an ordinary support ticket for a seller. This is the simpler
// flow outside governance.
func (s *Service) Open(ctx context.Context, userID uuid.UUID, asunto, mensaje string, tipo domain.TicketTipo) (*domain.Ticket, error) {
	if strings.TrimSpace(asunto) == "" {
		return nil, errors.Validation("asunto", "is required")
	}
	if strings.TrimSpace(mensaje) == "" {
		return nil, errors.Validation("mensaje", "is required")
	}
	if tipo == "" {
		tipo = domain.TicketTipoGeneral
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		ID:        uuid.New(),
		UserID:    userID,
		Asunto:    asunto,
		Mensaje:   mensaje,
		Tipo:      tipo,
		Prioridad: domain.PrioridadMedia,
		Estado:    domain.TicketAbierto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writer.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Reply appends a message to an open ticket. Admin replies put the thread
// in esperando_usuario; seller replies put it back in en_proceso. The read
// and both writes run in one transaction on the locked row, so a reply can
// never overwrite a close that committed in between.
func (s *Service) Reply(ctx context.Context, ticketID, senderID uuid.UUID, mensaje string) (*domain.TicketMessage, error) {
	if strings.TrimSpace(mensaje) == "" {
		return nil, errors.Validation("mensaje", "is required")
	}
	esAdmin, err := s.gate.HasRole(ctx, senderID, domain.RolAdmin)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check sender role")
	}

	var message *domain.TicketMessage
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		ticket, err := tx.TicketByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Estado == domain.TicketCerrado {
			return errors.Wrap(errors.ErrInvalidTransition, "ticket already closed")
		}
		if !esAdmin && ticket.UserID != senderID {
			return errors.ErrUnauthorized
		}

		now := s.clock.Now()
		message = &domain.TicketMessage{
			ID:        uuid.New(),
			TicketID:  ticketID,
			SenderID:  senderID,
			Mensaje:   mensaje,
			EsAdmin:   esAdmin,
			CreatedAt: now,
		}
		if err := tx.CreateTicketMessage(ctx, message); err != nil {
			return err
		}

		if esAdmin {
			ticket.Estado = domain.TicketEsperandoUsuario
		} else {
			ticket.Estado = domain.TicketEnProceso
		}
		ticket.UpdatedAt = now
		return tx.UpdateTicket(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// Get returns a ticket with its full thread. Sellers may only read their
// own tickets.
func (s *Service) Get(ctx context.Context, ticketID, callerID uuid.UUID) (*domain.Ticket, []*domain.TicketMessage, error) {
	ticket, err := s.reader.FindByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.UserID != callerID {
		isAdmin, err := s.gate.HasRole(ctx, callerID, domain.RolAdmin)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to check caller role")
		}
		if !isAdmin {
			return nil, nil, errors.ErrUnauthorized
		}
	}
	messages, err := s.reader.ListMessages(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, messages, nil
}

// ListForUser pages a seller's own tickets.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Ticket, error) {
	return s.reader.ListByUserID(ctx, userID, limit, offset)
}
