// Package governance orchestrates every administrative transition on a
// seller profile: KYC review, approval, rejection, suspension,
// reactivation, and document re-requests. All mutations run as one
// transaction with exactly one audit event; a failure anywhere rolls the
// whole unit back.
package governance

import (
	"context"
	"strings"
	"time"

	"mercado/internal/domain"
	"mercado/internal/riskscore"
	"mercado/internal/store"
	ticketpkg "mercado/internal/ticket"
	"mercado/pkg/errors"
	"mercado/pkg/logger"
	"mercado/pkg/metrics"

	"github.com/google/uuid"
)

// Gate confirms the caller holds a platform role before any transition
// proceeds.
type Gate interface {
	HasRole(ctx context.Context, userID uuid.UUID, rol domain.Rol) (bool, error)
}

// SellerReader serves the non-transactional read surface.
type SellerReader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.SellerProfile, error)
	ListByEstadoValidacion(ctx context.Context, estado domain.EstadoValidacion, limit, offset int) ([]*domain.SellerProfile, error)
	CountByEstadoValidacion(ctx context.Context, estado domain.EstadoValidacion) (int, error)
}

// SnapshotCache caches seller governance snapshots. Every committed
// transition invalidates the seller's entry.
type SnapshotCache interface {
	GetSeller(ctx context.Context, userID uuid.UUID) (*domain.SellerProfile, error)
	SetSeller(ctx context.Context, profile *domain.SellerProfile) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// Clock supplies timestamps so tests can pin time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Service is the governance engine.
type Service struct {
	store   store.Store
	sellers SellerReader
	gate    Gate
	cache   SnapshotCache
	clock   Clock
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewService wires the governance engine. cache may be nil when Redis is
// not configured.
func NewService(st store.Store, sellers SellerReader, gate Gate, cache SnapshotCache, clock Clock, log logger.Logger, m *metrics.Metrics) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		store:   st,
		sellers: sellers,
		gate:    gate,
		cache:   cache,
		clock:   clock,
		logger:  log,
		metrics: m,
	}
}

// authorize fails with ErrUnauthorized unless adminID holds the admin role.
func (s *Service) authorize(ctx context.Context, adminID uuid.UUID) error {
	ok, err := s.gate.HasRole(ctx, adminID, domain.RolAdmin)
	if err != nil {
		return errors.Wrap(err, "failed to check admin role")
	}
	if !ok {
		return errors.ErrUnauthorized
	}
	return nil
}

// ReviewKYC records the reviewer checklist on the profile and computes the
// score and risk tier. It never touches the verification or operational
// state, so it is legal regardless of the current one.
func (s *Service) ReviewKYC(ctx context.Context, sellerUserID uuid.UUID, checklist domain.KYCChecklist, notas string, adminID uuid.UUID) (*domain.SellerProfile, error) {
	start := s.clock.Now()
	if err := s.authorize(ctx, adminID); err != nil {
		return nil, s.failed("review_kyc", err)
	}

	score, riesgo := riskscore.Evaluate(checklist)

	var snapshot *domain.SellerProfile
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		profile, err := tx.SellerByUserIDForUpdate(ctx, sellerUserID)
		if err != nil {
			return err
		}

		change := domain.NewAuditableChange().
			Set("kyc_score", profile.KYCScore, score).
			Set("kyc_riesgo", string(profile.KYCRiesgo), string(riesgo)).
			Context("kyc_checklist", checklist)

		now := s.clock.Now()
		profile.KYCChecklist = checklist
		profile.KYCScore = score
		profile.KYCRiesgo = riesgo
		profile.KYCReviewedBy = &adminID
		profile.KYCReviewedAt = &now
		if strings.TrimSpace(notas) != "" {
			profile.NotasInternas = &notas
		}
		profile.UpdatedAt = now

		if err := tx.UpdateSeller(ctx, profile); err != nil {
			return err
		}
		if err := tx.AppendAuditEvent(ctx, s.auditEvent(profile.ID, domain.AuditKYCReviewed, adminID, nil, change, now)); err != nil {
			return err
		}
		snapshot = profile
		return nil
	})
	if err != nil {
		return nil, s.failed("review_kyc", err)
	}

	s.committed(ctx, "review_kyc", sellerUserID, adminID, start, map[string]interface{}{
		"kyc_score":  score,
		"kyc_riesgo": riesgo,
	})
	return snapshot, nil
}

// Approve moves a pending seller to aprobado/activo. Only legal from
// pendiente and only when the recorded score meets the approval threshold.
func (s *Service) Approve(ctx context.Context, sellerUserID, adminID uuid.UUID) (*domain.SellerProfile, error) {
	start := s.clock.Now()
	if err := s.authorize(ctx, adminID); err != nil {
		return nil, s.failed("approve", err)
	}

	var snapshot *domain.SellerProfile
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		profile, err := tx.SellerByUserIDForUpdate(ctx, sellerUserID)
		if err != nil {
			return err
		}
		if profile.EstadoValidacion != domain.ValidacionPendiente {
			return errors.Wrap(errors.ErrInvalidTransition, "approve requires estado_validacion pendiente")
		}
		if profile.KYCScore < riskscore.ApprovalThreshold {
			return errors.ErrInsufficientScore
		}

		change := domain.NewAuditableChange().
			Set("estado_validacion", string(profile.EstadoValidacion), string(domain.ValidacionAprobado)).
			Set("estado_admin", string(profile.EstadoAdmin), string(domain.AdminActivo)).
			Context("kyc_score", profile.KYCScore)

		now := s.clock.Now()
		profile.EstadoValidacion = domain.ValidacionAprobado
		profile.EstadoAdmin = domain.AdminActivo
		profile.UpdatedAt = now
		if err := domain.ValidarEstados(profile.EstadoValidacion, profile.EstadoAdmin); err != nil {
			return errors.Wrap(errors.ErrInvalidTransition, err.Error())
		}

		if err := tx.UpdateSeller(ctx, profile); err != nil {
			return err
		}
		if err := tx.AppendAuditEvent(ctx, s.auditEvent(profile.ID, domain.AuditKYCApproved, adminID, nil, change, now)); err != nil {
			return err
		}
		snapshot = profile
		return nil
	})
	if err != nil {
		return nil, s.failed("approve", err)
	}

	s.committed(ctx, "approve", sellerUserID, adminID, start, nil)
	return snapshot, nil
}

// Reject moves a pending seller to rechazado/inactivo. The comment is
// mandatory and becomes the seller-visible observación.
func (s *Service) Reject(ctx context.Context, sellerUserID, adminID uuid.UUID, comment string) (*domain.SellerProfile, error) {
	start := s.clock.Now()
	if err := s.authorize(ctx, adminID); err != nil {
		return nil, s.failed("reject", err)
	}
	if strings.TrimSpace(comment) == "" {
		return nil, s.failed("reject", errors.Validation("comment", "is required"))
	}

	var snapshot *domain.SellerProfile
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		profile, err := tx.SellerByUserIDForUpdate(ctx, sellerUserID)
		if err != nil {
			return err
		}
		if profile.EstadoValidacion != domain.ValidacionPendiente {
			return errors.Wrap(errors.ErrInvalidTransition, "reject requires estado_validacion pendiente")
		}

		change := domain.NewAuditableChange().
			Set("estado_validacion", string(profile.EstadoValidacion), string(domain.ValidacionRechazado)).
			Set("estado_admin", string(profile.EstadoAdmin), string(domain.AdminInactivo))

		now := s.clock.Now()
		profile.EstadoValidacion = domain.ValidacionRechazado
		profile.EstadoAdmin = domain.AdminInactivo
		profile.Observaciones = &comment
		profile.UpdatedAt = now
		if err := domain.ValidarEstados(profile.EstadoValidacion, profile.EstadoAdmin); err != nil {
			return errors.Wrap(errors.ErrInvalidTransition, err.Error())
		}

		if err := tx.UpdateSeller(ctx, profile); err != nil {
			return err
		}
		if err := tx.AppendAuditEvent(ctx, s.auditEvent(profile.ID, domain.AuditKYCRejected, adminID, &comment, change, now)); err != nil {
			return err
		}
		snapshot = profile
		return nil
	})
	if err != nil {
		return nil, s.failed("reject", err)
	}

	s.committed(ctx, "reject", sellerUserID, adminID, start, nil)
	return snapshot, nil
}

// Suspend sets estado_admin to suspendido from any operational state.
func (s *Service) Suspend(ctx context.Context, sellerUserID, adminID uuid.UUID) (*domain.SellerProfile, error) {
	return s.setEstadoAdmin(ctx, sellerUserID, adminID, domain.AdminSuspendido, domain.AuditSellerSuspended, "suspend")
}

// Reactivate sets estado_admin to activo from any operational state.
// Deliberately permissive: it does not re-check the verification state, so
// admins can manually restore a seller without a new approval round.
func (s *Service) Reactivate(ctx context.Context, sellerUserID, adminID uuid.UUID) (*domain.SellerProfile, error) {
	return s.setEstadoAdmin(ctx, sellerUserID, adminID, domain.AdminActivo, domain.AuditSellerReactivated, "reactivate")
}

func (s *Service) setEstadoAdmin(ctx context.Context, sellerUserID, adminID uuid.UUID, target domain.EstadoAdmin, action domain.AuditAction, opName string) (*domain.SellerProfile, error) {
	start := s.clock.Now()
	if err := s.authorize(ctx, adminID); err != nil {
		return nil, s.failed(opName, err)
	}

	var snapshot *domain.SellerProfile
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		profile, err := tx.SellerByUserIDForUpdate(ctx, sellerUserID)
		if err != nil {
			return err
		}

		change := domain.NewAuditableChange().
			Set("estado_admin", string(profile.EstadoAdmin), string(target))

		now := s.clock.Now()
		profile.EstadoAdmin = target
		profile.UpdatedAt = now
		if err := domain.ValidarEstados(profile.EstadoValidacion, profile.EstadoAdmin); err != nil {
			return errors.Wrap(errors.ErrInvalidTransition, err.Error())
		}

		if err := tx.UpdateSeller(ctx, profile); err != nil {
			return err
		}
		if err := tx.AppendAuditEvent(ctx, s.auditEvent(profile.ID, action, adminID, nil, change, now)); err != nil {
			return err
		}
		snapshot = profile
		return nil
	})
	if err != nil {
		return nil, s.failed(opName, err)
	}

	s.committed(ctx, opName, sellerUserID, adminID, start, nil)
	return snapshot, nil
}

// RequestMoreDocuments resets the seller to pendiente/inactivo and opens a
// high-priority verification ticket carrying the admin's comment, all in
// one transaction. Legal from any state, so an already approved seller can
// be forced to resubmit.
func (s *Service) RequestMoreDocuments(ctx context.Context, sellerUserID, adminID uuid.UUID, comment string) (*domain.SellerProfile, *domain.Ticket, error) {
	start := s.clock.Now()
	if err := s.authorize(ctx, adminID); err != nil {
		return nil, nil, s.failed("request_documents", err)
	}
	if strings.TrimSpace(comment) == "" {
		return nil, nil, s.failed("request_documents", errors.Validation("comment", "is required"))
	}

	var (
		snapshot *domain.SellerProfile
		ticket   *domain.Ticket
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		profile, err := tx.SellerByUserIDForUpdate(ctx, sellerUserID)
		if err != nil {
			return err
		}

		change := domain.NewAuditableChange().
			Set("estado_validacion", string(profile.EstadoValidacion), string(domain.ValidacionPendiente)).
			Set("estado_admin", string(profile.EstadoAdmin), string(domain.AdminInactivo))

		now := s.clock.Now()
		profile.EstadoValidacion = domain.ValidacionPendiente
		profile.EstadoAdmin = domain.AdminInactivo
		profile.UpdatedAt = now
		if err := domain.ValidarEstados(profile.EstadoValidacion, profile.EstadoAdmin); err != nil {
			return errors.Wrap(errors.ErrInvalidTransition, err.Error())
		}

		if err := tx.UpdateSeller(ctx, profile); err != nil {
			return err
		}

		var message *domain.TicketMessage
		ticket, message = ticketpkg.NewEscalation(sellerUserID, adminID, comment, now)
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return err
		}
		if err := tx.CreateTicketMessage(ctx, message); err != nil {
			return err
		}

		change.Context("ticket_id", ticket.ID.String())
		if err := tx.AppendAuditEvent(ctx, s.auditEvent(profile.ID, domain.AuditKYCDocumentsRequested, adminID, &comment, change, now)); err != nil {
			return err
		}
		snapshot = profile
		return nil
	})
	if err != nil {
		return nil, nil, s.failed("request_documents", err)
	}

	if s.metrics != nil {
		s.metrics.EscalationTickets.Inc()
	}
	s.committed(ctx, "request_documents", sellerUserID, adminID, start, map[string]interface{}{
		"ticket_id": ticket.ID,
	})
	return snapshot, ticket, nil
}

// GetSeller returns the governance snapshot of one seller, served from the
// cache when warm.
func (s *Service) GetSeller(ctx context.Context, userID uuid.UUID) (*domain.SellerProfile, error) {
	if s.cache != nil {
		if profile, err := s.cache.GetSeller(ctx, userID); err == nil {
			return profile, nil
		}
	}
	profile, err := s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetSeller(ctx, profile); err != nil {
			s.logger.Warn("failed to cache seller snapshot", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	return profile, nil
}

// ListByEstado pages the review queue for the admin dashboard.
func (s *Service) ListByEstado(ctx context.Context, estado domain.EstadoValidacion, limit, offset int) ([]*domain.SellerProfile, int, error) {
	profiles, err := s.sellers.ListByEstadoValidacion(ctx, estado, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.sellers.CountByEstadoValidacion(ctx, estado)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (s *Service) auditEvent(profileID uuid.UUID, action domain.AuditAction, adminID uuid.UUID, comment *string, change *domain.AuditableChange, now time.Time) *domain.AdminAuditEvent {
	return &domain.AdminAuditEvent{
		ID:          uuid.New(),
		EntityType:  domain.EntitySeller,
		EntityID:    profileID,
		Action:      action,
		PerformedBy: adminID,
		Comment:     comment,
		Metadata:    change.Metadata(),
		CreatedAt:   now,
	}
}

// committed logs and measures one successful transition, and drops the
// seller's cached snapshot.
func (s *Service) committed(ctx context.Context, op string, sellerUserID, adminID uuid.UUID, start time.Time, extra map[string]interface{}) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, sellerUserID); err != nil {
			s.logger.Warn("failed to invalidate seller cache", map[string]interface{}{
				"user_id": sellerUserID,
				"error":   err.Error(),
			})
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveDecision(op, start)
	}
	fields := map[string]interface{}{
		"operation":      op,
		"seller_user_id": sellerUserID,
		"admin_id":       adminID,
	}
	for k, v := range extra {
		fields[k] = v
	}
	s.logger.Info("governance transition committed", fields)
}

func (s *Service) failed(op string, err error) error {
	if s.metrics != nil {
		s.metrics.ObserveFailure(failureReason(err))
	}
	s.logger.Warn("governance operation rejected", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
	return err
}

func failureReason(err error) string {
	switch {
	case isErr(err, errors.ErrSellerNotFound), isErr(err, errors.ErrUserNotFound), isErr(err, errors.ErrTicketNotFound):
		return "not_found"
	case isErr(err, errors.ErrUnauthorized):
		return "unauthorized"
	case isErr(err, errors.ErrInvalidTransition):
		return "invalid_transition"
	case isErr(err, errors.ErrInsufficientScore):
		return "insufficient_score"
	case isErr(err, errors.ErrValidation):
		return "validation"
	case isErr(err, errors.ErrPreconditionFailed):
		return "precondition_failed"
	case isErr(err, errors.ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
