package governance

import (
	"context"
	"testing"
	"time"

	"mercado/internal/domain"
	"mercado/internal/store"
	"mercado/pkg/errors"
	"mercado/pkg/logger"
	"mercado/pkg/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

// fakeStore keeps committed state separate from the staged transaction so
// rollback semantics can be asserted.
type fakeStore struct {
	tx       *fakeTx
	beginErr error
}

func (s *fakeStore) WithTx(_ context.Context, fn func(tx store.Tx) error) error {
	if s.beginErr != nil {
		return errors.Storage(s.beginErr)
	}
	s.tx.begin()
	if err := fn(s.tx); err != nil {
		s.tx.rollback()
		return err
	}
	s.tx.commit()
	return nil
}

type fakeTx struct {
	profile *domain.SellerProfile
	events  []*domain.AdminAuditEvent
	tickets []*domain.Ticket
	msgs    []*domain.TicketMessage

	staged       *domain.SellerProfile
	stagedEvents []*domain.AdminAuditEvent
	stagedTicks  []*domain.Ticket
	stagedMsgs   []*domain.TicketMessage

	updateErr error
	auditErr  error
}

func (t *fakeTx) begin() {
	if t.profile != nil {
		cp := *t.profile
		t.staged = &cp
	} else {
		t.staged = nil
	}
	t.stagedEvents = nil
	t.stagedTicks = nil
	t.stagedMsgs = nil
}

func (t *fakeTx) rollback() {
	t.staged = nil
	t.stagedEvents = nil
	t.stagedTicks = nil
	t.stagedMsgs = nil
}

func (t *fakeTx) commit() {
	if t.staged != nil {
		cp := *t.staged
		t.profile = &cp
	}
	t.events = append(t.events, t.stagedEvents...)
	t.tickets = append(t.tickets, t.stagedTicks...)
	t.msgs = append(t.msgs, t.stagedMsgs...)
}

func (t *fakeTx) SellerByUserIDForUpdate(_ context.Context, userID uuid.UUID) (*domain.SellerProfile, error) {
	if t.staged == nil || t.staged.UserID != userID {
		return nil, errors.ErrSellerNotFound
	}
	return t.staged, nil
}

func (t *fakeTx) UpdateSeller(_ context.Context, profile *domain.SellerProfile) error {
	if t.updateErr != nil {
		return errors.Storage(t.updateErr)
	}
	t.staged = profile
	return nil
}

func (t *fakeTx) AppendAuditEvent(_ context.Context, event *domain.AdminAuditEvent) error {
	if t.auditErr != nil {
		return errors.Storage(t.auditErr)
	}
	t.stagedEvents = append(t.stagedEvents, event)
	return nil
}

func (t *fakeTx) CreateTicket(_ context.Context, ticket *domain.Ticket) error {
	t.stagedTicks = append(t.stagedTicks, ticket)
	return nil
}

func (t *fakeTx) CreateTicketMessage(_ context.Context, msg *domain.TicketMessage) error {
	t.stagedMsgs = append(t.stagedMsgs, msg)
	return nil
}

func (t *fakeTx) TicketByIDForUpdate(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	for _, tk := range t.tickets {
		if tk.ID == id {
			cp := *tk
			return &cp, nil
		}
	}
	return nil, errors.ErrTicketNotFound
}

func (t *fakeTx) UpdateTicket(_ context.Context, ticket *domain.Ticket) error {
	for i, tk := range t.tickets {
		if tk.ID == ticket.ID {
			t.tickets[i] = ticket
			return nil
		}
	}
	return errors.ErrTicketNotFound
}

func (t *fakeTx) TicketHasAdminReply(_ context.Context, ticketID uuid.UUID) (bool, error) {
	for _, m := range append(t.msgs, t.stagedMsgs...) {
		if m.TicketID == ticketID && m.EsAdmin {
			return true, nil
		}
	}
	return false, nil
}

type fakeGate struct {
	admins map[uuid.UUID]bool
}

func (g *fakeGate) HasRole(_ context.Context, userID uuid.UUID, rol domain.Rol) (bool, error) {
	if rol != domain.RolAdmin {
		return false, nil
	}
	return g.admins[userID], nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// --- Harness ---

type harness struct {
	svc     *Service
	tx      *fakeTx
	st      *fakeStore
	adminID uuid.UUID
	userID  uuid.UUID
	now     time.Time
}

func newHarness(t *testing.T, profile *domain.SellerProfile) *harness {
	t.Helper()
	adminID := uuid.New()
	tx := &fakeTx{profile: profile}
	st := &fakeStore{tx: tx}
	gate := &fakeGate{admins: map[uuid.UUID]bool{adminID: true}}
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc := NewService(st, nil, gate, nil, fixedClock{t: now}, logger.NewNop(), metrics.NewNop())

	h := &harness{svc: svc, tx: tx, st: st, adminID: adminID, now: now}
	if profile != nil {
		h.userID = profile.UserID
	}
	return h
}

func pendingSeller() *domain.SellerProfile {
	return &domain.SellerProfile{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		EstadoValidacion: domain.ValidacionPendiente,
		EstadoAdmin:      domain.AdminInactivo,
		KYCRiesgo:        domain.RiesgoAlto,
	}
}

// --- ReviewKYC ---

func TestReviewKYC_StoresScoreAndAudits(t *testing.T) {
	h := newHarness(t, pendingSeller())
	checklist := domain.KYCChecklist{
		DPILegible:       true,
		SelfieCoincide:   true,
		DatosCoinciden:   true,
		ComercioLegitimo: true,
	}

	profile, err := h.svc.ReviewKYC(context.Background(), h.userID, checklist, "comercio verificado en línea", h.adminID)
	require.NoError(t, err)

	assert.Equal(t, 80, profile.KYCScore)
	assert.Equal(t, domain.RiesgoBajo, profile.KYCRiesgo)
	assert.Equal(t, checklist, profile.KYCChecklist)
	require.NotNil(t, profile.KYCReviewedBy)
	assert.Equal(t, h.adminID, *profile.KYCReviewedBy)
	require.NotNil(t, profile.KYCReviewedAt)
	assert.Equal(t, h.now, *profile.KYCReviewedAt)
	require.NotNil(t, profile.NotasInternas)

	// Review must not touch the state machine.
	assert.Equal(t, domain.ValidacionPendiente, profile.EstadoValidacion)
	assert.Equal(t, domain.AdminInactivo, profile.EstadoAdmin)

	require.Len(t, h.tx.events, 1)
	event := h.tx.events[0]
	assert.Equal(t, domain.AuditKYCReviewed, event.Action)
	assert.Equal(t, h.adminID, event.PerformedBy)
	before := event.Metadata["before"].(domain.Metadata)
	after := event.Metadata["after"].(domain.Metadata)
	assert.Equal(t, 0, before["kyc_score"])
	assert.Equal(t, 80, after["kyc_score"])
	assert.Equal(t, string(domain.RiesgoAlto), before["kyc_riesgo"])
	assert.Equal(t, string(domain.RiesgoBajo), after["kyc_riesgo"])
}

func TestReviewKYC_UnknownSeller(t *testing.T) {
	h := newHarness(t, pendingSeller())

	_, err := h.svc.ReviewKYC(context.Background(), uuid.New(), domain.KYCChecklist{}, "", h.adminID)
	assert.ErrorIs(t, err, errors.ErrSellerNotFound)
	assert.Empty(t, h.tx.events)
}

func TestReviewKYC_NonAdminCaller(t *testing.T) {
	h := newHarness(t, pendingSeller())

	_, err := h.svc.ReviewKYC(context.Background(), h.userID, domain.KYCChecklist{}, "", uuid.New())
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	assert.Empty(t, h.tx.events)
}

// --- Approve ---

func TestApprove_Success(t *testing.T) {
	seller := pendingSeller()
	seller.KYCScore = 80
	seller.KYCRiesgo = domain.RiesgoBajo
	h := newHarness(t, seller)

	profile, err := h.svc.Approve(context.Background(), h.userID, h.adminID)
	require.NoError(t, err)

	assert.Equal(t, domain.ValidacionAprobado, profile.EstadoValidacion)
	assert.Equal(t, domain.AdminActivo, profile.EstadoAdmin)

	require.Len(t, h.tx.events, 1)
	event := h.tx.events[0]
	assert.Equal(t, domain.AuditKYCApproved, event.Action)
	before := event.Metadata["before"].(domain.Metadata)
	after := event.Metadata["after"].(domain.Metadata)
	assert.Equal(t, string(domain.ValidacionPendiente), before["estado_validacion"])
	assert.Equal(t, string(domain.ValidacionAprobado), after["estado_validacion"])
	assert.Equal(t, string(domain.AdminInactivo), before["estado_admin"])
	assert.Equal(t, string(domain.AdminActivo), after["estado_admin"])
	assert.Equal(t, 80, event.Metadata["kyc_score"])
}

func TestApprove_ScoreBelowThreshold(t *testing.T) {
	seller := pendingSeller()
	seller.KYCScore = 79
	h := newHarness(t, seller)

	_, err := h.svc.Approve(context.Background(), h.userID, h.adminID)
	assert.ErrorIs(t, err, errors.ErrInsufficientScore)

	assert.Equal(t, domain.ValidacionPendiente, h.tx.profile.EstadoValidacion)
	assert.Empty(t, h.tx.events)
}

func TestApprove_NotPending(t *testing.T) {
	for _, estado := range []domain.EstadoValidacion{domain.ValidacionAprobado, domain.ValidacionRechazado} {
		seller := pendingSeller()
		seller.EstadoValidacion = estado
		seller.KYCScore = 100
		h := newHarness(t, seller)

		_, err := h.svc.Approve(context.Background(), h.userID, h.adminID)
		assert.ErrorIs(t, err, errors.ErrInvalidTransition, "estado=%s", estado)
		assert.Equal(t, estado, h.tx.profile.EstadoValidacion)
		assert.Empty(t, h.tx.events)
	}
}

func TestApprove_AuditFailureRollsBack(t *testing.T) {
	seller := pendingSeller()
	seller.KYCScore = 100
	h := newHarness(t, seller)
	h.tx.auditErr = assert.AnError

	_, err := h.svc.Approve(context.Background(), h.userID, h.adminID)
	assert.ErrorIs(t, err, errors.ErrStorage)

	// Partial application is never acceptable.
	assert.Equal(t, domain.ValidacionPendiente, h.tx.profile.EstadoValidacion)
	assert.Equal(t, domain.AdminInactivo, h.tx.profile.EstadoAdmin)
	assert.Empty(t, h.tx.events)
}

// --- Reject ---

func TestReject_RequiresComment(t *testing.T) {
	h := newHarness(t, pendingSeller())

	_, err := h.svc.Reject(context.Background(), h.userID, h.adminID, "   ")
	assert.ErrorIs(t, err, errors.ErrValidation)

	assert.Equal(t, domain.ValidacionPendiente, h.tx.profile.EstadoValidacion)
	assert.Empty(t, h.tx.events)
}

func TestReject_Success(t *testing.T) {
	h := newHarness(t, pendingSeller())

	profile, err := h.svc.Reject(context.Background(), h.userID, h.adminID, "documento ilegible")
	require.NoError(t, err)

	assert.Equal(t, domain.ValidacionRechazado, profile.EstadoValidacion)
	assert.Equal(t, domain.AdminInactivo, profile.EstadoAdmin)
	require.NotNil(t, profile.Observaciones)
	assert.Equal(t, "documento ilegible", *profile.Observaciones)

	require.Len(t, h.tx.events, 1)
	event := h.tx.events[0]
	assert.Equal(t, domain.AuditKYCRejected, event.Action)
	require.NotNil(t, event.Comment)
	assert.Equal(t, "documento ilegible", *event.Comment)
}

func TestReject_NotPending(t *testing.T) {
	seller := pendingSeller()
	seller.EstadoValidacion = domain.ValidacionAprobado
	seller.EstadoAdmin = domain.AdminActivo
	h := newHarness(t, seller)

	_, err := h.svc.Reject(context.Background(), h.userID, h.adminID, "motivo")
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	assert.Empty(t, h.tx.events)
}

// --- Suspend / Reactivate ---

func TestSuspend_FromAnyEstadoAdmin(t *testing.T) {
	for _, estado := range []domain.EstadoAdmin{domain.AdminActivo, domain.AdminInactivo, domain.AdminSuspendido} {
		seller := pendingSeller()
		seller.EstadoAdmin = estado
		h := newHarness(t, seller)

		profile, err := h.svc.Suspend(context.Background(), h.userID, h.adminID)
		require.NoError(t, err, "estado=%s", estado)
		assert.Equal(t, domain.AdminSuspendido, profile.EstadoAdmin)
		require.Len(t, h.tx.events, 1)
		assert.Equal(t, domain.AuditSellerSuspended, h.tx.events[0].Action)
	}
}

func TestReactivate_PermissiveOnRejectedSeller(t *testing.T) {
	// Reactivation is a deliberate escape hatch: it does not re-check the
	// verification state.
	seller := pendingSeller()
	seller.EstadoValidacion = domain.ValidacionRechazado
	seller.EstadoAdmin = domain.AdminSuspendido
	h := newHarness(t, seller)

	profile, err := h.svc.Reactivate(context.Background(), h.userID, h.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.AdminActivo, profile.EstadoAdmin)
	assert.Equal(t, domain.ValidacionRechazado, profile.EstadoValidacion)
	require.Len(t, h.tx.events, 1)
	assert.Equal(t, domain.AuditSellerReactivated, h.tx.events[0].Action)
}

// --- RequestMoreDocuments ---

func TestRequestMoreDocuments_OnApprovedSeller(t *testing.T) {
	seller := pendingSeller()
	seller.EstadoValidacion = domain.ValidacionAprobado
	seller.EstadoAdmin = domain.AdminActivo
	h := newHarness(t, seller)

	profile, ticket, err := h.svc.RequestMoreDocuments(context.Background(), h.userID, h.adminID, "falta selfie")
	require.NoError(t, err)

	assert.Equal(t, domain.ValidacionPendiente, profile.EstadoValidacion)
	assert.Equal(t, domain.AdminInactivo, profile.EstadoAdmin)

	require.Len(t, h.tx.tickets, 1)
	assert.Equal(t, ticket.ID, h.tx.tickets[0].ID)
	assert.Equal(t, domain.TicketTipoVerificacion, ticket.Tipo)
	assert.Equal(t, domain.PrioridadAlta, ticket.Prioridad)
	assert.Equal(t, domain.TicketAbierto, ticket.Estado)
	assert.Equal(t, h.userID, ticket.UserID)

	require.Len(t, h.tx.msgs, 1)
	msg := h.tx.msgs[0]
	assert.Equal(t, ticket.ID, msg.TicketID)
	assert.Equal(t, "falta selfie", msg.Mensaje)
	assert.True(t, msg.EsAdmin)
	assert.Equal(t, h.adminID, msg.SenderID)

	require.Len(t, h.tx.events, 1)
	event := h.tx.events[0]
	assert.Equal(t, domain.AuditKYCDocumentsRequested, event.Action)
	assert.Equal(t, ticket.ID.String(), event.Metadata["ticket_id"])
}

func TestRequestMoreDocuments_RequiresComment(t *testing.T) {
	h := newHarness(t, pendingSeller())

	_, _, err := h.svc.RequestMoreDocuments(context.Background(), h.userID, h.adminID, "")
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Empty(t, h.tx.tickets)
	assert.Empty(t, h.tx.events)
}

// --- Full scenario ---

func TestScenario_ReviewThenApprove(t *testing.T) {
	h := newHarness(t, pendingSeller())
	checklist := domain.KYCChecklist{
		DPILegible:       true,
		SelfieCoincide:   true,
		DatosCoinciden:   true,
		ComercioLegitimo: true,
	}

	reviewed, err := h.svc.ReviewKYC(context.Background(), h.userID, checklist, "", h.adminID)
	require.NoError(t, err)
	assert.Equal(t, 80, reviewed.KYCScore)
	assert.Equal(t, domain.RiesgoBajo, reviewed.KYCRiesgo)

	approved, err := h.svc.Approve(context.Background(), h.userID, h.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.ValidacionAprobado, approved.EstadoValidacion)
	assert.Equal(t, domain.AdminActivo, approved.EstadoAdmin)

	require.Len(t, h.tx.events, 2)
	assert.Equal(t, domain.AuditKYCReviewed, h.tx.events[0].Action)
	assert.Equal(t, domain.AuditKYCApproved, h.tx.events[1].Action)
}
