package ticket

import (
	"context"
	"testing"
	"time"

	"mercado/internal/domain"
	"mercado/internal/store"
	"mercado/pkg/errors"
	"mercado/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fakeStore struct {
	tickets  map[uuid.UUID]*domain.Ticket
	messages []*domain.TicketMessage
	events   []*domain.AdminAuditEvent

	failUpdateTicket error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tickets: make(map[uuid.UUID]*domain.Ticket)}
}

func (s *fakeStore) WithTx(_ context.Context, fn func(tx store.Tx) error) error {
	staged := &stagedTx{base: s}
	if err := fn(staged); err != nil {
		return err
	}
	staged.apply()
	return nil
}

type stagedTx struct {
	base       *fakeStore
	newTickets []*domain.Ticket
	updated    []*domain.Ticket
	newMsgs    []*domain.TicketMessage
	newEvents  []*domain.AdminAuditEvent
}

func (t *stagedTx) apply() {
	for _, tk := range t.newTickets {
		t.base.tickets[tk.ID] = tk
	}
	for _, tk := range t.updated {
		t.base.tickets[tk.ID] = tk
	}
	t.base.messages = append(t.base.messages, t.newMsgs...)
	t.base.events = append(t.base.events, t.newEvents...)
}

func (t *stagedTx) SellerByUserIDForUpdate(context.Context, uuid.UUID) (*domain.SellerProfile, error) {
	return nil, errors.ErrSellerNotFound
}

func (t *stagedTx) UpdateSeller(context.Context, *domain.SellerProfile) error { return nil }

func (t *stagedTx) AppendAuditEvent(_ context.Context, event *domain.AdminAuditEvent) error {
	t.newEvents = append(t.newEvents, event)
	return nil
}

func (t *stagedTx) CreateTicket(_ context.Context, ticket *domain.Ticket) error {
	t.newTickets = append(t.newTickets, ticket)
	return nil
}

func (t *stagedTx) CreateTicketMessage(_ context.Context, msg *domain.TicketMessage) error {
	t.newMsgs = append(t.newMsgs, msg)
	return nil
}

func (t *stagedTx) TicketByIDForUpdate(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	tk, ok := t.base.tickets[id]
	if !ok {
		return nil, errors.ErrTicketNotFound
	}
	cp := *tk
	return &cp, nil
}

func (t *stagedTx) UpdateTicket(_ context.Context, ticket *domain.Ticket) error {
	if t.base.failUpdateTicket != nil {
		return t.base.failUpdateTicket
	}
	if _, ok := t.base.tickets[ticket.ID]; !ok {
		return errors.ErrTicketNotFound
	}
	t.updated = append(t.updated, ticket)
	return nil
}

func (t *stagedTx) TicketHasAdminReply(_ context.Context, ticketID uuid.UUID) (bool, error) {
	for _, m := range t.base.messages {
		if m.TicketID == ticketID && m.EsAdmin {
			return true, nil
		}
	}
	return false, nil
}

type fakeReader struct{ base *fakeStore }

func (r *fakeReader) FindByID(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	tk, ok := r.base.tickets[id]
	if !ok {
		return nil, errors.ErrTicketNotFound
	}
	cp := *tk
	return &cp, nil
}

func (r *fakeReader) ListByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]*domain.Ticket, error) {
	var out []*domain.Ticket
	for _, tk := range r.base.tickets {
		if tk.UserID == userID {
			out = append(out, tk)
		}
	}
	return out, nil
}

func (r *fakeReader) ListMessages(_ context.Context, ticketID uuid.UUID) ([]*domain.TicketMessage, error) {
	var out []*domain.TicketMessage
	for _, m := range r.base.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeWriter struct{ base *fakeStore }

func (w *fakeWriter) Create(_ context.Context, ticket *domain.Ticket) error {
	w.base.tickets[ticket.ID] = ticket
	return nil
}

type fakeGate struct{ admins map[uuid.UUID]bool }

func (g *fakeGate) HasRole(_ context.Context, userID uuid.UUID, rol domain.Rol) (bool, error) {
	return rol == domain.RolAdmin && g.admins[userID], nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// --- Harness ---

type harness struct {
	svc      *Service
	st       *fakeStore
	adminID  uuid.UUID
	sellerID uuid.UUID
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newFakeStore()
	adminID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	gate := &fakeGate{admins: map[uuid.UUID]bool{adminID: true}}
	svc := NewService(st, &fakeReader{base: st}, &fakeWriter{base: st}, gate, fixedClock{t: now}, logger.NewNop())
	return &harness{svc: svc, st: st, adminID: adminID, sellerID: uuid.New(), now: now}
}

func (h *harness) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := h.svc.Open(context.Background(), h.sellerID, "No puedo publicar", "Mi cuenta no deja crear productos", domain.TicketTipoGeneral)
	require.NoError(t, err)
	return ticket
}

// --- Close ---

func TestClose_WithoutAdminReplyFails(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)

	_, err := h.svc.Close(context.Background(), ticket.ID, h.adminID)
	assert.ErrorIs(t, err, errors.ErrPreconditionFailed)
	assert.Equal(t, domain.TicketAbierto, h.st.tickets[ticket.ID].Estado)
	assert.Nil(t, h.st.tickets[ticket.ID].ClosedAt)
}

func TestClose_AfterAdminReplySucceeds(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)

	_, err := h.svc.Reply(context.Background(), ticket.ID, h.adminID, "Revisamos tu cuenta, ya puedes publicar")
	require.NoError(t, err)

	closed, err := h.svc.Close(context.Background(), ticket.ID, h.adminID)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketCerrado, closed.Estado)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, h.now, *closed.ClosedAt)
	require.NotNil(t, closed.AsignadoA)
	assert.Equal(t, h.adminID, *closed.AsignadoA)

	require.Len(t, h.st.events, 1)
	assert.Equal(t, domain.AuditTicketClosed, h.st.events[0].Action)

	// The admin reply already moved the thread to esperando_usuario, and
	// the before snapshot must record that state, not abierto.
	meta := h.st.events[0].Metadata
	assert.Equal(t, domain.Metadata{"estado": string(domain.TicketEsperandoUsuario)}, meta["before"])
	assert.Equal(t, domain.Metadata{"estado": string(domain.TicketCerrado)}, meta["after"])
}

func TestClose_AlreadyClosed(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)
	_, err := h.svc.Reply(context.Background(), ticket.ID, h.adminID, "listo")
	require.NoError(t, err)
	_, err = h.svc.Close(context.Background(), ticket.ID, h.adminID)
	require.NoError(t, err)

	_, err = h.svc.Close(context.Background(), ticket.ID, h.adminID)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestClose_NonAdmin(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)

	_, err := h.svc.Close(context.Background(), ticket.ID, h.sellerID)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestClose_UnknownTicket(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Close(context.Background(), uuid.New(), h.adminID)
	assert.ErrorIs(t, err, errors.ErrTicketNotFound)
}

// --- Escalation ---

func TestCreateEscalation_Shape(t *testing.T) {
	h := newHarness(t)

	ticket, err := h.svc.CreateEscalation(context.Background(), h.sellerID, h.adminID, "falta selfie")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketTipoVerificacion, ticket.Tipo)
	assert.Equal(t, domain.PrioridadAlta, ticket.Prioridad)
	assert.Equal(t, domain.TicketAbierto, ticket.Estado)
	assert.Equal(t, "falta selfie", ticket.Mensaje)

	require.Len(t, h.st.messages, 1)
	msg := h.st.messages[0]
	assert.Equal(t, ticket.ID, msg.TicketID)
	assert.True(t, msg.EsAdmin)
	assert.Equal(t, "falta selfie", msg.Mensaje)

	// An escalation ticket already carries an admin message, so it can be
	// closed immediately after.
	_, err = h.svc.Close(context.Background(), ticket.ID, h.adminID)
	assert.NoError(t, err)
}

func TestCreateEscalation_RequiresReason(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateEscalation(context.Background(), h.sellerID, h.adminID, " ")
	assert.ErrorIs(t, err, errors.ErrValidation)
}

// --- Reply state flips ---

func TestReply_FlipsEstado(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)

	_, err := h.svc.Reply(context.Background(), ticket.ID, h.adminID, "respuesta del equipo")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketEsperandoUsuario, h.st.tickets[ticket.ID].Estado)

	_, err = h.svc.Reply(context.Background(), ticket.ID, h.sellerID, "gracias, adjunto captura")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketEnProceso, h.st.tickets[ticket.ID].Estado)
}

func TestReply_ClosedTicket(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)
	_, err := h.svc.Reply(context.Background(), ticket.ID, h.adminID, "ok")
	require.NoError(t, err)
	_, err = h.svc.Close(context.Background(), ticket.ID, h.adminID)
	require.NoError(t, err)

	_, err = h.svc.Reply(context.Background(), ticket.ID, h.sellerID, "¿sigue abierto?")
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	// The rejected reply must not disturb the committed close: the
	// transactional read sees cerrado and nothing is written back.
	got := h.st.tickets[ticket.ID]
	assert.Equal(t, domain.TicketCerrado, got.Estado)
	assert.NotNil(t, got.ClosedAt)
	assert.Len(t, h.st.messages, 1)
}

func TestReply_UpdateFailureLeavesNoMessage(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)
	h.st.failUpdateTicket = errors.Storage(assert.AnError)

	_, err := h.svc.Reply(context.Background(), ticket.ID, h.adminID, "respuesta")
	require.ErrorIs(t, err, errors.ErrStorage)

	// Message insert and estado flip roll back together.
	assert.Empty(t, h.st.messages)
	assert.Equal(t, domain.TicketAbierto, h.st.tickets[ticket.ID].Estado)
}

func TestReply_StrangerIsRejected(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)

	_, err := h.svc.Reply(context.Background(), ticket.ID, uuid.New(), "hola")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

// --- Reads ---

func TestGet_SellerReadsOwnTicketOnly(t *testing.T) {
	h := newHarness(t)
	ticket := h.openTicket(t)

	_, _, err := h.svc.Get(context.Background(), ticket.ID, h.sellerID)
	assert.NoError(t, err)

	_, _, err = h.svc.Get(context.Background(), ticket.ID, uuid.New())
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	_, _, err = h.svc.Get(context.Background(), ticket.ID, h.adminID)
	assert.NoError(t, err)
}
