package handler

import (
	"net/http"

	"mercado/internal/domain"
	"mercado/internal/middleware"
	"mercado/internal/ticket"
	"mercado/pkg/logger"
	"mercado/pkg/validator"
)

// TicketHandler exposes the support ticket thread. Sellers open and read
// their own tickets; admins additionally close them and open escalations.
type TicketHandler struct {
	service   *ticket.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewTicketHandler(service *ticket.Service, v *validator.Validator, log logger.Logger) *TicketHandler {
	return &TicketHandler{service: service, validator: v, logger: log}
}

type openTicketRequest struct {
	Asunto  string            `json:"asunto" validate:"required,max=200"`
	Mensaje string            `json:"mensaje" validate:"required"`
	Tipo    domain.TicketTipo `json:"tipo" validate:"omitempty,oneof=verificacion general pago"`
}

type replyRequest struct {
	Mensaje string `json:"mensaje" validate:"required"`
}

type escalationRequest struct {
	SellerUserID string `json:"seller_user_id" validate:"required,uuid"`
	Reason       string `json:"reason" validate:"required"`
}

// Open handles POST /tickets.
func (h *TicketHandler) Open(w http.ResponseWriter, r *http.Request) {
	userID, found := middleware.UserIDFromContext(r.Context())
	if !found {
		respondError(w, h.logger, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req openTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if errs := h.validator.ValidateStructured(req); len(errs) > 0 {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	created, err := h.service.Open(r.Context(), userID, req.Asunto, req.Mensaje, req.Tipo)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, created)
}

// List handles GET /tickets, scoped to the caller's own tickets.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, found := middleware.UserIDFromContext(r.Context())
	if !found {
		respondError(w, h.logger, http.StatusUnauthorized, "Authentication required")
		return
	}
	limit, offset := pagination(r)

	tickets, err := h.service.ListForUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get handles GET /tickets/{ticketID} and returns the full thread.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, found := middleware.UserIDFromContext(r.Context())
	if !found {
		respondError(w, h.logger, http.StatusUnauthorized, "Authentication required")
		return
	}
	ticketID, err := pathUUID(r, "ticketID")
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	t, messages, err := h.service.Get(r.Context(), ticketID, callerID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"ticket":   t,
		"messages": messages,
	})
}

// Reply handles POST /tickets/{ticketID}/messages.
func (h *TicketHandler) Reply(w http.ResponseWriter, r *http.Request) {
	senderID, found := middleware.UserIDFromContext(r.Context())
	if !found {
		respondError(w, h.logger, http.StatusUnauthorized, "Authentication required")
		return
	}
	ticketID, err := pathUUID(r, "ticketID")
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	var req replyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if errs := h.validator.ValidateStructured(req); len(errs) > 0 {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	message, err := h.service.Reply(r.Context(), ticketID, senderID, req.Mensaje)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, message)
}

// Close handles POST /tickets/{ticketID}/close. Admin only.
func (h *TicketHandler) Close(w http.ResponseWriter, r *http.Request) {
	adminID, found := middleware.UserIDFromContext(r.Context())
	if !found {
		respondError(w, h.logger, http.StatusUnauthorized, "Authentication required")
		return
	}
	ticketID, err := pathUUID(r, "ticketID")
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	closed, err := h.service.Close(r.Context(), ticketID, adminID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, closed)
}

// CreateEscalation handles POST /tickets/escalations. Admin only; opens a
// verification ticket outside a governance transition.
func (h *TicketHandler) CreateEscalation(w http.ResponseWriter, r *http.Request) {
	adminID, found := middleware.UserIDFromContext(r.Context())
	if !found {
		respondError(w, h.logger, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req escalationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if errs := h.validator.ValidateStructured(req); len(errs) > 0 {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}
	sellerUserID, err := parseUUIDField(req.SellerUserID, "seller_user_id")
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	created, err := h.service.CreateEscalation(r.Context(), sellerUserID, adminID, req.Reason)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, created)
}
