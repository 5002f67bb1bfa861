package handler

import (
	"context"
	"net/http"
	"strconv"

	"mercado/internal/audit"
	"mercado/internal/domain"
	"mercado/internal/governance"
	"mercado/internal/middleware"
	"mercado/pkg/errors"
	"mercado/pkg/logger"
	"mercado/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// GovernanceHandler exposes the admin governance surface: the review
// queue, the six transitions, and the audit trail.
type GovernanceHandler struct {
	service   *governance.Service
	audits    *audit.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewGovernanceHandler(service *governance.Service, audits *audit.Service, v *validator.Validator, log logger.Logger) *GovernanceHandler {
	return &GovernanceHandler{service: service, audits: audits, validator: v, logger: log}
}

type reviewKYCRequest struct {
	Checklist domain.KYCChecklist `json:"checklist"`
	Notas     string              `json:"notas"`
}

type commentRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// ReviewKYC handles POST /sellers/{userID}/kyc/review.
func (h *GovernanceHandler) ReviewKYC(w http.ResponseWriter, r *http.Request) {
	adminID, sellerID, ok := h.actors(w, r)
	if !ok {
		return
	}

	var req reviewKYCRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	profile, err := h.service.ReviewKYC(r.Context(), sellerID, req.Checklist, req.Notas, adminID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, profile)
}

// Approve handles POST /sellers/{userID}/approve.
func (h *GovernanceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

// Suspend handles POST /sellers/{userID}/suspend.
func (h *GovernanceHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Suspend)
}

// Reactivate handles POST /sellers/{userID}/reactivate.
func (h *GovernanceHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reactivate)
}

// transition runs a body-less transition (approve, suspend, reactivate).
func (h *GovernanceHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, sellerID, adminID uuid.UUID) (*domain.SellerProfile, error)) {
	adminID, sellerID, ok := h.actors(w, r)
	if !ok {
		return
	}
	profile, err := op(r.Context(), sellerID, adminID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, profile)
}

// Reject handles POST /sellers/{userID}/reject. The comment body is
// mandatory.
func (h *GovernanceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, sellerID, ok := h.actors(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if errs := h.validator.ValidateStructured(req); len(errs) > 0 {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	profile, err := h.service.Reject(r.Context(), sellerID, adminID, req.Comment)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, profile)
}

// RequestDocuments handles POST /sellers/{userID}/request-documents.
func (h *GovernanceHandler) RequestDocuments(w http.ResponseWriter, r *http.Request) {
	adminID, sellerID, ok := h.actors(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if errs := h.validator.ValidateStructured(req); len(errs) > 0 {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	profile, ticket, err := h.service.RequestMoreDocuments(r.Context(), sellerID, adminID, req.Comment)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"seller": profile,
		"ticket": ticket,
	})
}

// GetSeller handles GET /sellers/{userID}.
func (h *GovernanceHandler) GetSeller(w http.ResponseWriter, r *http.Request) {
	sellerID, err := pathUUID(r, "userID")
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	profile, err := h.service.GetSeller(r.Context(), sellerID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, profile)
}

// ListSellers handles GET /sellers?estado=pendiente&limit=&offset=.
func (h *GovernanceHandler) ListSellers(w http.ResponseWriter, r *http.Request) {
	estado := domain.EstadoValidacion(r.URL.Query().Get("estado"))
	if estado == "" {
		estado = domain.ValidacionPendiente
	}
	switch estado {
	case domain.ValidacionPendiente, domain.ValidacionAprobado, domain.ValidacionRechazado:
	default:
		respondServiceError(w, h.logger, errors.Validation("estado", "must be pendiente, aprobado or rechazado"))
		return
	}
	limit, offset := pagination(r)

	profiles, total, err := h.service.ListByEstado(r.Context(), estado, limit, offset)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"sellers": profiles,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// AuditHistory handles GET /audit/{entityType}/{entityID}.
func (h *GovernanceHandler) AuditHistory(w http.ResponseWriter, r *http.Request) {
	entityType := mux.Vars(r)["entityType"]
	entityID, err := pathUUID(r, "entityID")
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	limit, offset := pagination(r)

	events, total, err := h.audits.History(r.Context(), entityType, entityID, limit, offset)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// actors resolves the admin from the token and the target seller from the
// path.
func (h *GovernanceHandler) actors(w http.ResponseWriter, r *http.Request) (adminID, sellerID uuid.UUID, ok bool) {
	adminID, found := middleware.UserIDFromContext(r.Context())
	if !found {
		respondError(w, h.logger, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	sellerID, err := pathUUID(r, "userID")
	if err != nil {
		respondServiceError(w, h.logger, err)
		return uuid.Nil, uuid.Nil, false
	}
	return adminID, sellerID, true
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Validation(name, "must be a valid UUID")
	}
	return id, nil
}

func parseUUIDField(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Validation(name, "must be a valid UUID")
	}
	return id, nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
