package handler

import (
	"net/http"

	"mercado/internal/auth"
	"mercado/pkg/logger"
	"mercado/pkg/validator"
)

// AuthHandler exposes login. Registration is out of scope here; accounts
// are provisioned by the marketplace onboarding flow or the seed tool.
type AuthHandler struct {
	service   *auth.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewAuthHandler(service *auth.Service, v *validator.Validator, log logger.Logger) *AuthHandler {
	return &AuthHandler{service: service, validator: v, logger: log}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if errs := h.validator.ValidateStructured(req); len(errs) > 0 {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	token, err := h.service.Login(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, token)
}

// Health handles GET /health.
func Health(log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
	}
}
