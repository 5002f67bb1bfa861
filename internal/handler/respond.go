// Package handler exposes the governance, ticket, and auth services over
// HTTP. Handlers translate typed service failures into stable status
// codes; internals never leak into response bodies.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"mercado/pkg/errors"
	"mercado/pkg/logger"
)

func respondJSON(w http.ResponseWriter, log logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("failed to encode JSON response", map[string]interface{}{
			"error":  err.Error(),
			"status": status,
		})
	}
}

func respondError(w http.ResponseWriter, log logger.Logger, status int, message string) {
	respondJSON(w, log, status, map[string]string{"error": message})
}

// respondServiceError maps typed service failures to transport codes.
func respondServiceError(w http.ResponseWriter, log logger.Logger, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case stderrors.Is(err, errors.ErrSellerNotFound),
		stderrors.Is(err, errors.ErrTicketNotFound),
		stderrors.Is(err, errors.ErrUserNotFound):
		status, message = http.StatusNotFound, err.Error()
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid credentials"
	case stderrors.Is(err, errors.ErrUnauthorized):
		status, message = http.StatusForbidden, "Admin role required"
	case stderrors.Is(err, errors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case stderrors.Is(err, errors.ErrInvalidTransition):
		status, message = http.StatusConflict, err.Error()
	case stderrors.Is(err, errors.ErrInsufficientScore):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case stderrors.Is(err, errors.ErrPreconditionFailed):
		status, message = http.StatusPreconditionFailed, err.Error()
	case stderrors.Is(err, errors.ErrStorage):
		log.Error("storage failure", map[string]interface{}{"error": err.Error()})
	default:
		log.Error("unexpected failure", map[string]interface{}{"error": err.Error()})
	}

	respondError(w, log, status, message)
}

// decodeJSON parses a request body, rejecting unknown fields so malformed
// checklists fail loudly instead of being silently ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if err == io.EOF {
			return errors.Validation("body", "is required")
		}
		return errors.Validation("body", "is not valid JSON for this request")
	}
	return nil
}
