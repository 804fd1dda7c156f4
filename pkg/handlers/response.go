package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// validationResponse is the 400 body for per-field issues.
type validationResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Issues  []apperrors.Issue `json:"issues"`
}

// writeServiceError maps service-layer errors onto HTTP responses.
// Unrecognized errors become a generic 500; the detail only goes to the
// log, never the client.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		writeErr := WriteJSON(w, http.StatusBadRequest, validationResponse{
			Error:   "validation_failed",
			Message: verr.Error(),
			Issues:  verr.Issues,
		})
		if writeErr != nil {
			logger.Error("Failed to write error response", zap.Error(writeErr))
		}
		return
	}

	var status int
	var code, message string
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "Resource not found"
	case errors.Is(err, apperrors.ErrConflict):
		status, code, message = http.StatusConflict, "conflict", err.Error()
	case errors.Is(err, apperrors.ErrMasterUserProtected):
		status, code, message = http.StatusForbidden, "forbidden", "This account cannot be modified"
	case errors.Is(err, apperrors.ErrForbidden):
		status, code, message = http.StatusForbidden, "forbidden", "Operation not allowed"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		status, code, message = http.StatusInternalServerError, "internal_error", "Internal server error"
	}

	if writeErr := ErrorResponse(w, status, code, message); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}

// decodeJSON parses the request body into dst, replying 400 on failure.
// Returns false when the response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if writeErr := ErrorResponse(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON"); writeErr != nil {
			logger.Error("Failed to write error response", zap.Error(writeErr))
		}
		return false
	}
	return true
}
