package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"campus-food-backend/internal/middleware"
	"campus-food-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

var kindStatus = map[services.Kind]int{
	services.KindNotFound:     http.StatusNotFound,
	services.KindUnauthorized: http.StatusForbidden,
	services.KindInvalidState: http.StatusConflict,
	services.KindValidation:   http.StatusBadRequest,
	services.KindConflict:     http.StatusConflict,
	services.KindExternal:     http.StatusBadGateway,
	services.KindRateLimited:  http.StatusTooManyRequests,
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// respondServiceError maps a service error to its HTTP status. Internal
// errors are logged and hidden from the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrUnauthenticated) {
		respondError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	status, ok := kindStatus[services.KindOf(err)]
	if !ok {
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	respondError(w, err.Error(), status)
}

// decodeJSON reads a request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// identity returns the authenticated caller. Routes using it sit behind the
// auth middleware.
func identity(r *http.Request) services.Identity {
	id, _ := middleware.GetIdentity(r.Context())
	return id
}
