package handlers

import (
	"net/http"

	"campus-food-backend/internal/models"
	"campus-food-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), req.Name, req.Role)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("User created")

	respondJSON(w, http.StatusCreated, user)
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), identity(r).UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
