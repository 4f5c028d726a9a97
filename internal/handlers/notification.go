package handlers

import (
	"net/http"

	"campus-food-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// NotificationHandler handles inbox and push subscription HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// SubscribeRequest registers a device for push delivery
type SubscribeRequest struct {
	DeviceToken string `json:"device_token"`
}

// List handles GET /api/v1/notifications?unread=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.notificationService.List(r.Context(), identity(r).UserID, unreadOnly)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// MarkRead handles POST /api/v1/notifications/{notification_id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.MarkRead(r.Context(), identity(r).UserID, chi.URLParam(r, "notification_id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.MarkAllRead(r.Context(), identity(r).UserID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Subscribe handles POST /api/v1/push/subscriptions
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.notificationService.Subscribe(r.Context(), identity(r).UserID, req.DeviceToken)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/v1/push/subscriptions/{device_token}
func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.Unsubscribe(r.Context(), identity(r).UserID, chi.URLParam(r, "device_token")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
