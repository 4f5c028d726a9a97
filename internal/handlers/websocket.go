package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"campus-food-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin
	},
}

// WebSocketHandler handles WebSocket connections for live notifications
type WebSocketHandler struct {
	hub                 *services.WSHub
	userService         *services.UserService
	notificationService *services.NotificationService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	userService *services.UserService,
	notificationService *services.NotificationService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                 hub,
		userService:         userService,
		notificationService: notificationService,
	}
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	caller, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := caller.UserID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	ctx := r.Context()
	h.sendUnreadCount(ctx, userID)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	// Handle messages
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendErrorToUser(userID, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, userID, msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendErrorToUser(userID, err.Error())
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, msg services.WSMessage) error {
	switch msg.Type {
	case "ping":
		return h.hub.SendToUser(userID, services.WSMessage{Type: "pong"})
	case "mark_read":
		// Message carries the notification id
		if msg.Message == "" {
			return h.notificationService.MarkAllRead(ctx, userID)
		}
		return h.notificationService.MarkRead(ctx, userID, msg.Message)
	default:
		h.sendErrorToUser(userID, "Unknown message type")
		return nil
	}
}

func (h *WebSocketHandler) sendUnreadCount(ctx context.Context, userID string) {
	unread, err := h.notificationService.List(ctx, userID, true)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to count unread notifications")
		return
	}
	msg := services.WSMessage{
		Type: "unread_count",
		Data: map[string]interface{}{"count": len(unread)},
	}
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send unread_count message")
	}
}

// sendErrorToUser sends an error message to a user
func (h *WebSocketHandler) sendErrorToUser(userID, message string) {
	msg := services.WSMessage{
		Type:    "error",
		Message: message,
	}
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Failed to send error frame")
	}
}
