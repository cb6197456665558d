package handlers

import (
	"log/slog"

	"social-service/internal/websocket"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
)

type WSHandler struct {
	hub        *websocket.Hub
	upgrader   gorillaws.Upgrader
	sendBuffer int
}

func NewWSHandler(hub *websocket.Hub, allowedOrigins []string, allowLocal bool, sendBuffer int) *WSHandler {
	return &WSHandler{
		hub:        hub,
		upgrader:   websocket.NewUpgrader(allowedOrigins, allowLocal),
		sendBuffer: sendBuffer,
	}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Upgrade to the realtime gateway. The bearer token goes in the Authorization header or the token query parameter.
// @Tags websocket
// @Param token query string false "Bearer token when the Authorization header cannot be set"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 401 {object} map[string]interface{} "unAuthorization"
// @Failure 429 {object} map[string]interface{} "Too many handshakes from this IP"
// @Security BearerAuth
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetUint("user_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "userID", userID, "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, userID, h.sendBuffer)
	if err := h.hub.Register(c.Request.Context(), client); err != nil {
		slog.Warn("WebSocket registration failed", "clientID", client.ID(), "userID", userID, "error", err)
		conn.Close()
		return
	}

	slog.Debug("WebSocket connection established", "clientID", client.ID(), "userID", userID)
	client.Start()
}
