package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"social-service/internal/models"
	"social-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type PresenceReader interface {
	OnlineUsers(ctx context.Context) ([]uint, error)
	Stats(ctx context.Context) (websocket.Stats, error)
}

type PresenceHandler struct {
	presence PresenceReader
}

func NewPresenceHandler(presence PresenceReader) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// GetOnlineUsers godoc
// @Summary Online users
// @Description Snapshot of the users with at least one live gateway connection, in the order they came online
// @Tags presence
// @Produce json
// @Success 200 {object} models.OnlineUsersResponse
// @Failure 401 {object} map[string]interface{} "unAuthorization"
// @Failure 503 {object} models.ErrorResponse "Gateway is shutting down"
// @Security BearerAuth
// @Router /presence/online [get]
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	users, err := h.presence.OnlineUsers(c.Request.Context())
	if err != nil {
		slog.Error("Failed to read online users", "error", err)
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Code:    http.StatusServiceUnavailable,
			Message: "Presence unavailable",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.OnlineUsersResponse{Users: users, Count: len(users)})
}

// GetStats godoc
// @Summary Gateway stats
// @Description Connection, call and delivery counters of the gateway
// @Tags presence
// @Produce json
// @Success 200 {object} websocket.Stats
// @Failure 401 {object} map[string]interface{} "unAuthorization"
// @Failure 503 {object} models.ErrorResponse "Gateway is shutting down"
// @Security BearerAuth
// @Router /presence/stats [get]
func (h *PresenceHandler) GetStats(c *gin.Context) {
	stats, err := h.presence.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Code:    http.StatusServiceUnavailable,
			Message: "Stats unavailable",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
