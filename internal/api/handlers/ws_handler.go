package handlers

import (
	"log/slog"

	"github.com/billtrackerhq/billtracker-backend/internal/api/response"
	"github.com/billtrackerhq/billtracker-backend/internal/auth"
	ws "github.com/billtrackerhq/billtracker-backend/internal/websocket"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WSHandler upgrades connections to the bill event stream
type WSHandler struct {
	hub        *ws.Hub
	jwtManager *auth.JWTManager
	upgrader   gorillaws.Upgrader
	logger     *slog.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *ws.Hub, jwtManager *auth.JWTManager, upgrader gorillaws.Upgrader, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtManager: jwtManager,
		upgrader:   upgrader,
		logger:     logger,
	}
}

// Handle handles GET /ws. Browsers cannot set an Authorization header
// on a websocket upgrade, so the token travels as a query parameter.
func (h *WSHandler) Handle(c echo.Context) error {
	token := c.QueryParam("token")
	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		return response.Unauthorized(c, "invalid or expired token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("remote_ip", c.RealIP()),
			slog.Any("error", err))
		return nil
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	return nil
}
