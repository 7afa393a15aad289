package api

import (
	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"

	"github.com/unfairwheel/wheel-server/internal/realtime"
)

// GatewayHandler serves the WebSocket upgrade endpoint for a group's real-time event stream.
type GatewayHandler struct {
	realtime *realtime.Handler
}

// NewGatewayHandler creates a new gateway handler.
func NewGatewayHandler(rt *realtime.Handler) *GatewayHandler {
	return &GatewayHandler{realtime: rt}
}

// Upgrade handles GET /groups/{id}/ws. It upgrades the HTTP connection to a WebSocket and hands it to the Realtime
// Transport, which subscribes to the group's event stream and relays it for the life of the connection.
func (h *GatewayHandler) Upgrade(c fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	groupID := c.Params("id")
	return websocket.New(func(conn *websocket.Conn) {
		h.realtime.Serve(conn.Conn, groupID)
	})(c)
}
