package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/spec-kit/issue-notify-service/internal/realtime"
)

const tokenLocal = "realtime_token"

// RealtimeHandler upgrades connections and hands them to the auth gate.
type RealtimeHandler struct {
	gate *realtime.Gate
}

// NewRealtimeHandler returns a new handler instance.
func NewRealtimeHandler(gate *realtime.Gate) *RealtimeHandler {
	return &RealtimeHandler{gate: gate}
}

// Upgrade accepts only websocket upgrade requests and stashes the presented
// credential for the connection handler. The credential is verified after
// the upgrade so rejected clients receive a close frame with a reason.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(tokenLocal, extractToken(c))
	return c.Next()
}

// Serve runs one connection's lifecycle: authenticate, then register and
// pump until disconnect. Rejected attempts are closed with an
// authentication-error reason and never registered.
func (h *RealtimeHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		token, _ := conn.Locals(tokenLocal).(string)

		claim, err := h.gate.Authenticate(token)
		if err != nil {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
			return
		}

		h.gate.Run(context.Background(), conn, claim)
	})
}

// extractToken reads the bearer credential from the Authorization header or
// the token query parameter.
func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}
