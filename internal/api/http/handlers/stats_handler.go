package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-notify-service/internal/observability"
	"github.com/spec-kit/issue-notify-service/internal/presence"
	"github.com/spec-kit/issue-notify-service/internal/realtime"
)

// StatsHandler reports live connection counts and delivery counters.
type StatsHandler struct {
	registry *realtime.Registry
	presence *presence.Tracker
	metrics  *observability.Metrics
}

// NewStatsHandler returns a new handler instance.
func NewStatsHandler(registry *realtime.Registry, tracker *presence.Tracker, metrics *observability.Metrics) *StatsHandler {
	return &StatsHandler{registry: registry, presence: tracker, metrics: metrics}
}

// Connections reports the current realtime state.
func (h *StatsHandler) Connections(c *fiber.Ctx) error {
	connections := h.registry.ListAll()
	list := make([]fiber.Map, 0, len(connections))
	for _, conn := range connections {
		list = append(list, fiber.Map{
			"connection_id": conn.ConnectionID,
			"user_id":       conn.UserID,
			"username":      conn.Username,
			"role":          conn.Role,
			"connected_at":  conn.ConnectedAt,
		})
	}

	body := fiber.Map{
		"connected_count": h.registry.CountAll(),
		"connections":     list,
		"metrics":         h.metrics.Snapshot(),
	}

	if online, err := h.presence.Online(c.UserContext()); err == nil && online != nil {
		body["online_user_ids"] = online
	}

	return c.JSON(body)
}
