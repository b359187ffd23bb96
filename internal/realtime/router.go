package realtime

import (
	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/domain"
	"github.com/spec-kit/issue-notify-service/internal/observability"
)

// Router fans events out to connections through derived rooms. Each
// connection belongs to exactly one personal room and exactly one role room,
// so a single send call reaches any connection at most once.
type Router struct {
	registry *Registry
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewRouter creates a router over the registry.
func NewRouter(registry *Registry, logger *zap.Logger, metrics *observability.Metrics) *Router {
	return &Router{registry: registry, logger: logger, metrics: metrics}
}

// SendToUser delivers to every live connection of the user. A user with no
// live connections is a normal no-op, not an error.
func (rt *Router) SendToUser(userID int, event string, data any) int {
	targets := rt.registry.snapshot(func(c domain.Connection) bool {
		return c.UserID == userID
	})
	if len(targets) == 0 {
		rt.metrics.RecordDeliveryMiss(domain.UserRoom(userID))
		rt.logger.Debug("no live connections for user",
			zap.String("room", domain.UserRoom(userID)),
			zap.String("event", event))
		return 0
	}
	return rt.deliver(targets, event, data)
}

// SendToRole delivers to every live connection whose identity carries the
// role, exactly once per connection.
func (rt *Router) SendToRole(role domain.Role, event string, data any) int {
	targets := rt.registry.snapshot(func(c domain.Connection) bool {
		return c.Role == role
	})
	if len(targets) == 0 {
		rt.metrics.RecordDeliveryMiss(domain.RoleRoomFor(role))
		rt.logger.Debug("no live connections for role",
			zap.String("room", domain.RoleRoomFor(role)),
			zap.String("event", event))
		return 0
	}
	return rt.deliver(targets, event, data)
}

// Broadcast delivers to all live connections.
func (rt *Router) Broadcast(event string, data any) int {
	return rt.deliver(rt.registry.snapshot(nil), event, data)
}

func (rt *Router) deliver(targets []entry, event string, data any) int {
	env := Envelope{Event: event, Data: data}
	delivered := 0
	for _, t := range targets {
		if t.sender.Send(env) {
			rt.metrics.RecordEventSent(event)
			delivered++
		} else {
			rt.metrics.RecordEventDropped(event)
			rt.logger.Warn("outbound buffer full, event dropped",
				zap.String("connection_id", t.conn.ConnectionID),
				zap.String("event", event))
		}
	}
	return delivered
}
