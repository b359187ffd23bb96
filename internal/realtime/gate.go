package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/auth"
	"github.com/spec-kit/issue-notify-service/internal/domain"
	"github.com/spec-kit/issue-notify-service/internal/observability"
	"github.com/spec-kit/issue-notify-service/internal/presence"
	apperrors "github.com/spec-kit/issue-notify-service/pkg/util"
)

// ConnectedAck is the acknowledgment emitted to a newly authenticated
// connection.
type ConnectedAck struct {
	Message string               `json:"message"`
	User    domain.IdentityClaim `json:"user"`
}

// Verifier validates a bearer credential and extracts the identity claim.
type Verifier interface {
	Verify(token string) (domain.IdentityClaim, error)
}

var _ Verifier = (*auth.TokenManager)(nil)

// Gate intercepts new connection attempts. An attempt is Pending until the
// credential verifies (Authenticated) or fails (Rejected, never registered).
// There are no retries: a rejected client must reconnect with a new
// credential.
type Gate struct {
	verifier Verifier
	registry *Registry
	presence *presence.Tracker
	logger   *zap.Logger
	metrics  *observability.Metrics

	sendBuffer   int
	writeTimeout time.Duration
}

// NewGate constructs the gate.
func NewGate(verifier Verifier, registry *Registry, tracker *presence.Tracker, logger *zap.Logger, metrics *observability.Metrics, sendBuffer int, writeTimeout time.Duration) *Gate {
	return &Gate{
		verifier:     verifier,
		registry:     registry,
		presence:     tracker,
		logger:       logger,
		metrics:      metrics,
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
	}
}

// Authenticate resolves a connection attempt's credential. A missing or
// invalid credential is a terminal rejection.
func (g *Gate) Authenticate(token string) (domain.IdentityClaim, error) {
	if token == "" {
		g.metrics.RecordAuthFailure()
		return domain.IdentityClaim{}, apperrors.NewUnauthenticated("authentication error: no token provided")
	}
	claim, err := g.verifier.Verify(token)
	if err != nil {
		g.metrics.RecordAuthFailure()
		return domain.IdentityClaim{}, apperrors.NewUnauthenticated("authentication error: invalid token")
	}
	return claim, nil
}

// Run registers the authenticated connection and drives its message loops
// until the transport closes. All registry and presence state is released on
// exit, no matter where in the lifecycle the connection drops.
func (g *Gate) Run(ctx context.Context, tc Conn, claim domain.IdentityClaim) {
	record := domain.Connection{
		ConnectionID: uuid.NewString(),
		UserID:       claim.UserID,
		Username:     claim.Username,
		Role:         claim.Role,
		ConnectedAt:  time.Now(),
	}

	session := newSession(record, tc, g.sendBuffer, g.writeTimeout, g.logger, g.metrics)
	g.registry.Register(record, session)
	g.presence.Connected(ctx, claim.UserID)

	defer func() {
		g.registry.Unregister(record.ConnectionID)
		g.presence.Disconnected(ctx, claim.UserID)
		session.close()
		g.logger.Info("user disconnected",
			zap.String("connection_id", record.ConnectionID),
			zap.String("username", claim.Username),
			zap.Int("total_connected", g.registry.CountAll()))
	}()

	g.logger.Info("user connected",
		zap.String("connection_id", record.ConnectionID),
		zap.String("username", claim.Username),
		zap.String("role", string(claim.Role)),
		zap.Int("total_connected", g.registry.CountAll()))

	session.Send(Envelope{Event: "connected", Data: ConnectedAck{
		Message: "Successfully connected to real-time notifications",
		User:    claim,
	}})

	go session.writePump()
	session.readPump()
}
