package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/notify"
)

// State enumerates the connection lifecycle of the client.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Config tunes the client.
type Config struct {
	URL         string
	Token       string
	BaseDelay   time.Duration // linear backoff step, attempt * BaseDelay
	MaxAttempts int           // reconnection attempts before giving up
	Heartbeat   time.Duration // ping interval while connected
}

func (c *Config) applyDefaults() {
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 30 * time.Second
	}
}

// serverMessage is a decoded server event.
type serverMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type clientMessage struct {
	Event string `json:"event"`
}

// Client connects to the realtime endpoint and feeds delivered events into
// the notification store. Involuntary disconnects are retried with linearly
// increasing delay until MaxAttempts is exhausted; the terminal Failed state
// persists until Run is invoked again.
type Client struct {
	cfg    Config
	dialer Dialer
	clock  Clock
	store  *notify.Store
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	attempt int
	lastErr error
}

// New builds a client around the dialer and notification store.
func New(cfg Config, dialer Dialer, clock Clock, store *notify.Store, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:    cfg,
		dialer: dialer,
		clock:  clock,
		store:  store,
		logger: logger,
		state:  StateDisconnected,
	}
}

// State returns the current lifecycle state and reconnection attempt.
func (c *Client) State() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.attempt
}

// LastError returns the error that drove the most recent state change.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Notifications exposes the reconciliation store.
func (c *Client) Notifications() *notify.Store {
	return c.store
}

// Run connects and serves events until the context is canceled, the server
// rejects the credential, or reconnection attempts are exhausted.
func (c *Client) Run(ctx context.Context) error {
	c.setState(StateConnecting, 0, nil)

	for {
		conn, err := c.dialer.Dial(ctx, c.cfg.URL, c.cfg.Token)
		if err != nil {
			if next, retryErr := c.nextAttempt(ctx, err); !next {
				return retryErr
			}
			continue
		}

		c.setState(StateConnected, 0, nil)
		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			c.setState(StateDisconnected, 0, nil)
			return nil
		}
		if IsAuthRejection(err) {
			// Not retryable: the credential itself was refused.
			c.setState(StateFailed, 0, err)
			return err
		}
		if next, retryErr := c.nextAttempt(ctx, err); !next {
			return retryErr
		}
	}
}

// nextAttempt schedules the linear backoff delay for the next reconnection.
// It reports false when attempts are exhausted or the context is canceled.
func (c *Client) nextAttempt(ctx context.Context, cause error) (bool, error) {
	if IsAuthRejection(cause) {
		c.setState(StateFailed, 0, cause)
		return false, cause
	}

	c.mu.Lock()
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	if attempt > c.cfg.MaxAttempts {
		err := fmt.Errorf("reconnection attempts exhausted: %w", cause)
		c.setState(StateFailed, attempt-1, err)
		return false, err
	}

	c.setState(StateReconnecting, attempt, cause)
	delay := time.Duration(attempt) * c.cfg.BaseDelay
	c.logger.Info("reconnecting",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(cause))

	select {
	case <-ctx.Done():
		c.setState(StateDisconnected, 0, nil)
		return false, nil
	case <-c.clock.After(delay):
		return true, nil
	}
}

// serve pumps one live connection: a heartbeat goroutine and the read loop.
func (c *Client) serve(ctx context.Context, conn Conn) error {
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)

	go c.heartbeat(ctx, conn, stop)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg serverMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Debug("undecodable server message")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) heartbeat(ctx context.Context, conn Conn, stop <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-c.clock.After(c.cfg.Heartbeat):
			if err := conn.WriteJSON(clientMessage{Event: "ping"}); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(msg serverMessage) {
	switch msg.Event {
	case "connected":
		c.logger.Info("connection acknowledged")
	case "pong":
		c.logger.Debug("heartbeat acknowledged")
	case "issue_created":
		var data notify.Data
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Debug("undecodable issue_created payload")
			return
		}
		message := data.Message
		if message == "" {
			message = fmt.Sprintf("New issue created: %s", issueTitle(data.Issue))
		}
		c.ingest("issue_created", "New Issue Created", message, data)
	case "issue_updated":
		var data notify.Data
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Debug("undecodable issue_updated payload")
			return
		}
		message := data.Message
		if message == "" {
			message = fmt.Sprintf("Issue updated: %s - Status: %s",
				issueTitle(data.Issue), issueStatus(data.Issue))
		}
		c.ingest("issue_updated", "Issue Updated", message, data)
	default:
		c.logger.Debug("ignoring unknown server event", zap.String("event", msg.Event))
	}
}

func (c *Client) ingest(eventType, title, message string, data notify.Data) {
	if _, added := c.store.Ingest(eventType, title, message, data); !added {
		c.logger.Debug("duplicate notification suppressed", zap.String("type", eventType))
	}
}

func (c *Client) setState(state State, attempt int, err error) {
	c.mu.Lock()
	c.state = state
	c.attempt = attempt
	c.lastErr = err
	c.mu.Unlock()
}

func issueTitle(ref *notify.IssueRef) string {
	if ref == nil || ref.Title == "" {
		return "Untitled"
	}
	return ref.Title
}

func issueStatus(ref *notify.IssueRef) string {
	if ref == nil || ref.Status == "" {
		return "Unknown"
	}
	return ref.Status
}
