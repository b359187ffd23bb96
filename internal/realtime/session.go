package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/domain"
	"github.com/spec-kit/issue-notify-service/internal/observability"
)

// Conn is the transport a session rides on. Satisfied by
// *websocket.Conn; faked in tests.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// ClientMessage is an inbound decoded client message.
type ClientMessage struct {
	Event string `json:"event"`
}

// PongData answers a client health probe.
type PongData struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// Session owns one authenticated connection: a buffered outbound channel
// drained by a write pump, and a read loop for client messages. Sends are
// fire-and-forget; a slow consumer only ever loses its own events.
type Session struct {
	conn    domain.Connection
	tc      Conn
	out     chan Envelope
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger
	metrics *observability.Metrics

	writeTimeout time.Duration
}

func newSession(conn domain.Connection, tc Conn, bufferSize int, writeTimeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Session {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	return &Session{
		conn:         conn,
		tc:           tc,
		out:          make(chan Envelope, bufferSize),
		done:         make(chan struct{}),
		logger:       logger,
		metrics:      metrics,
		writeTimeout: writeTimeout,
	}
}

// Connection returns the immutable connection record.
func (s *Session) Connection() domain.Connection {
	return s.conn
}

// Send enqueues an envelope for delivery without blocking. It reports false
// when the session is closed or its buffer is full.
func (s *Session) Send(env Envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- env:
		return true
	default:
		return false
	}
}

// writePump drains the outbound channel in FIFO order. Runs in its own
// goroutine; exits when the session closes or a write fails.
func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case env := <-s.out:
			if s.writeTimeout > 0 {
				_ = s.tc.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if err := s.tc.WriteJSON(env); err != nil {
				s.logger.Debug("write failed, closing session",
					zap.String("connection_id", s.conn.ConnectionID),
					zap.Error(err))
				s.close()
				return
			}
		}
	}
}

// readPump decodes inbound client messages until the transport fails or the
// session closes. The only client-initiated message is the ping health probe.
func (s *Session) readPump() {
	for {
		_, raw, err := s.tc.ReadMessage()
		if err != nil {
			s.close()
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Debug("undecodable client message",
				zap.String("connection_id", s.conn.ConnectionID))
			continue
		}

		switch msg.Event {
		case "ping":
			s.Send(Envelope{Event: "pong", Data: PongData{
				Status:    "pong",
				Timestamp: time.Now().UnixMilli(),
			}})
		default:
			s.logger.Debug("ignoring unknown client event",
				zap.String("connection_id", s.conn.ConnectionID),
				zap.String("event", msg.Event))
		}
	}
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.tc.Close()
	})
}
