package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the client side of a realtime connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a connection to the realtime endpoint, presenting the bearer
// credential at connect time.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}

// Clock abstracts timer scheduling so reconnection and heartbeat logic can
// be tested without wall-clock delays.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewClock returns the wall clock.
func NewClock() Clock { return realClock{} }

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

// Dial opens the websocket, carrying the credential in the Authorization
// header.
func (d *WebsocketDialer) Dial(ctx context.Context, url, token string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

// IsAuthRejection reports whether the connection was closed by the server's
// authentication gate. Auth rejections are terminal: retrying with the same
// credential cannot succeed.
func IsAuthRejection(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	return closeErr.Code == websocket.ClosePolicyViolation &&
		strings.HasPrefix(closeErr.Text, "authentication error")
}
