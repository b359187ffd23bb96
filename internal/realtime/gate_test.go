package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/domain"
	"github.com/spec-kit/issue-notify-service/internal/observability"
)

type stubVerifier struct {
	claim domain.IdentityClaim
	err   error
}

func (v stubVerifier) Verify(token string) (domain.IdentityClaim, error) {
	if v.err != nil {
		return domain.IdentityClaim{}, v.err
	}
	return v.claim, nil
}

type fakeTransport struct {
	mu      sync.Mutex
	inbound chan []byte
	written []Envelope
	closed  chan struct{}
	once    sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 8),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.inbound:
		return 1, msg, nil
	case <-f.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (f *fakeTransport) WriteJSON(v any) error {
	select {
	case <-f.closed:
		return errors.New("connection closed")
	default:
	}
	env, ok := v.(Envelope)
	if !ok {
		return errors.New("unexpected payload type")
	}
	f.mu.Lock()
	f.written = append(f.written, env)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) writes() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, len(f.written))
	copy(out, f.written)
	return out
}

func newTestGate(verifier Verifier) (*Gate, *Registry) {
	registry := NewRegistry()
	gate := NewGate(verifier, registry, nil, zap.NewNop(), observability.NewMetrics(), 8, time.Second)
	return gate, registry
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	gate, registry := newTestGate(stubVerifier{})

	_, err := gate.Authenticate("")
	require.Error(t, err)
	require.Equal(t, 0, registry.CountAll())
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	gate, registry := newTestGate(stubVerifier{err: errors.New("invalid token")})

	_, err := gate.Authenticate("bad-token")
	require.Error(t, err)
	require.Equal(t, 0, registry.CountAll())
}

func TestRunRegistersAndAcknowledgesOnce(t *testing.T) {
	claim := domain.IdentityClaim{UserID: 7, Username: "alice", Role: domain.RoleUser}
	gate, registry := newTestGate(stubVerifier{claim: claim})

	tc := newFakeTransport()
	done := make(chan struct{})
	go func() {
		gate.Run(context.Background(), tc, claim)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return registry.CountAll() == 1 && len(tc.writes()) >= 1
	}, time.Second, 5*time.Millisecond)

	require.Len(t, registry.ListAll(), 1)
	require.Equal(t, 7, registry.ListAll()[0].UserID)

	writes := tc.writes()
	acks := 0
	for _, env := range writes {
		if env.Event == "connected" {
			acks++
			ack, ok := env.Data.(ConnectedAck)
			require.True(t, ok)
			require.Equal(t, claim, ack.User)
		}
	}
	require.Equal(t, 1, acks)

	tc.Close()
	<-done
	require.Equal(t, 0, registry.CountAll())
}

func TestRunAnswersPing(t *testing.T) {
	claim := domain.IdentityClaim{UserID: 1, Username: "bob", Role: domain.RoleSupport}
	gate, _ := newTestGate(stubVerifier{claim: claim})

	tc := newFakeTransport()
	done := make(chan struct{})
	go func() {
		gate.Run(context.Background(), tc, claim)
		close(done)
	}()

	ping, err := json.Marshal(ClientMessage{Event: "ping"})
	require.NoError(t, err)
	tc.inbound <- ping

	require.Eventually(t, func() bool {
		for _, env := range tc.writes() {
			if env.Event == "pong" {
				data, ok := env.Data.(PongData)
				return ok && data.Status == "pong" && data.Timestamp > 0
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	tc.Close()
	<-done
}

func TestRunDeliversRoutedEventsInOrder(t *testing.T) {
	claim := domain.IdentityClaim{UserID: 3, Username: "carol", Role: domain.RoleAdmin}
	gate, registry := newTestGate(stubVerifier{claim: claim})
	router := NewRouter(registry, zap.NewNop(), observability.NewMetrics())

	tc := newFakeTransport()
	done := make(chan struct{})
	go func() {
		gate.Run(context.Background(), tc, claim)
		close(done)
	}()

	require.Eventually(t, func() bool { return registry.CountAll() == 1 }, time.Second, 5*time.Millisecond)

	router.SendToRole(domain.RoleAdmin, "issue_created", "first")
	router.SendToUser(3, "issue_updated", "second")

	require.Eventually(t, func() bool { return len(tc.writes()) >= 3 }, time.Second, 5*time.Millisecond)

	var routed []Envelope
	for _, env := range tc.writes() {
		if env.Event != "connected" {
			routed = append(routed, env)
		}
	}
	require.Len(t, routed, 2)
	require.Equal(t, "issue_created", routed[0].Event)
	require.Equal(t, "issue_updated", routed[1].Event)

	tc.Close()
	<-done
}

func TestDisconnectMidLifecycleReleasesState(t *testing.T) {
	claim := domain.IdentityClaim{UserID: 9, Username: "dave", Role: domain.RoleUser}
	gate, registry := newTestGate(stubVerifier{claim: claim})

	tc := newFakeTransport()
	tc.Close() // transport already dead before the session starts

	done := make(chan struct{})
	go func() {
		gate.Run(context.Background(), tc, claim)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("gate.Run did not exit on dead transport")
	}
	require.Equal(t, 0, registry.CountAll())
}
