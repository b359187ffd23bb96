package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/domain"
	"github.com/spec-kit/issue-notify-service/internal/events"
	"github.com/spec-kit/issue-notify-service/internal/observability"
	"github.com/spec-kit/issue-notify-service/internal/realtime"
)

type captureSender struct {
	mu        sync.Mutex
	envelopes []realtime.Envelope
}

func (s *captureSender) Send(env realtime.Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, env)
	return true
}

func (s *captureSender) byEvent(event string) []realtime.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []realtime.Envelope
	for _, env := range s.envelopes {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

type captureWebhooks struct {
	mu     sync.Mutex
	bodies []events.WebhookBody
}

func (w *captureWebhooks) Send(_ context.Context, body events.WebhookBody) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bodies = append(w.bodies, body)
}

func (w *captureWebhooks) sent() []events.WebhookBody {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]events.WebhookBody, len(w.bodies))
	copy(out, w.bodies)
	return out
}

type fixture struct {
	dispatcher events.Dispatcher
	registry   *realtime.Registry
	webhooks   *captureWebhooks
}

func newFixture() *fixture {
	registry := realtime.NewRegistry()
	router := realtime.NewRouter(registry, zap.NewNop(), observability.NewMetrics())
	dispatcher := events.NewInMemoryDispatcher()
	webhooks := &captureWebhooks{}

	svc := NewNotificationService(dispatcher, router, webhooks, zap.NewNop())
	svc.RegisterHandlers()

	return &fixture{dispatcher: dispatcher, registry: registry, webhooks: webhooks}
}

func (f *fixture) connect(id string, userID int, username string, role domain.Role) *captureSender {
	sender := &captureSender{}
	f.registry.Register(domain.Connection{
		ConnectionID: id,
		UserID:       userID,
		Username:     username,
		Role:         role,
		ConnectedAt:  time.Now(),
	}, sender)
	return sender
}

func TestIssueLifecycleScenario(t *testing.T) {
	f := newFixture()

	alice := f.connect("c-alice", 1, "alice", domain.RoleUser)
	admin := f.connect("c-admin", 2, "admin", domain.RoleAdmin)
	bob := f.connect("c-bob", 3, "bob", domain.RoleSupport)

	// alice creates an issue.
	err := f.dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventIssueCreated,
		IssueID: 12,
		Payload: events.IssueCreatedPayload{
			Title:     "Printer broken",
			Status:    "New",
			CreatedBy: "alice",
		},
	})
	require.NoError(t, err)

	require.Len(t, admin.byEvent("issue_created"), 1)
	require.Len(t, bob.byEvent("issue_created"), 1)
	require.Empty(t, alice.byEvent("issue_created"))

	created := admin.byEvent("issue_created")[0].Data.(IssueCreatedData)
	require.Equal(t, 12, created.Issue.ID)
	require.Equal(t, `New issue "Printer broken" created by alice`, created.Message)

	// bob resolves it.
	err = f.dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventIssueUpdated,
		IssueID: 12,
		Payload: events.IssueUpdatedPayload{
			Title:     "Printer broken",
			OldStatus: "New",
			NewStatus: "Resolved",
			UpdatedBy: "bob",
			CreatedBy: "alice",
			CreatorID: 1,
		},
	})
	require.NoError(t, err)

	require.Len(t, alice.byEvent("issue_updated"), 1)
	require.Empty(t, bob.byEvent("issue_updated"))
	require.Empty(t, admin.byEvent("issue_updated"))

	updated := alice.byEvent("issue_updated")[0].Data.(IssueUpdatedData)
	require.Equal(t, "Resolved", updated.Issue.Status)
	require.Equal(t, `Your issue "Printer broken" status changed to Resolved by bob`, updated.Message)

	// Both lifecycle transitions produced webhooks.
	sent := f.webhooks.sent()
	require.Len(t, sent, 2)
	require.Equal(t, "issue.created", sent[0].Event)
	require.Equal(t, "issue.updated", sent[1].Event)
	require.Equal(t, "Resolved", sent[1].NewStatus)
}

func TestIssueUpdatedUnchangedStatusIsIgnored(t *testing.T) {
	f := newFixture()
	alice := f.connect("c-alice", 1, "alice", domain.RoleUser)

	err := f.dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventIssueUpdated,
		IssueID: 12,
		Payload: events.IssueUpdatedPayload{
			Title:     "Printer broken",
			OldStatus: "New",
			NewStatus: "New",
			UpdatedBy: "bob",
			CreatedBy: "alice",
			CreatorID: 1,
		},
	})
	require.NoError(t, err)

	require.Empty(t, alice.byEvent("issue_updated"))
	require.Empty(t, f.webhooks.sent())
}

func TestIssueUpdatedSelfUpdateSuppressed(t *testing.T) {
	f := newFixture()
	alice := f.connect("c-alice", 1, "alice", domain.RoleUser)

	err := f.dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventIssueUpdated,
		IssueID: 12,
		Payload: events.IssueUpdatedPayload{
			Title:     "Printer broken",
			OldStatus: "New",
			NewStatus: "In Progress",
			UpdatedBy: "alice",
			CreatedBy: "alice",
			CreatorID: 1,
		},
	})
	require.NoError(t, err)

	// The webhook still fires for the status change, but no session
	// notification goes to the self-updating creator.
	require.Empty(t, alice.byEvent("issue_updated"))
	require.Len(t, f.webhooks.sent(), 1)
}

func TestIssueCreatedOfflineStaffIsNoOp(t *testing.T) {
	f := newFixture()

	err := f.dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventIssueCreated,
		IssueID: 12,
		Payload: events.IssueCreatedPayload{
			Title:     "Printer broken",
			Status:    "New",
			CreatedBy: "alice",
		},
	})
	require.NoError(t, err)
	require.Len(t, f.webhooks.sent(), 1)
}
