package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/domain"
	"github.com/spec-kit/issue-notify-service/internal/observability"
)

func newTestRouter() (*Router, *Registry) {
	registry := NewRegistry()
	return NewRouter(registry, zap.NewNop(), observability.NewMetrics()), registry
}

func TestSendToUserHitsEveryConnectionOfTheUser(t *testing.T) {
	router, registry := newTestRouter()

	tab1 := &recordingSender{}
	tab2 := &recordingSender{}
	other := &recordingSender{}
	registry.Register(testConnection("c1", 1, domain.RoleUser), tab1)
	registry.Register(testConnection("c2", 1, domain.RoleUser), tab2)
	registry.Register(testConnection("c3", 2, domain.RoleUser), other)

	delivered := router.SendToUser(1, "issue_updated", "payload")

	require.Equal(t, 2, delivered)
	require.Len(t, tab1.received(), 1)
	require.Len(t, tab2.received(), 1)
	require.Empty(t, other.received())
}

func TestSendToUserOfflineIsSilentNoOp(t *testing.T) {
	router, _ := newTestRouter()
	require.Equal(t, 0, router.SendToUser(42, "issue_updated", "payload"))
}

func TestSendToRoleExactlyOncePerConnection(t *testing.T) {
	router, registry := newTestRouter()

	admin := &recordingSender{}
	support := &recordingSender{}
	user := &recordingSender{}
	registry.Register(testConnection("c1", 1, domain.RoleAdmin), admin)
	registry.Register(testConnection("c2", 2, domain.RoleSupport), support)
	registry.Register(testConnection("c3", 3, domain.RoleUser), user)

	delivered := router.SendToRole(domain.RoleAdmin, "issue_created", "payload")

	require.Equal(t, 1, delivered)
	require.Len(t, admin.received(), 1)
	require.Empty(t, support.received())
	require.Empty(t, user.received())
}

func TestBroadcastHitsAll(t *testing.T) {
	router, registry := newTestRouter()

	senders := []*recordingSender{{}, {}, {}}
	registry.Register(testConnection("c1", 1, domain.RoleAdmin), senders[0])
	registry.Register(testConnection("c2", 2, domain.RoleSupport), senders[1])
	registry.Register(testConnection("c3", 3, domain.RoleUser), senders[2])

	delivered := router.Broadcast("announcement", "payload")

	require.Equal(t, 3, delivered)
	for _, s := range senders {
		require.Len(t, s.received(), 1)
	}
}

func TestDisconnectRemovesFromAllDeliverySets(t *testing.T) {
	router, registry := newTestRouter()

	sender := &recordingSender{}
	registry.Register(testConnection("c1", 1, domain.RoleAdmin), sender)
	registry.Unregister("c1")

	require.Equal(t, 0, router.SendToUser(1, "issue_updated", "payload"))
	require.Equal(t, 0, router.SendToRole(domain.RoleAdmin, "issue_created", "payload"))
	require.Equal(t, 0, router.Broadcast("announcement", "payload"))
	require.Empty(t, sender.received())
}

func TestSequentialSendsPreservePerConnectionOrder(t *testing.T) {
	router, registry := newTestRouter()

	sender := &recordingSender{}
	registry.Register(testConnection("c1", 1, domain.RoleUser), sender)

	router.SendToUser(1, "first", nil)
	router.SendToUser(1, "second", nil)
	router.Broadcast("third", nil)

	got := sender.received()
	require.Len(t, got, 3)
	require.Equal(t, "first", got[0].Event)
	require.Equal(t, "second", got[1].Event)
	require.Equal(t, "third", got[2].Event)
}

func TestFullBufferDropsWithoutBlocking(t *testing.T) {
	router, registry := newTestRouter()

	sender := &recordingSender{full: true}
	registry.Register(testConnection("c1", 1, domain.RoleUser), sender)

	require.Equal(t, 0, router.SendToUser(1, "issue_updated", "payload"))
	require.Empty(t, sender.received())
}
