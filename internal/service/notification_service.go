package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/domain"
	"github.com/spec-kit/issue-notify-service/internal/events"
)

// RoomSender fans an event out to connected sessions.
type RoomSender interface {
	SendToUser(userID int, event string, data any) int
	SendToRole(role domain.Role, event string, data any) int
	Broadcast(event string, data any) int
}

// WebhookSender delivers a signed notification to the external receiver.
type WebhookSender interface {
	Send(ctx context.Context, body events.WebhookBody)
}

// IssueCreatedData is the payload pushed to sessions for issue.created.
type IssueCreatedData struct {
	Issue     IssueView `json:"issue"`
	CreatedBy string    `json:"createdBy"`
	Message   string    `json:"message"`
}

// IssueUpdatedData is the payload pushed to sessions for issue.updated.
type IssueUpdatedData struct {
	Issue     IssueView         `json:"issue"`
	UpdatedBy string            `json:"updatedBy"`
	Changes   map[string]string `json:"changes,omitempty"`
	Message   string            `json:"message"`
}

// IssueView is the issue projection carried inside session payloads.
type IssueView struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// NotificationService routes issue lifecycle events to connected sessions
// and to the outbound webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	rooms      RoomSender
	webhooks   WebhookSender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, rooms RoomSender, webhooks WebhookSender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		rooms:      rooms,
		webhooks:   webhooks,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueCreated, n.handleIssueCreated)
	n.dispatcher.Subscribe(events.EventIssueUpdated, n.handleIssueUpdated)
}

// handleIssueCreated notifies admin and support staff. The creator's own
// connections receive nothing.
func (n *NotificationService) handleIssueCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssueCreatedPayload)
	if !ok {
		n.logger.Error("issue.created with unexpected payload type",
			zap.Int("issue_id", event.IssueID))
		return fmt.Errorf("issue.created: unexpected payload %T", event.Payload)
	}

	n.webhooks.Send(ctx, events.WebhookBody{
		Event:     string(events.EventIssueCreated),
		IssueID:   event.IssueID,
		NewStatus: payload.Status,
		UpdatedBy: payload.CreatedBy,
	})

	data := IssueCreatedData{
		Issue: IssueView{
			ID:     event.IssueID,
			Title:  payload.Title,
			Status: payload.Status,
		},
		CreatedBy: payload.CreatedBy,
		Message:   fmt.Sprintf("New issue %q created by %s", payload.Title, payload.CreatedBy),
	}

	delivered := n.rooms.SendToRole(domain.RoleAdmin, "issue_created", data)
	delivered += n.rooms.SendToRole(domain.RoleSupport, "issue_created", data)
	n.logger.Info("issue created routed",
		zap.Int("issue_id", event.IssueID),
		zap.Int("delivered", delivered))
	return nil
}

// handleIssueUpdated notifies the issue's creator about a status change,
// unless the creator made the change themselves.
func (n *NotificationService) handleIssueUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssueUpdatedPayload)
	if !ok {
		n.logger.Error("issue.updated with unexpected payload type",
			zap.Int("issue_id", event.IssueID))
		return fmt.Errorf("issue.updated: unexpected payload %T", event.Payload)
	}

	if payload.NewStatus == payload.OldStatus {
		return nil
	}

	n.webhooks.Send(ctx, events.WebhookBody{
		Event:     string(events.EventIssueUpdated),
		IssueID:   event.IssueID,
		NewStatus: payload.NewStatus,
		UpdatedBy: payload.UpdatedBy,
	})

	if payload.UpdatedBy == payload.CreatedBy {
		return nil
	}

	data := IssueUpdatedData{
		Issue: IssueView{
			ID:     event.IssueID,
			Title:  payload.Title,
			Status: payload.NewStatus,
		},
		UpdatedBy: payload.UpdatedBy,
		Changes:   payload.Changes,
		Message: fmt.Sprintf("Your issue %q status changed to %s by %s",
			payload.Title, payload.NewStatus, payload.UpdatedBy),
	}

	delivered := n.rooms.SendToUser(payload.CreatorID, "issue_updated", data)
	n.logger.Info("issue update routed",
		zap.Int("issue_id", event.IssueID),
		zap.Int("creator_id", payload.CreatorID),
		zap.Int("delivered", delivered))
	return nil
}
