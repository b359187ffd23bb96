package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated EventType = "issue.created"
	EventIssueUpdated EventType = "issue.updated"
)

// Event represents an issue lifecycle event published by the issue
// management layer. Payload is one of IssueCreatedPayload or
// IssueUpdatedPayload, matching Type.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	IssueID   int       `json:"issue_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// IssueCreatedPayload carries the fields of a newly created issue.
type IssueCreatedPayload struct {
	Title     string `json:"title"`
	Status    string `json:"status"`
	Priority  string `json:"priority,omitempty"`
	CreatedBy string `json:"created_by"`
}

// IssueUpdatedPayload carries a status transition on an existing issue.
// CreatorID identifies the personal room of the issue's creator; the
// issue storage layer resolves it before publishing.
type IssueUpdatedPayload struct {
	Title     string            `json:"title"`
	OldStatus string            `json:"old_status"`
	NewStatus string            `json:"new_status"`
	UpdatedBy string            `json:"updated_by"`
	CreatedBy string            `json:"created_by"`
	CreatorID int               `json:"creator_id"`
	Changes   map[string]string `json:"changes,omitempty"`
}

// WebhookBody is the wire format POSTed to external receivers.
type WebhookBody struct {
	Event     string `json:"event"`
	IssueID   int    `json:"issue_id"`
	NewStatus string `json:"new_status"`
	UpdatedBy string `json:"updated_by"`
}

// DecodeWebhookBody parses a received webhook body. Unknown event names are
// a decode error, never silently accepted.
func DecodeWebhookBody(raw []byte) (WebhookBody, error) {
	var body WebhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return WebhookBody{}, fmt.Errorf("decode webhook body: %w", err)
	}
	switch EventType(body.Event) {
	case EventIssueCreated, EventIssueUpdated:
		return body, nil
	default:
		return WebhookBody{}, fmt.Errorf("unknown event type %q", body.Event)
	}
}
