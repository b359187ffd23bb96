package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeWebhookBody(t *testing.T) {
	t.Run("known events", func(t *testing.T) {
		body, err := DecodeWebhookBody([]byte(`{"event":"issue.created","issue_id":3,"new_status":"New","updated_by":"alice"}`))
		require.NoError(t, err)
		require.Equal(t, "issue.created", body.Event)
		require.Equal(t, 3, body.IssueID)
		require.Equal(t, "New", body.NewStatus)
		require.Equal(t, "alice", body.UpdatedBy)

		_, err = DecodeWebhookBody([]byte(`{"event":"issue.updated","issue_id":3,"new_status":"Resolved","updated_by":"bob"}`))
		require.NoError(t, err)
	})

	t.Run("unknown event is a decode error", func(t *testing.T) {
		_, err := DecodeWebhookBody([]byte(`{"event":"issue.deleted","issue_id":3}`))
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeWebhookBody([]byte(`{not json`))
		require.Error(t, err)
	})

	t.Run("empty event", func(t *testing.T) {
		_, err := DecodeWebhookBody([]byte(`{"issue_id":3}`))
		require.Error(t, err)
	})
}
