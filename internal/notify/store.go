package notify

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync"
	"time"
)

// Capacity is the fixed retention bound: the store keeps only the most
// recent notifications, oldest evicted first.
const Capacity = 50

// DedupWindow is the span within which structurally similar events collapse
// into one notification.
const DedupWindow = 5 * time.Second

// Data is the opaque payload delivered with an event. The dedup policy
// inspects the issue id and actor fields when present.
type Data struct {
	Issue     *IssueRef `json:"issue,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	Message   string    `json:"message,omitempty"`
	Changes   any       `json:"changes,omitempty"`
}

// IssueRef identifies the issue an event concerns.
type IssueRef struct {
	ID     int    `json:"id"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
}

// Notification is the client-side projection of a delivered event.
type Notification struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Data      Data      `json:"data"`
}

// Store ingests inbound events, suppresses near-duplicates arriving within
// the dedup window, and maintains bounded newest-first read/unread state.
// All operations are synchronous and safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	notifications []Notification
	now           func() time.Time
	lastID        int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// NewStoreWithClock creates a store with an injected clock for tests.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// Ingest adds a notification for the event unless an existing notification
// dedups it. The second return is false when the event was suppressed.
func (s *Store) Ingest(eventType, title, message string, data Data) (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, n := range s.notifications {
		if n.Type != eventType || n.Message != message {
			continue
		}
		if !sameIssue(n.Data.Issue, data.Issue) {
			continue
		}
		if n.Data.UpdatedBy != data.UpdatedBy || n.Data.CreatedBy != data.CreatedBy {
			continue
		}
		if now.Sub(n.Timestamp) < DedupWindow {
			return Notification{}, false
		}
	}

	n := Notification{
		ID:        s.nextID(now),
		Timestamp: now,
		Read:      false,
		Type:      eventType,
		Title:     title,
		Message:   message,
		Data:      data,
	}

	// Newest first; trim to capacity before prepending.
	kept := s.notifications
	if len(kept) > Capacity-1 {
		kept = kept[:Capacity-1]
	}
	s.notifications = append([]Notification{n}, kept...)
	return n, true
}

// List returns a newest-first snapshot.
func (s *Store) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.notifications {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkRead flips exactly one notification's read flag. No-op if the id is
// absent.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return
		}
	}
}

// MarkAllRead flips every notification's read flag.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// nextID builds a unique id from the arrival timestamp plus a random
// suffix, monotonically non-decreasing in arrival order.
func (s *Store) nextID(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	s.lastID = ms

	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return strconv.FormatInt(ms, 10) + "-" + hex.EncodeToString(suffix)
}

func sameIssue(a, b *IssueRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
