package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the broadcast and webhook
// sides of the service.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	eventsSent     map[string]int64
	eventsDropped  map[string]int64
	deliveryMisses map[string]int64
	authFailures   int64
	webhookSent    int64
	webhookFailed  int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		eventsSent:     make(map[string]int64),
		eventsDropped:  make(map[string]int64),
		deliveryMisses: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordEventSent counts an event handed to a connection's transport.
func (m *Metrics) RecordEventSent(event string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsSent[event]++
}

// RecordEventDropped counts an event dropped on a full outbound buffer.
func (m *Metrics) RecordEventDropped(event string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsDropped[event]++
}

// RecordDeliveryMiss counts a send that found no live connection.
func (m *Metrics) RecordDeliveryMiss(target string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveryMisses[target]++
}

// RecordAuthFailure counts a rejected connection attempt.
func (m *Metrics) RecordAuthFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authFailures++
}

// RecordWebhook counts a webhook delivery outcome.
func (m *Metrics) RecordWebhook(ok bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.webhookSent++
	} else {
		m.webhookFailed++
	}
}

// Snapshot returns a copy of the counters for reporting.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := make(map[string]int64, len(m.eventsSent))
	for k, v := range m.eventsSent {
		sent[k] = v
	}
	dropped := make(map[string]int64, len(m.eventsDropped))
	for k, v := range m.eventsDropped {
		dropped[k] = v
	}
	misses := make(map[string]int64, len(m.deliveryMisses))
	for k, v := range m.deliveryMisses {
		misses[k] = v
	}

	return map[string]any{
		"events_sent":     sent,
		"events_dropped":  dropped,
		"delivery_misses": misses,
		"auth_failures":   m.authFailures,
		"webhook_sent":    m.webhookSent,
		"webhook_failed":  m.webhookFailed,
	}
}
