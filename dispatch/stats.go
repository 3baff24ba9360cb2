package dispatch

import (
	"sync"

	"github.com/marcelsud/webhook-dispatch/event"
)

/* Stats is the process-wide counter set, mutated by exactly two call
 * sites: the request-acceptance path and the worker loop
 * In-memory only; reset by engine restart, never persisted
 */
type Stats struct {
	mu sync.Mutex

	requestsTotal      uint64
	requestsSuccessful uint64
	requestsFailed     uint64
	eventsProcessed    uint64
	eventsFailed       uint64
	perType            map[event.Type]uint64
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	RequestsTotal      uint64           `json:"requests_total"`
	RequestsSuccessful uint64           `json:"requests_successful"`
	RequestsFailed     uint64           `json:"requests_failed"`
	EventsProcessed    uint64           `json:"events_processed"`
	EventsFailed       uint64           `json:"events_failed"`
	EventTypeCounts    map[string]int64 `json:"event_type_counts"`
	SuccessRate        float64          `json:"success_rate"`
}

// NewStats creates a zeroed counter set
func NewStats() *Stats {
	return &Stats{
		perType: make(map[event.Type]uint64),
	}
}

// RequestAccepted counts one successfully accepted request
func (s *Stats) RequestAccepted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestsTotal++
	s.requestsSuccessful++
}

// RequestRejected counts one rejected request
func (s *Stats) RequestRejected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestsTotal++
	s.requestsFailed++
}

// EventProcessed counts one fully dispatched event, regardless of
// individual handler outcomes
func (s *Stats) EventProcessed(t event.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsProcessed++
	s.perType[t]++
}

// EventFailed counts one failed handler invocation
func (s *Stats) EventFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsFailed++
}

// Snapshot returns a copy of all counters.
// SuccessRate is computed on read, never stored, to avoid drift.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	perType := make(map[string]int64, len(s.perType))
	for t, n := range s.perType {
		perType[t.String()] = int64(n)
	}

	snap := Snapshot{
		RequestsTotal:      s.requestsTotal,
		RequestsSuccessful: s.requestsSuccessful,
		RequestsFailed:     s.requestsFailed,
		EventsProcessed:    s.eventsProcessed,
		EventsFailed:       s.eventsFailed,
		EventTypeCounts:    perType,
	}
	if s.requestsTotal > 0 {
		snap.SuccessRate = float64(s.requestsSuccessful) / float64(s.requestsTotal)
	}
	return snap
}
