package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the dispatch engine.
type Metrics struct {
	// Queue reports event queue occupancy
	Queue QueueInfo `json:"queue"`

	// Counters holds the cumulative engine counters
	Counters Counters `json:"counters"`

	// EventTypes maps event type name to count of processed events
	EventTypes map[string]int64 `json:"event_types"`

	// Handlers is the number of registered handlers
	Handlers int64 `json:"handlers"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// QueueInfo reports event queue occupancy.
type QueueInfo struct {
	// Size is the number of events waiting for dispatch
	Size int64 `json:"size"`

	// Capacity is the configured queue bound
	Capacity int64 `json:"capacity"`
}

// Counters holds the cumulative engine counters.
type Counters struct {
	RequestsTotal      int64 `json:"requests_total"`
	RequestsSuccessful int64 `json:"requests_successful"`
	RequestsFailed     int64 `json:"requests_failed"`
	EventsProcessed    int64 `json:"events_processed"`
	EventsFailed       int64 `json:"events_failed"`
}

// Collector defines the interface for collecting metrics from the dispatch engine.
type Collector interface {
	// Collect gathers current metrics from the engine
	Collect(ctx context.Context) (Metrics, error)

	// GetQueueInfo returns event queue occupancy
	GetQueueInfo(ctx context.Context) (QueueInfo, error)

	// GetCounters returns the cumulative engine counters
	GetCounters(ctx context.Context) (Counters, error)

	// GetEventTypeCounts returns processed events grouped by type
	GetEventTypeCounts(ctx context.Context) (map[string]int64, error)

	// GetHandlerCount returns the number of registered handlers
	GetHandlerCount(ctx context.Context) (int64, error)
}
