package metrics

import (
	"context"
	"time"

	"github.com/marcelsud/webhook-dispatch/dispatch"
)

// DispatchCollector implements the Collector interface over the dispatch engine
type DispatchCollector struct {
	processor *dispatch.Processor
}

// NewDispatchCollector creates a collector reading from a processor
func NewDispatchCollector(processor *dispatch.Processor) *DispatchCollector {
	return &DispatchCollector{
		processor: processor,
	}
}

// Collect gathers all metrics from the engine
func (c *DispatchCollector) Collect(ctx context.Context) (Metrics, error) {
	queue, err := c.GetQueueInfo(ctx)
	if err != nil {
		return Metrics{}, err
	}

	counters, err := c.GetCounters(ctx)
	if err != nil {
		return Metrics{}, err
	}

	eventTypes, err := c.GetEventTypeCounts(ctx)
	if err != nil {
		return Metrics{}, err
	}

	handlers, err := c.GetHandlerCount(ctx)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		Queue:      queue,
		Counters:   counters,
		EventTypes: eventTypes,
		Handlers:   handlers,
		Timestamp:  time.Now(),
	}, nil
}

// GetQueueInfo returns event queue occupancy
func (c *DispatchCollector) GetQueueInfo(_ context.Context) (QueueInfo, error) {
	info := c.processor.GetQueueInfo()
	return QueueInfo{
		Size:     int64(info.Size),
		Capacity: int64(info.Capacity),
	}, nil
}

// GetCounters returns the cumulative engine counters
func (c *DispatchCollector) GetCounters(_ context.Context) (Counters, error) {
	snap := c.processor.GetStats()
	return Counters{
		RequestsTotal:      int64(snap.RequestsTotal),
		RequestsSuccessful: int64(snap.RequestsSuccessful),
		RequestsFailed:     int64(snap.RequestsFailed),
		EventsProcessed:    int64(snap.EventsProcessed),
		EventsFailed:       int64(snap.EventsFailed),
	}, nil
}

// GetEventTypeCounts returns processed events grouped by type
func (c *DispatchCollector) GetEventTypeCounts(_ context.Context) (map[string]int64, error) {
	return c.processor.GetStats().EventTypeCounts, nil
}

// GetHandlerCount returns the number of registered handlers
func (c *DispatchCollector) GetHandlerCount(_ context.Context) (int64, error) {
	return int64(len(c.processor.GetHandlers())), nil
}
