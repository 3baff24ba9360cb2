package memory

import (
	"context"
	"sync"

	"github.com/marcelsud/webhook-dispatch/event"
)

/* In-memory implementation of event.Archive
 * A bounded ring of the most recent records; oldest entries are evicted
 * once capacity is reached. The default archive when Redis is not
 * configured.
 */

const defaultCapacity = 100

type Repository struct {
	mu      sync.RWMutex
	records []event.Record
	cap     int
}

// NewRepository creates an in-memory archive keeping up to capacity records
func NewRepository(capacity int) *Repository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Repository{
		records: make([]event.Record, 0, capacity),
		cap:     capacity,
	}
}

// Record stores the outcome of one dispatched event
func (r *Repository) Record(_ context.Context, rec event.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	if len(r.records) > r.cap {
		r.records = r.records[len(r.records)-r.cap:]
	}
	return nil
}

// Recent returns up to limit records, most recently recorded first
func (r *Repository) Recent(_ context.Context, limit int) ([]event.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}

	out := make([]event.Record, 0, limit)
	for i := len(r.records) - 1; i >= len(r.records)-limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

// Close releases the archive; a no-op for the in-memory implementation
func (r *Repository) Close(_ context.Context) error {
	return nil
}
