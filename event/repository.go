package event

import (
	"context"
	"time"
)

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

/* Record is the archived outcome of one dispatched event
 * Kept for introspection, not as an audit log: archives are best-effort
 * and may be bounded or expire entries
 */
type Record struct {
	EventID         string    `json:"event_id"`
	EventType       string    `json:"event_type"`
	HappenedAt      time.Time `json:"happened_at"`
	ProcessedAt     time.Time `json:"processed_at"`
	HandlersMatched int       `json:"handlers_matched"`
	HandlersFailed  int       `json:"handlers_failed"`
}

// Recorder provides write operations for the event archive
type Recorder interface {
	/* Context is always the first parameter in functions that do I/O
	 * This allows for cancellation, timeouts, and shared values
	 */
	Record(ctx context.Context, rec Record) error
}

// Reader provides read operations for the event archive
type Reader interface {
	// Recent returns up to limit records, most recently processed first
	Recent(ctx context.Context, limit int) ([]Record, error)
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Archive interface {
	Recorder
	Reader
	Close(ctx context.Context) error
}
