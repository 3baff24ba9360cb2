package forward

import (
	"fmt"
	"time"

	"github.com/marcelsud/webhook-dispatch/event"
)

/* Target represents one webhook forwarding destination
 * Each target is registered as a dispatch handler that relays matching
 * events to TargetURL
 */
type Target struct {
	Name           string
	TargetURL      string
	EventType      string // Empty means all event types
	Priority       int
	SigningSecret  string        // Outbound sha256= signing secret, optional
	Timeout        time.Duration // Per-delivery timeout (default 10s)
	ExpectedStatus int           // Expected HTTP status code; 0 accepts any 2xx
}

// Validate checks if the target configuration is valid
func (t *Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if t.TargetURL == "" {
		return fmt.Errorf("target_url cannot be empty for target %s", t.Name)
	}
	if t.EventType != "" {
		if _, err := event.ParseType(t.EventType); err != nil {
			return fmt.Errorf("invalid event_type for target %s: %w", t.Name, err)
		}
	}
	if t.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative for target %s", t.Name)
	}
	// Only success statuses make sense as an expectation
	if t.ExpectedStatus != 0 && (t.ExpectedStatus < 200 || t.ExpectedStatus > 299) {
		return fmt.Errorf("expected_status must be a 2xx code for target %s (got %d)", t.Name, t.ExpectedStatus)
	}
	return nil
}
