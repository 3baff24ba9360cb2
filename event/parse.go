package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

/* Parse errors form a closed taxonomy so callers can map each failure
 * to a distinct response without string matching
 */
var (
	ErrInvalidJSON      = errors.New("invalid JSON payload")
	ErrMissingEventType = errors.New("missing event type")
	ErrUnknownEventType = errors.New("unknown event type")
)

/* Parse decodes a raw webhook body into an Event
 * Total over its inputs: every byte string yields either a well-formed
 * Event or an error wrapping one of the taxonomy sentinels above
 */
func Parse(raw []byte) (Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	typeStr, ok := payload["type"].(string)
	if !ok || typeStr == "" {
		return Event{}, ErrMissingEventType
	}

	eventType, err := ParseType(typeStr)
	if err != nil {
		return Event{}, err
	}

	evt := Event{
		Type:    eventType,
		Payload: payload,
	}

	// Providers assign the id; tolerate its absence by synthesizing one
	if id, ok := payload["id"].(string); ok && id != "" {
		evt.ID = id
	} else {
		evt.ID = uuid.New().String()
		evt.SyntheticID = true
	}

	evt.HappenedAt = parseHappenedAt(payload)

	return evt, nil
}

// parseHappenedAt extracts the sender-supplied timestamp, falling back to now
func parseHappenedAt(payload map[string]any) time.Time {
	str, ok := payload["happened_at"].(string)
	if !ok || str == "" {
		return time.Now().UTC()
	}

	ts, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		// Try RFC3339 without nano precision
		ts, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Now().UTC()
		}
	}
	return ts
}
