package event

import (
	"fmt"
	"time"
)

/* Event represents a verified, parsed webhook occurrence
 * Uses value semantics as it represents data, not behavior
 * Immutable after construction by Parse
 */
type Event struct {
	ID          string
	Type        Type
	HappenedAt  time.Time
	Payload     map[string]any
	SyntheticID bool
}

/* Type is the closed enumeration of recognized webhook event kinds
 * Unknown kinds are rejected at parse time, never silently ignored
 */
type Type int

const (
	WorkflowCompleted Type = iota + 1
	JobCompleted
	Ping
)

// String returns the wire representation of the event type
func (t Type) String() string {
	switch t {
	case WorkflowCompleted:
		return "workflow-completed"
	case JobCompleted:
		return "job-completed"
	case Ping:
		return "ping"
	default:
		return "unknown"
	}
}

// ParseType maps a wire-format type string to a Type
func ParseType(s string) (Type, error) {
	switch s {
	case "workflow-completed":
		return WorkflowCompleted, nil
	case "job-completed":
		return JobCompleted, nil
	case "ping":
		return Ping, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownEventType, s)
	}
}

// Types returns all recognized event types
func Types() []Type {
	return []Type{WorkflowCompleted, JobCompleted, Ping}
}

// Validate checks if the type is valid
func (t Type) Validate() error {
	if t < WorkflowCompleted || t > Ping {
		return fmt.Errorf("invalid event type: %d", t)
	}
	return nil
}
