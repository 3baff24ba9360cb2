package dispatch

import "errors"

/* Request-level failures are all non-fatal to the engine
 * Callers map each sentinel to a distinct HTTP status: permanent payload
 * problems should not invite provider retries, a full queue should
 */
var (
	// ErrMissingSignature means validation is enabled but no signature header was sent
	ErrMissingSignature = errors.New("missing signature header")

	// ErrInvalidSignature means the signature header did not match the body
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrQueueFull means the event was valid but the queue is at capacity
	ErrQueueFull = errors.New("event queue is full")

	// ErrDuplicateHandler means a handler with the same name is already registered
	ErrDuplicateHandler = errors.New("handler name already registered")
)
