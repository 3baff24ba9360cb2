package dispatch

import "github.com/marcelsud/webhook-dispatch/event"

/* Queue is the bounded FIFO boundary between the fast request-serving
 * producer path and the potentially slow handler-invoking consumer path
 * Enqueue sheds load at capacity instead of stalling the request
 */

const defaultQueueSize = 100

type Queue struct {
	ch chan event.Event
}

// NewQueue creates a bounded queue with the given capacity
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueSize
	}
	return &Queue{
		ch: make(chan event.Event, capacity),
	}
}

// Enqueue adds an event, returning false immediately when at capacity
func (q *Queue) Enqueue(evt event.Event) bool {
	select {
	case q.ch <- evt:
		return true
	default:
		return false
	}
}

/* Dequeue blocks until an event is available or stop is closed
 * The false return is the shutdown sentinel for workers
 */
func (q *Queue) Dequeue(stop <-chan struct{}) (event.Event, bool) {
	select {
	case evt := <-q.ch:
		return evt, true
	case <-stop:
		return event.Event{}, false
	}
}

// Len returns the number of queued events
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the configured capacity
func (q *Queue) Cap() int {
	return cap(q.ch)
}
