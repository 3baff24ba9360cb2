package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/event/signature"
	"github.com/rs/zerolog"
)

/* Processor is the webhook dispatch facade
 * Data flow: Process verifies and parses the request, then enqueues;
 * background workers drain the queue and invoke matching handlers
 * Process never blocks on handler execution
 */

// Config holds the engine configuration
type Config struct {
	// Secret is the shared HMAC secret; empty disables verification
	Secret string

	// ValidateSignatures gates signature verification independently of Secret
	ValidateSignatures bool

	// MaxQueueSize bounds the event queue; excess deliveries are shed
	MaxQueueSize int

	// IgnorePingEvents short-circuits ping events before queuing
	IgnorePingEvents bool

	// Workers is the number of queue consumers (default 1)
	Workers int
}

// Result is the outcome of handling one inbound request
type Result struct {
	Success   bool
	EventType string
	EventID   string
	Err       error
}

// Health is the introspection view reported by HealthCheck
type Health struct {
	Healthy       bool     `json:"healthy"`
	QueueSize     int      `json:"queue_size"`
	QueueCapacity int      `json:"queue_capacity"`
	HandlersCount int      `json:"handlers_count"`
	Stats         Snapshot `json:"stats"`
}

// QueueInfo reports queue occupancy for health checks
type QueueInfo struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

type state int

const (
	stopped state = iota
	running
	stopping
)

type Processor struct {
	cfg      Config
	registry *Registry
	queue    *Queue
	stats    *Stats
	archive  event.Archive
	logger   zerolog.Logger

	mu    sync.Mutex
	state state
	stop  chan struct{}
	// done is closed once every worker from the current Start has exited
	done chan struct{}
}

// New creates a processor with dependency injection.
// A nil archive disables recent-event introspection.
func New(cfg Config, archive event.Archive, logger zerolog.Logger) *Processor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Processor{
		cfg:      cfg,
		registry: NewRegistry(),
		queue:    NewQueue(cfg.MaxQueueSize),
		stats:    NewStats(),
		archive:  archive,
		logger:   logger,
	}
}

/* Process handles one inbound webhook request: verify signature, parse
 * payload, enqueue. Total over its inputs - every failure comes back as
 * a Result, nothing is raised past this boundary. Returns as soon as
 * the event is queued or rejected.
 */
func (p *Processor) Process(ctx context.Context, signatureHeader string, rawBody []byte) Result {
	if p.cfg.ValidateSignatures && p.cfg.Secret != "" {
		if signatureHeader == "" {
			return p.reject(Result{Err: ErrMissingSignature})
		}
		if !signature.Verify(p.cfg.Secret, rawBody, signatureHeader) {
			return p.reject(Result{Err: ErrInvalidSignature})
		}
	}

	evt, err := event.Parse(rawBody)
	if err != nil {
		return p.reject(Result{Err: err})
	}

	if evt.SyntheticID {
		p.logger.Debug().
			Str("event_type", evt.Type.String()).
			Str("event_id", evt.ID).
			Msg("payload carried no id, synthesized one")
	}

	result := Result{
		EventType: evt.Type.String(),
		EventID:   evt.ID,
	}

	// Ignored kinds are accepted but never reach the queue
	if p.cfg.IgnorePingEvents && evt.Type == event.Ping {
		result.Success = true
		p.stats.RequestAccepted()
		return result
	}

	if !p.queue.Enqueue(evt) {
		result.Err = ErrQueueFull
		return p.reject(result)
	}

	result.Success = true
	p.stats.RequestAccepted()
	return result
}

func (p *Processor) reject(result Result) Result {
	p.stats.RequestRejected()
	return result
}

/* Start spawns the worker loops. Idempotent: starting a running or
 * draining processor is a no-op; a new worker set only spawns once the
 * previous one has fully stopped.
 */
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stopped {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop = stop
	p.done = done
	p.state = running

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.run(id, stop)
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	p.logger.Info().Int("workers", p.cfg.Workers).Int("queue_capacity", p.queue.Cap()).Msg("dispatch workers started")
}

/* Stop signals the workers to exit and waits for them
 * Graceful drain: the event currently being dispatched finishes, queued
 * events are left in place. Idempotent; concurrent calls during a drain
 * all wait for the same worker set to exit.
 */
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state == stopped {
		p.mu.Unlock()
		return nil
	}
	if p.state == running {
		p.state = stopping
		close(p.stop)
	}
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for workers to stop: %w", ctx.Err())
	}

	p.mu.Lock()
	finished := p.state == stopping
	if finished {
		p.state = stopped
	}
	p.mu.Unlock()

	if finished {
		p.logger.Info().Msg("dispatch workers stopped")
	}
	return nil
}

// Running reports whether the worker loops are active
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == running
}

// run is one worker loop: dequeue, dispatch, repeat until shutdown
func (p *Processor) run(workerID int, stop <-chan struct{}) {
	for {
		evt, ok := p.queue.Dequeue(stop)
		if !ok {
			return
		}
		p.dispatch(workerID, evt)
	}
}

/* dispatch invokes all matching handlers for one event, sequentially in
 * priority order. Each invocation is isolated: a failing handler is
 * logged and counted but never prevents the remaining handlers or
 * crashes the loop. The event counts as processed exactly once.
 */
func (p *Processor) dispatch(workerID int, evt event.Event) {
	// Handlers run under a context that survives Stop; the drain
	// guarantee means in-flight work is never aborted
	ctx := context.Background()

	matched := p.registry.Match(evt.Type)
	failed := 0

	for _, reg := range matched {
		if err := p.invoke(ctx, reg, evt); err != nil {
			failed++
			p.stats.EventFailed()
			p.logger.Error().
				Err(err).
				Int("worker", workerID).
				Str("handler", reg.Name).
				Str("event_id", evt.ID).
				Str("event_type", evt.Type.String()).
				Msg("handler failed")
		}
	}

	p.stats.EventProcessed(evt.Type)

	if p.archive != nil {
		rec := event.Record{
			EventID:         evt.ID,
			EventType:       evt.Type.String(),
			HappenedAt:      evt.HappenedAt,
			ProcessedAt:     time.Now().UTC(),
			HandlersMatched: len(matched),
			HandlersFailed:  failed,
		}
		if err := p.archive.Record(ctx, rec); err != nil {
			p.logger.Warn().Err(err).Str("event_id", evt.ID).Msg("archiving event failed")
		}
	}
}

// invoke runs one handler, converting panics into errors
func (p *Processor) invoke(ctx context.Context, reg Registration, evt event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", reg.Name, r)
		}
	}()
	return reg.Handler(ctx, evt)
}

// RegisterHandler adds a handler; see Registry.Register
func (p *Processor) RegisterHandler(reg Registration) error {
	return p.registry.Register(reg)
}

// UnregisterHandler removes a handler by name
func (p *Processor) UnregisterHandler(name string) bool {
	return p.registry.Unregister(name)
}

// GetStats returns a snapshot of the engine counters
func (p *Processor) GetStats() Snapshot {
	return p.stats.Snapshot()
}

// GetQueueInfo reports queue occupancy
func (p *Processor) GetQueueInfo() QueueInfo {
	return QueueInfo{
		Size:     p.queue.Len(),
		Capacity: p.queue.Cap(),
	}
}

// GetHandlers returns introspection info for all registered handlers
func (p *Processor) GetHandlers() []HandlerInfo {
	return p.registry.List()
}

// GetRecentEvents returns the most recently dispatched events
func (p *Processor) GetRecentEvents(ctx context.Context, limit int) ([]event.Record, error) {
	if p.archive == nil {
		return nil, nil
	}
	return p.archive.Recent(ctx, limit)
}

// HealthCheck reports engine health.
// Intentionally strict: an un-started engine is unhealthy even though
// Process would still accept requests.
func (p *Processor) HealthCheck() Health {
	return Health{
		Healthy:       p.Running(),
		QueueSize:     p.queue.Len(),
		QueueCapacity: p.queue.Cap(),
		HandlersCount: p.registry.Len(),
		Stats:         p.stats.Snapshot(),
	}
}
