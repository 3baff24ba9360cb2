package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/webhook-dispatch/dispatch"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/event/memory"
	"github.com/marcelsud/webhook-dispatch/event/signature"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond

func newProcessor(t *testing.T, cfg dispatch.Config) *dispatch.Processor {
	t.Helper()

	p := dispatch.New(cfg, memory.NewRepository(100), zerolog.Nop())
	p.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, p.Stop(ctx))
	})
	return p
}

// invocations collects handler calls for ordering assertions
type invocations struct {
	mu    sync.Mutex
	calls []string
}

func (i *invocations) handler(name string) dispatch.Handler {
	return func(_ context.Context, _ event.Event) error {
		i.mu.Lock()
		defer i.mu.Unlock()
		i.calls = append(i.calls, name)
		return nil
	}
}

func (i *invocations) names() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.calls...)
}

func workflowBody(id string) []byte {
	return []byte(fmt.Sprintf(`{"id": %q, "type": "workflow-completed", "happened_at": "2024-01-01T12:00:00Z", "workflow": {"name": "build"}}`, id))
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("end to end - valid signed workflow event reaches handler", func(t *testing.T) {
		secret := "test-secret"
		p := newProcessor(t, dispatch.Config{Secret: secret, ValidateSignatures: true, MaxQueueSize: 10})

		var got event.Event
		done := make(chan struct{})
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name: "capture",
			Handler: func(_ context.Context, evt event.Event) error {
				got = evt
				close(done)
				return nil
			},
		}))

		body := workflowBody("evt-1")
		result := p.Process(ctx, signature.Sign(secret, body), body)

		require.NoError(t, result.Err)
		assert.True(t, result.Success)
		assert.Equal(t, "workflow-completed", result.EventType)
		assert.Equal(t, "evt-1", result.EventID)

		select {
		case <-done:
		case <-time.After(waitFor):
			t.Fatal("handler was not invoked")
		}

		assert.Equal(t, event.WorkflowCompleted, got.Type)
		assert.Equal(t, "evt-1", got.ID)

		require.Eventually(t, func() bool {
			return p.GetStats().EventsProcessed == 1
		}, waitFor, tick)

		stats := p.GetStats()
		assert.Equal(t, int64(1), stats.EventTypeCounts["workflow-completed"])
		assert.Equal(t, uint64(1), stats.RequestsSuccessful)
	})

	t.Run("end to end - invalid signature rejects before the queue", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{Secret: "test-secret", ValidateSignatures: true, MaxQueueSize: 10})

		invoked := false
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name: "capture",
			Handler: func(_ context.Context, _ event.Event) error {
				invoked = true
				return nil
			},
		}))

		body := workflowBody("evt-1")
		result := p.Process(ctx, signature.Sign("wrong-secret", body), body)

		assert.False(t, result.Success)
		assert.ErrorIs(t, result.Err, dispatch.ErrInvalidSignature)

		stats := p.GetStats()
		assert.Equal(t, uint64(1), stats.RequestsFailed)
		assert.Equal(t, 0, p.GetQueueInfo().Size)
		assert.False(t, invoked)
	})

	t.Run("missing signature header", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{Secret: "test-secret", ValidateSignatures: true, MaxQueueSize: 10})

		result := p.Process(ctx, "", workflowBody("evt-1"))
		assert.False(t, result.Success)
		assert.ErrorIs(t, result.Err, dispatch.ErrMissingSignature)
	})

	t.Run("validation disabled - any signature passes", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{ValidateSignatures: true, MaxQueueSize: 10})

		result := p.Process(ctx, "garbage", workflowBody("evt-1"))
		assert.True(t, result.Success)
	})

	t.Run("parse failures surface the taxonomy", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{MaxQueueSize: 10})

		cases := []struct {
			name string
			body []byte
			want error
		}{
			{"invalid JSON", []byte(`{broken`), event.ErrInvalidJSON},
			{"missing type", []byte(`{"id": "evt-1"}`), event.ErrMissingEventType},
			{"unknown type", []byte(`{"type": "mystery"}`), event.ErrUnknownEventType},
		}
		for _, tc := range cases {
			result := p.Process(ctx, "", tc.body)
			assert.False(t, result.Success, tc.name)
			assert.ErrorIs(t, result.Err, tc.want, tc.name)
		}

		stats := p.GetStats()
		assert.Equal(t, uint64(3), stats.RequestsFailed)
	})

	t.Run("end to end - ignored ping is accepted without dispatch", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{IgnorePingEvents: true, MaxQueueSize: 10})

		invoked := false
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name: "pings",
			Handler: func(_ context.Context, _ event.Event) error {
				invoked = true
				return nil
			},
		}))

		result := p.Process(ctx, "", []byte(`{"id": "evt-1", "type": "ping"}`))

		assert.True(t, result.Success)
		assert.Equal(t, "ping", result.EventType)
		assert.Equal(t, 0, p.GetQueueInfo().Size)
		assert.Equal(t, uint64(1), p.GetStats().RequestsSuccessful)
		assert.False(t, invoked)
	})

	t.Run("queue full - valid event is shed", func(t *testing.T) {
		// Not started: nothing drains the queue
		p := dispatch.New(dispatch.Config{MaxQueueSize: 1}, nil, zerolog.Nop())

		first := p.Process(ctx, "", workflowBody("evt-1"))
		require.True(t, first.Success)

		second := p.Process(ctx, "", workflowBody("evt-2"))
		assert.False(t, second.Success)
		assert.ErrorIs(t, second.Err, dispatch.ErrQueueFull)
		assert.Equal(t, 1, p.GetQueueInfo().Size)
	})

	t.Run("stats accuracy across mixed requests", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{MaxQueueSize: 50})

		const valid, invalid = 4, 3
		for i := 0; i < valid; i++ {
			result := p.Process(ctx, "", workflowBody(fmt.Sprintf("evt-%d", i)))
			require.True(t, result.Success)
		}
		for i := 0; i < invalid; i++ {
			result := p.Process(ctx, "", []byte(`{"type": "nope"}`))
			require.False(t, result.Success)
		}

		stats := p.GetStats()
		assert.Equal(t, uint64(valid+invalid), stats.RequestsTotal)
		assert.Equal(t, uint64(valid), stats.RequestsSuccessful)
		assert.Equal(t, uint64(invalid), stats.RequestsFailed)
		assert.InDelta(t, float64(valid)/float64(valid+invalid), stats.SuccessRate, 1e-9)
	})

	t.Run("success rate is zero with no requests", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{}, nil, zerolog.Nop())
		assert.Equal(t, 0.0, p.GetStats().SuccessRate)
	})
}

func TestDispatchOrdering(t *testing.T) {
	ctx := context.Background()

	t.Run("handlers run in descending priority order", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{MaxQueueSize: 10})

		inv := &invocations{}
		require.NoError(t, p.RegisterHandler(dispatch.Registration{Name: "low", Priority: 1, Handler: inv.handler("low")}))
		require.NoError(t, p.RegisterHandler(dispatch.Registration{Name: "high", Priority: 10, Handler: inv.handler("high")}))
		require.NoError(t, p.RegisterHandler(dispatch.Registration{Name: "medium", Priority: 5, Handler: inv.handler("medium")}))

		result := p.Process(ctx, "", workflowBody("evt-1"))
		require.True(t, result.Success)

		require.Eventually(t, func() bool {
			return len(inv.names()) == 3
		}, waitFor, tick)

		assert.Equal(t, []string{"high", "medium", "low"}, inv.names())
	})

	t.Run("events keep queue FIFO order", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{MaxQueueSize: 10})

		var mu sync.Mutex
		var order []string
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name: "collect",
			Handler: func(_ context.Context, evt event.Event) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, evt.ID)
				return nil
			},
		}))

		for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
			require.True(t, p.Process(ctx, "", workflowBody(id)).Success)
		}

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(order) == 3
		}, waitFor, tick)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"evt-1", "evt-2", "evt-3"}, order)
	})
}

func TestHandlerIsolation(t *testing.T) {
	ctx := context.Background()

	t.Run("failing handler does not block the next handler or later events", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{MaxQueueSize: 10})

		inv := &invocations{}
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name:     "always-fails",
			Priority: 10,
			Handler: func(_ context.Context, _ event.Event) error {
				return errors.New("boom")
			},
		}))
		require.NoError(t, p.RegisterHandler(dispatch.Registration{Name: "survivor", Priority: 1, Handler: inv.handler("survivor")}))

		require.True(t, p.Process(ctx, "", workflowBody("evt-1")).Success)
		require.True(t, p.Process(ctx, "", workflowBody("evt-2")).Success)

		require.Eventually(t, func() bool {
			return len(inv.names()) == 2
		}, waitFor, tick)

		stats := p.GetStats()
		assert.Equal(t, uint64(2), stats.EventsProcessed)
		assert.Equal(t, uint64(2), stats.EventsFailed)
	})

	t.Run("panicking handler is recovered", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{MaxQueueSize: 10})

		inv := &invocations{}
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name:     "panics",
			Priority: 10,
			Handler: func(_ context.Context, _ event.Event) error {
				panic("handler bug")
			},
		}))
		require.NoError(t, p.RegisterHandler(dispatch.Registration{Name: "survivor", Handler: inv.handler("survivor")}))

		require.True(t, p.Process(ctx, "", workflowBody("evt-1")).Success)

		require.Eventually(t, func() bool {
			return len(inv.names()) == 1
		}, waitFor, tick)

		assert.Equal(t, uint64(1), p.GetStats().EventsFailed)
	})
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("start is idempotent", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{MaxQueueSize: 10}, nil, zerolog.Nop())
		p.Start()
		p.Start()
		assert.True(t, p.Running())

		stopCtx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, p.Stop(stopCtx))
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{MaxQueueSize: 10}, nil, zerolog.Nop())
		p.Start()

		stopCtx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, p.Stop(stopCtx))
		require.NoError(t, p.Stop(stopCtx))
		assert.False(t, p.Running())
	})

	t.Run("stop drains in-flight work", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{MaxQueueSize: 10}, nil, zerolog.Nop())
		p.Start()

		started := make(chan struct{})
		finished := make(chan struct{})
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name: "slow",
			Handler: func(_ context.Context, _ event.Event) error {
				close(started)
				time.Sleep(100 * time.Millisecond)
				close(finished)
				return nil
			},
		}))

		require.True(t, p.Process(ctx, "", workflowBody("evt-1")).Success)
		<-started

		stopCtx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, p.Stop(stopCtx))

		select {
		case <-finished:
		default:
			t.Fatal("stop returned before the in-flight handler finished")
		}
	})

	t.Run("start during a draining stop is a no-op", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{MaxQueueSize: 10}, nil, zerolog.Nop())
		p.Start()

		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name: "slow",
			Handler: func(_ context.Context, _ event.Event) error {
				close(started)
				<-release
				return nil
			},
		}))

		require.True(t, p.Process(ctx, "", workflowBody("evt-1")).Success)
		<-started

		stopErr := make(chan error, 1)
		go func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), waitFor)
			defer cancel()
			stopErr <- p.Stop(stopCtx)
		}()

		// Wait for the drain to begin before trying to restart
		require.Eventually(t, func() bool { return !p.Running() }, waitFor, tick)

		p.Start()
		assert.False(t, p.Running())

		close(release)
		require.NoError(t, <-stopErr)
		assert.False(t, p.Running())

		// A restart once the drain finished works normally
		p.Start()
		assert.True(t, p.Running())
		stopCtx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, p.Stop(stopCtx))
	})

	t.Run("concurrent stops wait for the same drain", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{MaxQueueSize: 10}, nil, zerolog.Nop())
		p.Start()

		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, p.RegisterHandler(dispatch.Registration{
			Name: "slow",
			Handler: func(_ context.Context, _ event.Event) error {
				close(started)
				<-release
				return nil
			},
		}))

		require.True(t, p.Process(ctx, "", workflowBody("evt-1")).Success)
		<-started

		errs := make(chan error, 2)
		for i := 0; i < 2; i++ {
			go func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), waitFor)
				defer cancel()
				errs <- p.Stop(stopCtx)
			}()
		}

		// Neither call may return while the handler is still in flight
		select {
		case err := <-errs:
			t.Fatalf("stop returned before the drain finished: %v", err)
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		require.NoError(t, <-errs)
		require.NoError(t, <-errs)
		assert.False(t, p.Running())
	})

	t.Run("health check is strict about the worker state", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{MaxQueueSize: 10}, nil, zerolog.Nop())

		health := p.HealthCheck()
		assert.False(t, health.Healthy)
		assert.Equal(t, 10, health.QueueCapacity)

		p.Start()
		assert.True(t, p.HealthCheck().Healthy)

		stopCtx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, p.Stop(stopCtx))
		assert.False(t, p.HealthCheck().Healthy)
	})

	t.Run("restart after stop", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{MaxQueueSize: 10}, nil, zerolog.Nop())
		p.Start()

		stopCtx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, p.Stop(stopCtx))

		p.Start()
		assert.True(t, p.Running())
		require.NoError(t, p.Stop(stopCtx))
	})
}

func TestRecentEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatched events are archived", func(t *testing.T) {
		p := newProcessor(t, dispatch.Config{MaxQueueSize: 10})

		require.True(t, p.Process(ctx, "", workflowBody("evt-1")).Success)
		require.True(t, p.Process(ctx, "", []byte(`{"id": "evt-2", "type": "job-completed"}`)).Success)

		require.Eventually(t, func() bool {
			recs, err := p.GetRecentEvents(ctx, 10)
			return err == nil && len(recs) == 2
		}, waitFor, tick)

		recs, err := p.GetRecentEvents(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "evt-2", recs[0].EventID)
		assert.Equal(t, "job-completed", recs[0].EventType)
		assert.Equal(t, "evt-1", recs[1].EventID)
	})

	t.Run("nil archive yields empty results", func(t *testing.T) {
		p := dispatch.New(dispatch.Config{}, nil, zerolog.Nop())

		recs, err := p.GetRecentEvents(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestUnregisterHandler(t *testing.T) {
	p := dispatch.New(dispatch.Config{}, nil, zerolog.Nop())

	require.NoError(t, p.RegisterHandler(dispatch.Registration{Name: "h1", Handler: noopHandler}))
	assert.True(t, p.UnregisterHandler("h1"))
	assert.False(t, p.UnregisterHandler("h1"))
	assert.Empty(t, p.GetHandlers())
}
