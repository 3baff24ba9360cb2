package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-dispatch/config"
	"github.com/marcelsud/webhook-dispatch/dispatch"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/event/memory"
	eventredis "github.com/marcelsud/webhook-dispatch/event/redis"
	"github.com/marcelsud/webhook-dispatch/forward"
	"github.com/marcelsud/webhook-dispatch/internal/http/chi"
	"github.com/marcelsud/webhook-dispatch/metrics"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/* main wires the whole application together: configuration, the event
 * archive, the dispatch engine, forwarding targets, metrics and the
 * HTTP server. Importing only flows downward - main imports the engine,
 * which imports the storage layer.
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	archive, err := newArchive(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer archive.Close(ctx)

	processor := dispatch.New(dispatch.Config{
		Secret:             cfg.WebhookSecret,
		ValidateSignatures: cfg.ValidateSignatures,
		MaxQueueSize:       cfg.MaxQueueSize,
		IgnorePingEvents:   cfg.IgnorePingEvents,
		Workers:            cfg.Workers,
	}, archive, logger)

	if cfg.TargetsFile != "" {
		loader := forward.NewLoader()
		if err := loader.Load(cfg.TargetsFile); err != nil {
			fmt.Println(err)
			return
		}
		if err := forward.RegisterAll(processor, loader, forward.NewForwarder(nil)); err != nil {
			fmt.Println(err)
			return
		}
		logger.Info().Int("targets", len(loader.List())).Str("file", cfg.TargetsFile).Msg("forwarding targets registered")
	}

	exporter, err := metrics.NewOTelExporter(metrics.NewDispatchCollector(processor))
	if err != nil {
		fmt.Println(err)
		return
	}

	processor.Start()

	r := chi.Handlers(processor, exporter.ServeHTTP())
	http.Handle("/", r)
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      http.DefaultServeMux,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
	}

	// In-flight dispatches get the same grace period as the HTTP server
	stopCtx, cancel := context.WithTimeout(context.Background(), TIMEOUT)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		fmt.Println(err)
	}
	if err := exporter.Shutdown(stopCtx); err != nil {
		fmt.Println(err)
	}
}

// newArchive picks the event archive backend: Redis when configured,
// an in-memory ring otherwise
func newArchive(cfg *config.Config) (event.Archive, error) {
	if cfg.RedisAddr == "" {
		return memory.NewRepository(cfg.RecentEventsLimit), nil
	}
	ttl := time.Duration(cfg.EventTTLHours) * time.Hour
	return eventredis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, ttl)
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
