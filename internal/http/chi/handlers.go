package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-dispatch/dispatch"
)

// Handlers sets up the webhook dispatch API routes
func Handlers(processor *dispatch.Processor, metricsHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("webhook-dispatch", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", healthCheck(processor).ServeHTTP)

	// Webhook API routes
	r.Route("/v1", func(r chi.Router) {
		// Inbound provider deliveries
		r.Post("/webhooks/circleci", postWebhook(processor).ServeHTTP)

		// Introspection
		r.Get("/stats", getStats(processor).ServeHTTP)
		r.Get("/handlers", getHandlers(processor).ServeHTTP)
		r.Get("/events/recent", getRecentEvents(processor).ServeHTTP)
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	return r
}
