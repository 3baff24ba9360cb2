package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector

	// OTel meters and instruments
	meter             metric.Meter
	queueSizeGauge    metric.Int64ObservableGauge
	queueCapGauge     metric.Int64ObservableGauge
	handlersGauge     metric.Int64ObservableGauge
	requestsCounter   metric.Int64ObservableCounter
	eventsCounter     metric.Int64ObservableCounter
	eventTypesCounter metric.Int64ObservableCounter
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	// Create Prometheus exporter
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"webhook-dispatch",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		meter:         meter,
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	// Queue size gauge
	oe.queueSizeGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.queue.size",
		metric.WithDescription("Number of events waiting for dispatch"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeQueueSize),
	)
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}

	// Queue capacity gauge
	oe.queueCapGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.queue.capacity",
		metric.WithDescription("Configured event queue bound"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeQueueCapacity),
	)
	if err != nil {
		return fmt.Errorf("creating queue capacity gauge: %w", err)
	}

	// Registered handlers gauge
	oe.handlersGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.handlers.registered",
		metric.WithDescription("Number of registered handlers"),
		metric.WithUnit("{handlers}"),
		metric.WithInt64Callback(oe.observeHandlers),
	)
	if err != nil {
		return fmt.Errorf("creating handlers gauge: %w", err)
	}

	// Request counter (by result)
	oe.requestsCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.requests",
		metric.WithDescription("Number of webhook requests by result"),
		metric.WithUnit("{requests}"),
		metric.WithInt64Callback(oe.observeRequests),
	)
	if err != nil {
		return fmt.Errorf("creating requests counter: %w", err)
	}

	// Event counter (by result)
	oe.eventsCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.events",
		metric.WithDescription("Number of dispatched events by result"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeEvents),
	)
	if err != nil {
		return fmt.Errorf("creating events counter: %w", err)
	}

	// Event counter by type
	oe.eventTypesCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.events.by_type",
		metric.WithDescription("Number of processed events by event type"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeEventTypes),
	)
	if err != nil {
		return fmt.Errorf("creating event type counter: %w", err)
	}

	return nil
}

// observeQueueSize is a callback that reports queue occupancy
func (oe *OTelExporter) observeQueueSize(ctx context.Context, observer metric.Int64Observer) error {
	info, err := oe.collector.GetQueueInfo(ctx)
	if err != nil {
		return err
	}
	observer.Observe(info.Size)
	return nil
}

// observeQueueCapacity is a callback that reports the queue bound
func (oe *OTelExporter) observeQueueCapacity(ctx context.Context, observer metric.Int64Observer) error {
	info, err := oe.collector.GetQueueInfo(ctx)
	if err != nil {
		return err
	}
	observer.Observe(info.Capacity)
	return nil
}

// observeHandlers is a callback that reports registered handler counts
func (oe *OTelExporter) observeHandlers(ctx context.Context, observer metric.Int64Observer) error {
	count, err := oe.collector.GetHandlerCount(ctx)
	if err != nil {
		return err
	}
	observer.Observe(count)
	return nil
}

// observeRequests is a callback that reports request counters by result
func (oe *OTelExporter) observeRequests(ctx context.Context, observer metric.Int64Observer) error {
	counters, err := oe.collector.GetCounters(ctx)
	if err != nil {
		return err
	}

	observer.Observe(counters.RequestsSuccessful, metric.WithAttributes(
		attribute.String("result", "successful"),
	))
	observer.Observe(counters.RequestsFailed, metric.WithAttributes(
		attribute.String("result", "failed"),
	))

	return nil
}

// observeEvents is a callback that reports event counters by result
func (oe *OTelExporter) observeEvents(ctx context.Context, observer metric.Int64Observer) error {
	counters, err := oe.collector.GetCounters(ctx)
	if err != nil {
		return err
	}

	observer.Observe(counters.EventsProcessed, metric.WithAttributes(
		attribute.String("result", "processed"),
	))
	observer.Observe(counters.EventsFailed, metric.WithAttributes(
		attribute.String("result", "failed"),
	))

	return nil
}

// observeEventTypes is a callback that reports per-type event counts
func (oe *OTelExporter) observeEventTypes(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetEventTypeCounts(ctx)
	if err != nil {
		return err
	}

	for eventType, count := range counts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("event.type", eventType),
		))
	}

	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
