package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	SearchQueries       metric.Int64Counter
	IndexBuildDuration  metric.Float64Histogram
	AssetLoadFailures   metric.Int64Counter
	ChatRequests        metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	VisitorEvents       metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("ebook-assistant")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchQueries, err := meter.Int64Counter(
		"ebook.search.queries",
		metric.WithDescription("E-book searches and term lookups"),
	)
	if err != nil {
		return nil, err
	}

	indexBuildDuration, err := meter.Float64Histogram(
		"ebook.index.build.duration",
		metric.WithDescription("Search index build duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	assetLoadFailures, err := meter.Int64Counter(
		"ebook.asset.load_failures",
		metric.WithDescription("Assets that failed to load and were replaced by an empty collection"),
	)
	if err != nil {
		return nil, err
	}

	chatRequests, err := meter.Int64Counter(
		"chat.backend.requests",
		metric.WithDescription("Chat backend calls by outcome"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	visitorEvents, err := meter.Int64Counter(
		"visitors.events",
		metric.WithDescription("Visitor join/leave/heartbeat events"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		SearchQueries:       searchQueries,
		IndexBuildDuration:  indexBuildDuration,
		AssetLoadFailures:   assetLoadFailures,
		ChatRequests:        chatRequests,
		CircuitBreakerState: circuitBreakerState,
		VisitorEvents:       visitorEvents,
	}, nil
}

// All Record* methods are safe on a nil *Metrics so libraries can take an
// optional recorder.

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordSearch records a search or lookup and whether it produced results
func (m *Metrics) RecordSearch(kind string, hits int) {
	if m == nil {
		return
	}
	m.SearchQueries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("search.kind", kind),
		attribute.Bool("search.empty", hits == 0),
	))
}

// RecordIndexBuild records how long the search index took to build
func (m *Metrics) RecordIndexBuild(duration float64, paragraphs int) {
	if m == nil {
		return
	}
	m.IndexBuildDuration.Record(context.Background(), duration, metric.WithAttributes(
		attribute.Int("ebook.paragraphs", paragraphs),
	))
}

// RecordAssetFailure records an asset that degraded to an empty collection
func (m *Metrics) RecordAssetFailure(asset string) {
	if m == nil {
		return
	}
	m.AssetLoadFailures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("ebook.asset", asset),
	))
}

// RecordChat records one chat backend call outcome ("ok", "no_answer", "error", "open")
func (m *Metrics) RecordChat(outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("chat.outcome", outcome),
	))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordVisitorEvent records a visitor action
func (m *Metrics) RecordVisitorEvent(action string) {
	if m == nil {
		return
	}
	m.VisitorEvents.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("visitor.action", action),
	))
}
