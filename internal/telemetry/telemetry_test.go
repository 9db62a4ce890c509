package telemetry

import "testing"

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("GET", "/health", "success", 0.01)
	m.RecordSearch("search", 0)
	m.RecordIndexBuild(0.5, 10)
	m.RecordAssetFailure("ebook_toc.json")
	m.RecordChat("ok")
	m.RecordCircuitBreakerState("chat-backend", "open")
	m.RecordVisitorEvent("join")
}

func TestInitMetricsWithNoopProvider(t *testing.T) {
	m, err := InitMetrics()
	if err != nil {
		t.Fatalf("InitMetrics() error = %v", err)
	}
	m.RecordSearch("lookup", 3)
	m.RecordChat("no_answer")
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer("ebook-assistant", "", 1)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	shutdown()
}
