package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestRecordRoute(t *testing.T) {
	m := New()
	m.RecordRoute("rewrite")
	m.RecordRoute("rewrite")
	m.RecordRoute("static")

	if got := metricCounterValue(t, m.routeDecisions.WithLabelValues("rewrite")); got != 2 {
		t.Fatalf("route_decisions_total(rewrite)=%v, want 2", got)
	}
	if got := metricCounterValue(t, m.routeDecisions.WithLabelValues("static")); got != 1 {
		t.Fatalf("route_decisions_total(static)=%v, want 1", got)
	}
}

func TestRecordBroadcast(t *testing.T) {
	m := New()
	m.RecordBroadcast("all", 3, 1)
	m.RecordBroadcast("except", 2, 0)

	if got := metricCounterValue(t, m.broadcasts.WithLabelValues("all")); got != 1 {
		t.Fatalf("broadcasts_total(all)=%v, want 1", got)
	}
	if got := metricCounterValue(t, m.messagesSent); got != 5 {
		t.Fatalf("messages_sent_total=%v, want 5", got)
	}
	if got := metricCounterValue(t, m.sendErrors); got != 1 {
		t.Fatalf("send_errors_total=%v, want 1", got)
	}
}

func TestClientGauge(t *testing.T) {
	m := New()
	m.RecordClientConnect()
	m.RecordClientConnect()
	m.RecordClientDisconnect()

	if got := metricGaugeValue(t, m.clients); got != 1 {
		t.Fatalf("clients=%v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRoute("static")
	m.RecordRenderError()
	m.RecordBroadcast("all", 1, 0)
	m.RecordClientConnect()
	m.RecordClientDisconnect()
	m.RecordAssetEvent("css")

	if m.Registry() != nil {
		t.Fatal("nil Metrics should have nil registry")
	}
}

func TestHandler(t *testing.T) {
	m := New(WithNamespace("test"))
	m.RecordAssetEvent("css")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `test_livereload_asset_events_total{type="css"} 1`) {
		t.Fatalf("metrics output missing asset counter:\n%s", body)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := New()
	b := New()
	if a.Registry() == b.Registry() {
		t.Fatal("expected distinct registries")
	}
}
