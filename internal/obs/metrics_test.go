package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	if err := (<-ch).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/api/tasks/123":            "/api/tasks/:id",
		"/api/tasks/123/comments":   "/api/tasks/:id/comments",
		"/api/users/01HZX9/tasks/7": "/api/users/:id/tasks/:id",
		"/api/me":                   "/api/me",
		"/api/admin/ping?x=1":       "/api/admin/ping",
		"/api/auth/login":           "/api/auth/login",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsCanonicalPath(t *testing.T) {
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/tasks/:id", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks/42", nil))
	after := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/tasks/:id", "418"))

	if after-before != 1 {
		t.Fatalf("expected one request counted, got %v", after-before)
	}
	if got := counterValue(t, httpInFlight); got != 0 {
		t.Fatalf("in-flight gauge not released: %v", got)
	}
}

func TestAuthCounters(t *testing.T) {
	Init()
	before := counterValue(t, gateOutcomes.WithLabelValues("expired"))
	ObserveGate("expired")
	if got := counterValue(t, gateOutcomes.WithLabelValues("expired")) - before; got != 1 {
		t.Fatalf("gate counter delta=%v", got)
	}

	before = counterValue(t, loginAttempts.WithLabelValues("success"))
	ObserveLogin("success")
	if got := counterValue(t, loginAttempts.WithLabelValues("success")) - before; got != 1 {
		t.Fatalf("login counter delta=%v", got)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("warn", "json", &buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "shown" || entry["k"] != "v" || entry["service"] != "taskmanager-api" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
