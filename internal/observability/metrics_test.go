package observability

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsCycles(t *testing.T) {
	m := NewMetrics(testLogger)

	m.CycleStarted("world")
	m.CycleSucceeded("world", 120*time.Millisecond)
	m.CycleStarted("world")
	m.CycleFailed("world", 5*time.Millisecond, errors.New("boom"))
	m.CycleStarted("news")

	snap := m.TaskSnapshot()
	if got := snap["world"]["started"]; got != 2 {
		t.Errorf("world started = %d, want 2", got)
	}
	if got := snap["world"]["succeeded"]; got != 1 {
		t.Errorf("world succeeded = %d, want 1", got)
	}
	if got := snap["world"]["failed"]; got != 1 {
		t.Errorf("world failed = %d, want 1", got)
	}
	if got := snap["world"]["duration_ms"]; got != 5 {
		t.Errorf("world duration = %d, want 5", got)
	}
	if snap["world"]["last_success"] == 0 {
		t.Error("last success not recorded")
	}
	if got := snap["news"]["succeeded"]; got != 0 {
		t.Errorf("news succeeded = %d, want 0", got)
	}
}

func TestMetricsRecordFetch(t *testing.T) {
	m := NewMetrics(testLogger)
	m.RecordFetch(200, 100)
	m.RecordFetch(404, 10)
	m.RecordFetch(503, 0)
	m.RecordFetch(0, 0)

	snap := m.Snapshot()
	want := map[string]int64{
		"requests_total":   4,
		"requests_failed":  1,
		"responses_2xx":    1,
		"responses_4xx":    1,
		"responses_5xx":    1,
		"bytes_downloaded": 110,
	}
	for k, v := range want {
		if snap[k] != v {
			t.Errorf("%s = %d, want %d", k, snap[k], v)
		}
	}
}

func TestMetricsServeHTTP(t *testing.T) {
	m := NewMetrics(testLogger)
	m.CycleStarted("countries")
	m.CycleSucceeded("countries", time.Second)
	m.RecordFetch(200, 42)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE outbreak_fetch_requests_total counter",
		"outbreak_fetch_bytes_total 42",
		`outbreak_refresh_cycles_succeeded_total{task="countries"} 1`,
		`outbreak_refresh_last_duration_milliseconds{task="countries"} 1000`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
}

var _ Observer = (*Metrics)(nil)
var _ Observer = Nop{}
