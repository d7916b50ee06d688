// Package observability records refresh cycle outcomes and exposes them as
// Prometheus text.
package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Observer receives refresh cycle events from the scheduler.
type Observer interface {
	CycleStarted(task string)
	CycleSucceeded(task string, took time.Duration)
	CycleFailed(task string, took time.Duration, err error)
}

// Nop is an Observer that ignores every event.
type Nop struct{}

func (Nop) CycleStarted(string)                      {}
func (Nop) CycleSucceeded(string, time.Duration)     {}
func (Nop) CycleFailed(string, time.Duration, error) {}

// taskCounters holds the counters of one refresh task.
type taskCounters struct {
	started     atomic.Int64
	succeeded   atomic.Int64
	failed      atomic.Int64
	lastSuccess atomic.Int64 // unix seconds
	durationMs  atomic.Int64 // last cycle
}

// Metrics tracks operational metrics for the refresh loops and the upstream
// fetches they make. It implements Observer.
type Metrics struct {
	// Fetch metrics
	RequestsTotal   atomic.Int64
	RequestsFailed  atomic.Int64
	Responses2xx    atomic.Int64
	Responses4xx    atomic.Int64
	Responses5xx    atomic.Int64
	BytesDownloaded atomic.Int64

	// Serving metrics
	HTTPRequests atomic.Int64

	mu    sync.RWMutex
	tasks map[string]*taskCounters

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		tasks:  make(map[string]*taskCounters),
		logger: logger.With("component", "metrics"),
	}
}

func (m *Metrics) task(name string) *taskCounters {
	m.mu.RLock()
	c, ok := m.tasks[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.tasks[name]; !ok {
		c = &taskCounters{}
		m.tasks[name] = c
	}
	return c
}

func (m *Metrics) CycleStarted(task string) {
	m.task(task).started.Add(1)
}

func (m *Metrics) CycleSucceeded(task string, took time.Duration) {
	c := m.task(task)
	c.succeeded.Add(1)
	c.lastSuccess.Store(time.Now().Unix())
	c.durationMs.Store(took.Milliseconds())
}

func (m *Metrics) CycleFailed(task string, took time.Duration, err error) {
	c := m.task(task)
	c.failed.Add(1)
	c.durationMs.Store(took.Milliseconds())
	m.logger.Debug("cycle failure recorded", "task", task, "error", err)
}

// RecordFetch counts one upstream fetch. A status of 0 means the request
// failed before a response arrived.
func (m *Metrics) RecordFetch(status, bytes int) {
	m.RequestsTotal.Add(1)
	switch {
	case status == 0:
		m.RequestsFailed.Add(1)
	case status >= 500:
		m.Responses5xx.Add(1)
	case status >= 400:
		m.Responses4xx.Add(1)
	case status >= 200 && status < 300:
		m.Responses2xx.Add(1)
	}
	m.BytesDownloaded.Add(int64(bytes))
}

// CountRequest counts one served API request.
func (m *Metrics) CountRequest() {
	m.HTTPRequests.Add(1)
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"outbreak_fetch_requests_total", "Total upstream requests made", m.RequestsTotal.Load()},
		{"outbreak_fetch_requests_failed_total", "Total upstream requests without a response", m.RequestsFailed.Load()},
		{"outbreak_fetch_responses_2xx_total", "Total 2xx upstream responses", m.Responses2xx.Load()},
		{"outbreak_fetch_responses_4xx_total", "Total 4xx upstream responses", m.Responses4xx.Load()},
		{"outbreak_fetch_responses_5xx_total", "Total 5xx upstream responses", m.Responses5xx.Load()},
		{"outbreak_fetch_bytes_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"outbreak_http_requests_total", "Total API requests served", m.HTTPRequests.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}

	snap := m.TaskSnapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	perTask := []struct {
		name, help, kind, key string
	}{
		{"outbreak_refresh_cycles_started_total", "Refresh cycles started", "counter", "started"},
		{"outbreak_refresh_cycles_succeeded_total", "Refresh cycles that updated the cache", "counter", "succeeded"},
		{"outbreak_refresh_cycles_failed_total", "Refresh cycles that failed", "counter", "failed"},
		{"outbreak_refresh_last_success_timestamp_seconds", "Unix time of the last successful cycle", "gauge", "last_success"},
		{"outbreak_refresh_last_duration_milliseconds", "Duration of the last cycle", "gauge", "duration_ms"},
	}
	for _, metric := range perTask {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		for _, task := range names {
			fmt.Fprintf(w, "%s{task=%q} %d\n", metric.name, task, snap[task][metric.key])
		}
	}
}

// TaskSnapshot returns the per-task counters keyed by task name.
func (m *Metrics) TaskSnapshot() map[string]map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]map[string]int64, len(m.tasks))
	for name, c := range m.tasks {
		out[name] = map[string]int64{
			"started":      c.started.Load(),
			"succeeded":    c.succeeded.Load(),
			"failed":       c.failed.Load(),
			"last_success": c.lastSuccess.Load(),
			"duration_ms":  c.durationMs.Load(),
		}
	}
	return out
}

// Snapshot returns the fetch metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_total":   m.RequestsTotal.Load(),
		"requests_failed":  m.RequestsFailed.Load(),
		"responses_2xx":    m.Responses2xx.Load(),
		"responses_4xx":    m.Responses4xx.Load(),
		"responses_5xx":    m.Responses5xx.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
		"http_requests":    m.HTTPRequests.Load(),
	}
}
