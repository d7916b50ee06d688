package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/outbreak/internal/cache"
	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/engine"
	"github.com/IshaanNene/outbreak/internal/observability"
	"github.com/IshaanNene/outbreak/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var fixtureCountries = []types.CountryRecord{
	{Country: "Brazil", Cases: 300, Deaths: 30},
	{Country: "Andorra", Cases: 100, Deaths: 30},
	{Country: "Chile", Cases: 200, Deaths: 10},
	{Country: "Denmark", Cases: 100, Deaths: 5},
}

func newTestServer(t *testing.T, populated bool) (*Server, *cache.MemoryStore) {
	t.Helper()
	repo := cache.NewMemoryStore()
	if populated {
		ctx := context.Background()
		require.NoError(t, repo.Put(ctx, types.NewSnapshot(types.DatasetWorld, types.WorldSummary{Cases: 700, Deaths: 75, Recovered: 400, Updated: 1584871800000})))
		require.NoError(t, repo.Put(ctx, types.NewSnapshot(types.DatasetCountries, fixtureCountries)))
		require.NoError(t, repo.Put(ctx, types.NewSnapshot(types.DatasetNews, []types.NewsArticle{{Title: "T", URL: "https://n.example/1"}})))
	}
	return NewServer(config.DefaultConfig().Server, repo, "test", testLogger), repo
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestEmptyCacheSentinels(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := get(t, s, "/world")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "null", rec.Body.String())

	for _, path := range []string{"/countries", "/news"} {
		rec = get(t, s, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, "[]", rec.Body.String(), path)
	}

	rec = get(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"world":null,"countries":[],"news":[]}`, rec.Body.String())
}

func TestAllAndTrailingSlash(t *testing.T) {
	s, _ := newTestServer(t, true)

	for _, path := range []string{"/", "/all", "/all/"} {
		rec := get(t, s, path)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body allResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), path)
		require.NotNil(t, body.World, path)
		assert.Equal(t, int64(700), body.World.Cases)
		assert.Len(t, body.Countries, 4)
		assert.Len(t, body.News, 1)
	}

	rec := get(t, s, "/countries/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWorldJSONShape(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/world")
	assert.JSONEq(t, `{"cases":700,"deaths":75,"recovered":400,"updated":1584871800000}`, rec.Body.String())
}

func decodeCountries(t *testing.T, rec *httptest.ResponseRecorder) []types.CountryRecord {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out []types.CountryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func names(records []types.CountryRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Country
	}
	return out
}

func TestCountriesSort(t *testing.T) {
	s, _ := newTestServer(t, true)

	got := decodeCountries(t, get(t, s, "/countries?sort=cases"))
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Cases < got[j].Cases }))
	// Equal case counts keep source order.
	assert.Equal(t, []string{"Andorra", "Denmark", "Chile", "Brazil"}, names(got))

	got = decodeCountries(t, get(t, s, "/countries?sort=deaths&order=desc"))
	assert.Equal(t, []string{"Brazil", "Andorra", "Chile", "Denmark"}, names(got))

	got = decodeCountries(t, get(t, s, "/countries?sort=country"))
	assert.Equal(t, []string{"Andorra", "Brazil", "Chile", "Denmark"}, names(got))

	// Unsorted requests return source order and do not mutate the cache.
	got = decodeCountries(t, get(t, s, "/countries"))
	assert.Equal(t, []string{"Brazil", "Andorra", "Chile", "Denmark"}, names(got))
}

func TestCountriesSortRejectsUnknownField(t *testing.T) {
	s, _ := newTestServer(t, true)

	for _, target := range []string{
		"/countries?sort=population",
		"/countries?sort=cases&order=sideways",
		"/countries?order=desc",
	} {
		rec := get(t, s, target)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, target)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestSortCountriesErrors(t *testing.T) {
	_, err := SortCountries(fixtureCountries, "nope", "")
	assert.ErrorIs(t, err, types.ErrUnknownField)
}

func TestHeadersOnEveryResponse(t *testing.T) {
	s, _ := newTestServer(t, true)

	for _, path := range []string{"/", "/world", "/countries?sort=bad", "/missing"} {
		rec := get(t, s, path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), path)
		_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
		assert.NoError(t, err, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/world", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}

func TestPreflightAndMethods(t *testing.T) {
	s, _ := newTestServer(t, true)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/countries", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/world", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/nothing/here").Code)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/api/health")
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())
}

type fixedStatus []engine.TaskStatus

func (f fixedStatus) Status() []engine.TaskStatus { return f }

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/status").Code)

	now := time.Now()
	s.SetStatusProvider(fixedStatus{{Name: "world", Interval: "3m0s", Runs: 2, Failures: 1, LastSuccess: &now}})
	rec := get(t, s, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tasks    []engine.TaskStatus   `json:"tasks"`
		Datasets map[string]*time.Time `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, int64(1), body.Tasks[0].Failures)
	assert.Contains(t, body.Datasets, "world")
	assert.Nil(t, body.Datasets["world"])
}

func TestMountedHandlersAndCounter(t *testing.T) {
	s, _ := newTestServer(t, true)
	metrics := observability.NewMetrics(testLogger)
	s.SetRequestCounter(metrics)
	s.Handle("/metrics", metrics)

	get(t, s, "/world")
	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "outbreak_http_requests_total 1")
	assert.Equal(t, int64(2), metrics.HTTPRequests.Load())
}

func TestListenAndServeShutdown(t *testing.T) {
	cfg := config.DefaultConfig().Server
	cfg.Port = 0
	s := NewServer(cfg, cache.NewMemoryStore(), "test", testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
