// Package engine wires fetching, parsing and caching into periodic refresh
// jobs, one per dataset.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/IshaanNene/outbreak/internal/cache"
	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/fetcher"
	"github.com/IshaanNene/outbreak/internal/news"
	"github.com/IshaanNene/outbreak/internal/observability"
	"github.com/IshaanNene/outbreak/internal/parser"
	"github.com/IshaanNene/outbreak/internal/types"
)

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
	StateStopped State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FetchRecorder counts upstream fetches. *observability.Metrics satisfies it.
type FetchRecorder interface {
	RecordFetch(status, bytes int)
}

// Engine owns the refresh jobs and the scheduler that runs them.
type Engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   cache.Repository
	fetcher fetcher.Fetcher
	table   *parser.TableParser
	summary *parser.SummaryParser

	news    *news.Aggregator
	newsErr error

	observer observability.Observer
	recorder FetchRecorder

	scheduler *Scheduler
	state     atomic.Int32
	mu        sync.RWMutex
}

// New creates an Engine that writes into repo. A fetcher must be set before
// any refresh runs.
func New(cfg *config.Config, repo cache.Repository, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		logger:  logger.With("component", "engine"),
		cache:   repo,
		table:   parser.NewTableParser(parser.SchemaFromConfig(cfg.Parser), logger),
		summary: parser.NewSummaryParser(cfg.Parser, logger),
		newsErr: &types.ConfigError{Key: "news", Err: errors.New("no news source configured")},
	}
}

// SetFetcher sets the page fetcher.
func (e *Engine) SetFetcher(f fetcher.Fetcher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetcher = f
}

// SetNewsSource enables the news job with the given source.
func (e *Engine) SetNewsSource(src news.Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.news = news.NewAggregator(src, e.cfg.News.Keywords, e.logger)
	e.newsErr = nil
}

// DisableNews records why the news job cannot run.
func (e *Engine) DisableNews(reason error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.news = nil
	e.newsErr = reason
}

// SetObserver sets the observer handed to the scheduler.
func (e *Engine) SetObserver(obs observability.Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = obs
}

// SetFetchRecorder sets where fetch outcomes are counted.
func (e *Engine) SetFetchRecorder(r FetchRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder = r
}

// Scheduler returns the scheduler, building it on first use.
func (e *Engine) Scheduler() *Scheduler {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scheduler == nil {
		e.scheduler = e.buildScheduler()
	}
	return e.scheduler
}

func (e *Engine) buildScheduler() *Scheduler {
	s := NewScheduler(e.observer, e.logger)

	tasks := []Task{
		{Name: string(types.DatasetWorld), Interval: e.cfg.Refresh.World, Run: e.RefreshWorld},
		{Name: string(types.DatasetCountries), Interval: e.cfg.Refresh.Countries, Run: e.RefreshCountries},
	}
	if e.news != nil {
		tasks = append(tasks, Task{Name: string(types.DatasetNews), Interval: e.cfg.Refresh.News, Run: e.RefreshNews})
	} else {
		e.logger.Warn("news refresh disabled", "reason", e.newsErr)
	}

	for _, t := range tasks {
		if err := s.Add(t); err != nil {
			e.logger.Error("task not scheduled", "task", t.Name, "error", err)
		}
	}
	return s
}

// Start launches the refresh loops.
func (e *Engine) Start(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("engine is in state %s, cannot start", State(e.state.Load()))
	}

	e.logger.Info("engine starting",
		"source", e.cfg.Source.StatsURL,
		"world_interval", e.cfg.Refresh.World,
		"countries_interval", e.cfg.Refresh.Countries,
		"news_interval", e.cfg.Refresh.News,
	)
	e.Scheduler().Start(ctx)
	return nil
}

// Wait blocks until every refresh loop has stopped, then closes the fetcher.
func (e *Engine) Wait() {
	e.Scheduler().Wait()
	e.state.Store(int32(StateStopped))
	e.Close()
	e.logger.Info("engine stopped")
}

// Close releases the fetcher.
func (e *Engine) Close() {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.fetcher != nil {
		if err := e.fetcher.Close(); err != nil {
			e.logger.Error("fetcher close error", "error", err)
		}
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Status returns the scheduler task statuses.
func (e *Engine) Status() []TaskStatus {
	return e.Scheduler().Status()
}

// RefreshWorld fetches the page, parses the headline counters and replaces
// the cached world summary.
func (e *Engine) RefreshWorld(ctx context.Context) error {
	resp, err := e.fetchStats(ctx, types.DatasetWorld)
	if err != nil {
		return err
	}

	summary, err := e.summary.Parse(resp)
	if err != nil {
		return err
	}

	return e.cache.Put(ctx, types.NewSnapshot(types.DatasetWorld, summary))
}

// RefreshCountries fetches the page, parses the country table and replaces
// the cached records.
func (e *Engine) RefreshCountries(ctx context.Context) error {
	resp, err := e.fetchStats(ctx, types.DatasetCountries)
	if err != nil {
		return err
	}

	records, err := e.table.Parse(resp)
	if err != nil {
		return err
	}

	e.logger.Debug("countries parsed", "records", len(records))
	return e.cache.Put(ctx, types.NewSnapshot(types.DatasetCountries, records))
}

// RefreshNews runs every keyword query and replaces the cached articles.
// Any failed query leaves the previous value in place.
func (e *Engine) RefreshNews(ctx context.Context) error {
	e.mu.RLock()
	agg, reason := e.news, e.newsErr
	e.mu.RUnlock()
	if agg == nil {
		return reason
	}

	articles, err := agg.Aggregate(ctx)
	if err != nil {
		return err
	}
	return e.cache.Put(ctx, types.NewSnapshot(types.DatasetNews, articles))
}

// fetchStats retrieves the statistics page. Responses other than 200 abort
// the cycle unless fetcher.parse_non_2xx is set. 429 and 5xx never reach
// that check: the fetcher reports them as retryable FetchErrors.
func (e *Engine) fetchStats(ctx context.Context, dataset types.Dataset) (*types.Response, error) {
	e.mu.RLock()
	f, recorder := e.fetcher, e.recorder
	e.mu.RUnlock()
	if f == nil {
		return nil, errors.New("no fetcher configured")
	}

	req, err := types.NewRequest(e.cfg.Source.StatsURL)
	if err != nil {
		return nil, &types.ConfigError{Key: "source.stats_url", Err: err}
	}
	req.Dataset = string(dataset)
	req.Timeout = e.cfg.Engine.RequestTimeout
	req.Headers.Set("Cache-Control", "no-cache")
	if f.Type() == "browser" {
		req.WaitSelector = e.waitSelector(dataset)
	}

	resp, err := f.Fetch(ctx, req)
	if err != nil {
		if recorder != nil {
			var fetchErr *types.FetchError
			status := 0
			if errors.As(err, &fetchErr) {
				status = fetchErr.StatusCode
			}
			recorder.RecordFetch(status, 0)
		}
		return nil, err
	}
	if recorder != nil {
		recorder.RecordFetch(resp.StatusCode, len(resp.Body))
	}

	if resp.StatusCode != http.StatusOK {
		if !e.cfg.Fetcher.ParseNon2xx {
			return nil, &types.FetchError{
				URL:        resp.URLString(),
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
			}
		}
		e.logger.Warn("parsing non-200 response",
			"dataset", dataset,
			"status", resp.StatusCode,
			"host", req.Domain(),
		)
	}

	return resp, nil
}

// waitSelector names the element a rendered page must contain before the
// dataset can be parsed from it.
func (e *Engine) waitSelector(dataset types.Dataset) string {
	switch dataset {
	case types.DatasetCountries:
		return "#" + e.cfg.Parser.TableID
	case types.DatasetWorld:
		return e.cfg.Parser.CounterSelector
	default:
		return ""
	}
}
