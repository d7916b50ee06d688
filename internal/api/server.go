// Package api serves the cached datasets over a read-only HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/IshaanNene/outbreak/internal/cache"
	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/engine"
	"github.com/IshaanNene/outbreak/internal/types"
)

// StatusProvider reports refresh task health.
type StatusProvider interface {
	Status() []engine.TaskStatus
}

// RequestCounter counts served API requests.
type RequestCounter interface {
	CountRequest()
}

// Server provides the read-only REST API over the cache.
type Server struct {
	mux     *http.ServeMux
	cfg     config.ServerConfig
	cache   cache.Repository
	version string
	logger  *slog.Logger

	status  StatusProvider
	counter RequestCounter
}

// NewServer creates a new API server reading from repo.
func NewServer(cfg config.ServerConfig, repo cache.Repository, version string, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		cache:   repo,
		version: version,
		logger:  logger.With("component", "api_server"),
	}

	s.registerRoutes()
	return s
}

// SetStatusProvider sets the source for /api/status.
func (s *Server) SetStatusProvider(p StatusProvider) {
	s.status = p
}

// SetRequestCounter sets where served requests are counted.
func (s *Server) SetRequestCounter(c RequestCounter) {
	s.counter = c
}

// Handle mounts an extra GET handler, such as metrics or the world card.
func (s *Server) Handle(path string, h http.Handler) {
	s.mux.Handle("GET "+path, h)
}

// Handler returns the API with its middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withCORS(s.withLogging(s.mux)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes() {
	// Datasets, with and without a trailing slash
	s.mux.HandleFunc("GET /{$}", s.handleAll)
	routes := []struct {
		path    string
		handler http.HandlerFunc
	}{
		{"/all", s.handleAll},
		{"/world", s.handleWorld},
		{"/countries", s.handleCountries},
		{"/news", s.handleNews},
	}
	for _, rt := range routes {
		s.mux.HandleFunc("GET "+rt.path, rt.handler)
		s.mux.HandleFunc("GET "+rt.path+"/{$}", rt.handler)
	}

	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	s.mux.HandleFunc("/", s.handleNotFound)
}

// allResponse is the combined snapshot.
type allResponse struct {
	World     *types.WorldSummary   `json:"world"`
	Countries []types.CountryRecord `json:"countries"`
	News      []types.NewsArticle   `json:"news"`
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	resp := allResponse{
		Countries: cache.Countries(s.cache),
		News:      cache.News(s.cache),
	}
	if world, ok := cache.World(s.cache); ok {
		resp.World = &world
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	world, ok := cache.World(s.cache)
	if !ok {
		s.jsonResponse(w, http.StatusOK, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, world)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	records := cache.Countries(s.cache)

	field := r.URL.Query().Get("sort")
	order := strings.ToLower(r.URL.Query().Get("order"))
	if field == "" {
		if order != "" {
			s.errorResponse(w, http.StatusUnprocessableEntity, "order requires sort")
			return
		}
		s.jsonResponse(w, http.StatusOK, records)
		return
	}

	sorted, err := SortCountries(records, field, order)
	if err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, sorted)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, cache.News(s.cache))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "engine not initialized")
		return
	}

	datasets := make(map[types.Dataset]*time.Time, len(types.Datasets))
	for _, d := range types.Datasets {
		if snap, ok := s.cache.Get(d); ok {
			updated := snap.UpdatedAt
			datasets[d] = &updated
		} else {
			datasets[d] = nil
		}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"tasks":    s.status.Status(),
		"datasets": datasets,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		s.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.errorResponse(w, http.StatusNotFound, "not found")
}

// SortCountries returns a sorted copy of records. field must be a
// CountryRecord JSON field; numbers sort numerically and the country name
// lexicographically. order is "asc" (default) or "desc". Ties keep their
// source order.
func SortCountries(records []types.CountryRecord, field, order string) ([]types.CountryRecord, error) {
	if !types.IsCountryField(field) {
		return nil, fmt.Errorf("%w: unknown sort field %q (valid: %s)",
			types.ErrUnknownField, field, strings.Join(types.CountryFields, ", "))
	}

	var desc bool
	switch order {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, fmt.Errorf("order must be asc or desc, got %q", order)
	}

	out := make([]types.CountryRecord, len(records))
	copy(out, records)

	less := func(a, b types.CountryRecord) bool {
		if field == types.FieldCountry {
			return a.Country < b.Country
		}
		av, _ := a.Count(field)
		bv, _ := b.Count(field)
		return av < bv
	}

	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out, nil
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, msg string) {
	s.jsonResponse(w, status, map[string]string{"error": msg})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}
