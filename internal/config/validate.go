package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/IshaanNene/outbreak/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("engine.request_timeout must be > 0")
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}

	if err := ValidateURL(cfg.Source.StatsURL); err != nil {
		return fmt.Errorf("source.stats_url: %w", err)
	}

	if strings.TrimSpace(cfg.Parser.TableID) == "" {
		return fmt.Errorf("parser.table_id must not be empty")
	}
	if cfg.Parser.CounterSelector == "" {
		return fmt.Errorf("parser.counter_selector must not be empty")
	}
	if cfg.Parser.Positional {
		if cfg.Parser.TotalColumns < 1 {
			return fmt.Errorf("parser.total_columns must be >= 1, got %d", cfg.Parser.TotalColumns)
		}
		c := cfg.Parser.Columns
		for name, idx := range map[string]int{
			"country": c.Country, "cases": c.Cases, "today_cases": c.TodayCases,
			"deaths": c.Deaths, "today_deaths": c.TodayDeaths,
			"recovered": c.Recovered, "critical": c.Critical,
		} {
			if idx < 0 || idx >= cfg.Parser.TotalColumns {
				return fmt.Errorf("parser.columns.%s must be in [0, %d), got %d", name, cfg.Parser.TotalColumns, idx)
			}
		}
	}

	if cfg.Refresh.World <= 0 || cfg.Refresh.Countries <= 0 || cfg.Refresh.News <= 0 {
		return fmt.Errorf("refresh intervals must be > 0")
	}

	if cfg.News.Enabled {
		if cfg.News.Provider != "newsapi" && cfg.News.Provider != "rss" {
			return fmt.Errorf("news.provider must be 'newsapi' or 'rss', got %q", cfg.News.Provider)
		}
		if len(cfg.News.Keywords) == 0 {
			return fmt.Errorf("news.keywords must not be empty")
		}
		if cfg.News.PageSize < 1 || cfg.News.PageSize > 100 {
			return fmt.Errorf("news.page_size must be 1-100, got %d", cfg.News.PageSize)
		}
	}

	validStorageTypes := map[string]bool{
		"memory": true, "file": true, "sqlite": true, "mongo": true, "redis": true,
	}
	backends := cfg.Storage.Backends()
	if len(backends) == 0 {
		return fmt.Errorf("storage.type must not be empty")
	}
	for _, name := range backends {
		if !validStorageTypes[name] {
			return fmt.Errorf("storage.type %q is not supported (valid: memory, file, sqlite, mongo, redis)", name)
		}
		if name == "memory" && len(backends) > 1 {
			return fmt.Errorf("storage.type memory cannot be combined with other backends")
		}
		if (name == "mongo" || name == "redis") && cfg.Storage.URI == "" {
			return fmt.Errorf("storage.uri is required for storage.type %q", name)
		}
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}

// ValidateNews reports a ConfigError when the news provider cannot run with
// the current settings. It does not fail the rest of the configuration.
func ValidateNews(cfg *Config) error {
	if !cfg.News.Enabled {
		return &types.ConfigError{Key: "news.enabled", Err: fmt.Errorf("news refresh disabled")}
	}
	if cfg.News.Provider == "newsapi" && strings.TrimSpace(cfg.News.APIKey) == "" {
		return &types.ConfigError{Key: "news.api_key", Err: types.ErrNoAPIKey}
	}
	return nil
}

// ValidateURL checks if a URL string is valid for fetching.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
