package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/IshaanNene/outbreak/internal/types"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultRefreshIntervals(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Refresh.World != 3*time.Minute {
		t.Errorf("world interval = %s, want 3m", cfg.Refresh.World)
	}
	if cfg.Refresh.Countries != 5*time.Minute {
		t.Errorf("countries interval = %s, want 5m", cfg.Refresh.Countries)
	}
	if cfg.Refresh.News != time.Hour {
		t.Errorf("news interval = %s, want 1h", cfg.Refresh.News)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad fetcher type", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"bad stats url", func(c *Config) { c.Source.StatsURL = "ftp://example.com" }},
		{"empty table id", func(c *Config) { c.Parser.TableID = " " }},
		{"positional column out of range", func(c *Config) {
			c.Parser.Positional = true
			c.Parser.Columns.Critical = 9
		}},
		{"zero interval", func(c *Config) { c.Refresh.News = 0 }},
		{"bad provider", func(c *Config) { c.News.Provider = "bing" }},
		{"bad storage", func(c *Config) { c.Storage.Type = "etcd" }},
		{"mongo without uri", func(c *Config) { c.Storage.Type = "mongo" }},
		{"redis in list without uri", func(c *Config) { c.Storage.Type = "file, redis" }},
		{"memory in list", func(c *Config) { c.Storage.Type = "memory,file" }},
		{"empty storage", func(c *Config) { c.Storage.Type = " , " }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateNewsMissingKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.News.APIKey = ""

	err := ValidateNews(cfg)
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !errors.Is(err, types.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}

	cfg.News.Provider = "rss"
	if err := ValidateNews(cfg); err != nil {
		t.Errorf("rss provider needs no key, got %v", err)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outbreak.yaml")
	yaml := `
refresh:
  world: 1m
news:
  keywords: [pandemic]
server:
  port: 8080
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("NEWS_API_KEY", "secret")
	t.Setenv("OUTBREAK_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Refresh.World != time.Minute {
		t.Errorf("world interval = %s, want 1m", cfg.Refresh.World)
	}
	if cfg.Refresh.Countries != 5*time.Minute {
		t.Errorf("countries interval should keep default, got %s", cfg.Refresh.Countries)
	}
	if len(cfg.News.Keywords) != 1 || cfg.News.Keywords[0] != "pandemic" {
		t.Errorf("keywords = %v", cfg.News.Keywords)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.News.APIKey != "secret" {
		t.Errorf("api key not read from NEWS_API_KEY")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestStorageBackends(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"memory", []string{"memory"}},
		{"file,sqlite", []string{"file", "sqlite"}},
		{" File , SQLITE ,", []string{"file", "sqlite"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := StorageConfig{Type: tt.in}.Backends()
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Backends(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	cfg := DefaultConfig()
	cfg.Storage.Type = "file,sqlite"
	if err := Validate(cfg); err != nil {
		t.Errorf("list storage type rejected: %v", err)
	}
}
