package config

import (
	"strings"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for Outbreak.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"  yaml:"engine"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Source  SourceConfig  `mapstructure:"source"  yaml:"source"`
	Parser  ParserConfig  `mapstructure:"parser"  yaml:"parser"`
	Refresh RefreshConfig `mapstructure:"refresh" yaml:"refresh"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// EngineConfig controls outbound requests made by refresh jobs.
type EngineConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	UserAgents     []string      `mapstructure:"user_agents"     yaml:"user_agents"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	ParseNon2xx     bool          `mapstructure:"parse_non_2xx"     yaml:"parse_non_2xx"` // 3xx and 4xx except 429; 429 and 5xx always fail
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
}

// SourceConfig locates the statistics page.
type SourceConfig struct {
	StatsURL string `mapstructure:"stats_url" yaml:"stats_url"`
}

// ParserConfig describes the statistics page markup.
type ParserConfig struct {
	TableID         string      `mapstructure:"table_id"         yaml:"table_id"`
	Positional      bool        `mapstructure:"positional"       yaml:"positional"`
	TotalColumns    int         `mapstructure:"total_columns"    yaml:"total_columns"`
	Columns         ColumnIndex `mapstructure:"columns"          yaml:"columns"`
	CounterSelector string      `mapstructure:"counter_selector" yaml:"counter_selector"`
	UpdatedLabel    string      `mapstructure:"updated_label"    yaml:"updated_label"`
}

// ColumnIndex maps each country field to its positional column.
type ColumnIndex struct {
	Country     int `mapstructure:"country"      yaml:"country"`
	Cases       int `mapstructure:"cases"        yaml:"cases"`
	TodayCases  int `mapstructure:"today_cases"  yaml:"today_cases"`
	Deaths      int `mapstructure:"deaths"       yaml:"deaths"`
	TodayDeaths int `mapstructure:"today_deaths" yaml:"today_deaths"`
	Recovered   int `mapstructure:"recovered"    yaml:"recovered"`
	Critical    int `mapstructure:"critical"     yaml:"critical"`
}

// RefreshConfig sets the delay between refresh cycles per dataset.
type RefreshConfig struct {
	World     time.Duration `mapstructure:"world"     yaml:"world"`
	Countries time.Duration `mapstructure:"countries" yaml:"countries"`
	News      time.Duration `mapstructure:"news"      yaml:"news"`
}

// NewsConfig controls the news aggregator.
type NewsConfig struct {
	Enabled  bool     `mapstructure:"enabled"   yaml:"enabled"`
	Provider string   `mapstructure:"provider"  yaml:"provider"` // newsapi, rss
	Endpoint string   `mapstructure:"endpoint"  yaml:"endpoint"`
	APIKey   string   `mapstructure:"api_key"   yaml:"api_key"`
	Keywords []string `mapstructure:"keywords"  yaml:"keywords"`
	Language string   `mapstructure:"language"  yaml:"language"`
	PageSize int      `mapstructure:"page_size" yaml:"page_size"`
}

// StorageConfig controls the durable snapshot backend.
type StorageConfig struct {
	Type     string        `mapstructure:"type"      yaml:"type"` // memory, file, sqlite, mongo, redis, or a list like "file,sqlite"
	Path     string        `mapstructure:"path"      yaml:"path"`
	URI      string        `mapstructure:"uri"       yaml:"uri"`
	Database string        `mapstructure:"database"  yaml:"database"`
	Prefix   string        `mapstructure:"prefix"    yaml:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout"   yaml:"timeout"`
}

// Backends returns the backend names listed in Type, in order. A list such
// as "file,sqlite" fans writes out to every backend.
func (c StorageConfig) Backends() []string {
	var names []string
	for _, name := range strings.Split(c.Type, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port         int           `mapstructure:"port"          yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	CardLanguage string        `mapstructure:"card_language" yaml:"card_language"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			RequestTimeout: 30 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
		},
		Source: SourceConfig{
			StatsURL: "https://www.worldometers.info/coronavirus/",
		},
		Parser: ParserConfig{
			TableID:      "main_table_countries",
			TotalColumns: 9,
			Columns: ColumnIndex{
				Country:     0,
				Cases:       1,
				TodayCases:  2,
				Deaths:      3,
				TodayDeaths: 4,
				Recovered:   5,
				Critical:    7,
			},
			CounterSelector: ".maincounter-number",
			UpdatedLabel:    "Last updated",
		},
		Refresh: RefreshConfig{
			World:     3 * time.Minute,
			Countries: 5 * time.Minute,
			News:      time.Hour,
		},
		News: NewsConfig{
			Enabled:  true,
			Provider: "newsapi",
			Endpoint: "https://newsapi.org/v2/everything",
			Keywords: []string{"coronavirus", "covid-19"},
			Language: "en",
			PageSize: 20,
		},
		Storage: StorageConfig{
			Type:     "memory",
			Path:     "./data",
			Database: "outbreak",
			Prefix:   "outbreak:",
			Timeout:  5 * time.Second,
		},
		Server: ServerConfig{
			Port:         5001,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			CardLanguage: "en",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
