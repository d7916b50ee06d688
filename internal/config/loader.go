package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from a .env file, environment, and config file.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("OUTBREAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("news.api_key", "OUTBREAK_NEWS_API_KEY", "NEWS_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind news api key: %w", err)
	}
	if err := v.BindEnv("server.port", "OUTBREAK_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind server port: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("outbreak")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".outbreak"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so that every key can be
// overridden from the environment.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.request_timeout", cfg.Engine.RequestTimeout)
	v.SetDefault("engine.user_agents", cfg.Engine.UserAgents)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.parse_non_2xx", cfg.Fetcher.ParseNon2xx)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)

	v.SetDefault("source.stats_url", cfg.Source.StatsURL)

	v.SetDefault("parser.table_id", cfg.Parser.TableID)
	v.SetDefault("parser.positional", cfg.Parser.Positional)
	v.SetDefault("parser.total_columns", cfg.Parser.TotalColumns)
	v.SetDefault("parser.columns.country", cfg.Parser.Columns.Country)
	v.SetDefault("parser.columns.cases", cfg.Parser.Columns.Cases)
	v.SetDefault("parser.columns.today_cases", cfg.Parser.Columns.TodayCases)
	v.SetDefault("parser.columns.deaths", cfg.Parser.Columns.Deaths)
	v.SetDefault("parser.columns.today_deaths", cfg.Parser.Columns.TodayDeaths)
	v.SetDefault("parser.columns.recovered", cfg.Parser.Columns.Recovered)
	v.SetDefault("parser.columns.critical", cfg.Parser.Columns.Critical)
	v.SetDefault("parser.counter_selector", cfg.Parser.CounterSelector)
	v.SetDefault("parser.updated_label", cfg.Parser.UpdatedLabel)

	v.SetDefault("refresh.world", cfg.Refresh.World)
	v.SetDefault("refresh.countries", cfg.Refresh.Countries)
	v.SetDefault("refresh.news", cfg.Refresh.News)

	v.SetDefault("news.enabled", cfg.News.Enabled)
	v.SetDefault("news.provider", cfg.News.Provider)
	v.SetDefault("news.endpoint", cfg.News.Endpoint)
	v.SetDefault("news.keywords", cfg.News.Keywords)
	v.SetDefault("news.language", cfg.News.Language)
	v.SetDefault("news.page_size", cfg.News.PageSize)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.uri", cfg.Storage.URI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.prefix", cfg.Storage.Prefix)
	v.SetDefault("storage.timeout", cfg.Storage.Timeout)

	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.card_language", cfg.Server.CardLanguage)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
