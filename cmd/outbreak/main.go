package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/outbreak/internal/api"
	"github.com/IshaanNene/outbreak/internal/cache"
	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/dashboard"
	"github.com/IshaanNene/outbreak/internal/engine"
	"github.com/IshaanNene/outbreak/internal/fetcher"
	"github.com/IshaanNene/outbreak/internal/news"
	"github.com/IshaanNene/outbreak/internal/observability"
	"github.com/IshaanNene/outbreak/internal/storage"
	"github.com/IshaanNene/outbreak/internal/types"
)

var (
	cfgFile     string
	verbose     bool
	port        int
	fetcherType string
	outputFmt   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "outbreak",
		Short: "Outbreak: pandemic statistics scraper and API",
		Long: `Outbreak periodically scrapes a public statistics page for case, death
and recovery figures, collects related news, and serves the latest snapshot
over a small read-only JSON API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&fetcherType, "fetcher", "", "fetcher type: http, browser")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh loops and the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	metrics := observability.NewMetrics(logger)
	eng, err := buildEngine(cfg, repo, logger)
	if err != nil {
		return err
	}
	eng.SetObserver(metrics)
	eng.SetFetchRecorder(metrics)

	server := api.NewServer(cfg.Server, repo, config.Version, logger)
	server.SetStatusProvider(eng)
	server.SetRequestCounter(metrics)
	if cfg.Metrics.Enabled {
		server.Handle(cfg.Metrics.Path, metrics)
	}
	card := dashboard.NewDashboard(func() (types.WorldSummary, bool) {
		return cache.World(repo)
	}, cfg.Server.CardLanguage, logger)
	server.Handle("/card", card)

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	serveErr := server.ListenAndServe(ctx)
	if serveErr != nil {
		logger.Error("API server stopped", "error", serveErr)
		stop()
	}

	eng.Wait()
	logger.Info("shutdown complete")
	return serveErr
}

// scrapeCmd creates the "scrape" subcommand for one-shot refreshes.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "scrape [world|countries|news]",
		Short:     "Scrape one dataset once and print it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"world", "countries", "news"},
		RunE:      runScrape,
	}
	cmd.Flags().StringVarP(&outputFmt, "output", "o", "table", "output format: table, json")
	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := cache.NewMemoryStore()
	eng, err := buildEngine(cfg, repo, logger)
	if err != nil {
		return err
	}

	dataset := types.Dataset(strings.ToLower(args[0]))
	var refresh func(context.Context) error
	switch dataset {
	case types.DatasetWorld:
		refresh = eng.RefreshWorld
	case types.DatasetCountries:
		refresh = eng.RefreshCountries
	case types.DatasetNews:
		refresh = eng.RefreshNews
	default:
		return fmt.Errorf("unknown dataset %q (valid: world, countries, news)", args[0])
	}

	defer eng.Close()

	if err := refresh(ctx); err != nil {
		return fmt.Errorf("scrape %s: %w", dataset, err)
	}

	return printDataset(os.Stdout, repo, dataset, outputFmt)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("outbreak %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cfg.News.APIKey != "" {
				cfg.News.APIKey = "********"
			}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

// loadConfig loads, overrides, validates and returns the config together
// with a logger built from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if port > 0 {
		cfg.Server.Port = port
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = strings.ToLower(fetcherType)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging), nil
}

// openCache returns the cache repository, warmed from the durable backend
// when one is configured.
func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Repository, func(), error) {
	backend, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	if backend == nil {
		return cache.NewMemoryStore(), func() {}, nil
	}

	store := cache.NewPersistentStore(backend, logger)
	store.Warm(ctx)
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("storage close error", "error", err)
		}
	}, nil
}

// buildEngine wires the fetcher and news source into a new engine. A news
// configuration problem disables only the news job.
func buildEngine(cfg *config.Config, repo cache.Repository, logger *slog.Logger) (*engine.Engine, error) {
	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	eng := engine.New(cfg, repo, logger)
	eng.SetFetcher(f)

	src, err := news.NewSource(cfg, logger)
	var cfgErr *types.ConfigError
	switch {
	case err == nil:
		eng.SetNewsSource(src)
	case errors.As(err, &cfgErr):
		logger.Warn("news disabled", "key", cfgErr.Key, "reason", cfgErr.Err)
		eng.DisableNews(err)
	default:
		return nil, fmt.Errorf("create news source: %w", err)
	}
	return eng, nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
