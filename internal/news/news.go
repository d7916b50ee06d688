// Package news collects topic articles from a search provider.
package news

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/types"
)

// Source runs a single keyword search against a news provider.
type Source interface {
	Search(ctx context.Context, keyword string) ([]types.NewsArticle, error)
	Name() string
}

// NewSource builds the provider selected by news.provider. A provider that
// cannot run with the current settings returns a *types.ConfigError.
func NewSource(cfg *config.Config, logger *slog.Logger) (Source, error) {
	if err := config.ValidateNews(cfg); err != nil {
		return nil, err
	}

	switch cfg.News.Provider {
	case "newsapi":
		return NewNewsAPISource(cfg.News, cfg.Engine.RequestTimeout, logger), nil
	case "rss":
		return NewRSSSource(cfg.News, cfg.Engine.RequestTimeout, logger), nil
	default:
		return nil, &types.ConfigError{
			Key: "news.provider",
			Err: fmt.Errorf("unknown news provider %q", cfg.News.Provider),
		}
	}
}

// Aggregator queries a Source once per keyword and merges the results.
type Aggregator struct {
	source   Source
	keywords []string
	logger   *slog.Logger
}

// NewAggregator creates an aggregator over the given keywords, queried in order.
func NewAggregator(source Source, keywords []string, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		source:   source,
		keywords: keywords,
		logger:   logger.With("component", "news", "source", source.Name()),
	}
}

// Aggregate runs every keyword query and returns the merged articles. When an
// article URL appears more than once, the first occurrence in keyword order
// and then result order is kept. Articles without a URL are dropped. Any
// failed query fails the whole call.
func (a *Aggregator) Aggregate(ctx context.Context) ([]types.NewsArticle, error) {
	start := time.Now()
	seen := NewDeduplicator(len(a.keywords) * 20)
	var merged []types.NewsArticle

	for _, keyword := range a.keywords {
		articles, err := a.source.Search(ctx, keyword)
		if err != nil {
			return nil, fmt.Errorf("news query %q: %w", keyword, err)
		}

		added, dropped := 0, 0
		for _, article := range articles {
			if article.URL == "" {
				dropped++
				continue
			}
			if !seen.MarkSeen(article.URL) {
				continue
			}
			merged = append(merged, article)
			added++
		}

		a.logger.Debug("keyword searched",
			"keyword", keyword,
			"results", len(articles),
			"added", added,
			"no_url", dropped,
		)
	}

	if merged == nil {
		merged = []types.NewsArticle{}
	}

	a.logger.Info("news aggregated",
		"keywords", len(a.keywords),
		"articles", len(merged),
		"duration", time.Since(start),
	)
	return merged, nil
}
