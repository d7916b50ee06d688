package news

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/types"
)

// keywordPlaceholder is replaced with the escaped keyword in an RSS endpoint.
const keywordPlaceholder = "{keyword}"

// RSSSource searches a feed endpoint such as a news search RSS URL.
type RSSSource struct {
	endpoint string
	pageSize int
	parser   *gofeed.Parser
	logger   *slog.Logger
}

// NewRSSSource creates a feed source. The endpoint may contain {keyword};
// otherwise the keyword is sent as the q query parameter.
func NewRSSSource(cfg config.NewsConfig, timeout time.Duration, logger *slog.Logger) *RSSSource {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "outbreak/1.0"

	return &RSSSource{
		endpoint: cfg.Endpoint,
		pageSize: cfg.PageSize,
		parser:   parser,
		logger:   logger.With("component", "rss"),
	}
}

// Name returns the provider name.
func (s *RSSSource) Name() string { return "rss" }

// Search fetches the feed for one keyword and converts its items.
func (s *RSSSource) Search(ctx context.Context, keyword string) ([]types.NewsArticle, error) {
	feedURL := s.feedURL(keyword)

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &types.FetchError{
				URL:        feedURL,
				StatusCode: httpErr.StatusCode,
				Err:        err,
				Retryable:  httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500,
			}
		}
		return nil, &types.FetchError{URL: feedURL, Err: err}
	}

	count := min(len(feed.Items), s.pageSize)
	articles := make([]types.NewsArticle, 0, count)
	for _, item := range feed.Items[:count] {
		articles = append(articles, itemToArticle(feed, item))
	}

	s.logger.Debug("feed parsed", "keyword", keyword, "items", len(feed.Items), "kept", count)
	return articles, nil
}

func (s *RSSSource) feedURL(keyword string) string {
	escaped := url.QueryEscape(keyword)
	if strings.Contains(s.endpoint, keywordPlaceholder) {
		return strings.ReplaceAll(s.endpoint, keywordPlaceholder, escaped)
	}

	sep := "?"
	if strings.Contains(s.endpoint, "?") {
		sep = "&"
	}
	return s.endpoint + sep + "q=" + escaped
}

func itemToArticle(feed *gofeed.Feed, item *gofeed.Item) types.NewsArticle {
	article := types.NewsArticle{
		Source:      types.ArticleSource{Name: feed.Title},
		Title:       item.Title,
		Description: item.Description,
		URL:         item.Link,
		Content:     item.Content,
	}

	if item.Author != nil {
		article.Author = item.Author.Name
	}
	if item.Image != nil {
		article.URLToImage = item.Image.URL
	}

	switch {
	case item.PublishedParsed != nil:
		article.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		article.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		article.PublishedAt = item.Published
	}
	return article
}
