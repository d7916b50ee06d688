package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/types"
)

// newsAPIResponse is the envelope returned by the everything endpoint.
type newsAPIResponse struct {
	Status       string              `json:"status"`
	TotalResults int                 `json:"totalResults"`
	Articles     []types.NewsArticle `json:"articles"`
	Code         string              `json:"code"`
	Message      string              `json:"message"`
}

// NewsAPISource searches a newsapi.org compatible endpoint.
type NewsAPISource struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	language string
	pageSize int
	logger   *slog.Logger
}

// NewNewsAPISource creates a newsapi source with an explicit request timeout.
func NewNewsAPISource(cfg config.NewsConfig, timeout time.Duration, logger *slog.Logger) *NewsAPISource {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "outbreak/1.0")

	return &NewsAPISource{
		client:   client,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		pageSize: cfg.PageSize,
		logger:   logger.With("component", "newsapi"),
	}
}

// Name returns the provider name.
func (s *NewsAPISource) Name() string { return "newsapi" }

// Search returns the articles the provider lists for one keyword.
func (s *NewsAPISource) Search(ctx context.Context, keyword string) ([]types.NewsArticle, error) {
	var body newsAPIResponse

	params := map[string]string{
		"q":        keyword,
		"apiKey":   s.apiKey,
		"sortBy":   "publishedAt",
		"pageSize": strconv.Itoa(s.pageSize),
	}
	if s.language != "" {
		params["language"] = s.language
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		SetError(&body).
		Get(s.endpoint)
	if err != nil {
		return nil, &types.FetchError{URL: s.endpoint, Err: err}
	}

	if res.IsError() {
		code := res.StatusCode()
		return nil, &types.FetchError{
			URL:        s.endpoint,
			StatusCode: code,
			Err:        fmt.Errorf("newsapi %s: %s", body.Code, body.Message),
			Retryable:  code == http.StatusTooManyRequests || code >= 500,
		}
	}
	if body.Status != "" && body.Status != "ok" {
		return nil, &types.FetchError{
			URL:        s.endpoint,
			StatusCode: res.StatusCode(),
			Err:        fmt.Errorf("newsapi status %q: %s", body.Status, body.Message),
		}
	}

	s.logger.Debug("search complete",
		"keyword", keyword,
		"total", body.TotalResults,
		"returned", len(body.Articles),
		"duration", res.Time(),
	)
	return body.Articles, nil
}
