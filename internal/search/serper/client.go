package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/search"
)

const Name = "serper"

type Config struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
}

type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *http.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://google.serper.dev"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []organicResult `json:"organic"`
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

func (c *Client) Name() string { return Name }

func (c *Client) Search(ctx context.Context, text string) domain.SourceResult {
	payload, err := json.Marshal(serperRequest{Q: text, Num: c.maxResults})
	if err != nil {
		return domain.Failure{Reason: fmt.Sprintf("General web search failed: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return domain.Failure{Reason: fmt.Sprintf("General web search failed: %v", err)}
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := search.DoRequest(c.client, req)
	if err != nil {
		var statusErr *search.StatusError
		if errors.As(err, &statusErr) {
			c.logger.Warn("serper request failed",
				zap.Int("status", statusErr.StatusCode),
				zap.ByteString("body", statusErr.Body),
			)
			return domain.Failure{Reason: fmt.Sprintf("General web search failed (%d).", statusErr.StatusCode)}
		}
		c.logger.Error("serper unreachable", zap.Error(err))
		return domain.Failure{Reason: "Error contacting the general web search service."}
	}

	var resp serperResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("serper decode failed", zap.Error(err))
		return domain.Failure{Reason: "Error contacting the general web search service."}
	}

	if len(resp.Organic) == 0 {
		return domain.Message{Text: "No relevant web search results found."}
	}

	items := make([]domain.Item, len(resp.Organic))
	for i, r := range resp.Organic {
		items[i] = domain.Item{
			Title:     r.Title,
			URL:       r.Link,
			Snippet:   r.Snippet,
			Source:    Name,
			Published: r.Date,
		}
	}

	c.logger.Debug("serper results", zap.String("q", text), zap.Int("count", len(items)))
	return domain.Items{Items: items}
}
