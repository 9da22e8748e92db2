package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/search"
)

const Name = "newsapi"

type Config struct {
	APIKey   string
	BaseURL  string
	PageSize int
	Timeout  time.Duration
}

type Client struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		pageSize: cfg.PageSize,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

type everythingResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func (c *Client) Name() string { return Name }

func (c *Client) Search(ctx context.Context, text string) domain.SourceResult {
	params := url.Values{}
	params.Set("q", text)
	params.Set("apiKey", c.apiKey)
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("language", "en")
	params.Set("sortBy", "relevancy")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/everything?"+params.Encode(), nil)
	if err != nil {
		return domain.Failure{Reason: fmt.Sprintf("NewsAPI error: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	body, err := search.DoRequest(c.client, req)
	if err != nil {
		var statusErr *search.StatusError
		if errors.As(err, &statusErr) {
			var apiErr everythingResponse
			_ = json.Unmarshal(statusErr.Body, &apiErr)
			c.logger.Warn("newsapi request failed",
				zap.Int("status", statusErr.StatusCode),
				zap.String("message", apiErr.Message),
			)
			msg := apiErr.Message
			if msg == "" {
				msg = statusErr.Status
			}
			return domain.Failure{Reason: "NewsAPI error: " + msg}
		}
		c.logger.Error("newsapi unreachable", zap.Error(err))
		return domain.Failure{Reason: "Sorry, I encountered a network error trying to reach the news service."}
	}

	var resp everythingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("newsapi decode failed", zap.Error(err))
		return domain.Failure{Reason: "NewsAPI error: malformed response"}
	}

	if resp.Status != "ok" {
		return domain.Failure{Reason: fmt.Sprintf("NewsAPI error: %s - %s", resp.Code, resp.Message)}
	}
	if resp.TotalResults == 0 || len(resp.Articles) == 0 {
		return domain.Message{Text: fmt.Sprintf("Sorry, I couldn't find any recent news articles matching '%s' on NewsAPI.", text)}
	}

	items := make([]domain.Item, len(resp.Articles))
	for i, a := range resp.Articles {
		snippet := a.Description
		if snippet == "" {
			snippet = a.Content
		}
		items[i] = domain.Item{
			Title:     a.Title,
			URL:       a.URL,
			Snippet:   snippet,
			Source:    a.Source.Name,
			Published: a.PublishedAt,
		}
	}

	c.logger.Debug("newsapi results", zap.String("q", text), zap.Int("count", len(items)))
	return domain.Items{Items: items}
}
