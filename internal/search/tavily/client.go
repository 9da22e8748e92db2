package tavily

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

const Name = "tavily"

type Config struct {
	APIKey      string
	BaseURL     string
	MaxResults  int
	SearchDepth string
	Timeout     time.Duration
}

type Client struct {
	apiKey      string
	baseURL     string
	maxResults  int
	searchDepth string
	client      *http.Client
	logger      *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = "basic"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		maxResults:  cfg.MaxResults,
		searchDepth: cfg.SearchDepth,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	SearchDepth       string `json:"search_depth,omitempty"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Query   string         `json:"query"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

func (c *Client) Name() string { return Name }

// Search делает одну попытку, без ретраев.
func (c *Client) Search(ctx context.Context, text string) domain.SourceResult {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      c.apiKey,
		Query:       text,
		MaxResults:  c.maxResults,
		SearchDepth: c.searchDepth,
	})
	if err != nil {
		return domain.Failure{Reason: fmt.Sprintf("General web search failed: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return domain.Failure{Reason: fmt.Sprintf("General web search failed: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := search.DoRequest(c.client, req)
	if err != nil {
		var statusErr *search.StatusError
		if errors.As(err, &statusErr) {
			c.logger.Warn("tavily request failed",
				zap.Int("status", statusErr.StatusCode),
				zap.ByteString("body", statusErr.Body),
			)
			switch statusErr.StatusCode {
			case http.StatusUnauthorized:
				return domain.Failure{Reason: "General web search is unavailable (invalid API key)."}
			case http.StatusTooManyRequests:
				return domain.Failure{Reason: "General web search is rate limited, try again later."}
			}
			return domain.Failure{Reason: fmt.Sprintf("General web search failed (%d).", statusErr.StatusCode)}
		}
		c.logger.Error("tavily unreachable", zap.Error(err))
		return domain.Failure{Reason: "Error contacting the general web search service."}
	}

	var resp tavilyResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.logger.Error("tavily decode failed", zap.Error(err))
		return domain.Failure{Reason: "Error contacting the general web search service."}
	}

	if len(resp.Results) == 0 {
		return domain.Message{Text: "No relevant web search results found."}
	}

	return domain.Items{Items: toItems(resp.Results)}
}

func toItems(results []tavilyResult) []domain.Item {
	items := make([]domain.Item, len(results))
	for i, r := range results {
		items[i] = domain.Item{
			Title:     r.Title,
			URL:       r.URL,
			Snippet:   r.Content,
			Source:    Name,
			Published: r.PublishedDate,
		}
	}
	return items
}
