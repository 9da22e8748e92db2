package googlebooks

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

const Name = "googlebooks"

// API caps maxResults well below what we would ever ask for.
const maxAllowedResults = 10

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
		cfg.BaseURL = "https://www.googleapis.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.MaxResults > maxAllowedResults {
		cfg.MaxResults = maxAllowedResults
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

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
	Error      struct {
		Message string `json:"message"`
	} `json:"error"`
}

type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		Description   string   `json:"description"`
		Publisher     string   `json:"publisher"`
		PublishedDate string   `json:"publishedDate"`
		InfoLink      string   `json:"infoLink"`
	} `json:"volumeInfo"`
}

func (c *Client) Name() string { return Name }

func (c *Client) Search(ctx context.Context, text string) domain.SourceResult {
	params := url.Values{}
	params.Set("q", text)
	params.Set("key", c.apiKey)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("projection", "lite")
	params.Set("orderBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/books/v1/volumes?"+params.Encode(), nil)
	if err != nil {
		return domain.Failure{Reason: fmt.Sprintf("Google Books API error: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	body, err := search.DoRequest(c.client, req)
	if err != nil {
		var statusErr *search.StatusError
		if errors.As(err, &statusErr) {
			var apiErr volumesResponse
			_ = json.Unmarshal(statusErr.Body, &apiErr)
			c.logger.Warn("googlebooks request failed",
				zap.Int("status", statusErr.StatusCode),
				zap.String("message", apiErr.Error.Message),
			)
			msg := apiErr.Error.Message
			if msg == "" {
				msg = statusErr.Status
			}
			return domain.Failure{Reason: "Google Books API error: " + msg}
		}
		c.logger.Error("googlebooks unreachable", zap.Error(err))
		return domain.Failure{Reason: "Sorry, I encountered a network error trying to reach the Google Books service."}
	}

	var resp volumesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("googlebooks decode failed", zap.Error(err))
		return domain.Failure{Reason: "Google Books API error: malformed response"}
	}

	if resp.TotalItems == 0 || len(resp.Items) == 0 {
		return domain.Message{Text: fmt.Sprintf("Sorry, I couldn't find any books matching '%s' on Google Books.", text)}
	}

	items := make([]domain.Item, len(resp.Items))
	for i, v := range resp.Items {
		items[i] = toItem(v)
	}
	return domain.Items{Items: items}
}

func toItem(v volume) domain.Item {
	info := v.VolumeInfo
	item := domain.Item{
		Title:     info.Title,
		Authors:   info.Authors,
		Snippet:   info.Description,
		Publisher: info.Publisher,
		Published: info.PublishedDate,
		URL:       info.InfoLink,
		Source:    Name,
	}
	if item.Title == "" {
		item.Title = "No Title"
	}
	if len(item.Authors) == 0 {
		item.Authors = []string{"Unknown Author"}
	}
	if item.Snippet == "" {
		item.Snippet = "No description available."
	}
	if item.Publisher == "" {
		item.Publisher = "N/A"
	}
	if item.Published == "" {
		item.Published = "N/A"
	}
	return item
}
