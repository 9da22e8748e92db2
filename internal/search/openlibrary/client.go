package openlibrary

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

const Name = "openlibrary"

const searchFields = "key,title,author_name,first_publish_year,cover_i,isbn,subject,subtitle"

type Config struct {
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
}

// Client не требует API-ключа.
type Client struct {
	baseURL    string
	maxResults int
	client     *http.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openlibrary.org"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type searchResponse struct {
	NumFound int    `json:"numFound"`
	Docs     []doc  `json:"docs"`
	Error    string `json:"error"`
}

type doc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Subject          []string `json:"subject"`
}

func (c *Client) Name() string { return Name }

func (c *Client) Search(ctx context.Context, text string) domain.SourceResult {
	params := url.Values{}
	params.Set("q", text)
	params.Set("limit", strconv.Itoa(c.maxResults))
	params.Set("fields", searchFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return domain.Failure{Reason: fmt.Sprintf("Open Library API error: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	body, err := search.DoRequest(c.client, req)
	if err != nil {
		var statusErr *search.StatusError
		if errors.As(err, &statusErr) {
			var apiErr searchResponse
			_ = json.Unmarshal(statusErr.Body, &apiErr)
			c.logger.Warn("openlibrary request failed",
				zap.Int("status", statusErr.StatusCode),
				zap.String("error", apiErr.Error),
			)
			msg := apiErr.Error
			if msg == "" {
				msg = statusErr.Status
			}
			return domain.Failure{Reason: "Open Library API error: " + msg}
		}
		c.logger.Error("openlibrary unreachable", zap.Error(err))
		return domain.Failure{Reason: "Sorry, I encountered a network error trying to reach the Open Library service."}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("openlibrary decode failed", zap.Error(err))
		return domain.Failure{Reason: "Open Library API error: malformed response"}
	}

	if resp.NumFound == 0 || len(resp.Docs) == 0 {
		return domain.Message{Text: fmt.Sprintf("Sorry, I couldn't find any books matching '%s' on Open Library.", text)}
	}

	items := make([]domain.Item, len(resp.Docs))
	for i, d := range resp.Docs {
		items[i] = toItem(d)
	}
	return domain.Items{Items: items}
}

func toItem(d doc) domain.Item {
	item := domain.Item{
		Title:     d.Title,
		Subtitle:  d.Subtitle,
		Authors:   d.AuthorName,
		Published: "N/A",
		Subjects:  d.Subject,
		Source:    Name,
		URL:       "https://openlibrary.org" + d.Key,
	}
	if item.Title == "" {
		item.Title = "No Title"
	}
	if len(item.Authors) == 0 {
		item.Authors = []string{"Unknown Author"}
	}
	if d.FirstPublishYear > 0 {
		item.Published = strconv.Itoa(d.FirstPublishYear)
	}
	return item
}
