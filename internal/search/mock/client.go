package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/search"
)

type Client struct {
	SourceName string
	Result     domain.SourceResult
	Delay      time.Duration

	CallCount int
	LastText  string
	AllTexts  []string

	mu sync.Mutex
}

func New(name string) *Client {
	return &Client{
		SourceName: name,
		Result:     domain.Message{Text: "No relevant web search results found."},
	}
}

func (c *Client) WithItems(items ...domain.Item) *Client {
	c.Result = domain.Items{Items: items}
	return c
}

func (c *Client) WithMessage(text string) *Client {
	c.Result = domain.Message{Text: text}
	return c
}

func (c *Client) WithFailure(reason string) *Client {
	c.Result = domain.Failure{Reason: reason}
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Name() string { return c.SourceName }

func (c *Client) Search(ctx context.Context, text string) domain.SourceResult {
	c.mu.Lock()
	c.CallCount++
	c.LastText = text
	c.AllTexts = append(c.AllTexts, text)
	delay := c.Delay
	result := c.Result
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Failure{Reason: ctx.Err().Error()}
		case <-time.After(delay):
		}
	}

	return result
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastText = ""
	c.AllTexts = nil
}

var _ search.Client = (*Client)(nil)
