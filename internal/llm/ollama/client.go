package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/llm"
)

const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultModel          = "qwen3:14b"
	DefaultEmbeddingModel = "nomic-embed-text"
)

type Config struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	// EmbedTimeout bounds a single embedding call. Generation is bounded by the caller's context only.
	EmbedTimeout time.Duration
}

type Client struct {
	baseURL        string
	model          string
	embeddingModel string
	embedClient    *http.Client
	streamClient   *http.Client
	logger         *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.EmbedTimeout == 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		embedClient:    &http.Client{Timeout: cfg.EmbedTimeout},
		streamClient:   &http.Client{},
		logger:         logger,
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, llm.ErrEmptyText
	}

	body, err := json.Marshal(embeddingRequest{Model: c.embeddingModel, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.embedClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var er embeddingResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(respBody, &er)
		msg := er.Error
		if msg == "" {
			msg = fmt.Sprintf("Ollama embedding API error %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", llm.ErrRequestFailed, msg)
	}

	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(er.Embedding) == 0 {
		return nil, llm.ErrInvalidEmbedding
	}

	vec := make([]float32, len(er.Embedding))
	for i, v := range er.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Generate starts a streaming completion. The returned stream passes
// Ollama's ndjson lines through unchanged.
func (c *Client) Generate(ctx context.Context, prompt string) (llm.Stream, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("ollama generate", zap.String("model", c.model), zap.Int("prompt_len", len(prompt)))

	resp, err := c.streamClient.Do(req)
	if err != nil {
		c.logger.Error("ollama unreachable", zap.String("url", c.baseURL), zap.Error(err))
		return nil, &llm.StatusError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    fmt.Sprintf("Network error connecting to Ollama at %s. Is it running? Details: %v", c.baseURL, err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("ollama generate failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", text),
		)
		return nil, &llm.StatusError{StatusCode: resp.StatusCode, Message: string(text)}
	}

	return llm.NewLineStream(resp.Body), nil
}
