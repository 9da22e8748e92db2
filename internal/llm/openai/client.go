// Package openai adapts an OpenAI-compatible API to the llm contracts.
// Chat deltas are re-encoded as Ollama-shaped ndjson chunks so clients
// see one wire format regardless of the backend.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/llm"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
}

type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	logger         *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:         openai.NewClientWithConfig(oc),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logger,
	}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, llm.ErrEmptyText
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrRequestFailed, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, llm.ErrInvalidEmbedding
	}

	src := resp.Data[0].Embedding
	vec := make([]float32, len(src))
	for i := range src {
		vec[i] = float32(src[i])
	}
	return vec, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (llm.Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		c.logger.Error("openai generate failed", zap.String("model", c.model), zap.Error(err))
		return nil, &llm.StatusError{StatusCode: statusOf(err), Message: err.Error()}
	}

	return &chunkStream{stream: stream, model: c.model}, nil
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}
	return http.StatusBadGateway
}

type chunkStream struct {
	stream *openai.ChatCompletionStream
	model  string
	done   bool
	once   sync.Once
}

func (s *chunkStream) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return s.encode("", true)
		}
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return s.encode(resp.Choices[0].Delta.Content, false)
	}
}

func (s *chunkStream) encode(text string, done bool) ([]byte, error) {
	return json.Marshal(llm.Chunk{
		Model:     s.model,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Response:  text,
		Done:      done,
	})
}

func (s *chunkStream) Close() error {
	s.once.Do(func() {
		s.stream.Close()
	})
	return nil
}
