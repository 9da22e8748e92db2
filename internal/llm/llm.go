package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrRequestFailed        = errors.New("request failed")
	ErrEmptyText            = errors.New("cannot embed empty text")
	ErrInvalidEmbedding     = errors.New("invalid embedding format")
	ErrEmbedderUnavailable  = errors.New("embedder unavailable")
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (Stream, error)
}

// Stream yields newline-delimited JSON chunks in arrival order.
// Next returns io.EOF once the upstream body is exhausted. Close may be called more than once.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// StatusError is a generation backend failure with the status to forward to the caller.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation backend status %d: %s", e.StatusCode, e.Message)
}

// Chunk is one line of a generation stream.
type Chunk struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	Error     string `json:"error,omitempty"`
}

func DecodeChunk(line []byte) (Chunk, error) {
	var c Chunk
	if err := json.Unmarshal(line, &c); err != nil {
		return Chunk{}, fmt.Errorf("decode chunk: %w", err)
	}
	return c, nil
}

// Collect drains s and concatenates the response fields.
func Collect(s Stream) (string, error) {
	defer s.Close()

	var out []byte
	for {
		line, err := s.Next()
		if errors.Is(err, io.EOF) {
			return string(out), nil
		}
		if err != nil {
			return string(out), err
		}

		c, err := DecodeChunk(line)
		if err != nil {
			continue
		}
		if c.Error != "" {
			return string(out), &StatusError{StatusCode: http.StatusBadGateway, Message: c.Error}
		}
		out = append(out, c.Response...)
		if c.Done {
			return string(out), nil
		}
	}
}

type unavailableEmbedder struct{ reason string }

func UnavailableEmbedder(reason string) Embedder {
	return unavailableEmbedder{reason: reason}
}

func (u unavailableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("%w: %s", ErrEmbedderUnavailable, u.reason)
}

type unavailableGenerator struct{ reason string }

func UnavailableGenerator(reason string) Generator {
	return unavailableGenerator{reason: reason}
}

func (u unavailableGenerator) Generate(ctx context.Context, prompt string) (Stream, error) {
	return nil, fmt.Errorf("%w: %s", ErrGeneratorUnavailable, u.reason)
}
