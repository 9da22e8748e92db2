package mock

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/orbe-search/internal/llm"
)

// Generator streams Tokens as ndjson chunks followed by a done chunk.
type Generator struct {
	Tokens []string
	Error  error
	Delay  time.Duration

	CallCount  int
	LastPrompt string

	mu sync.Mutex
}

func NewGenerator() *Generator {
	return &Generator{Tokens: []string{"This ", "is ", "a ", "mock ", "answer."}}
}

func (g *Generator) WithTokens(tokens ...string) *Generator {
	g.Tokens = tokens
	return g
}

func (g *Generator) WithError(err error) *Generator {
	g.Error = err
	return g
}

func (g *Generator) WithDelay(delay time.Duration) *Generator {
	g.Delay = delay
	return g
}

func (g *Generator) Generate(ctx context.Context, prompt string) (llm.Stream, error) {
	g.mu.Lock()
	g.CallCount++
	g.LastPrompt = prompt
	tokens := g.Tokens
	err := g.Error
	delay := g.Delay
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, t := range tokens {
		line, _ := json.Marshal(llm.Chunk{Model: "mock", Response: t})
		sb.Write(line)
		sb.WriteByte('\n')
	}
	line, _ := json.Marshal(llm.Chunk{Model: "mock", Done: true})
	sb.Write(line)
	sb.WriteByte('\n')

	return llm.NewLineStream(io.NopCloser(strings.NewReader(sb.String()))), nil
}

func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.CallCount
}

// Embedder returns Vectors[text] or an embedding derived from the text.
type Embedder struct {
	Vectors map[string][]float32
	Errors  map[string]error
	Error   error

	CallCount int

	mu sync.Mutex
}

func NewEmbedder() *Embedder {
	return &Embedder{
		Vectors: make(map[string][]float32),
		Errors:  make(map[string]error),
	}
}

func (e *Embedder) WithVector(text string, vec []float32) *Embedder {
	e.Vectors[text] = vec
	return e
}

func (e *Embedder) WithTextError(text string, err error) *Embedder {
	e.Errors[text] = err
	return e
}

func (e *Embedder) WithError(err error) *Embedder {
	e.Error = err
	return e
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCount++

	if e.Error != nil {
		return nil, e.Error
	}
	if err, ok := e.Errors[text]; ok {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, llm.ErrEmptyText
	}
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	return letterVector(text), nil
}

func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.CallCount
}

// letterVector counts a-z occurrences.
func letterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

var (
	_ llm.Generator = (*Generator)(nil)
	_ llm.Embedder  = (*Embedder)(nil)
)
