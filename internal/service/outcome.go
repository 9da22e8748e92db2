package service

import (
	"fmt"
	"time"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/llm"
)

const DirectModel = "orbe-backend-direct"

// Outcome is either DirectAnswer or GeneratedAnswer.
type Outcome interface {
	outcome()
}

// DirectAnswer short-circuits generation with a single ready chunk.
type DirectAnswer struct {
	Payload DirectPayload
}

// GeneratedAnswer carries the open generation stream. The caller must Close it.
type GeneratedAnswer struct {
	Stream llm.Stream
}

func (DirectAnswer) outcome()    {}
func (GeneratedAnswer) outcome() {}

// DirectPayload mimics the final chunk of an Ollama stream so clients
// can consume both outcomes the same way.
type DirectPayload struct {
	Model              string `json:"model"`
	CreatedAt          string `json:"created_at"`
	Response           string `json:"response"`
	Done               bool   `json:"done"`
	Context            []int  `json:"context"`
	TotalDuration      int64  `json:"total_duration"`
	LoadDuration       int64  `json:"load_duration"`
	PromptEvalCount    int    `json:"prompt_eval_count"`
	PromptEvalDuration int64  `json:"prompt_eval_duration"`
	EvalCount          int    `json:"eval_count"`
	EvalDuration       int64  `json:"eval_duration"`
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func newDirectPayload(match domain.FileCandidate, now time.Time) DirectPayload {
	return DirectPayload{
		Model:     DirectModel,
		CreatedAt: now.UTC().Format(isoMillis),
		Response: fmt.Sprintf("Based on your query, this direct download link was found:\n[%s](%s)",
			match.Filename, match.ProxyURL),
		Done:          true,
		Context:       []int{},
		TotalDuration: int64(50 * time.Millisecond),
		EvalCount:     1,
		EvalDuration:  int64(50 * time.Millisecond),
	}
}
