package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/domain"
)

var defaultPersonas = map[domain.Mode]string{
	domain.ModeDefault: `You are orbe, a helpful AI assistant.
Answer the user's query clearly and accurately, using the provided context where it is relevant.`,

	domain.ModeChat: `You are orbe, a friendly and helpful conversational AI assistant.
Engage naturally with the user in a helpful and approachable tone. Make the interaction feel like a pleasant chat, not robotic. Feel free to ask clarifying questions.
Synthesize the provided context (like web search results, news articles, or book snippets) with the user's query to form your response. If the context seems irrelevant or is missing, rely on your general knowledge to answer helpfully.`,

	domain.ModeCoder: `You are orbe, acting as an "AI coding expert".
Use the provided context (ranked web search results, news articles, or technical documents) and user query to provide accurate, efficient code examples or technical explanations.
Prioritize clarity, correctness, and security. Format code using markdown code blocks.
If context is irrelevant, answer based on your coding knowledge.`,

	domain.ModeBusiness: `You are orbe, acting as an "AI business consultant".
Analyze the provided context (ranked web search results, news articles, market data) and user query to provide actionable business insights, strategy ideas, or feasibility assessments.
Focus on clarity, cost-effectiveness, and market context. If context is irrelevant, rely on general business principles.`,

	domain.ModeCreative: `You are orbe, acting as an "AI creative partner".
Use the provided context (ranked web search results, articles, creative works) and user query to brainstorm innovative ideas, unique perspectives, or creative solutions.
Prioritize originality, imagination, and feasibility. If context is irrelevant, think outside the box using general knowledge.`,

	domain.ModeWizard: `WIZARD MODE: You are orbe, operating in high-efficiency mode.
Respond to the user query using context if relevant. BE EXTREMELY CONCISE. Use point form or minimal wording.
OMIT all conversational filler, introductions, summaries, apologies, and self-references.
Provide ONLY the core output (e.g., code block, list, direct answer). Ask questions ONLY if critically necessary for execution.`,
}

// Library holds persona texts. Files named <mode>.txt in a persona
// directory override the built-in text for that mode.
type Library struct {
	mu       sync.RWMutex
	personas map[domain.Mode]string
	logger   *zap.Logger
}

func NewLibrary(logger *zap.Logger) *Library {
	return &Library{personas: copyDefaults(), logger: logger}
}

func copyDefaults() map[domain.Mode]string {
	m := make(map[domain.Mode]string, len(defaultPersonas))
	for k, v := range defaultPersonas {
		m[k] = v
	}
	return m
}

// Persona falls back to the default persona for unknown modes.
func (l *Library) Persona(mode domain.Mode) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p, ok := l.personas[mode]; ok {
		return p
	}
	return l.personas[domain.ModeDefault]
}

// LoadDir rebuilds the library from the built-in texts plus any overrides in dir.
// A missing file keeps the built-in text for that mode.
func (l *Library) LoadDir(dir string) error {
	next := copyDefaults()
	loaded := 0

	modes := append([]domain.Mode{domain.ModeDefault}, domain.AllModes()...)
	for _, mode := range modes {
		data, err := os.ReadFile(filepath.Join(dir, string(mode)+".txt"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read persona %s: %w", mode, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		next[mode] = text
		loaded++
	}

	l.mu.Lock()
	l.personas = next
	l.mu.Unlock()

	l.logger.Info("personas loaded", zap.String("dir", dir), zap.Int("overrides", loaded))
	return nil
}

// Watch reloads dir whenever a .txt file in it changes, until ctx is done.
func (l *Library) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Ext(ev.Name) != ".txt" {
					continue
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := l.LoadDir(dir); err != nil {
					l.logger.Warn("persona reload failed", zap.Error(err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("persona watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}
