// Package rank orders search results by cosine similarity between the
// query embedding and each candidate's embedding.
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/llm"
	"github.com/kitbuilder587/orbe-search/internal/metrics"
)

const (
	DefaultTopK        = 3
	DefaultConcurrency = 8
)

type Scored struct {
	Item  domain.Item
	Score float64
	Index int
}

// Ranking is empty when no candidate could be scored.
type Ranking struct {
	Results []Scored
}

func (r Ranking) Empty() bool { return len(r.Results) == 0 }

type Config struct {
	TopK        int
	Concurrency int
}

type Ranker struct {
	embedder    llm.Embedder
	topK        int
	concurrency int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func New(embedder llm.Embedder, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Ranker {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Ranker{
		embedder:    embedder,
		topK:        cfg.TopK,
		concurrency: cfg.Concurrency,
		metrics:     m,
		logger:      logger,
	}
}

// Cosine returns 0 for vectors of different length or zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func candidateText(it domain.Item) string {
	return strings.TrimSpace(it.Title + "\n" + it.Snippet)
}

// Rank fails only when the query itself cannot be embedded. Candidates that
// have no text or fail to embed are dropped.
func (r *Ranker) Rank(ctx context.Context, query string, items []domain.Item) (Ranking, error) {
	if len(items) == 0 {
		return Ranking{}, nil
	}

	var queryVec []float32
	vectors := make([][]float32, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	g.Go(func() error {
		v, err := r.embedder.Embed(gctx, query)
		r.recordEmbedding(err)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		queryVec = v
		return nil
	})

	for i, it := range items {
		text := candidateText(it)
		if text == "" {
			continue
		}
		g.Go(func() error {
			v, err := r.embedder.Embed(gctx, text)
			r.recordEmbedding(err)
			if err != nil {
				r.logger.Warn("candidate embedding failed", zap.Int("index", i), zap.Error(err))
				return nil
			}
			vectors[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Ranking{}, err
	}

	var scored []Scored
	for i, v := range vectors {
		if v == nil {
			continue
		}
		scored = append(scored, Scored{Item: items[i], Score: Cosine(queryVec, v), Index: i})
	}

	if len(scored) == 0 {
		r.logger.Warn("no candidates could be scored", zap.Int("candidates", len(items)))
		return Ranking{}, nil
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}

	r.logger.Debug("ranked candidates",
		zap.Int("scored", len(scored)),
		zap.Float64("top_score", scored[0].Score),
	)
	return Ranking{Results: scored}, nil
}

func (r *Ranker) recordEmbedding(err error) {
	if r.metrics == nil {
		return
	}
	if err != nil {
		r.metrics.RecordEmbedding("error")
		return
	}
	r.metrics.RecordEmbedding("ok")
}
