// Package service sequences a query through classification, source dispatch,
// caching, file extraction, ranking and generation.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/cache"
	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/files"
	"github.com/kitbuilder587/orbe-search/internal/intent"
	"github.com/kitbuilder587/orbe-search/internal/llm"
	"github.com/kitbuilder587/orbe-search/internal/metrics"
	"github.com/kitbuilder587/orbe-search/internal/prompt"
	"github.com/kitbuilder587/orbe-search/internal/rank"
	"github.com/kitbuilder587/orbe-search/internal/search"
)

const (
	rankingUnavailable = "Ranking unavailable (Embedding model not set)."
	rankingFailed      = "Failed to process query for similarity search."
)

// QueryProcessor is what the front-ends depend on.
type QueryProcessor interface {
	Process(ctx context.Context, req *domain.QueryRequest) (Outcome, error)
}

type Sources struct {
	News  search.Client
	Books search.Client
	Web   search.Client
}

type PipelineConfig struct {
	CacheTTL       time.Duration
	MatchThreshold float64
	BookFormat     prompt.BookFormat
}

// PipelineDeps - зависимости пайплайна. Cache, Ranker и Metrics опциональны.
type PipelineDeps struct {
	Sources   Sources
	Generator llm.Generator
	Ranker    *rank.Ranker
	Extractor *files.Extractor
	Prompts   *prompt.Library
	Cache     cache.Cache
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Config    PipelineConfig

	// для тестов
	Now func() time.Time
}

type Pipeline struct {
	sources   Sources
	generator llm.Generator
	ranker    *rank.Ranker
	extractor *files.Extractor
	prompts   *prompt.Library
	cache     cache.Cache
	metrics   *metrics.Metrics
	logger    *zap.Logger
	config    PipelineConfig
	now       func() time.Time
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Config.CacheTTL == 0 {
		deps.Config.CacheTTL = 10 * time.Minute
	}
	if deps.Config.MatchThreshold <= 0 {
		deps.Config.MatchThreshold = files.DefaultMatchThreshold
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Extractor == nil {
		deps.Extractor = files.NewExtractor(deps.Logger)
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewLibrary(deps.Logger)
	}
	if deps.Generator == nil {
		deps.Generator = llm.UnavailableGenerator("no generation backend configured")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	src := deps.Sources
	if src.News == nil {
		src.News = search.Unavailable("news", "News search is not configured.")
	}
	if src.Books == nil {
		src.Books = search.Unavailable("books", "Book search is not configured.")
	}
	if src.Web == nil {
		src.Web = search.Unavailable("web", "General web search is not configured.")
	}

	return &Pipeline{
		sources:   src,
		generator: deps.Generator,
		ranker:    deps.Ranker,
		extractor: deps.Extractor,
		prompts:   deps.Prompts,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		config:    deps.Config,
		now:       deps.Now,
	}
}

// Process returns an error only for invalid queries and generation failures.
// Source problems end up in the prompt context instead.
func (p *Pipeline) Process(ctx context.Context, req *domain.QueryRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Sanitize()

	mode := req.Mode
	in := intent.Classify(req.Text)
	if p.metrics != nil {
		p.metrics.RecordIntent(in.String())
	}
	topic := intent.ExtractTopic(req.Text, in)

	p.logger.Info("processing query",
		zap.String("intent", in.String()),
		zap.String("topic", topic),
		zap.String("mode", string(mode)),
		zap.Int("query_length", len(req.Text)),
	)

	var (
		c          prompt.Context
		candidates []domain.FileCandidate
		webResult  domain.SourceResult
	)

	switch in {
	case domain.IntentNews:
		r := p.fetch(ctx, p.sources.News, topic)
		c = prompt.News(r)
		candidates = p.extractor.Extract(domain.ItemsOf(r))
	case domain.IntentBooks:
		r := p.fetch(ctx, p.sources.Books, topic)
		c = prompt.Books(r, p.config.BookFormat)
	default:
		webResult = p.fetch(ctx, p.sources.Web, req.Text)
		candidates = p.extractor.Extract(domain.ItemsOf(webResult))
	}

	if match, ok := files.FindMatch(req.Text, candidates, p.config.MatchThreshold); ok {
		p.logger.Info("direct file match, skipping generation", zap.String("filename", match.Filename))
		if p.metrics != nil {
			p.metrics.RecordDirectMatch()
		}
		return DirectAnswer{Payload: newDirectPayload(match, p.now())}, nil
	}

	if webResult != nil {
		c = p.webContext(ctx, req.Text, webResult)
	}
	c = c.WithFiles(candidates)

	text := p.prompts.Build(req.Text, c, mode)

	start := time.Now()
	stream, err := p.generator.Generate(ctx, text)
	if err != nil {
		p.recordGeneration("error", start)
		p.logger.Error("generation failed", zap.Error(err))
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	p.recordGeneration("success", start)

	return GeneratedAnswer{Stream: stream}, nil
}

// fetch caches every variant, failures included, for the configured TTL.
// A result produced after the caller's context ended is not cached: the
// failure belongs to that caller, not to the source.
func (p *Pipeline) fetch(ctx context.Context, client search.Client, text string) domain.SourceResult {
	name := client.Name()
	key := cache.Fingerprint(name, text)

	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if r, ok := v.(domain.SourceResult); ok {
				if p.metrics != nil {
					p.metrics.RecordCacheHit(name)
				}
				p.logger.Debug("cache hit", zap.String("source", name), zap.String("key", key))
				return r
			}
		}
		if p.metrics != nil {
			p.metrics.RecordCacheMiss(name)
		}
	}

	start := time.Now()
	r := client.Search(ctx, text)
	label := resultLabel(r)
	if p.metrics != nil {
		p.metrics.RecordSearch(name, label, time.Since(start))
	}
	p.logger.Debug("source fetched",
		zap.String("source", name),
		zap.String("result", label),
		zap.Duration("duration", time.Since(start)),
	)

	if p.cache == nil {
		return r
	}
	if err := ctx.Err(); err != nil {
		p.logger.Debug("caller gone, result not cached", zap.String("source", name), zap.Error(err))
		return r
	}
	p.cache.Set(key, r, p.config.CacheTTL)
	return r
}

// webContext ranks web items. Without a usable query embedding there is no
// ranking at all, and the context says so.
func (p *Pipeline) webContext(ctx context.Context, query string, r domain.SourceResult) prompt.Context {
	items := domain.ItemsOf(r)
	if len(items) == 0 {
		return prompt.IssueOf(r)
	}
	if p.ranker == nil {
		return prompt.Issue(rankingUnavailable)
	}

	ranking, err := p.ranker.Rank(ctx, query, items)
	if err != nil {
		p.logger.Warn("ranking failed", zap.Error(err))
		return prompt.Issue(rankingFailed + " " + err.Error())
	}
	return prompt.RankedWeb(ranking)
}

func (p *Pipeline) recordGeneration(status string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordGeneration(status, time.Since(start))
	}
}

func resultLabel(r domain.SourceResult) string {
	return domain.Match(r,
		func(domain.Items) string { return "items" },
		func(domain.Message) string { return "message" },
		func(domain.Failure) string { return "failure" },
	)
}

var _ QueryProcessor = (*Pipeline)(nil)
