package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/cache/memory"
	"github.com/kitbuilder587/orbe-search/internal/config"
	"github.com/kitbuilder587/orbe-search/internal/files"
	"github.com/kitbuilder587/orbe-search/internal/llm"
	"github.com/kitbuilder587/orbe-search/internal/llm/ollama"
	"github.com/kitbuilder587/orbe-search/internal/llm/openai"
	"github.com/kitbuilder587/orbe-search/internal/metrics"
	"github.com/kitbuilder587/orbe-search/internal/prompt"
	"github.com/kitbuilder587/orbe-search/internal/rank"
	"github.com/kitbuilder587/orbe-search/internal/search"
	"github.com/kitbuilder587/orbe-search/internal/search/googlebooks"
	"github.com/kitbuilder587/orbe-search/internal/search/newsapi"
	"github.com/kitbuilder587/orbe-search/internal/search/openlibrary"
	"github.com/kitbuilder587/orbe-search/internal/search/serper"
	"github.com/kitbuilder587/orbe-search/internal/search/tavily"
	"github.com/kitbuilder587/orbe-search/internal/service"
)

type app struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cache    *memory.Cache
	prompts  *prompt.Library
	pipeline *service.Pipeline
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) *app {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	c := memory.NewWithContext(ctx, memory.Config{MaxEntries: cfg.Cache.MaxEntries})
	prompts := prompt.NewLibrary(logger)

	generator := buildGenerator(cfg, logger)
	embedder := buildEmbedder(cfg, logger)
	ranker := rank.New(embedder, rank.Config{
		TopK:        cfg.Rank.TopK,
		Concurrency: cfg.Rank.Concurrency,
	}, m, logger)

	pipeline := service.NewPipeline(service.PipelineDeps{
		Sources:   buildSources(cfg, logger),
		Generator: generator,
		Ranker:    ranker,
		Extractor: files.NewExtractor(logger),
		Prompts:   prompts,
		Cache:     c,
		Metrics:   m,
		Logger:    logger,
		Config: service.PipelineConfig{
			CacheTTL:       cfg.Cache.TTL,
			MatchThreshold: cfg.Files.MatchThreshold,
			BookFormat:     bookFormat(cfg),
		},
	})

	return &app{
		registry: registry,
		metrics:  m,
		cache:    c,
		prompts:  prompts,
		pipeline: pipeline,
	}
}

func (a *app) Close() {
	a.cache.Stop()
}

func bookFormat(cfg *config.Config) prompt.BookFormat {
	if cfg.Search.BookProvider == config.ProviderGoogleBooks {
		return prompt.GoogleBooksFormat
	}
	return prompt.OpenLibraryFormat
}

func buildSources(cfg *config.Config, logger *zap.Logger) service.Sources {
	s := cfg.Search
	var sources service.Sources

	if s.NewsAPIKey == "" {
		sources.News = search.Unavailable("newsapi", "News API key is not configured.")
	} else {
		sources.News = newsapi.New(newsapi.Config{APIKey: s.NewsAPIKey, Timeout: s.Timeout}, logger)
	}

	switch s.BookProvider {
	case config.ProviderGoogleBooks:
		if s.GoogleBooksAPIKey == "" {
			sources.Books = search.Unavailable("googlebooks", "Google Books API key is not configured.")
		} else {
			sources.Books = googlebooks.New(googlebooks.Config{APIKey: s.GoogleBooksAPIKey, Timeout: s.Timeout}, logger)
		}
	default:
		sources.Books = openlibrary.New(openlibrary.Config{Timeout: s.Timeout}, logger)
	}

	switch s.WebProvider {
	case config.ProviderTavily:
		if s.TavilyAPIKey == "" {
			sources.Web = search.Unavailable("tavily", "Tavily API key is not configured.")
		} else {
			sources.Web = tavily.New(tavily.Config{APIKey: s.TavilyAPIKey, Timeout: s.Timeout}, logger)
		}
	default:
		if s.SerperAPIKey == "" {
			sources.Web = search.Unavailable("serper", "Serper API key is not configured.")
		} else {
			sources.Web = serper.New(serper.Config{APIKey: s.SerperAPIKey, Timeout: s.Timeout}, logger)
		}
	}

	return sources
}

func openaiConfigured(cfg *config.Config) bool {
	return cfg.OpenAI.APIKey != "" || cfg.OpenAI.BaseURL != ""
}

func newOpenAI(cfg *config.Config, logger *zap.Logger) *openai.Client {
	return openai.New(openai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.Model,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	}, logger)
}

func newOllama(cfg *config.Config, logger *zap.Logger) *ollama.Client {
	return ollama.New(ollama.Config{
		BaseURL:        cfg.Ollama.BaseURL,
		Model:          cfg.Ollama.Model,
		EmbeddingModel: cfg.Ollama.EmbeddingModel,
		EmbedTimeout:   cfg.Ollama.EmbedTimeout,
	}, logger)
}

func buildGenerator(cfg *config.Config, logger *zap.Logger) llm.Generator {
	if cfg.LLM.Provider == config.ProviderOpenAI {
		if !openaiConfigured(cfg) {
			return llm.UnavailableGenerator("OPENAI_API_KEY is not set")
		}
		return newOpenAI(cfg, logger)
	}
	return newOllama(cfg, logger)
}

func buildEmbedder(cfg *config.Config, logger *zap.Logger) llm.Embedder {
	if cfg.LLM.EmbedProvider == config.ProviderOpenAI {
		if !openaiConfigured(cfg) {
			return llm.UnavailableEmbedder("OPENAI_API_KEY is not set")
		}
		return newOpenAI(cfg, logger)
	}
	return newOllama(cfg, logger)
}
