package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

var (
	ErrInvalidProvider  = errors.New("invalid provider")
	ErrInvalidPort      = errors.New("invalid port")
	ErrInvalidThreshold = errors.New("MATCH_THRESHOLD must be in (0, 1]")
	ErrInvalidTopK      = errors.New("RANK_TOP_K must be positive")
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	ProviderSerper = "serper"
	ProviderTavily = "tavily"

	ProviderOpenLibrary = "openlibrary"
	ProviderGoogleBooks = "googlebooks"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Ollama    OllamaConfig
	OpenAI    OpenAIConfig
	Search    SearchConfig
	Telegram  TelegramConfig
	Log       LogConfig
	Cache     CacheConfig
	Rank      RankConfig
	Files     FilesConfig
	RateLimit RateLimitConfig
	Prompt    PromptConfig
}

type ServerConfig struct {
	Port            int           `env:"PORT" envDefault:"3001"`
	StaticDir       string        `env:"STATIC_DIR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// TrustedProxies - CIDR или IP прокси, чьему X-Forwarded-For верим.
	// Пусто: ключ лимитера это адрес TCP-соединения.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// LLMConfig выбирает бэкенды генерации и эмбеддингов независимо друг от друга.
type LLMConfig struct {
	Provider      string `env:"LLM_PROVIDER" envDefault:"ollama"`
	EmbedProvider string `env:"EMBED_PROVIDER" envDefault:"ollama"`
}

type OllamaConfig struct {
	BaseURL        string        `env:"OLLAMA_API_URL" envDefault:"http://localhost:11434"`
	Model          string        `env:"OLLAMA_MODEL" envDefault:"qwen3:14b"`
	EmbeddingModel string        `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	EmbedTimeout   time.Duration `env:"OLLAMA_EMBED_TIMEOUT" envDefault:"30s"`
}

type OpenAIConfig struct {
	APIKey         string `env:"OPENAI_API_KEY"`
	BaseURL        string `env:"OPENAI_BASE_URL"`
	Model          string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
}

type SearchConfig struct {
	WebProvider       string        `env:"WEB_SEARCH_PROVIDER" envDefault:"serper"`
	BookProvider      string        `env:"BOOK_PROVIDER" envDefault:"openlibrary"`
	NewsAPIKey        string        `env:"NEWS_API_KEY"`
	SerperAPIKey      string        `env:"SERPER_API_KEY"`
	TavilyAPIKey      string        `env:"TAVILY_API_KEY"`
	GoogleBooksAPIKey string        `env:"GOOGLE_BOOKS_API_KEY"`
	Timeout           time.Duration `env:"SOURCE_TIMEOUT" envDefault:"15s"`
}

type TelegramConfig struct {
	Token string `env:"TELEGRAM_BOT_TOKEN"`
	Debug bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`

	// PublicBaseURL превращает относительные ссылки download-proxy в абсолютные.
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`
}

type CacheConfig struct {
	TTL        time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	MaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"1000"`
}

type RankConfig struct {
	TopK        int `env:"RANK_TOP_K" envDefault:"3"`
	Concurrency int `env:"RANK_CONCURRENCY" envDefault:"8"`
}

type FilesConfig struct {
	MatchThreshold float64 `env:"MATCH_THRESHOLD" envDefault:"0.5"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

type PromptConfig struct {
	PersonaDir string `env:"PERSONA_DIR"`
}

// Load reads .env from the working directory if it exists, then the environment.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit env file. Variables already set in the
// process environment win over the file.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LLM.EmbedProvider = strings.ToLower(strings.TrimSpace(c.LLM.EmbedProvider))
	c.Search.WebProvider = strings.ToLower(strings.TrimSpace(c.Search.WebProvider))
	c.Search.BookProvider = strings.ToLower(strings.TrimSpace(c.Search.BookProvider))
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	if !oneOf(c.LLM.Provider, ProviderOllama, ProviderOpenAI) {
		return fmt.Errorf("%w: LLM_PROVIDER=%q", ErrInvalidProvider, c.LLM.Provider)
	}
	if !oneOf(c.LLM.EmbedProvider, ProviderOllama, ProviderOpenAI) {
		return fmt.Errorf("%w: EMBED_PROVIDER=%q", ErrInvalidProvider, c.LLM.EmbedProvider)
	}
	if !oneOf(c.Search.WebProvider, ProviderSerper, ProviderTavily) {
		return fmt.Errorf("%w: WEB_SEARCH_PROVIDER=%q", ErrInvalidProvider, c.Search.WebProvider)
	}
	if !oneOf(c.Search.BookProvider, ProviderOpenLibrary, ProviderGoogleBooks) {
		return fmt.Errorf("%w: BOOK_PROVIDER=%q", ErrInvalidProvider, c.Search.BookProvider)
	}
	if c.Files.MatchThreshold <= 0 || c.Files.MatchThreshold > 1 {
		return ErrInvalidThreshold
	}
	if c.Rank.TopK <= 0 {
		return ErrInvalidTopK
	}
	return nil
}

// Warnings lists credentials that are missing for the selected providers.
// The service still starts; the affected component reports itself unavailable.
func (c *Config) Warnings() error {
	var result *multierror.Error

	if c.Search.NewsAPIKey == "" {
		result = multierror.Append(result, errors.New("NEWS_API_KEY is not set, news search disabled"))
	}
	switch c.Search.WebProvider {
	case ProviderSerper:
		if c.Search.SerperAPIKey == "" {
			result = multierror.Append(result, errors.New("SERPER_API_KEY is not set, web search disabled"))
		}
	case ProviderTavily:
		if c.Search.TavilyAPIKey == "" {
			result = multierror.Append(result, errors.New("TAVILY_API_KEY is not set, web search disabled"))
		}
	}
	if c.Search.BookProvider == ProviderGoogleBooks && c.Search.GoogleBooksAPIKey == "" {
		result = multierror.Append(result, errors.New("GOOGLE_BOOKS_API_KEY is not set, book search disabled"))
	}
	if (c.LLM.Provider == ProviderOpenAI || c.LLM.EmbedProvider == ProviderOpenAI) && c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" {
		result = multierror.Append(result, errors.New("OPENAI_API_KEY is not set, openai backend disabled"))
	}

	return result.ErrorOrNil()
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
