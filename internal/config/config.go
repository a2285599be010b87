// Package config loads and validates coursebot settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Embedding providers.
const (
	ProviderLocal   = "local"
	ProviderOpenAI  = "openai"
	ProviderLexical = "lexical"
)

const (
	defaultLocalEmbeddingModel  = "all-MiniLM-L6-v2"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
	lexicalEmbeddingModel       = "lexical-fnv"
)

// Config holds every runtime setting.
type Config struct {
	// HTTP server
	Host      string
	Port      int
	Debug     bool
	RateLimit float64 // requests per second, 0 disables

	// LLM
	OpenAIAPIKey  string
	OpenAIBaseURL string
	LLMModel      string
	Temperature   float64
	MaxTokens     int
	LLMTimeout    time.Duration

	// Corpus and retrieval
	SourceURLs    []string
	ScrapeTimeout time.Duration
	ChunkSize     int
	ChunkOverlap  int
	TopK          int

	// Embeddings
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingBatchSize int
	ModelDir           string

	// Logging
	LogFile string
}

// Default returns the configuration used when no variables are set.
// OpenAIAPIKey has no default and must be supplied.
func Default() Config {
	return Config{
		Host:               "127.0.0.1",
		Port:               5000,
		Debug:              true,
		LLMModel:           "gpt-4o-mini",
		Temperature:        0.7,
		LLMTimeout:         60 * time.Second,
		SourceURLs:         []string{"https://brainlox.com/courses/category/technical"},
		ScrapeTimeout:      30 * time.Second,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		TopK:               3,
		EmbeddingProvider:  ProviderLocal,
		EmbeddingModel:     defaultLocalEmbeddingModel,
		EmbeddingBatchSize: 32,
		ModelDir:           "./models",
		LogFile:            "chatbot.log",
	}
}

// Load reads the configuration from the process environment and validates it.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration through lookup and validates it.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.stringVar("API_HOST", &cfg.Host)
	p.intVar("API_PORT", &cfg.Port)
	p.boolVar("DEBUG_MODE", &cfg.Debug)
	p.floatVar("RATE_LIMIT_RPS", &cfg.RateLimit)

	p.stringVar("OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	p.stringVar("OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
	p.stringVar("LLM_MODEL", &cfg.LLMModel)
	p.floatVar("TEMPERATURE", &cfg.Temperature)
	p.intVar("MAX_TOKENS", &cfg.MaxTokens)
	p.durationVar("LLM_TIMEOUT", &cfg.LLMTimeout)

	p.listVar("BASE_URL", &cfg.SourceURLs)
	p.durationVar("SCRAPE_TIMEOUT", &cfg.ScrapeTimeout)
	p.intVar("CHUNK_SIZE", &cfg.ChunkSize)
	p.intVar("CHUNK_OVERLAP", &cfg.ChunkOverlap)
	p.intVar("TOP_K_RESULTS", &cfg.TopK)

	p.stringVar("EMBEDDING_PROVIDER", &cfg.EmbeddingProvider)
	cfg.EmbeddingProvider = strings.ToLower(cfg.EmbeddingProvider)
	switch cfg.EmbeddingProvider {
	case ProviderOpenAI:
		cfg.EmbeddingModel = defaultOpenAIEmbeddingModel
	case ProviderLexical:
		cfg.EmbeddingModel = lexicalEmbeddingModel
	}
	p.stringVar("EMBEDDING_MODEL", &cfg.EmbeddingModel)
	// The lexical embedder has a single fixed model.
	if cfg.EmbeddingProvider == ProviderLexical {
		cfg.EmbeddingModel = lexicalEmbeddingModel
	}
	p.intVar("EMBEDDING_DIMENSION", &cfg.EmbeddingDimension)
	p.intVar("EMBEDDING_BATCH_SIZE", &cfg.EmbeddingBatchSize)
	p.stringVar("MODEL_DIR", &cfg.ModelDir)

	// An explicitly empty LOG_FILE disables file logging.
	if v, ok := lookup("LOG_FILE"); ok {
		cfg.LogFile = strings.TrimSpace(v)
	}

	if err := errors.Join(p.errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if strings.TrimSpace(c.Host) == "" {
		invalid("API_HOST cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		invalid("API_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.RateLimit < 0 {
		invalid("RATE_LIMIT_RPS cannot be negative, got %g", c.RateLimit)
	}
	if c.OpenAIAPIKey == "" {
		invalid("OPENAI_API_KEY is required")
	}
	if c.OpenAIBaseURL != "" && !isHTTPURL(c.OpenAIBaseURL) {
		invalid("OPENAI_BASE_URL is not an http(s) URL: %q", c.OpenAIBaseURL)
	}
	if strings.TrimSpace(c.LLMModel) == "" {
		invalid("LLM_MODEL cannot be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		invalid("TEMPERATURE must be between 0 and 2, got %g", c.Temperature)
	}
	if c.MaxTokens < 0 {
		invalid("MAX_TOKENS cannot be negative, got %d", c.MaxTokens)
	}
	if c.LLMTimeout <= 0 {
		invalid("LLM_TIMEOUT must be positive, got %s", c.LLMTimeout)
	}
	if len(c.SourceURLs) == 0 {
		invalid("BASE_URL must name at least one source")
	}
	for _, u := range c.SourceURLs {
		if !isHTTPURL(u) {
			invalid("BASE_URL entry is not an http(s) URL: %q", u)
		}
	}
	if c.ScrapeTimeout <= 0 {
		invalid("SCRAPE_TIMEOUT must be positive, got %s", c.ScrapeTimeout)
	}
	if c.ChunkSize <= 0 {
		invalid("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		invalid("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d with CHUNK_SIZE %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		invalid("TOP_K_RESULTS must be positive, got %d", c.TopK)
	}
	switch c.EmbeddingProvider {
	case ProviderLocal, ProviderOpenAI, ProviderLexical:
	default:
		invalid("EMBEDDING_PROVIDER must be one of local, openai, lexical, got %q", c.EmbeddingProvider)
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		invalid("EMBEDDING_MODEL cannot be empty")
	}
	if c.EmbeddingDimension < 0 {
		invalid("EMBEDDING_DIMENSION cannot be negative, got %d", c.EmbeddingDimension)
	}
	if c.EmbeddingBatchSize <= 0 {
		invalid("EMBEDDING_BATCH_SIZE must be positive, got %d", c.EmbeddingBatchSize)
	}

	return errors.Join(errs...)
}

// Addr returns the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// parser reads typed values, recording a wrapped error for each malformed one.
type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, value, err))
}

func (p *parser) stringVar(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) intVar(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) floatVar(key string, dst *float64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = f
}

func (p *parser) boolVar(key string, dst *bool) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = b
}

// durationVar accepts Go durations ("90s") or a bare number of seconds.
func (p *parser) durationVar(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}

func (p *parser) listVar(key string, dst *[]string) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
