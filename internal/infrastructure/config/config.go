// Package config loads the YAML application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChunkerConfig configures how extracted text is split.
type ChunkerConfig struct {
	MaxLength int `yaml:"max_length"`
}

// OllamaConfig addresses a local Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// OpenAIConfig holds settings shared by the OpenAI embedder and LLM.
type OpenAIConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxRetries  int     `yaml:"max_retries"`
	Dimension   int     `yaml:"dimension,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// APIKey reads the key from the configured environment variable.
func (c OpenAIConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// RedisConfig addresses the embedding cache.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	TTLSecs     int    `yaml:"ttl_secs"`
}

// TTL returns the cache entry lifetime. Zero means no expiry.
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// CacheConfig selects the embedding cache. Type is "none" or "redis".
type CacheConfig struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// EmbedderConfig selects the embedding backend. Type is "ollama" or "openai".
type EmbedderConfig struct {
	Type   string       `yaml:"type"`
	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Cache  CacheConfig  `yaml:"cache"`
}

// LLMConfig selects the completion backend. Type is "ollama" or "openai".
type LLMConfig struct {
	Type   string       `yaml:"type"`
	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI OpenAIConfig `yaml:"openai"`
}

// SQLiteConfig points at the SQLite data directory.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig connects to a pgvector-enabled Postgres.
// DSN wins over DSNEnv when both are set.
type PostgresConfig struct {
	DSN    string `yaml:"dsn"`
	DSNEnv string `yaml:"dsn_env"`
}

// ConnString returns the DSN, falling back to the environment.
func (c PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return os.Getenv(c.DSNEnv)
}

// StoreConfig selects the document store. Type is "memory", "sqlite" or "postgres".
type StoreConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// ExtractorConfig addresses the PDF text extraction service.
type ExtractorConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IngestConfig controls folder ingestion and watching.
type IngestConfig struct {
	Dir            string `yaml:"dir"`
	Concurrency    int    `yaml:"concurrency"`
	DebounceMillis int    `yaml:"debounce_millis"`
	SeedSample     bool   `yaml:"seed_sample"`
	MaxUploadMB    int    `yaml:"max_upload_mb"`
}

// QueryConfig bounds a single query.
type QueryConfig struct {
	TimeoutSecs int `yaml:"timeout_secs"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Query     QueryConfig     `yaml:"query"`
}

// Load reads the config at path. If the file does not exist, it returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present:
// local Ollama for both models, SQLite under ./data, PDFs from ./pdf.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "ollama", Cache: CacheConfig{Type: "none"}},
		LLM:      LLMConfig{Type: "ollama"},
		Store:    StoreConfig{Type: "sqlite"},
		Ingest:   IngestConfig{SeedSample: true},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.ShutdownTimeoutSecs == 0 {
		cfg.Server.ShutdownTimeoutSecs = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Chunker.MaxLength == 0 {
		cfg.Chunker.MaxLength = 4000
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Embedder.Ollama.BaseURL == "" {
		cfg.Embedder.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedder.Ollama.Model == "" {
		cfg.Embedder.Ollama.Model = "nomic-embed-text"
	}
	applyOpenAIDefaults(&cfg.Embedder.OpenAI, "text-embedding-3-small")
	if cfg.Embedder.Cache.Type == "" {
		cfg.Embedder.Cache.Type = "none"
	}
	if cfg.Embedder.Cache.Redis.Addr == "" {
		cfg.Embedder.Cache.Redis.Addr = "localhost:6379"
	}
	if cfg.Embedder.Cache.Redis.PasswordEnv == "" {
		cfg.Embedder.Cache.Redis.PasswordEnv = "REDIS_PASSWORD"
	}

	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "ollama"
	}
	if cfg.LLM.Ollama.BaseURL == "" {
		cfg.LLM.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.LLM.Ollama.Model == "" {
		cfg.LLM.Ollama.Model = "llama3.2"
	}
	applyOpenAIDefaults(&cfg.LLM.OpenAI, "gpt-4o-mini")

	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = "./data"
	}
	if cfg.Store.Postgres.DSNEnv == "" {
		cfg.Store.Postgres.DSNEnv = "DATABASE_URL"
	}

	if cfg.Extractor.URL == "" {
		cfg.Extractor.URL = "http://localhost:8081"
	}
	if cfg.Extractor.TimeoutSecs == 0 {
		cfg.Extractor.TimeoutSecs = 60
	}

	if cfg.Ingest.Dir == "" {
		cfg.Ingest.Dir = "./pdf"
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Ingest.DebounceMillis == 0 {
		cfg.Ingest.DebounceMillis = 500
	}
	if cfg.Ingest.MaxUploadMB == 0 {
		cfg.Ingest.MaxUploadMB = 32
	}

	if cfg.Query.TimeoutSecs == 0 {
		cfg.Query.TimeoutSecs = 120
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
}

// Validate rejects unknown backend types.
func (c *AppConfig) Validate() error {
	if err := oneOf("embedder.type", c.Embedder.Type, "ollama", "openai"); err != nil {
		return err
	}
	if err := oneOf("embedder.cache.type", c.Embedder.Cache.Type, "none", "redis"); err != nil {
		return err
	}
	if err := oneOf("llm.type", c.LLM.Type, "ollama", "openai"); err != nil {
		return err
	}
	if err := oneOf("store.type", c.Store.Type, "memory", "sqlite", "postgres"); err != nil {
		return err
	}
	if c.Chunker.MaxLength < 0 {
		return fmt.Errorf("chunker.max_length must be positive, got %d", c.Chunker.MaxLength)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (want one of %v)", field, value, allowed)
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (c *AppConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSecs) * time.Second
}

// QueryTimeout returns the per-query deadline.
func (c *AppConfig) QueryTimeout() time.Duration {
	return time.Duration(c.Query.TimeoutSecs) * time.Second
}

// Debounce returns the watcher debounce interval.
func (c *AppConfig) Debounce() time.Duration {
	return time.Duration(c.Ingest.DebounceMillis) * time.Millisecond
}

// ExtractorTimeout returns the PDF service request timeout.
func (c *AppConfig) ExtractorTimeout() time.Duration {
	return time.Duration(c.Extractor.TimeoutSecs) * time.Second
}
