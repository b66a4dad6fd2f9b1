package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "ollama", cfg.Embedder.Type)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Ollama.Model)
	assert.Equal(t, "ollama", cfg.LLM.Type)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "./data", cfg.Store.SQLite.Path)
	assert.Equal(t, "./pdf", cfg.Ingest.Dir)
	assert.Equal(t, 4000, cfg.Chunker.MaxLength)
	assert.True(t, cfg.Ingest.SeedSample)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
}

func TestLoad_OverridesAndFillsGaps(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
    dimension: 256
  cache:
    type: redis
    redis:
      addr: cache:6379
      ttl_secs: 3600
llm:
  type: openai
store:
  type: postgres
  postgres:
    dsn: postgres://u:p@db/chronorag
ingest:
  seed_sample: false
  concurrency: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 256, cfg.Embedder.OpenAI.Dimension)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "redis", cfg.Embedder.Cache.Type)
	assert.Equal(t, "cache:6379", cfg.Embedder.Cache.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Embedder.Cache.Redis.TTL())
	assert.Equal(t, "postgres://u:p@db/chronorag", cfg.Store.Postgres.ConnString())
	assert.False(t, cfg.Ingest.SeedSample)
	assert.Equal(t, 8, cfg.Ingest.Concurrency)
	assert.Equal(t, "./pdf", cfg.Ingest.Dir)
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	path := writeConfig(t, "store:\n  type: mongodb\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.type")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSecretsFromEnvironment(t *testing.T) {
	t.Setenv("CHRONORAG_TEST_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://env/db")

	cfg := Default()
	cfg.LLM.OpenAI.APIKeyEnv = "CHRONORAG_TEST_KEY"

	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey())
	assert.Equal(t, "postgres://env/db", cfg.Store.Postgres.ConnString())
}
