package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
)

// CachedAdapter wraps an EmbeddingService with a vector cache.
// Cache failures are logged and fall through to the wrapped service.
type CachedAdapter struct {
	inner  ports.EmbeddingService
	cache  ports.EmbeddingCache
	model  string
	logger *slog.Logger
}

// NewCachedAdapter caches inner's vectors under keys derived from model and text.
func NewCachedAdapter(inner ports.EmbeddingService, cache ports.EmbeddingCache, model string, logger *slog.Logger) *CachedAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedAdapter{inner: inner, cache: cache, model: model, logger: logger}
}

// Embed returns the cached vector for text or computes and stores it.
func (a *CachedAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	key := a.key(text)
	if vec, ok := a.lookup(ctx, key); ok {
		return vec, nil
	}

	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := a.cache.Set(ctx, key, vec); err != nil {
		a.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

func (a *CachedAdapter) key(text string) string {
	sum := sha256.Sum256([]byte(a.model + "\x00" + text))
	return a.model + ":" + hex.EncodeToString(sum[:])
}

func (a *CachedAdapter) lookup(ctx context.Context, key string) ([]float32, bool) {
	vec, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("embedding cache read failed", "error", err)
		return nil, false
	}
	return vec, ok
}
