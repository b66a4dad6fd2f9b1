// Package usecases - query.go handles retrieval and answer generation.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
	"github.com/0xcro3dile/chronorag-go/internal/domain/retrieval"
)

const (
	logTopMatches  = 5
	logPreviewSize = 100
)

// QueryUseCase answers questions from the document store.
type QueryUseCase struct {
	embedder      ports.EmbeddingService
	store         ports.DocumentStore
	llm           ports.LLMService
	ranker        *retrieval.Ranker
	disambiguator *retrieval.Disambiguator
	composer      *retrieval.Composer
	logger        *slog.Logger
	metrics       ports.Metrics
}

// QueryOption configures a QueryUseCase.
type QueryOption func(*QueryUseCase)

// WithScorer replaces the brute-force scorer.
func WithScorer(s retrieval.Scorer) QueryOption {
	return func(uc *QueryUseCase) {
		uc.ranker = retrieval.NewRanker(s)
	}
}

// WithQueryLogger sets the logger.
func WithQueryLogger(logger *slog.Logger) QueryOption {
	return func(uc *QueryUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// WithQueryMetrics sets the metrics observer.
func WithQueryMetrics(m ports.Metrics) QueryOption {
	return func(uc *QueryUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(
	embedder ports.EmbeddingService,
	store ports.DocumentStore,
	llm ports.LLMService,
	opts ...QueryOption,
) *QueryUseCase {
	uc := &QueryUseCase{
		embedder:      embedder,
		store:         store,
		llm:           llm,
		ranker:        retrieval.NewRanker(nil),
		disambiguator: retrieval.NewDisambiguator(),
		composer:      retrieval.NewComposer(),
		logger:        slog.Default(),
		metrics:       nopMetrics{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Query retrieves the contexts for req and asks the LLM for an answer.
func (uc *QueryUseCase) Query(ctx context.Context, req entities.QueryRequest) (*entities.Answer, error) {
	start := time.Now()

	sel, prompt, err := uc.prepare(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	text, err := uc.llm.Generate(ctx, prompt)
	if err != nil {
		uc.metrics.QueryFailed("completion")
		return nil, fmt.Errorf("%w: %w", entities.ErrCompletion, err)
	}

	uc.metrics.QueryServed(sel.Mode, time.Since(start))
	return &entities.Answer{Text: text, Selection: sel, Prompt: prompt}, nil
}

// QueryStream is Query with a token stream instead of a complete answer.
func (uc *QueryUseCase) QueryStream(ctx context.Context, req entities.QueryRequest) (entities.Selection, <-chan ports.StreamToken, error) {
	start := time.Now()

	sel, prompt, err := uc.prepare(ctx, req.Query)
	if err != nil {
		return entities.Selection{}, nil, err
	}

	tokens, err := uc.llm.GenerateStream(ctx, prompt)
	if err != nil {
		uc.metrics.QueryFailed("completion")
		return entities.Selection{}, nil, fmt.Errorf("%w: %w", entities.ErrCompletion, err)
	}

	uc.metrics.QueryServed(sel.Mode, time.Since(start))
	return sel, tokens, nil
}

// Search only selects contexts, without LLM generation.
func (uc *QueryUseCase) Search(ctx context.Context, query string) (entities.Selection, error) {
	return uc.retrieve(ctx, query)
}

// Documents returns every stored chunk.
func (uc *QueryUseCase) Documents(ctx context.Context) ([]entities.Chunk, error) {
	return uc.store.All(ctx)
}

func (uc *QueryUseCase) prepare(ctx context.Context, query string) (entities.Selection, string, error) {
	sel, err := uc.retrieve(ctx, query)
	if err != nil {
		return entities.Selection{}, "", err
	}

	prompt, err := uc.composer.Compose(query, sel.Chunks)
	if err != nil {
		uc.metrics.QueryFailed("compose")
		return entities.Selection{}, "", err
	}
	return sel, prompt, nil
}

func (uc *QueryUseCase) retrieve(ctx context.Context, query string) (entities.Selection, error) {
	vec, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		uc.metrics.QueryFailed("embedding")
		return entities.Selection{}, fmt.Errorf("%w: %w", entities.ErrEmbedding, err)
	}

	uc.logStoreStats(ctx)

	chunks, err := uc.store.All(ctx)
	if err != nil {
		uc.metrics.QueryFailed("store")
		return entities.Selection{}, fmt.Errorf("reading store: %w", err)
	}
	if len(chunks) == 0 {
		uc.metrics.QueryFailed("no_match")
		return entities.Selection{}, entities.ErrNoMatch
	}

	ranked, err := uc.ranker.Rank(ctx, vec, chunks)
	if err != nil {
		reason := "rank"
		if errors.Is(err, entities.ErrDimensionMismatch) {
			reason = "dimension_mismatch"
		}
		uc.metrics.QueryFailed(reason)
		return entities.Selection{}, fmt.Errorf("ranking chunks: %w", err)
	}
	uc.logTopMatches(ranked)

	sel, err := uc.disambiguator.Select(query, ranked)
	if err != nil {
		uc.metrics.QueryFailed("no_match")
		return entities.Selection{}, err
	}

	for _, sc := range sel.Chunks {
		uc.logger.Info("context selected",
			"mode", sel.Mode,
			"years", sel.Years,
			"file", sc.SourceFile,
			"title", sc.Title,
			"score", sc.Score,
		)
	}
	return sel, nil
}

func (uc *QueryUseCase) logStoreStats(ctx context.Context) {
	if !uc.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	total, err := uc.store.Count(ctx, ports.ChunkFilter{})
	if err != nil {
		uc.logger.Debug("counting chunks failed", "error", err)
		return
	}
	embedded, err := uc.store.Count(ctx, ports.ChunkFilter{EmbeddedOnly: true})
	if err != nil {
		uc.logger.Debug("counting embedded chunks failed", "error", err)
		return
	}
	uc.logger.Debug("document statistics", "total", total, "with_embeddings", embedded)
}

func (uc *QueryUseCase) logTopMatches(ranked []entities.ScoredChunk) {
	for i, sc := range ranked {
		if i == logTopMatches {
			break
		}
		uc.logger.Debug("initial match",
			"rank", i+1,
			"file", sc.SourceFile,
			"title", sc.Title,
			"score", sc.Score,
			"preview", preview(sc.Description, logPreviewSize),
		)
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
