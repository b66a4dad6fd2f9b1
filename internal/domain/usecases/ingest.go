// Package usecases contains application business rules.
// Usecases orchestrate entities and the retrieval core through port
// interfaces; they never construct adapters themselves.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
	"github.com/0xcro3dile/chronorag-go/internal/domain/retrieval"
)

const (
	// SampleSourceFile names the chunk seeded into an empty store.
	SampleSourceFile = "sample.txt"
	sampleText       = "This is a sample document about artificial intelligence and machine learning."

	defaultIngestConcurrency = 4
)

// IngestUseCase turns files into embedded chunks in the document store.
type IngestUseCase struct {
	loader      ports.DocumentLoader
	embedder    ports.EmbeddingService
	store       ports.DocumentStore
	chunker     *retrieval.Chunker
	concurrency int
	logger      *slog.Logger
	metrics     ports.Metrics
}

// IngestOption configures an IngestUseCase.
type IngestOption func(*IngestUseCase)

// WithIngestConcurrency bounds the number of in-flight embedding calls.
func WithIngestConcurrency(n int) IngestOption {
	return func(uc *IngestUseCase) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

// WithIngestLogger sets the logger.
func WithIngestLogger(logger *slog.Logger) IngestOption {
	return func(uc *IngestUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// WithIngestMetrics sets the metrics observer.
func WithIngestMetrics(m ports.Metrics) IngestOption {
	return func(uc *IngestUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	loader ports.DocumentLoader,
	embedder ports.EmbeddingService,
	store ports.DocumentStore,
	chunker *retrieval.Chunker,
	opts ...IngestOption,
) *IngestUseCase {
	if chunker == nil {
		chunker = retrieval.NewChunker(retrieval.DefaultMaxChunkLength)
	}
	uc := &IngestUseCase{
		loader:      loader,
		embedder:    embedder,
		store:       store,
		chunker:     chunker,
		concurrency: defaultIngestConcurrency,
		logger:      slog.Default(),
		metrics:     nopMetrics{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Supports reports whether path has an extension the loader can read.
func (uc *IngestUseCase) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range uc.loader.SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// IngestDir ingests every supported file directly inside dir.
// A failing file is recorded in the report and does not stop the others.
func (uc *IngestUseCase) IngestDir(ctx context.Context, dir string) (entities.IngestReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return entities.IngestReport{}, fmt.Errorf("reading ingest dir: %w", err)
	}

	var report entities.IngestReport
	for _, entry := range entries {
		if entry.IsDir() || !uc.Supports(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r, err := uc.IngestFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			uc.logger.Warn("file skipped", "file", entry.Name(), "error", err)
		}
		report.Merge(r)
	}

	uc.logger.Info("directory ingested",
		"dir", dir,
		"files", report.Files,
		"persisted", report.Persisted,
		"failed", len(report.Failures),
	)
	return report, nil
}

// IngestFile extracts, chunks, embeds and stores one file.
// The error is non-nil only when nothing could be read from the file.
func (uc *IngestUseCase) IngestFile(ctx context.Context, path string) (entities.IngestReport, error) {
	name := filepath.Base(path)

	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		if !errors.Is(err, entities.ErrExtraction) {
			err = fmt.Errorf("%w: %w", entities.ErrExtraction, err)
		}
		uc.metrics.ChunkFailed(name, "extract")
		return entities.IngestReport{
			Files:    1,
			Failures: []entities.IngestFailure{{SourceFile: name, Err: err}},
		}, err
	}

	return uc.IngestDocument(ctx, doc), nil
}

// IngestDocument chunks doc and persists every chunk that embeds and
// stores successfully. Embedding calls run concurrently; store write order
// is not guaranteed.
func (uc *IngestUseCase) IngestDocument(ctx context.Context, doc *entities.Document) entities.IngestReport {
	source := doc.Name
	if source == "" {
		source = filepath.Base(doc.Path)
	}
	texts := uc.chunker.Split(doc.Content)

	uc.logger.Debug("document chunked", "file", source, "chunks", len(texts))

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, uc.concurrency)
		report = entities.IngestReport{Files: 1}
	)

	for i, text := range texts {
		part := i + 1
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			stage, err := uc.persistChunk(ctx, source, part, text)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, entities.IngestFailure{SourceFile: source, Part: part, Err: err})
				uc.metrics.ChunkFailed(source, stage)
				uc.logger.Warn("chunk skipped", "file", source, "part", part, "stage", stage, "error", err)
				return
			}
			report.Persisted++
			uc.metrics.ChunkPersisted(source)
		}(text)
	}
	wg.Wait()

	uc.logger.Info("document ingested",
		"file", source,
		"chunks", len(texts),
		"persisted", report.Persisted,
		"failed", len(report.Failures),
	)
	return report
}

func (uc *IngestUseCase) persistChunk(ctx context.Context, source string, part int, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "embed", err
	}

	vec, err := uc.embedder.Embed(ctx, text)
	if err != nil {
		return "embed", fmt.Errorf("%w: %w", entities.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return "embed", fmt.Errorf("%w: empty vector", entities.ErrEmbedding)
	}

	_, err = uc.store.Insert(ctx, entities.Chunk{
		Title:       fmt.Sprintf("%s - Part %d", source, part),
		Description: text,
		SourceFile:  source,
		Embedding:   vec,
	})
	if err != nil {
		return "store", fmt.Errorf("storing chunk: %w", err)
	}
	return "", nil
}

// SeedSample inserts a single sample chunk when the store is empty.
// It reports whether a chunk was inserted.
func (uc *IngestUseCase) SeedSample(ctx context.Context) (bool, error) {
	n, err := uc.store.Count(ctx, ports.ChunkFilter{})
	if err != nil {
		return false, fmt.Errorf("counting chunks: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	vec, err := uc.embedder.Embed(ctx, sampleText)
	if err != nil {
		return false, fmt.Errorf("%w: %w", entities.ErrEmbedding, err)
	}
	if _, err := uc.store.Insert(ctx, entities.Chunk{
		Title:       "Sample Document",
		Description: sampleText,
		SourceFile:  SampleSourceFile,
		Embedding:   vec,
	}); err != nil {
		return false, fmt.Errorf("storing sample: %w", err)
	}

	uc.logger.Info("sample document inserted")
	return true, nil
}
