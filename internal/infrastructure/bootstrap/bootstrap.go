// Package bootstrap builds the application graph from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/0xcro3dile/chronorag-go/internal/adapters/cache"
	"github.com/0xcro3dile/chronorag-go/internal/adapters/embedding"
	"github.com/0xcro3dile/chronorag-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/chronorag-go/internal/adapters/llm"
	"github.com/0xcro3dile/chronorag-go/internal/adapters/loader"
	"github.com/0xcro3dile/chronorag-go/internal/adapters/parser"
	"github.com/0xcro3dile/chronorag-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
	"github.com/0xcro3dile/chronorag-go/internal/domain/retrieval"
	"github.com/0xcro3dile/chronorag-go/internal/domain/usecases"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/config"
	apihttp "github.com/0xcro3dile/chronorag-go/internal/infrastructure/http"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/metrics"
)

// App holds the wired use cases and the resources they own.
type App struct {
	Config  *config.AppConfig
	Logger  *slog.Logger
	Metrics *metrics.Registry
	Store   ports.DocumentStore
	Ingest  *usecases.IngestUseCase
	Query   *usecases.QueryUseCase

	extensions []string
	checks     []apihttp.Option
	closers    []func() error
}

// New connects every configured backend. On error, anything already
// opened is closed.
func New(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	store, err := app.newStore(ctx)
	if err != nil {
		return nil, err
	}
	embedder, err := app.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	completer, err := app.newLLM()
	if err != nil {
		return nil, err
	}

	pdf := parser.NewPDFServiceParser(cfg.Extractor.URL, cfg.ExtractorTimeout(), logger)
	docs := loader.NewMultiLoader(loader.NewTextLoader(), loader.NewPDFLoader(pdf))

	app.checks = append(app.checks, apihttp.WithHealthCheck("extractor", pdf.Healthy))
	app.Store = store
	app.extensions = docs.SupportedExtensions()
	app.Ingest = usecases.NewIngestUseCase(docs, embedder, store,
		retrieval.NewChunker(cfg.Chunker.MaxLength),
		usecases.WithIngestConcurrency(cfg.Ingest.Concurrency),
		usecases.WithIngestLogger(logger),
		usecases.WithIngestMetrics(app.Metrics),
	)
	app.Query = usecases.NewQueryUseCase(embedder, store, completer,
		usecases.WithQueryLogger(logger),
		usecases.WithQueryMetrics(app.Metrics),
	)

	logger.Info("application ready",
		"store", cfg.Store.Type,
		"embedder", cfg.Embedder.Type,
		"cache", cfg.Embedder.Cache.Type,
		"llm", cfg.LLM.Type,
	)
	return app, nil
}

func (a *App) newStore(ctx context.Context) (ports.DocumentStore, error) {
	switch a.Config.Store.Type {
	case "memory":
		return vectordb.NewInMemoryStore(), nil
	case "sqlite":
		s, err := vectordb.NewSQLiteStore(a.Config.Store.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		a.checks = append(a.checks, apihttp.WithHealthCheck("store", s.Ping))
		return s, nil
	case "postgres":
		dsn := a.Config.Store.Postgres.ConnString()
		if dsn == "" {
			return nil, fmt.Errorf("postgres store needs store.postgres.dsn or $%s", a.Config.Store.Postgres.DSNEnv)
		}
		s, err := vectordb.NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		a.closers = append(a.closers, func() error { s.Close(); return nil })
		a.checks = append(a.checks, apihttp.WithHealthCheck("store", s.Ping))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", a.Config.Store.Type)
	}
}

func (a *App) newEmbedder(ctx context.Context) (ports.EmbeddingService, error) {
	ec := a.Config.Embedder

	var (
		inner ports.EmbeddingService
		model string
	)
	switch ec.Type {
	case "ollama":
		o := embedding.NewOllamaAdapter(ec.Ollama.BaseURL, ec.Ollama.Model, a.Logger)
		inner, model = o, o.Model()
	case "openai":
		key := ec.OpenAI.APIKey()
		if key == "" {
			return nil, fmt.Errorf("openai embedder needs $%s", ec.OpenAI.APIKeyEnv)
		}
		o := embedding.NewOpenAIAdapter(key,
			embedding.WithOpenAIModel(ec.OpenAI.Model),
			embedding.WithOpenAIDimension(ec.OpenAI.Dimension),
			embedding.WithOpenAIBaseURL(ec.OpenAI.BaseURL),
			embedding.WithOpenAIMaxRetries(ec.OpenAI.MaxRetries),
			embedding.WithOpenAILogger(a.Logger),
		)
		inner, model = o, o.Model()
	default:
		return nil, fmt.Errorf("unknown embedder type %q", ec.Type)
	}

	if ec.Cache.Type != "redis" {
		return inner, nil
	}
	rc := ec.Cache.Redis
	client, err := cache.Connect(ctx, rc.Addr, os.Getenv(rc.PasswordEnv), rc.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return embedding.NewCachedAdapter(inner, cache.NewRedisCache(client, rc.TTL()), model, a.Logger), nil
}

func (a *App) newLLM() (ports.LLMService, error) {
	lc := a.Config.LLM
	switch lc.Type {
	case "ollama":
		return llm.NewOllamaLLMAdapter(lc.Ollama.BaseURL, lc.Ollama.Model, a.Logger), nil
	case "openai":
		key := lc.OpenAI.APIKey()
		if key == "" {
			return nil, fmt.Errorf("openai llm needs $%s", lc.OpenAI.APIKeyEnv)
		}
		return llm.NewOpenAIAdapter(llm.OpenAIConfig{
			APIKey:      key,
			Model:       lc.OpenAI.Model,
			BaseURL:     lc.OpenAI.BaseURL,
			Temperature: lc.OpenAI.Temperature,
			MaxTokens:   lc.OpenAI.MaxTokens,
			MaxRetries:  lc.OpenAI.MaxRetries,
			Logger:      a.Logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm type %q", lc.Type)
	}
}

// Server builds the HTTP API on top of the app.
func (a *App) Server() *apihttp.Server {
	opts := []apihttp.Option{
		apihttp.WithLogger(a.Logger),
		apihttp.WithMetricsHandler(a.Metrics.Handler()),
		apihttp.WithQueryTimeout(a.Config.QueryTimeout()),
		apihttp.WithUploadLimitMB(a.Config.Ingest.MaxUploadMB),
	}
	return apihttp.NewServer(a.Query, a.Ingest, a.Config.Ingest.Dir, a.Config.Server.Addr, append(opts, a.checks...)...)
}

// Watcher builds a use case that ingests files dropped into the ingest dir.
func (a *App) Watcher() (*usecases.WatchUseCase, error) {
	w, err := filewatcher.NewFSNotifyWatcher(a.extensions, a.Logger)
	if err != nil {
		return nil, err
	}
	return usecases.NewWatchUseCase(w, a.Ingest, a.Store, a.Config.Debounce(), a.Logger), nil
}

// Close releases stores and connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
