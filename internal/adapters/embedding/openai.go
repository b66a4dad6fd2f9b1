package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "text-embedding-3-small"

	// maxOpenAIBatch is the largest input array sent in one request.
	maxOpenAIBatch = 100
)

// OpenAIAdapter implements ports.EmbeddingService with the OpenAI embeddings API.
type OpenAIAdapter struct {
	client    openai.Client
	model     string
	dimension int
	logger    *slog.Logger
}

type openAIOptions struct {
	model      string
	dimension  int
	baseURL    string
	maxRetries int
	logger     *slog.Logger
}

// OpenAIOption configures an OpenAIAdapter.
type OpenAIOption func(*openAIOptions)

// WithOpenAIModel overrides the embedding model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *openAIOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithOpenAIDimension requests vectors of the given size. Zero keeps the model default.
func WithOpenAIDimension(dimension int) OpenAIOption {
	return func(o *openAIOptions) {
		o.dimension = dimension
	}
}

// WithOpenAIBaseURL points the client at a compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *openAIOptions) {
		o.baseURL = url
	}
}

// WithOpenAIMaxRetries sets the client retry budget.
func WithOpenAIMaxRetries(n int) OpenAIOption {
	return func(o *openAIOptions) {
		o.maxRetries = n
	}
}

// WithOpenAILogger sets the logger.
func WithOpenAILogger(logger *slog.Logger) OpenAIOption {
	return func(o *openAIOptions) {
		o.logger = logger
	}
}

// NewOpenAIAdapter creates an OpenAI embedding adapter.
func NewOpenAIAdapter(apiKey string, opts ...OpenAIOption) *OpenAIAdapter {
	o := openAIOptions{model: DefaultOpenAIModel, maxRetries: 2}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}

	return &OpenAIAdapter{
		client:    openai.NewClient(clientOpts...),
		model:     o.model,
		dimension: o.dimension,
		logger:    o.logger,
	}
}

// Model returns the embedding model name.
func (a *OpenAIAdapter) Model() string {
	return a.model
}

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts, splitting into requests of at most 100 inputs.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxOpenAIBatch {
		end := min(start+maxOpenAIBatch, len(texts))
		vecs, err := a.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (a *OpenAIAdapter) embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(a.model),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(texts[0])}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}
	}
	if a.dimension > 0 {
		params.Dimensions = openai.Int(int64(a.dimension))
	}

	resp, err := a.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("openai returned embedding index %d out of range", data.Index)
		}
		v := make([]float32, len(data.Embedding))
		for i, f := range data.Embedding {
			v[i] = float32(f)
		}
		vecs[data.Index] = v
	}

	a.logger.Debug("openai embeddings", "model", a.model, "texts", len(texts), "tokens", resp.Usage.TotalTokens)
	return vecs, nil
}
