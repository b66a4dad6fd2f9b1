package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
)

// DefaultOpenAIModel is used when no chat model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIAdapter implements ports.LLMService with OpenAI chat completions.
type OpenAIAdapter struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// OpenAIConfig configures an OpenAIAdapter. Zero values use API defaults.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Logger      *slog.Logger
}

// NewOpenAIAdapter creates an OpenAI completion adapter.
func NewOpenAIAdapter(cfg OpenAIConfig) *OpenAIAdapter {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIAdapter{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

func (a *OpenAIAdapter) params(prompt string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if a.temperature > 0 {
		params.Temperature = openai.Float(a.temperature)
	}
	if a.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(a.maxTokens))
	}
	return params
}

// Generate returns the first choice of a chat completion.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := a.client.Chat.Completions.New(ctx, a.params(prompt))
	if err != nil {
		return "", describeAPIError(err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	a.logger.Debug("openai completion", "model", completion.Model, "tokens", completion.Usage.TotalTokens)
	return completion.Choices[0].Message.Content, nil
}

// GenerateStream streams chat completion deltas.
func (a *OpenAIAdapter) GenerateStream(ctx context.Context, prompt string) (<-chan ports.StreamToken, error) {
	stream := a.client.Chat.Completions.NewStreaming(ctx, a.params(prompt))
	ch := make(chan ports.StreamToken, 100)

	go func() {
		defer close(ch)
		defer stream.Close()

		send := func(tok ports.StreamToken) bool {
			select {
			case ch <- tok:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				if !send(ports.StreamToken{Content: content}) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			send(ports.StreamToken{Done: true, Error: describeAPIError(err)})
			return
		}
		send(ports.StreamToken{Done: true})
	}()

	return ch, nil
}

func describeAPIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai status %d: %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("openai: %w", err)
}
