package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// AnthropicConfig holds configuration for the Anthropic Messages invoker.
type AnthropicConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Sampling SamplingParams
	Logger   zerolog.Logger
}

// AnthropicInvoker sends prompts to the Anthropic Messages API.
type AnthropicInvoker struct {
	client   anthropic.Client
	model    string
	sampling SamplingParams
	logger   zerolog.Logger
}

// NewAnthropicInvoker constructs a new invoker.
func NewAnthropicInvoker(cfg AnthropicConfig) (*AnthropicInvoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicInvoker{
		client:   anthropic.NewClient(opts...),
		model:    cfg.Model,
		sampling: cfg.Sampling.orDefault(),
		logger:   cfg.Logger.With().Str("component", "anthropic_invoker").Logger(),
	}, nil
}

// Provider returns "anthropic".
func (a *AnthropicInvoker) Provider() string {
	return ProviderAnthropic
}

// Model returns the model name.
func (a *AnthropicInvoker) Model() string {
	return a.model
}

// Invoke sends the prompt as one user turn. Newer models reject temperature
// and top_p together, so only temperature is sent.
func (a *AnthropicInvoker) Invoke(ctx context.Context, prompt string) (resp RawResponse, err error) {
	ctx, inv := startInvocation(ctx, ProviderAnthropic, a.model, a.sampling)
	defer func() { inv.end(resp, err) }()

	stops := make([]string, 0, len(a.sampling.StopSequences))
	for _, s := range a.sampling.StopSequences {
		if strings.TrimSpace(s) != "" {
			stops = append(stops, s)
		}
	}

	out, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:         anthropic.Model(a.model),
		MaxTokens:     int64(a.sampling.MaxTokens),
		Temperature:   anthropic.Float(a.sampling.Temperature),
		StopSequences: stops,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("model", a.model).Msg("anthropic invoke failed")
		return RawResponse{}, &InvocationError{Provider: ProviderAnthropic, Model: a.model, Err: err}
	}

	var text strings.Builder
	for _, block := range out.Content {
		text.WriteString(block.Text)
	}

	return RawResponse{
		Text:         text.String(),
		StopReason:   string(out.StopReason),
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}, nil
}
