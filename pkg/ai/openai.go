package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig defines configuration options for the OpenAI invoker.
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Sampling SamplingParams
	Logger   zerolog.Logger
}

// OpenAIInvoker sends prompts to an OpenAI-compatible chat completion API.
type OpenAIInvoker struct {
	client   *openai.Client
	model    string
	sampling SamplingParams
	logger   zerolog.Logger
}

// NewOpenAIInvoker builds a new invoker using the provided configuration.
func NewOpenAIInvoker(cfg OpenAIConfig) (*OpenAIInvoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIInvoker{
		client:   openai.NewClientWithConfig(config),
		model:    cfg.Model,
		sampling: cfg.Sampling.orDefault(),
		logger:   cfg.Logger.With().Str("component", "openai_invoker").Logger(),
	}, nil
}

// Provider returns "openai".
func (o *OpenAIInvoker) Provider() string {
	return ProviderOpenAI
}

// Model returns the chat model name.
func (o *OpenAIInvoker) Model() string {
	return o.model
}

// Invoke sends the prompt as a single user message.
func (o *OpenAIInvoker) Invoke(ctx context.Context, prompt string) (resp RawResponse, err error) {
	ctx, inv := startInvocation(ctx, ProviderOpenAI, o.model, o.sampling)
	defer func() { inv.end(resp, err) }()

	request := openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   o.sampling.MaxTokens,
		Temperature: float32(o.sampling.Temperature),
		TopP:        float32(o.sampling.TopP),
		Stop:        o.sampling.StopSequences,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	out, err := o.client.CreateChatCompletion(ctx, request)
	if err != nil {
		o.logger.Warn().Err(err).Str("model", o.model).Msg("openai invoke failed")
		return RawResponse{}, &InvocationError{Provider: ProviderOpenAI, Model: o.model, Err: err}
	}

	resp = RawResponse{
		InputTokens:  int64(out.Usage.PromptTokens),
		OutputTokens: int64(out.Usage.CompletionTokens),
	}
	if len(out.Choices) > 0 {
		resp.Text = out.Choices[0].Message.Content
		resp.StopReason = string(out.Choices[0].FinishReason)
	}
	return resp, nil
}
