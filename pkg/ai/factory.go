package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Target selects where an evaluation runs.
type Target struct {
	Region string
	Model  string
}

// InvokerFactory resolves an Invoker for a target.
type InvokerFactory interface {
	NewInvoker(ctx context.Context, target Target) (Invoker, error)
}

// FactoryFunc adapts a function to InvokerFactory.
type FactoryFunc func(ctx context.Context, target Target) (Invoker, error)

// NewInvoker calls f.
func (f FactoryFunc) NewInvoker(ctx context.Context, target Target) (Invoker, error) {
	return f(ctx, target)
}

// FactoryConfig carries provider credentials and shared settings.
type FactoryConfig struct {
	Provider         string
	Sampling         SamplingParams
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	Logger           zerolog.Logger
}

// Factory builds invokers for the configured provider and caches them per target.
type Factory struct {
	cfg FactoryConfig

	mu       sync.Mutex
	invokers map[Target]Invoker
}

// NewFactory validates the provider name and returns a Factory.
func NewFactory(cfg FactoryConfig) (*Factory, error) {
	switch cfg.Provider {
	case ProviderBedrock, ProviderOpenAI, ProviderAnthropic:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	cfg.Sampling = cfg.Sampling.orDefault()
	return &Factory{cfg: cfg, invokers: make(map[Target]Invoker)}, nil
}

// Provider returns the configured provider name.
func (f *Factory) Provider() string {
	return f.cfg.Provider
}

// NewInvoker returns the cached invoker for target or builds one.
func (f *Factory) NewInvoker(ctx context.Context, target Target) (Invoker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if inv, ok := f.invokers[target]; ok {
		return inv, nil
	}

	inv, err := f.build(ctx, target)
	if err != nil {
		return nil, err
	}
	f.invokers[target] = inv
	return inv, nil
}

func (f *Factory) build(ctx context.Context, target Target) (Invoker, error) {
	switch f.cfg.Provider {
	case ProviderBedrock:
		return NewBedrockInvoker(ctx, BedrockConfig{
			Region:   target.Region,
			ModelID:  target.Model,
			Sampling: f.cfg.Sampling,
			Logger:   f.cfg.Logger,
		})
	case ProviderOpenAI:
		return NewOpenAIInvoker(OpenAIConfig{
			APIKey:   f.cfg.OpenAIAPIKey,
			BaseURL:  f.cfg.OpenAIBaseURL,
			Model:    target.Model,
			Sampling: f.cfg.Sampling,
			Logger:   f.cfg.Logger,
		})
	case ProviderAnthropic:
		return NewAnthropicInvoker(AnthropicConfig{
			APIKey:   f.cfg.AnthropicAPIKey,
			BaseURL:  f.cfg.AnthropicBaseURL,
			Model:    target.Model,
			Sampling: f.cfg.Sampling,
			Logger:   f.cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, f.cfg.Provider)
	}
}
