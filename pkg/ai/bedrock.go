package ai

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rs/zerolog"
)

// BedrockRuntimeAPI is the subset of the Bedrock runtime client used here.
type BedrockRuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockConfig configures a BedrockInvoker. Client is optional; when nil the
// AWS default credential chain is resolved for Region.
type BedrockConfig struct {
	Region   string
	ModelID  string
	Sampling SamplingParams
	Client   BedrockRuntimeAPI
	Logger   zerolog.Logger
}

// BedrockInvoker sends prompts to a model hosted on Amazon Bedrock.
type BedrockInvoker struct {
	client   BedrockRuntimeAPI
	region   string
	modelID  string
	codec    bedrockCodec
	sampling SamplingParams
	logger   zerolog.Logger
}

// NewBedrockInvoker builds an invoker for cfg.ModelID in cfg.Region.
func NewBedrockInvoker(ctx context.Context, cfg BedrockConfig) (*BedrockInvoker, error) {
	codec, err := codecFor(cfg.ModelID)
	if err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock region is required")
	}

	client := cfg.Client
	if client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
		)
		if err != nil {
			return nil, &InvocationError{Provider: ProviderBedrock, Model: cfg.ModelID, Err: fmt.Errorf("load aws config: %w", err)}
		}
		client = bedrockruntime.NewFromConfig(awsCfg)
	}

	return &BedrockInvoker{
		client:   client,
		region:   cfg.Region,
		modelID:  cfg.ModelID,
		codec:    codec,
		sampling: cfg.Sampling.orDefault(),
		logger:   cfg.Logger.With().Str("component", "bedrock_invoker").Str("region", cfg.Region).Logger(),
	}, nil
}

// Provider returns "bedrock".
func (b *BedrockInvoker) Provider() string {
	return ProviderBedrock
}

// Model returns the Bedrock model identifier.
func (b *BedrockInvoker) Model() string {
	return b.modelID
}

// Invoke sends exactly one InvokeModel request.
func (b *BedrockInvoker) Invoke(ctx context.Context, prompt string) (resp RawResponse, err error) {
	ctx, inv := startInvocation(ctx, ProviderBedrock, b.modelID, b.sampling)
	defer func() { inv.end(resp, err) }()
	inv.span.SetAttributes(cloudRegion(b.region))

	body, err := b.codec.encode(prompt, b.sampling)
	if err != nil {
		return RawResponse{}, &InvocationError{Provider: ProviderBedrock, Model: b.modelID, Err: err}
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		b.logger.Warn().Err(err).Str("model", b.modelID).Msg("bedrock invoke failed")
		return RawResponse{}, &InvocationError{Provider: ProviderBedrock, Model: b.modelID, Err: err}
	}

	resp, err = b.codec.decode(out.Body)
	if err != nil {
		return RawResponse{}, &InvocationError{Provider: ProviderBedrock, Model: b.modelID, Err: err}
	}

	b.logger.Debug().
		Str("model", b.modelID).
		Str("vendor", b.codec.vendor()).
		Int("completion_chars", len(resp.Text)).
		Msg("bedrock invoke completed")

	return resp, nil
}
