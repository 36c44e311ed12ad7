package ai

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "invocation_duration_seconds",
		Help:      "Duration of model invocation requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"provider", "model"})

	invocationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "invocation_failures_total",
		Help:      "Number of failed model invocations",
	}, []string{"provider", "model"})

	invocationTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "tokens_total",
		Help:      "Tokens reported by the model provider",
	}, []string{"provider", "model", "direction"})
)

var tracer = otel.Tracer("github.com/noah-isme/gema-evaluator/pkg/ai")

// invocation wraps a single remote call with a GenAI span and metrics.
type invocation struct {
	span     trace.Span
	provider string
	model    string
	start    time.Time
}

func startInvocation(ctx context.Context, provider, model string, params SamplingParams) (context.Context, *invocation) {
	ctx, span := tracer.Start(ctx, "chat "+model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", provider),
			attribute.String("gen_ai.request.model", model),
			attribute.Int("gen_ai.request.max_tokens", params.MaxTokens),
			attribute.Float64("gen_ai.request.temperature", params.Temperature),
			attribute.Float64("gen_ai.request.top_p", params.TopP),
		),
	)
	return ctx, &invocation{span: span, provider: provider, model: model, start: time.Now()}
}

func cloudRegion(region string) attribute.KeyValue {
	return attribute.String("cloud.region", region)
}

func (i *invocation) end(resp RawResponse, err error) {
	defer i.span.End()

	invocationDuration.WithLabelValues(i.provider, i.model).Observe(time.Since(i.start).Seconds())
	if err != nil {
		invocationFailures.WithLabelValues(i.provider, i.model).Inc()
		i.span.RecordError(err)
		i.span.SetStatus(codes.Error, err.Error())
		return
	}

	if resp.InputTokens > 0 {
		invocationTokens.WithLabelValues(i.provider, i.model, "input").Add(float64(resp.InputTokens))
	}
	if resp.OutputTokens > 0 {
		invocationTokens.WithLabelValues(i.provider, i.model, "output").Add(float64(resp.OutputTokens))
	}

	i.span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.OutputTokens),
		attribute.Int("gen_ai.response.length", len(resp.Text)),
	)
	if resp.StopReason != "" {
		i.span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{resp.StopReason}))
	}
	i.span.SetStatus(codes.Ok, "completed")
}
