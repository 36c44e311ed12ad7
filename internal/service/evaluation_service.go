package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-evaluator/internal/dto"
	"github.com/noah-isme/gema-evaluator/internal/middleware"
	"github.com/noah-isme/gema-evaluator/internal/observability"
	"github.com/noah-isme/gema-evaluator/pkg/ai"
	"github.com/noah-isme/gema-evaluator/pkg/document"
)

var (
	// ErrMissingDocument indicates the assignment or criteria file was not supplied.
	ErrMissingDocument = errors.New("both assignment and criteria documents are required")
	// ErrUnsupportedRegion indicates the region is not in the configured list.
	ErrUnsupportedRegion = errors.New("region is not supported")
	// ErrUnsupportedModel indicates the model is not in the configured list.
	ErrUnsupportedModel = errors.New("model is not supported")
	// ErrDocumentTooLarge indicates a document exceeded the upload limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum allowed size")
	// ErrEmptyContent indicates a document contained no extractable text.
	ErrEmptyContent = errors.New("document contains no readable text")
)

// EvaluationService runs the extract, prompt, invoke and normalize pipeline.
type EvaluationService interface {
	Evaluate(ctx context.Context, req dto.EvaluationRequest) (dto.EvaluationResponse, error)
	Options() dto.OptionsResponse
}

// EvaluationConfig lists the selectable targets and limits.
type EvaluationConfig struct {
	Provider       string
	Regions        []string
	Models         []string
	DefaultRegion  string
	DefaultModel   string
	MaxUploadBytes int64
}

// maxTextExpansion bounds how far a compressed document may grow when read.
const maxTextExpansion = 8

type evaluationService struct {
	cfg        EvaluationConfig
	factory    ai.InvokerFactory
	normalizer *ai.Normalizer
	publisher  EventPublisher
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewEvaluationService constructs an evaluation service.
func NewEvaluationService(cfg EvaluationConfig, factory ai.InvokerFactory, normalizer *ai.Normalizer, publisher EventPublisher, validate *validator.Validate, logger zerolog.Logger) EvaluationService {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if normalizer == nil {
		normalizer = ai.NewNormalizer()
	}
	if publisher == nil {
		publisher = NopEventPublisher{}
	}
	if validate == nil {
		validate = validator.New()
	}

	return &evaluationService{
		cfg:        cfg,
		factory:    factory,
		normalizer: normalizer,
		publisher:  publisher,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "evaluation_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/gema-evaluator/internal/service/evaluation"),
		now:        time.Now,
	}
}

func (s *evaluationService) Options() dto.OptionsResponse {
	regions := s.cfg.Regions
	if regions == nil {
		regions = []string{}
	}
	return dto.OptionsResponse{
		Provider:      s.cfg.Provider,
		Regions:       regions,
		Models:        s.cfg.Models,
		DefaultRegion: s.cfg.DefaultRegion,
		DefaultModel:  s.cfg.DefaultModel,
		MaxUploadMB:   int(s.cfg.MaxUploadBytes >> 20),
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, req dto.EvaluationRequest) (resp dto.EvaluationResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.run")
	defer span.End()

	start := s.now()
	logger := s.logger.With().Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).Logger()

	outcome := "success"
	defer func() {
		if err != nil {
			outcome = outcomeFor(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, outcome)
		}
		observability.Evaluations().WithLabelValues(outcome).Inc()
		observability.EvaluationDuration().Observe(s.now().Sub(start).Seconds())
	}()

	target, err := s.resolveTarget(req)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	span.SetAttributes(
		attribute.String("evaluation.provider", s.cfg.Provider),
		attribute.String("evaluation.model", target.Model),
		attribute.String("evaluation.region", target.Region),
	)

	criteria, criteriaFormat, err := s.extract(ctx, req.Criteria, "criteria")
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	assignment, assignmentFormat, err := s.extract(ctx, req.Assignment, "assignment")
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	invoker, err := s.factory.NewInvoker(ctx, target)
	if err != nil {
		if errors.Is(err, ai.ErrUnsupportedModel) {
			return dto.EvaluationResponse{}, fmt.Errorf("%w: %s", ErrUnsupportedModel, target.Model)
		}
		return dto.EvaluationResponse{}, err
	}

	prompt := ai.BuildPrompt(assignment, criteria)
	raw, err := invoker.Invoke(ctx, prompt)
	if err != nil {
		logger.Error().Err(err).Str("model", target.Model).Msg("model invocation failed")
		return dto.EvaluationResponse{}, err
	}

	result := s.normalizer.Normalize(raw.Text)
	if result.Degraded {
		outcome = "degraded"
		logger.Warn().Str("model", target.Model).Int("completion_chars", len(raw.Text)).Msg("model output was not structured, showing raw text")
	}
	for _, warning := range result.Warnings {
		logger.Debug().Str("warning", warning).Msg("normalization warning")
	}

	completedAt := s.now().UTC()
	duration := completedAt.Sub(start.UTC())
	resp = dto.EvaluationResponse{
		Metadata: dto.EvaluationMetadata{
			ID:               uuid.NewString(),
			Provider:         invoker.Provider(),
			Model:            invoker.Model(),
			Region:           target.Region,
			AssignmentFile:   sanitizeFileName(req.Assignment.Filename),
			CriteriaFile:     sanitizeFileName(req.Criteria.Filename),
			AssignmentFormat: string(assignmentFormat),
			CriteriaFormat:   string(criteriaFormat),
			Duration:         duration,
			DurationMillis:   duration.Milliseconds(),
			CompletedAt:      completedAt,
		},
		Result: result,
		View:   dto.NewEvaluationView(result, s.clean),
	}

	event := dto.EvaluationCompletedEvent{
		ID:          resp.Metadata.ID,
		Provider:    resp.Metadata.Provider,
		Model:       resp.Metadata.Model,
		Region:      resp.Metadata.Region,
		TotalScore:  resp.View.TotalScore,
		Grade:       resp.View.OverallGrade,
		Criteria:    len(result.CriterionBreakdown),
		Degraded:    result.Degraded,
		DurationMs:  resp.Metadata.DurationMillis,
		CompletedAt: completedAt,
	}
	if pubErr := s.publisher.PublishEvaluation(ctx, event); pubErr != nil {
		observability.EventPublishErrors().Inc()
		logger.Warn().Err(pubErr).Str("evaluation_id", event.ID).Msg("failed to publish evaluation event")
	}

	logger.Info().
		Str("evaluation_id", resp.Metadata.ID).
		Str("model", target.Model).
		Bool("degraded", result.Degraded).
		Int("criteria", len(result.CriterionBreakdown)).
		Dur("duration", duration).
		Msg("evaluation completed")

	return resp, nil
}

func (s *evaluationService) resolveTarget(req dto.EvaluationRequest) (ai.Target, error) {
	if req.Assignment == nil || req.Criteria == nil {
		return ai.Target{}, ErrMissingDocument
	}
	if err := s.validator.Struct(req); err != nil {
		return ai.Target{}, err
	}

	target := ai.Target{
		Region: strings.TrimSpace(req.Region),
		Model:  strings.TrimSpace(req.Model),
	}
	if target.Model == "" {
		target.Model = s.cfg.DefaultModel
	}
	if !slices.Contains(s.cfg.Models, target.Model) {
		return ai.Target{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, target.Model)
	}

	if len(s.cfg.Regions) == 0 {
		target.Region = ""
		return target, nil
	}
	if target.Region == "" {
		target.Region = s.cfg.DefaultRegion
	}
	if !slices.Contains(s.cfg.Regions, target.Region) {
		return ai.Target{}, fmt.Errorf("%w: %q", ErrUnsupportedRegion, target.Region)
	}
	return target, nil
}

// extract reads and converts one uploaded document. Whitespace-only text is
// rejected so that no remote call is made for an empty document.
func (s *evaluationService) extract(ctx context.Context, file *multipart.FileHeader, role string) (string, document.Format, error) {
	_, span := s.tracer.Start(ctx, "evaluation.extract", trace.WithAttributes(
		attribute.String("document.role", role),
		attribute.String("document.name", sanitizeFileName(file.Filename)),
		attribute.Int64("document.size", file.Size),
	))
	defer span.End()

	format, err := document.FormatFor(file.Header.Get("Content-Type"), file.Filename)
	if err != nil {
		span.RecordError(err)
		return "", "", err
	}
	span.SetAttributes(attribute.String("document.format", string(format)))

	data, err := s.readUpload(file)
	if err != nil {
		span.RecordError(err)
		return "", format, fmt.Errorf("%s: %w", role, err)
	}

	start := time.Now()
	text, err := document.Extract(data, format, document.WithMaxTextBytes(maxTextExpansion*s.cfg.MaxUploadBytes))
	observability.ExtractionDuration().WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ExtractionFailures().WithLabelValues(string(format)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return "", format, err
	}

	if strings.TrimSpace(text) == "" {
		span.SetStatus(codes.Error, "empty content")
		return "", format, fmt.Errorf("%w: %s", ErrEmptyContent, role)
	}

	span.SetAttributes(attribute.Int("document.text_chars", len(text)))
	return text, format, nil
}

func (s *evaluationService) readUpload(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > s.cfg.MaxUploadBytes {
		return nil, ErrDocumentTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.cfg.MaxUploadBytes+1)); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(buf.Len()) > s.cfg.MaxUploadBytes {
		return nil, ErrDocumentTooLarge
	}
	return buf.Bytes(), nil
}

// clean returns model-authored text as plain text, trimmed. The text is
// escaped before the strict policy runs, so nothing that merely looks like a
// tag is dropped; the renderer escapes it again on output.
func (s *evaluationService) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(html.EscapeString(text))))
}

func outcomeFor(err error) string {
	var parseErr *document.ParseError
	var invocationErr *ai.InvocationError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrMissingDocument), errors.Is(err, ErrUnsupportedRegion),
		errors.Is(err, ErrUnsupportedModel), errors.As(err, &validationErrs):
		return "invalid"
	case errors.Is(err, ErrDocumentTooLarge), errors.Is(err, document.ErrTextTooLarge):
		return "too_large"
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.Is(err, ErrEmptyContent):
		return "empty"
	case errors.As(err, &invocationErr):
		return "invocation_error"
	default:
		return "error"
	}
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return "document"
	}
	return name
}
