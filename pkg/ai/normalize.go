package ai

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/evaluation.schema.json
var evaluationSchema string

const evaluationSchemaURL = "evaluation.schema.json"

var knownFields = map[string]struct{}{
	"criterion_breakdown":   {},
	"total_score":           {},
	"overall_grade":         {},
	"overall_feedback":      {},
	"key_strengths":         {},
	"areas_for_improvement": {},
}

var defaultNormalizer = NewNormalizer()

// Normalize converts raw model output with the default (strict) normalizer.
func Normalize(raw string) EvaluationResult {
	return defaultNormalizer.Normalize(raw)
}

// Normalizer turns free-form model output into an EvaluationResult.
type Normalizer struct {
	schema  *jsonschema.Schema
	lenient bool
}

// NormalizerOption customises a Normalizer.
type NormalizerOption func(*Normalizer)

// WithLenientParsing strips Markdown code fences around the JSON before parsing.
func WithLenientParsing(enabled bool) NormalizerOption {
	return func(n *Normalizer) {
		n.lenient = enabled
	}
}

// NewNormalizer builds a normalizer around the embedded output schema.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		schema: jsonschema.MustCompileString(evaluationSchemaURL, evaluationSchema),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize never fails: output that is not a JSON object yields a degraded
// result carrying the raw text as overall feedback.
func (n *Normalizer) Normalize(raw string) EvaluationResult {
	candidate := raw
	if n.lenient {
		candidate = stripMarkdownFences(raw)
	}

	var document any
	if err := json.Unmarshal([]byte(candidate), &document); err != nil {
		return Degraded(raw)
	}
	fields, ok := document.(map[string]any)
	if !ok {
		return Degraded(raw)
	}

	result := EvaluationResult{
		CriterionBreakdown:  []Criterion{},
		KeyStrengths:        []string{},
		AreasForImprovement: []string{},
	}
	result.Warnings = append(result.Warnings, n.schemaWarnings(document)...)

	if items, ok := fields["criterion_breakdown"].([]any); ok {
		for idx, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				result.Warnings = append(result.Warnings, fmt.Sprintf("criterion_breakdown[%d] is not an object and was skipped", idx))
				continue
			}
			criterion, warnings := decodeCriterion(idx, entry)
			result.CriterionBreakdown = append(result.CriterionBreakdown, criterion)
			result.Warnings = append(result.Warnings, warnings...)
		}
	}

	switch v := fields["total_score"].(type) {
	case float64:
		result.TotalScore = NumberScore(v)
	case string:
		result.TotalScore = TextScore(v)
	}

	result.OverallGrade, _ = asString(fields["overall_grade"])
	result.OverallFeedback, _ = asString(fields["overall_feedback"])
	result.KeyStrengths = asStringList(fields["key_strengths"])
	result.AreasForImprovement = asStringList(fields["areas_for_improvement"])

	for key, value := range fields {
		if _, known := knownFields[key]; known {
			continue
		}
		if result.Extras == nil {
			result.Extras = make(map[string]any)
		}
		result.Extras[key] = value
	}

	return result
}

// Degraded builds the fallback result for output that could not be parsed.
func Degraded(raw string) EvaluationResult {
	return EvaluationResult{
		CriterionBreakdown:  []Criterion{},
		TotalScore:          TextScore(ScoreUndetermined),
		OverallFeedback:     raw,
		KeyStrengths:        []string{},
		AreasForImprovement: []string{},
		Degraded:            true,
	}
}

func decodeCriterion(idx int, entry map[string]any) (Criterion, []string) {
	var warnings []string
	criterion := Criterion{}

	criterion.Name, _ = asString(entry["name"])
	criterion.SpecificFeedback, _ = asString(entry["specific_feedback"])
	criterion.ImprovementSuggestions, _ = asString(entry["improvement_suggestions"])
	criterion.MaxPoints = asNumber(entry["max_points"])
	criterion.AwardedPoints = asNumber(entry["awarded_points"])

	if criterion.MaxPoints != nil && *criterion.MaxPoints < 0 {
		warnings = append(warnings, fmt.Sprintf("criterion_breakdown[%d]: negative max_points dropped", idx))
		criterion.MaxPoints = nil
	}
	if criterion.AwardedPoints != nil {
		awarded := *criterion.AwardedPoints
		if awarded < 0 {
			warnings = append(warnings, fmt.Sprintf("criterion_breakdown[%d]: awarded_points %s raised to 0", idx, FormatNumber(awarded)))
			awarded = 0
		}
		if criterion.MaxPoints != nil && awarded > *criterion.MaxPoints {
			warnings = append(warnings, fmt.Sprintf("criterion_breakdown[%d]: awarded_points %s capped at max_points %s", idx, FormatNumber(awarded), FormatNumber(*criterion.MaxPoints)))
			awarded = *criterion.MaxPoints
		}
		criterion.AwardedPoints = &awarded
	}

	return criterion, warnings
}

func (n *Normalizer) schemaWarnings(document any) []string {
	err := n.schema.Validate(document)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []string{err.Error()}
	}

	var warnings []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "/"
			}
			warnings = append(warnings, fmt.Sprintf("schema: %s: %s", location, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(validationErr)
	sort.Strings(warnings)

	return warnings
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return FormatNumber(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func asNumber(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}

func asStringList(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := asString(item); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		return []string{v}
	default:
		return []string{}
	}
}

// stripMarkdownFences removes a surrounding ```json ... ``` block.
func stripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		return ""
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
