package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Provider names accepted by the invoker factory.
const (
	ProviderBedrock   = "bedrock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ScoreUndetermined replaces the total score when the model output could not be parsed.
const ScoreUndetermined = "Unable to parse exact score"

// Invoker sends a prompt to a hosted model and returns its completion text.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (RawResponse, error)
	Provider() string
	Model() string
}

// RawResponse is the opaque completion produced by the remote model.
type RawResponse struct {
	Text         string
	StopReason   string
	InputTokens  int64
	OutputTokens int64
}

// Criterion is one rubric dimension as scored by the model.
type Criterion struct {
	Name                   string   `json:"name"`
	MaxPoints              *float64 `json:"max_points"`
	AwardedPoints          *float64 `json:"awarded_points"`
	SpecificFeedback       string   `json:"specific_feedback"`
	ImprovementSuggestions string   `json:"improvement_suggestions"`
}

// Percentage returns awarded/max as a percentage. It reports false when either
// value is missing or max_points is zero.
func (c Criterion) Percentage() (float64, bool) {
	if c.MaxPoints == nil || c.AwardedPoints == nil || *c.MaxPoints == 0 {
		return 0, false
	}
	return *c.AwardedPoints / *c.MaxPoints * 100, true
}

// EvaluationResult is the normalized evaluation. It is built once per request
// and not modified afterwards.
type EvaluationResult struct {
	CriterionBreakdown  []Criterion    `json:"criterion_breakdown"`
	TotalScore          Score          `json:"total_score"`
	OverallGrade        string         `json:"overall_grade"`
	OverallFeedback     string         `json:"overall_feedback"`
	KeyStrengths        []string       `json:"key_strengths"`
	AreasForImprovement []string       `json:"areas_for_improvement"`
	Extras              map[string]any `json:"extras,omitempty"`
	Warnings            []string       `json:"warnings,omitempty"`
	Degraded            bool           `json:"degraded"`
}

// Score holds a total score that the model may report as a number or as free text.
type Score struct {
	number *float64
	text   string
}

// NumberScore returns a numeric score.
func NumberScore(v float64) Score {
	return Score{number: &v}
}

// TextScore returns a textual score.
func TextScore(s string) Score {
	return Score{text: s}
}

// IsZero reports whether the score is absent.
func (s Score) IsZero() bool {
	return s.number == nil && s.text == ""
}

// Number returns the numeric value, if the score is numeric.
func (s Score) Number() (float64, bool) {
	if s.number == nil {
		return 0, false
	}
	return *s.number, true
}

// String renders the score for display; absent scores render as "".
func (s Score) String() string {
	if s.number != nil {
		return FormatNumber(*s.number)
	}
	return s.text
}

func (s Score) MarshalJSON() ([]byte, error) {
	switch {
	case s.number != nil:
		return json.Marshal(*s.number)
	case s.text != "":
		return json.Marshal(s.text)
	default:
		return []byte("null"), nil
	}
}

func (s *Score) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*s = Score{}
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*s = TextScore(text)
		return nil
	default:
		var number float64
		if err := json.Unmarshal(trimmed, &number); err != nil {
			return fmt.Errorf("score must be a number or string: %w", err)
		}
		*s = NumberScore(number)
		return nil
	}
}

// FormatNumber renders a point value without a trailing ".0" for whole numbers.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
