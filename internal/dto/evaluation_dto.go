package dto

import (
	"fmt"
	"mime/multipart"
	"time"

	"github.com/noah-isme/gema-evaluator/pkg/ai"
)

const (
	// NotAvailable is shown for any value the model did not provide.
	NotAvailable = "N/A"
	// NoFeedback is shown when the model returned no overall feedback.
	NoFeedback = "No detailed feedback available."
)

// EvaluationRequest is the multipart payload for an evaluation.
type EvaluationRequest struct {
	Region     string                `form:"region" json:"region" validate:"omitempty,max=64"`
	Model      string                `form:"model" json:"model" validate:"omitempty,max=128"`
	Assignment *multipart.FileHeader `form:"-" json:"-" validate:"required"`
	Criteria   *multipart.FileHeader `form:"-" json:"-" validate:"required"`
}

// EvaluationMetadata describes where and how an evaluation ran.
type EvaluationMetadata struct {
	ID               string        `json:"id"`
	Provider         string        `json:"provider"`
	Model            string        `json:"model"`
	Region           string        `json:"region,omitempty"`
	AssignmentFile   string        `json:"assignment_file"`
	CriteriaFile     string        `json:"criteria_file"`
	AssignmentFormat string        `json:"assignment_format"`
	CriteriaFormat   string        `json:"criteria_format"`
	Duration         time.Duration `json:"-"`
	DurationMillis   int64         `json:"duration_ms"`
	CompletedAt      time.Time     `json:"completed_at"`
}

// EvaluationResponse is returned to API clients and rendered on the page.
type EvaluationResponse struct {
	Metadata EvaluationMetadata  `json:"metadata"`
	Result   ai.EvaluationResult `json:"result"`
	View     EvaluationView      `json:"view"`
}

// CriterionView is one rubric row ready for display.
type CriterionView struct {
	Name        string `json:"name"`
	Score       string `json:"score"`
	Percentage  string `json:"percentage"`
	Feedback    string `json:"feedback"`
	Suggestions string `json:"suggestions"`
}

// EvaluationView holds plain-text display strings derived from an
// EvaluationResult. Model text keeps every character, including < and &.
type EvaluationView struct {
	TotalScore          string          `json:"total_score"`
	OverallGrade        string          `json:"overall_grade"`
	Criteria            []CriterionView `json:"criteria"`
	KeyStrengths        []string        `json:"key_strengths"`
	AreasForImprovement []string        `json:"areas_for_improvement"`
	OverallFeedback     string          `json:"overall_feedback"`
	Degraded            bool            `json:"degraded"`
}

// NewEvaluationView formats result for display. clean is applied to every
// piece of model-authored text; nil leaves text untouched. View strings are
// plain text, not HTML: anything that injects them into markup must escape them.
func NewEvaluationView(result ai.EvaluationResult, clean func(string) string) EvaluationView {
	if clean == nil {
		clean = func(s string) string { return s }
	}

	view := EvaluationView{
		TotalScore:          orNotAvailable(clean(result.TotalScore.String())),
		OverallGrade:        orNotAvailable(clean(result.OverallGrade)),
		Criteria:            make([]CriterionView, 0, len(result.CriterionBreakdown)),
		KeyStrengths:        cleanList(result.KeyStrengths, clean),
		AreasForImprovement: cleanList(result.AreasForImprovement, clean),
		OverallFeedback:     clean(result.OverallFeedback),
		Degraded:            result.Degraded,
	}
	if view.OverallFeedback == "" {
		view.OverallFeedback = NoFeedback
	}

	for _, criterion := range result.CriterionBreakdown {
		view.Criteria = append(view.Criteria, CriterionView{
			Name:        clean(criterion.Name),
			Score:       pointsText(criterion),
			Percentage:  percentageText(criterion),
			Feedback:    clean(criterion.SpecificFeedback),
			Suggestions: clean(criterion.ImprovementSuggestions),
		})
	}

	return view
}

func pointsText(c ai.Criterion) string {
	switch {
	case c.AwardedPoints != nil && c.MaxPoints != nil:
		return ai.FormatNumber(*c.AwardedPoints) + "/" + ai.FormatNumber(*c.MaxPoints)
	case c.AwardedPoints != nil:
		return ai.FormatNumber(*c.AwardedPoints)
	default:
		return NotAvailable
	}
}

func percentageText(c ai.Criterion) string {
	pct, ok := c.Percentage()
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", pct)
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func cleanList(items []string, clean func(string) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = clean(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// OptionsResponse lists the selectable targets for the active provider.
type OptionsResponse struct {
	Provider      string   `json:"provider"`
	Regions       []string `json:"regions"`
	Models        []string `json:"models"`
	DefaultRegion string   `json:"default_region,omitempty"`
	DefaultModel  string   `json:"default_model"`
	MaxUploadMB   int      `json:"max_upload_mb"`
}

// EvaluationCompletedEvent is published after every successful evaluation.
type EvaluationCompletedEvent struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Region      string    `json:"region,omitempty"`
	TotalScore  string    `json:"total_score"`
	Grade       string    `json:"grade"`
	Criteria    int       `json:"criteria"`
	Degraded    bool      `json:"degraded"`
	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}
