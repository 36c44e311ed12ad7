package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-evaluator/pkg/ai"
)

func TestIndexRendersForm(t *testing.T) {
	app := newTestApp(t, &stubInvoker{})

	status, body := doHTML(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, fiber.StatusOK, status)

	assert.Contains(t, body, `<form method="post" action="/evaluate" enctype="multipart/form-data"`)
	assert.Contains(t, body, `name="assignment"`)
	assert.Contains(t, body, `name="criteria"`)
	assert.Contains(t, body, `<option value="us-east-1" selected>us-east-1</option>`)
	assert.Contains(t, body, `<option value="amazon.titan-text-express-v1">`)
	assert.NotContains(t, body, `id="results"`)
}

func TestPageShowsResults(t *testing.T) {
	app := newTestApp(t, &stubInvoker{text: gradedResponse})

	status, body := doHTML(t, app, multipartRequest(t, "/evaluate",
		map[string]string{"model": "anthropic.claude-v2:1"}, bothDocuments()...))
	require.Equal(t, fiber.StatusOK, status)

	assert.Contains(t, body, `<span id="total-score">90</span>`)
	assert.Contains(t, body, `<span id="overall-grade">A-</span>`)
	assert.Contains(t, body, `<summary>Grammar</summary>`)
	assert.Contains(t, body, `<strong class="criterion-score">18/20</strong>`)
	assert.Contains(t, body, `<strong class="criterion-percentage">90.0%</strong>`)
	assert.Contains(t, body, `<li>clear thesis</li>`)
	assert.Contains(t, body, `<li>citations</li>`)
	assert.Contains(t, body, `Strong work.`)
}

func TestPageShowsRawTextWhenDegraded(t *testing.T) {
	app := newTestApp(t, &stubInvoker{text: "Sorry, I cannot evaluate this."})

	status, body := doHTML(t, app, multipartRequest(t, "/evaluate", nil, bothDocuments()...))
	require.Equal(t, fiber.StatusOK, status)

	assert.Contains(t, body, "did not return a structured evaluation")
	assert.Contains(t, body, `<span id="total-score">`+ai.ScoreUndetermined+`</span>`)
	assert.Contains(t, body, `<p class="feedback" id="overall-feedback">Sorry, I cannot evaluate this.</p>`)
}

func TestPageShowsErrorMessage(t *testing.T) {
	invoker := &stubInvoker{}
	app := newTestApp(t, invoker)

	status, body := doHTML(t, app, multipartRequest(t, "/evaluate", nil, bothDocuments()[:1]...))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, `role="alert"`)
	assert.Contains(t, body, "Please upload both the assignment and the evaluation criteria.")
	assert.Equal(t, 0, invoker.calls)
}

func TestPageEscapesModelMarkup(t *testing.T) {
	app := newTestApp(t, &stubInvoker{text: `{"criterion_breakdown":[],"total_score":"<img src=x onerror=alert(1)>","overall_grade":"B","overall_feedback":"<script>alert(1)</script>Nice <b>work</b>"}`})

	status, body := doHTML(t, app, multipartRequest(t, "/evaluate", nil, bothDocuments()...))
	require.Equal(t, fiber.StatusOK, status)

	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.NotContains(t, body, "<img src=x")
	assert.NotContains(t, body, "<b>work</b>")
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;Nice &lt;b&gt;work&lt;/b&gt;")
	assert.Contains(t, body, `<span id="total-score">&lt;img src=x onerror=alert(1)&gt;</span>`)
}

func TestPageShowsDegradedTextVerbatim(t *testing.T) {
	app := newTestApp(t, &stubInvoker{text: "Use List<String> instead of raw types; if a<b then swap"})

	status, body := doHTML(t, app, multipartRequest(t, "/evaluate", nil, bothDocuments()...))
	require.Equal(t, fiber.StatusOK, status)

	assert.Contains(t, body, `<p class="feedback" id="overall-feedback">Use List&lt;String&gt; instead of raw types; if a&lt;b then swap</p>`)
}
