package handler

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluator/internal/dto"
	"github.com/noah-isme/gema-evaluator/internal/service"
)

//go:embed views/*.html
var viewsFS embed.FS

// NewViewEngine returns the template engine for the evaluation page.
func NewViewEngine() *html.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

// PageHandler serves the browser form and renders evaluation results.
type PageHandler struct {
	service service.EvaluationService
	title   string
	logger  zerolog.Logger
}

// NewPageHandler constructs a page handler.
func NewPageHandler(service service.EvaluationService, title string, logger zerolog.Logger) *PageHandler {
	if title == "" {
		title = "AI Assignment Evaluator"
	}
	return &PageHandler{
		service: service,
		title:   title,
		logger:  logger.With().Str("component", "page_handler").Logger(),
	}
}

// Register wires the page routes at the application root.
func (h *PageHandler) Register(router fiber.Router) {
	router.Get("/", h.index)
	router.Post("/evaluate", h.evaluate)
}

type pageData struct {
	Title          string
	Options        dto.OptionsResponse
	SelectedRegion string
	SelectedModel  string
	Evaluation     *dto.EvaluationResponse
	Error          string
}

func (h *PageHandler) index(c *fiber.Ctx) error {
	opts := h.service.Options()
	return c.Render("index", pageData{
		Title:          h.title,
		Options:        opts,
		SelectedRegion: opts.DefaultRegion,
		SelectedModel:  opts.DefaultModel,
	})
}

func (h *PageHandler) evaluate(c *fiber.Ctx) error {
	req := parseEvaluationRequest(c)
	opts := h.service.Options()

	data := pageData{
		Title:          h.title,
		Options:        opts,
		SelectedRegion: firstNonEmpty(req.Region, opts.DefaultRegion),
		SelectedModel:  firstNonEmpty(req.Model, opts.DefaultModel),
	}

	result, err := h.service.Evaluate(c.UserContext(), req)
	if err != nil {
		status, message := evaluationFailure(err)
		logger := requestLogger(h.logger, c)
		if status >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Int("status", status).Msg("page evaluation failed")
		} else {
			logger.Warn().Err(err).Int("status", status).Msg("page evaluation rejected")
		}
		data.Error = message
		return c.Status(status).Render("index", data)
	}

	data.Evaluation = &result
	return c.Render("index", data)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
