package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluator/internal/service"
	"github.com/noah-isme/gema-evaluator/internal/utils"
)

// EvaluationHandler exposes the evaluation pipeline as a JSON API.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("/evaluations", h.evaluate)
	router.Get("/options", h.options)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	req := parseEvaluationRequest(c)

	result, err := h.service.Evaluate(c.UserContext(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	message := "evaluation completed"
	if result.Result.Degraded {
		message = "evaluation completed with unstructured output"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *EvaluationHandler) options(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "evaluation options", h.service.Options())
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	status, message := evaluationFailure(err)
	logger := requestLogger(h.logger, c)
	if status >= fiber.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("evaluation failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("evaluation rejected")
	}
	return utils.SendError(c, status, message)
}
