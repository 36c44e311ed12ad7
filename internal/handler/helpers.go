package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluator/internal/dto"
	"github.com/noah-isme/gema-evaluator/internal/middleware"
	"github.com/noah-isme/gema-evaluator/internal/service"
	"github.com/noah-isme/gema-evaluator/pkg/ai"
	"github.com/noah-isme/gema-evaluator/pkg/document"
)

// Multipart field names shared by the page form and the JSON API.
const (
	fieldAssignment = "assignment"
	fieldCriteria   = "criteria"
	fieldRegion     = "region"
	fieldModel      = "model"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// parseEvaluationRequest reads the multipart form. Missing files stay nil so
// that the service reports them uniformly.
func parseEvaluationRequest(c *fiber.Ctx) dto.EvaluationRequest {
	req := dto.EvaluationRequest{
		Region: strings.TrimSpace(c.FormValue(fieldRegion)),
		Model:  strings.TrimSpace(c.FormValue(fieldModel)),
	}
	if file, err := c.FormFile(fieldAssignment); err == nil {
		req.Assignment = file
	}
	if file, err := c.FormFile(fieldCriteria); err == nil {
		req.Criteria = file
	}
	return req
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// evaluationFailure maps a pipeline error to an HTTP status and a message
// safe to show to the user.
func evaluationFailure(err error) (int, string) {
	var parseErr *document.ParseError
	var invocationErr *ai.InvocationError

	switch {
	case errors.Is(err, service.ErrMissingDocument):
		return fiber.StatusBadRequest, "Please upload both the assignment and the evaluation criteria."
	case errors.Is(err, service.ErrUnsupportedRegion):
		return fiber.StatusBadRequest, "The selected region is not available."
	case errors.Is(err, service.ErrUnsupportedModel):
		return fiber.StatusBadRequest, "The selected model is not available."
	case isValidationError(err):
		return fiber.StatusBadRequest, "The evaluation request is invalid."
	case errors.Is(err, service.ErrDocumentTooLarge), errors.Is(err, document.ErrTextTooLarge):
		return fiber.StatusRequestEntityTooLarge, "One of the documents is larger than the upload limit."
	case errors.Is(err, service.ErrEmptyContent):
		return fiber.StatusUnprocessableEntity, "One of the documents contains no readable text."
	case errors.Is(err, document.ErrUnsupportedFormat):
		return fiber.StatusUnprocessableEntity, "Only PDF and DOCX documents are supported."
	case errors.As(err, &parseErr):
		return fiber.StatusUnprocessableEntity, "One of the documents could not be read. Please check that it is a valid " + formatLabel(parseErr.Format) + " file."
	case errors.As(err, &invocationErr):
		return fiber.StatusBadGateway, "The evaluation model could not be reached. Please try again later."
	default:
		return fiber.StatusInternalServerError, "The evaluation could not be completed."
	}
}

func formatLabel(f document.Format) string {
	switch f {
	case document.FormatPDF:
		return "PDF"
	case document.FormatDOCX:
		return "DOCX"
	default:
		return "PDF or DOCX"
	}
}
