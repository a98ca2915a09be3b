package http

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"minidash/internal/analytics"
	"minidash/internal/ingest"
	"minidash/internal/metrics"
	"minidash/internal/timeframe"
)

// maxParseInputBytes bounds pasted input. It stays below fiber's default
// 4 MB body limit so oversized text gets this handler's error envelope.
const maxParseInputBytes = 2 << 20

// ParseRequest is the body of POST /api/parse
type ParseRequest struct {
	Text  string `json:"text" form:"text"`
	Range string `json:"range" form:"range" validate:"omitempty,oneof=30 60 90 30d 60d 90d"`
}

// ParseCreateAction parses pasted CSV or JSON and returns the rows with a dashboard.
// A text/plain or text/csv body is taken verbatim with the range from the query string.
func (h *Handlers) ParseCreateAction(ctx *cartridge.Context) error {
	var req ParseRequest
	contentType := strings.ToLower(ctx.Get(fiber.HeaderContentType))
	if strings.HasPrefix(contentType, "text/") {
		req.Text = string(ctx.Body())
		req.Range = ctx.Query("range")
	} else if err := ctx.BodyParser(&req); err != nil {
		ctx.Logger.Debug("Invalid parse request body", slog.Any("error", err))
		metrics.ParseErrorsTotal.WithLabelValues("invalid_body").Inc()
		return respondError(ctx, fiber.StatusBadRequest, errors.New("Invalid request body"))
	}

	if err := h.validate.Struct(req); err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("validation").Inc()
		return respondError(ctx, fiber.StatusBadRequest, validationMessage(err))
	}

	if len(req.Text) > maxParseInputBytes {
		metrics.ParseErrorsTotal.WithLabelValues("too_large").Inc()
		return respondError(ctx, fiber.StatusBadRequest,
			fmt.Errorf("text exceeds the maximum size of %d bytes", maxParseInputBytes))
	}

	size, err := timeframe.ParseRangeSize(req.Range)
	if err != nil {
		return respondError(ctx, fiber.StatusBadRequest, err)
	}

	result, err := ingest.Parse(req.Text)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("malformed").Inc()
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"ok":     false,
			"format": result.Format,
			"error":  err.Error(),
		})
	}

	if len(result.Rows) == 0 {
		metrics.ParseErrorsTotal.WithLabelValues("no_rows").Inc()
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"ok":     false,
			"format": result.Format,
			"error":  errNoRows.Error(),
		})
	}

	metrics.ParsedRowsTotal.WithLabelValues(string(result.Format)).Add(float64(len(result.Rows)))
	ctx.Logger.Debug("Parsed pasted input",
		slog.String("format", string(result.Format)),
		slog.Int("rows", len(result.Rows)))

	return ctx.JSON(fiber.Map{
		"ok":        true,
		"format":    result.Format,
		"rows":      result.Rows,
		"dashboard": analytics.BuildDashboard(result.Rows, size),
	})
}

// validationMessage turns validator errors into one readable sentence
func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s must be one of 30, 60 or 90", field)
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}
