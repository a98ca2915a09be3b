package http

import (
	"bytes"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"minidash/internal/analytics"
	"minidash/internal/charts"
	"minidash/internal/rows"
)

func (h *Handlers) loadSample(ctx *cartridge.Context) ([]rows.Row, error) {
	sampleRows, err := h.sample.Load()
	if err != nil {
		ctx.Logger.Error("Failed to load sample data",
			slog.String("path", h.sample.Path()),
			slog.Any("error", err))
		return nil, err
	}
	if sampleRows == nil {
		sampleRows = []rows.Row{}
	}
	return sampleRows, nil
}

// SampleIndexAction returns the bundled sample rows
func (h *Handlers) SampleIndexAction(ctx *cartridge.Context) error {
	sampleRows, err := h.loadSample(ctx)
	if err != nil {
		return respondError(ctx, fiber.StatusInternalServerError, err)
	}
	return ctx.JSON(fiber.Map{"ok": true, "rows": sampleRows})
}

// SampleDashboardAction builds the dashboard from the sample rows
func (h *Handlers) SampleDashboardAction(ctx *cartridge.Context) error {
	size, ok, err := rangeFromQuery(ctx)
	if !ok {
		return err
	}

	sampleRows, err := h.loadSample(ctx)
	if err != nil {
		return respondError(ctx, fiber.StatusInternalServerError, err)
	}

	return ctx.JSON(fiber.Map{
		"ok":        true,
		"source":    "sample",
		"dashboard": analytics.BuildDashboard(sampleRows, size),
	})
}

// SampleSparklineAction renders the sessions trend of the current window as a PNG
func (h *Handlers) SampleSparklineAction(ctx *cartridge.Context) error {
	size, ok, err := rangeFromQuery(ctx)
	if !ok {
		return err
	}

	sampleRows, err := h.loadSample(ctx)
	if err != nil {
		return respondError(ctx, fiber.StatusInternalServerError, err)
	}

	dashboard := analytics.BuildDashboard(sampleRows, size)
	width := ctx.QueryInt("w", charts.SparklineWidth)
	height := ctx.QueryInt("h", charts.SparklineHeight)
	if width > 2000 || height > 1000 {
		return respondError(ctx, fiber.StatusBadRequest, errImageTooLarge)
	}

	var buf bytes.Buffer
	if err := charts.RenderSparkline(&buf, dashboard.Sparkline, width, height); err != nil {
		ctx.Logger.Error("Failed to render sparkline", slog.Any("error", err))
		return respondError(ctx, fiber.StatusInternalServerError, err)
	}

	ctx.Set(fiber.HeaderContentType, "image/png")
	ctx.Set(fiber.HeaderCacheControl, "no-store")
	return ctx.Send(buf.Bytes())
}
