package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"minidash/internal/analytics"
	"minidash/internal/ga4"
	"minidash/internal/rows"
)

func (h *Handlers) upstreamContext(ctx *cartridge.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.UserContext(), h.cfg.UpstreamTimeout())
}

// GA4DemoIndexAction returns daily sessions and users for the last seven days
func (h *Handlers) GA4DemoIndexAction(ctx *cartridge.Context) error {
	if h.reporterErr != nil {
		ctx.Logger.Warn("Analytics reporting is not configured", slog.Any("error", h.reporterErr))
		return respondError(ctx, fiber.StatusInternalServerError, h.reporterErr)
	}

	reqCtx, cancel := h.upstreamContext(ctx)
	defer cancel()

	report, err := h.reporter.DemoReport(reqCtx)
	if err != nil {
		return respondError(ctx, fiber.StatusInternalServerError, err)
	}
	if report == nil {
		report = []ga4.DemoRow{}
	}

	return ctx.JSON(fiber.Map{"ok": true, "rows": report})
}

// GA4DashboardAction builds the dashboard from the live channel report
func (h *Handlers) GA4DashboardAction(ctx *cartridge.Context) error {
	size, ok, err := rangeFromQuery(ctx)
	if !ok {
		return err
	}

	if h.reporterErr != nil {
		return respondError(ctx, fiber.StatusInternalServerError, h.reporterErr)
	}

	reqCtx, cancel := h.upstreamContext(ctx)
	defer cancel()

	report, err := h.reporter.ChannelReport(reqCtx, int(size))
	if err != nil {
		return respondError(ctx, fiber.StatusInternalServerError, err)
	}
	if report == nil {
		report = []rows.Row{}
	}

	return ctx.JSON(fiber.Map{
		"ok":        true,
		"source":    "ga4",
		"rows":      report,
		"dashboard": analytics.BuildDashboard(report, size),
	})
}
