package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"

	"minidash/internal/metrics"
)

// CachePurgeAction clears the report cache, the generic cache table and the in-memory sample copy
func (h *Handlers) CachePurgeAction(ctx *cartridge.Context) error {
	reportsDeleted, err := h.reports.PurgeAll(ctx.UserContext())
	if err != nil {
		ctx.Logger.Error("Failed to purge report cache", slog.Any("error", err))
		return respondError(ctx, fiber.StatusInternalServerError, err)
	}
	metrics.ReportCachePurged.Add(float64(reportsDeleted))

	var genericDeleted int64
	if ctx.DBManager != nil {
		if db := ctx.DB(); db != nil {
			genericDeleted, err = cache.PurgeAllCaches(db)
			if err != nil {
				ctx.Logger.Error("Failed to clear generic_cache", slog.Any("error", err))
				return respondError(ctx, fiber.StatusInternalServerError, err)
			}
		}
	}

	h.sample.Invalidate()

	ctx.Logger.Info("Caches purged successfully",
		slog.Int64("reports_deleted", reportsDeleted),
		slog.Int64("generic_rows_deleted", genericDeleted))

	return ctx.JSON(fiber.Map{
		"ok":                   true,
		"reports_deleted":      reportsDeleted,
		"generic_rows_deleted": genericDeleted,
	})
}
