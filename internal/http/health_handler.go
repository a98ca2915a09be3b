package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

// isoMillis matches the timestamp form browsers produce for Date.toISOString
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// HealthIndexAction reports which upstream variables are present and the
// state of the report cache. Values are never echoed.
func (h *Handlers) HealthIndexAction(ctx *cartridge.Context) error {
	dbStatus := "ok"
	if ctx.DBManager == nil {
		dbStatus = "unavailable"
	} else if db := ctx.DBManager.GetConnection(); db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := db.DB(); err != nil {
		dbStatus = "error"
		ctx.Logger.Error("Database connection error", slog.Any("error", err))
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error"
		ctx.Logger.Error("Database ping failed", slog.Any("error", err))
	}

	return ctx.JSON(fiber.Map{
		"ok":  true,
		"env": h.cfg.EnvPresence(),
		"cache": fiber.Map{
			"enabled":     h.reports.Enabled(),
			"ttl_seconds": h.cfg.ReportCacheTTLSeconds,
			"db_status":   dbStatus,
		},
		"ts": time.Now().UTC().Format(isoMillis),
	})
}
