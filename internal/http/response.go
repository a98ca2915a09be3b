package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"minidash/internal/timeframe"
)

// respondError writes the failure envelope. Handlers never return the error
// itself so clients always get a JSON body.
func respondError(ctx *cartridge.Context, status int, err error) error {
	return ctx.Status(status).JSON(fiber.Map{
		"ok":    false,
		"error": err.Error(),
	})
}

// rangeFromQuery reads ?range=, writing a 400 when it is not an allowed size
func rangeFromQuery(ctx *cartridge.Context) (timeframe.RangeSize, bool, error) {
	size, err := timeframe.ParseRangeSize(ctx.Query("range"))
	if err != nil {
		ctx.Logger.Debug("Rejected range", slog.String("range", ctx.Query("range")))
		return 0, false, respondError(ctx, fiber.StatusBadRequest, err)
	}
	return size, true, nil
}

var (
	errNoRows        = errors.New("No rows parsed from input")
	errImageTooLarge = errors.New("requested image is too large")
)
