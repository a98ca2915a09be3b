package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"minidash/internal/metrics"
)

// RequestMetrics records count and latency of API requests by route pattern.
func RequestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		metrics.RecordAPIRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
