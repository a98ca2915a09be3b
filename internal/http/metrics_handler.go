package http

import (
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/karloscodes/cartridge"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var promHandler = adaptor.HTTPHandler(promhttp.Handler())

// MetricsIndexAction serves the Prometheus exposition format
func MetricsIndexAction(ctx *cartridge.Context) error {
	return promHandler(ctx.Ctx)
}
