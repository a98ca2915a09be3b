package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"minidash/web"
)

// DashboardPageAction serves the single page dashboard
func DashboardPageAction(ctx *cartridge.Context) error {
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Send(web.IndexHTML())
}
