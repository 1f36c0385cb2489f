package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pointsbridge/ww-adapter/internal/registry"
	"github.com/pointsbridge/ww-adapter/internal/ww"
)

// RegisterRoutes registers all HTTP routes on the Fiber app. nc may be nil
// when no event bus is configured.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, reg *registry.Registry, h *Handler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if nc == nil {
			checks["nats"] = "disabled"
		} else if !nc.IsConnected() {
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status":   status,
			"accounts": reg.Len(),
			"checks":   checks,
		})
	})

	v1 := app.Group("/api/v1")
	v1.Get("/regions", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"regions": ww.Regions(), "default": ww.DefaultRegion})
	})
	v1.Post("/accounts", h.CreateAccount)
	v1.Get("/accounts", h.ListAccounts)
	v1.Delete("/accounts/:id", h.DeleteAccount)
	v1.Get("/accounts/:id/latest", h.GetLatest)
	v1.Get("/accounts/:id/summary", h.GetSummary)
}
