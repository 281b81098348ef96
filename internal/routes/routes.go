package routes

import (
	"context"
	"time"

	"device-activity-service/internal/controller"

	"github.com/gofiber/fiber/v2"
)

// Probe is a named dependency check reported by /health.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Register attaches all activity routes to the Fiber app.
func Register(app fiber.Router, ctrl controller.ActivityController, probes ...Probe) {
	app.Get("/activities", ctrl.ListActivities)
	app.Delete("/activities", ctrl.ClearAll)
	app.Get("/stats/users", ctrl.UserStats)
	app.Get("/chart/ranges", ctrl.ChartRanges)
	app.Get("/export", ctrl.Export)
	app.Post("/import", ctrl.Import)

	env := app.Group("/environments/:env")
	env.Post("/activities", ctrl.LogActivity)
	env.Delete("/activities", ctrl.ClearEnvironment)
	env.Get("/chart", ctrl.Chart)
	env.Get("/devices/top", ctrl.TopDevices)
	env.Get("/devices/:device/usage", ctrl.DeviceUsage)

	app.Get("/health", health(probes))
}

func health(probes []Probe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(probes) == 0 {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status, code := "ok", fiber.StatusOK
		checks := make(fiber.Map, len(probes))
		for _, p := range probes {
			if err := p.Check(ctx); err != nil {
				checks[p.Name] = err.Error()
				status, code = "degraded", fiber.StatusServiceUnavailable
				continue
			}
			checks[p.Name] = "ok"
		}

		return c.Status(code).JSON(fiber.Map{"status": status, "checks": checks})
	}
}
