package controller

import (
	"context"
	"time"

	"whatsapp-orderbot-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// HealthGauge reports a point-in-time count, such as open sessions.
type HealthGauge func() int

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	checks map[string]HealthCheck
	gauges map[string]HealthGauge
}

func NewHealthController(checks map[string]HealthCheck, gauges map[string]HealthGauge) IHealthController {
	return &healthController{checks: checks, gauges: gauges}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

// Health always answers 200 while the process serves; degraded dependencies are flagged, not fatal.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	checkCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
	defer cancel()

	res := dto.HealthResponse{
		Status:       "ok",
		Dependencies: make(map[string]bool, len(c.checks)),
	}
	for name, check := range c.checks {
		up := check(checkCtx)
		res.Dependencies[name] = up
		if !up {
			res.Status = "degraded"
		}
	}
	if len(c.gauges) > 0 {
		res.Gauges = make(map[string]int, len(c.gauges))
		for name, gauge := range c.gauges {
			res.Gauges[name] = gauge()
		}
	}

	return ctx.JSON(res)
}
