package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"raizes/internal/infra/logging"
)

type HealthService struct {
	Environment string
	started     time.Time
}

func NewHealthService(environment string) *HealthService {
	return &HealthService{Environment: environment, started: time.Now()}
}

// Health handles GET /health, the target of the keep-alive pinger.
func (h *HealthService) Health(c *fiber.Ctx) error {
	logging.Debug("Health check")
	return c.JSON(fiber.Map{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.Environment,
	})
}

// Welcome handles GET /teste.
func Welcome(c *fiber.Ctx) error {
	return c.SendString("Bem-vindo ao servidor de API")
}
