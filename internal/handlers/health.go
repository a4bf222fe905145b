package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is anything the health check can ping, the database or Redis
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	Storage  string
	WhatsApp bool
	checks   map[string]Pinger
}

// NewHealthHandler creates a new health handler. checks are pinged on every
// request; any failure turns the response into a 503.
func NewHealthHandler(version, storage string, whatsapp bool, checks map[string]Pinger) *HealthHandler {
	if checks == nil {
		checks = map[string]Pinger{}
	}
	return &HealthHandler{
		Version:  version,
		Storage:  storage,
		WhatsApp: whatsapp,
		checks:   checks,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "healthy"
	statusCode := fiber.StatusOK
	deps := fiber.Map{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = "error: " + err.Error()
			status = "unhealthy"
			statusCode = fiber.StatusServiceUnavailable
			continue
		}
		deps[name] = "connected"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":   status,
		"service":  "TablePe Backend",
		"version":  h.Version,
		"storage":  h.Storage,
		"whatsapp": fiber.Map{"configured": h.WhatsApp},
		"services": deps,
	})
}
