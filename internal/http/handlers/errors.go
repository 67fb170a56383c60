package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"raizes/internal/infra/logging"
)

// ErrorHandler renders every error as {"error": "<message>"}. Errors that are
// not *fiber.Error become a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Erro interno do servidor"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		logging.Error("Unhandled error", "path", c.Path(), "method", c.Method(), "error", err)
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
