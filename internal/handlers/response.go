package handlers

import (
	"strconv"

	"contactbook/internal/apperr"
	"contactbook/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// respondError writes the caller-visible form of err. Internal causes are
// logged and replaced by the generic message.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, message := apperr.Public(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return errorJSON(c, status, message)
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":     "error",
		"statusCode": status,
		"message":    message,
	})
}

func successJSON(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": message,
	})
}

// uintParam reads a positive numeric path parameter.
func uintParam(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest("Invalid " + name)
	}
	return id, nil
}
