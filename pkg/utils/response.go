package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// SendError maps any error to the wire format clients expect: a {message}
// body with the CustomError's status code. Details on 5xx errors stay
// server-side; clients only see the generic message.
func SendError(c *fiber.Ctx, err error) error {
	var appErr *CustomError
	if !errors.As(err, &appErr) {
		appErr = ErrInternalServerError
	}
	if appErr.Code >= fiber.StatusInternalServerError {
		return c.Status(appErr.Code).JSON(fiber.Map{
			"message": "Server error",
		})
	}
	return c.Status(appErr.Code).JSON(fiber.Map{
		"message": appErr.Message,
	})
}

// SendValidationErrors returns a 400 with the field-level error list produced
// by the validator wrapper.
func SendValidationErrors(c *fiber.Ctx, resp *ErrorResponse) error {
	return c.Status(fiber.StatusBadRequest).JSON(resp)
}
