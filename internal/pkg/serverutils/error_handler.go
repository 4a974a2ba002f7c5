package serverutils

import (
	"errors"

	"exoplanet-classifier-be/pkg/exo"

	"github.com/gofiber/fiber/v2"
)

// ErrNotFound is wrapped by services for missing resources.
var ErrNotFound = errors.New("not found")

// StatusOf maps an error onto an HTTP status code.
func StatusOf(err error) int {
	var fiberErr *fiber.Error
	var validationErr *ValidationError
	var malformed *exo.MalformedRowError
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErr), errors.As(err, &malformed):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code := StatusOf(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
