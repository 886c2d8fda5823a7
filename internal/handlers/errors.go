package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/middleware"
)

// ErrorHandler renders every error returned by a handler as
// {"success": false, "error": ...} with a status derived from its kind.
// Internal errors are logged and replaced by a generic message.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := classify(err)
		if status >= fiber.StatusInternalServerError {
			middleware.Logger(c, logger).Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, ve.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, apperrors.ErrForbidden):
		return fiber.StatusForbidden, err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		return fiber.StatusConflict, err.Error()
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
