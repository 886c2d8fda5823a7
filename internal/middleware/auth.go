package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/utils"
)

const (
	userContextKey  = "currentUserID"
	adminContextKey = "currentUserIsAdmin"
)

// AuthMiddleware validates JWT tokens and loads the authenticated user into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperrors.Unauthorized("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.Unauthorized("invalid authorization header")
		}

		claims, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			return apperrors.Unauthorized("invalid token")
		}

		c.Locals(userContextKey, claims.UserID)
		c.Locals(adminContextKey, claims.IsAdmin)
		return c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin flag. It must
// run after AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isAdmin, _ := c.Locals(adminContextKey).(bool); !isAdmin {
			return apperrors.ErrForbidden
		}
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}
