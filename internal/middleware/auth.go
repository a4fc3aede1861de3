// Package middleware provides authentication, rate limiting, logging and
// tracing middleware for the HTTP API.
package middleware

import (
	"strings"

	"estate/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UserIDLocal is the fiber Locals key holding the authenticated user's ID.
const UserIDLocal = "userID"

// TokenParser validates an access token and returns its subject.
type TokenParser interface {
	ParseAccessToken(token string) (uuid.UUID, error)
}

// AuthRequired enforces a valid "Bearer <token>" header and stores the
// caller's ID in c.Locals(UserIDLocal).
func AuthRequired(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization header required"))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		userID, err := parser.ParseAccessToken(parts[1])
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.ErrInvalidToken)
		}

		c.Locals(UserIDLocal, userID)
		c.SetUserContext(WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// CurrentUserID returns the authenticated user's ID, if any.
func CurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(UserIDLocal).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
