package middleware

import (
	"strconv"
	"strings"

	"contactbook/internal/services"
	"contactbook/pkg/logger"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the Locals key holding the authenticated account id.
const UserIDKey = "user_id"

// TokenValidator validates a token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (jwt.MapClaims, error)
}

// AuthRequired is a Fiber middleware that requires a valid JWT whose user_id
// matches the :userId path parameter. The token may be sent raw or as
// "Bearer <token>".
func AuthRequired(tokens TokenValidator, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "Bearer ") {
			tokenString = strings.TrimSpace(tokenString[7:])
		}
		if tokenString == "" {
			return unauthorized(c)
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			log.Debug("JWT validation failed", "path", c.Path(), "error", err)
			return unauthorized(c)
		}

		userID, err := services.UserIDFromClaims(claims)
		if err != nil {
			return unauthorized(c)
		}
		if c.Params("userId") != strconv.FormatUint(userID, 10) {
			return unauthorized(c)
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals(UserIDKey, userID)
		c.Locals("username", claims["username"])

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":     "error",
		"statusCode": fiber.StatusUnauthorized,
		"message":    "Authorization Required",
	})
}
