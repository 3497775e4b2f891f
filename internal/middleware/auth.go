package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/pkg/utils"
)

// AuthRequired validates the bearer token and stores the caller's id and
// role in c.Locals("user_id") and c.Locals("role").
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		claims, err := ParseClaims(tokenString, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// TokenFromRequest reads the token from the "token" query parameter, falling
// back to the bearer header. Browsers cannot set headers on WebSocket
// upgrades.
func TokenFromRequest(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	token, _ := bearerToken(strings.TrimSpace(c.Get("Authorization")))
	return token
}

// ParseClaims validates the token and rejects claims that do not name a
// known user id and role.
func ParseClaims(tokenString, secret string) (*utils.Claims, error) {
	if tokenString == "" {
		return nil, errors.New("missing token")
	}
	claims, err := utils.ValidateToken(tokenString, secret)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, errors.New("token user id is not a valid id")
	}
	if !models.Role(claims.Role).Valid() {
		return nil, errors.New("token role is unknown")
	}
	return claims, nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
