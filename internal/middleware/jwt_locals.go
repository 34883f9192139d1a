package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return apperr.Unauthorized("unauthorized")
		}

		claims, ok := token.Claims.(*utils.Claims)
		if !ok {
			return apperr.Unauthorized("unauthorized")
		}

		uid := strings.TrimSpace(claims.UserID)
		role := strings.ToLower(strings.TrimSpace(claims.Role))

		if _, err := uuid.Parse(uid); err != nil {
			return apperr.Unauthorized("unauthorized")
		}

		c.Locals("userId", uid)
		c.Locals("role", role)

		return c.Next()
	}
}

// CurrentActor reads the caller set by AttachJWTLocals.
func CurrentActor(c *fiber.Ctx) (models.Actor, error) {
	uid, _ := c.Locals("userId").(string)
	id, err := uuid.Parse(uid)
	if err != nil {
		return models.Actor{}, apperr.Unauthorized("unauthorized")
	}
	role, _ := c.Locals("role").(string)
	return models.Actor{ID: id, Role: models.Role(role)}, nil
}
