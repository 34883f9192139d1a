package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

// JWTFromCookie validates the session token from the jm_token cookie, or
// from a Bearer header for API clients, and stores it under "user".
func JWTFromCookie(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(utils.TokenCookie)
		if tokenStr == "" {
			if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				tokenStr = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		if tokenStr == "" {
			return apperr.Unauthorized("missing session token")
		}

		token, _, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return apperr.Unauthorized("invalid or expired session")
		}

		c.Locals("user", token)
		return c.Next()
	}
}
