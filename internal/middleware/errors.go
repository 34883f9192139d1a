package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
)

// ErrorHandler renders every error returned by a handler as
// {"success": false, "error": ..., "code": ...}. Internal causes are only
// echoed back when expose is set.
func ErrorHandler(expose bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"error":   fe.Message,
				"code":    codeForStatus(fe.Code),
			})
		}

		ae := apperr.As(err)
		body := fiber.Map{
			"success": false,
			"error":   ae.Message,
			"code":    ae.Code,
		}
		for k, v := range ae.Details {
			body[k] = v
		}
		if ae.Status >= fiber.StatusInternalServerError {
			log.Printf("[HTTP] %s %s: %v", c.Method(), c.OriginalURL(), err)
			if expose && ae.Err != nil {
				body["detail"] = ae.Err.Error()
			}
		}
		return c.Status(ae.Status).JSON(body)
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperr.CodeValidation
	case fiber.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case fiber.StatusForbidden:
		return apperr.CodeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return apperr.CodeNotFound
	case fiber.StatusConflict:
		return apperr.CodeConflict
	case fiber.StatusRequestEntityTooLarge:
		return apperr.CodeFileTooLarge
	case fiber.StatusTooManyRequests:
		return apperr.CodeRateLimited
	}
	return apperr.CodeInternal
}
