package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("", "invalid "+name)
	}
	return id, nil
}

func actor(c *fiber.Ctx) (models.Actor, error) {
	return middleware.CurrentActor(c)
}

// parseBody decodes the request body into dst and, when validate is set,
// runs its struct tags.
func parseBody(c *fiber.Ctx, dst interface{}, validate bool) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("", "invalid body")
	}
	if validate {
		if fe := utils.ValidateStruct(dst); fe != nil {
			return apperr.Validation("", "validation error").With("fields", fe)
		}
	}
	return nil
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}
