package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/ratings"
)

type RatingHandler struct {
	Ratings *ratings.Service
}

func NewRatingHandler(s *ratings.Service) *RatingHandler {
	return &RatingHandler{Ratings: s}
}

func (h *RatingHandler) Rate(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var in ratings.Input
	if err := parseBody(c, &in, false); err != nil {
		return err
	}
	r, err := h.Ratings.Rate(c.UserContext(), a, jobID, in)
	if err != nil {
		return err
	}
	return created(c, r)
}

// ForUser lists the ratings a user has received.
func (h *RatingHandler) ForUser(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.Ratings.ForUser(c.UserContext(), id)
	if err != nil {
		return apperr.Internal(err, "failed to list ratings")
	}
	return ok(c, list)
}
