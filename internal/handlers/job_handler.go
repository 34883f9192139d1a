package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/jobs"
)

type JobHandler struct {
	Jobs *jobs.Service
}

func NewJobHandler(s *jobs.Service) *JobHandler {
	return &JobHandler{Jobs: s}
}

func (h *JobHandler) Create(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var in jobs.CreateInput
	if err := parseBody(c, &in, false); err != nil {
		return err
	}
	job, err := h.Jobs.Create(c.UserContext(), a.ID, in)
	if err != nil {
		return err
	}
	return created(c, job)
}

// List supports ?status=&available=true&archived=true&page=&limit=
func (h *JobHandler) List(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	f := jobs.ListFilter{
		Status:          c.Query("status"),
		Available:       c.QueryBool("available"),
		IncludeArchived: c.QueryBool("archived"),
		Page:            queryInt(c, "page", 1),
		Limit:           queryInt(c, "limit", 20),
	}
	list, total, err := h.Jobs.List(c.UserContext(), a, f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
		"meta": fiber.Map{
			"total": total,
			"page":  f.Page,
		},
	})
}

func (h *JobHandler) Get(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	job, err := h.Jobs.Get(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"job":  job,
		"next": jobs.Next(job.Status),
	})
}

func (h *JobHandler) Approve(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	job, err := h.Jobs.Approve(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return ok(c, job)
}

type assignReq struct {
	FreelancerID string `json:"freelancer_id" validate:"required,uuid"`
}

func (h *JobHandler) Assign(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req assignReq
	if err := parseBody(c, &req, true); err != nil {
		return err
	}
	job, err := h.Jobs.Assign(c.UserContext(), a, id, uuid.MustParse(req.FreelancerID))
	if err != nil {
		return err
	}
	return ok(c, job)
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *JobHandler) UpdateStatus(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	if err := parseBody(c, &req, true); err != nil {
		return err
	}
	job, err := h.Jobs.UpdateStatus(c.UserContext(), a, id, models.JobStatus(req.Status))
	if err != nil {
		return err
	}
	return ok(c, job)
}

func (h *JobHandler) PlaceBid(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var in jobs.BidInput
	if err := parseBody(c, &in, false); err != nil {
		return err
	}
	bid, err := h.Jobs.PlaceBid(c.UserContext(), a, id, in)
	if err != nil {
		return err
	}
	return created(c, bid)
}

func (h *JobHandler) ListBids(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	bids, err := h.Jobs.ListBids(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return ok(c, bids)
}

func (h *JobHandler) ApproveBid(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	bid, err := h.Jobs.ApproveBid(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return ok(c, bid)
}

func (h *JobHandler) AcceptBid(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	job, err := h.Jobs.AcceptBid(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return ok(c, job)
}
