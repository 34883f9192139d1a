package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/invoices"
)

type InvoiceHandler struct {
	Invoices *invoices.Service
}

func NewInvoiceHandler(s *invoices.Service) *InvoiceHandler {
	return &InvoiceHandler{Invoices: s}
}

// Generate creates (or returns) the invoice of job :id.
func (h *InvoiceHandler) Generate(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.Invoices.Generate(c.UserContext(), a, jobID)
	if err != nil {
		return err
	}
	return ok(c, inv)
}

func (h *InvoiceHandler) Confirm(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.Invoices.Confirm(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return ok(c, inv)
}

func (h *InvoiceHandler) Get(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.Invoices.Get(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return ok(c, inv)
}

func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	list, err := h.Invoices.List(c.UserContext(), a)
	if err != nil {
		return err
	}
	return ok(c, list)
}
