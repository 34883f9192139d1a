package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/moderation"
)

// ModerationHandler serves job attachments and the moderated job chat.
type ModerationHandler struct {
	Moderation *moderation.Service
}

func NewModerationHandler(s *moderation.Service) *ModerationHandler {
	return &ModerationHandler{Moderation: s}
}

// UploadAttachment expects multipart field "file" and optional "category".
func (h *ModerationHandler) UploadAttachment(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var up moderation.Upload
	if fh, ferr := c.FormFile("file"); ferr == nil {
		up = moderation.Upload{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		}
	}

	att, err := h.Moderation.UploadAttachment(c.UserContext(), a, jobID, up,
		models.AttachmentCategory(c.FormValue("category")))
	if err != nil {
		return err
	}
	return created(c, att)
}

func (h *ModerationHandler) ListAttachments(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.Moderation.ListAttachments(c.UserContext(), a, jobID)
	if err != nil {
		return err
	}
	return ok(c, list)
}

// DownloadAttachment streams a stored file after the visibility check.
func (h *ModerationHandler) DownloadAttachment(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	att, err := h.Moderation.DownloadAttachment(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	c.Attachment(att.FileName)
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	return c.SendFile(att.StoredPath)
}

type visibilityReq struct {
	Visible *bool `json:"visible" validate:"required"`
}

func (h *ModerationHandler) SetAttachmentVisibility(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req visibilityReq
	if err := parseBody(c, &req, true); err != nil {
		return err
	}
	att, err := h.Moderation.SetAttachmentVisibility(c.UserContext(), a, id, *req.Visible)
	if err != nil {
		return err
	}
	return ok(c, att)
}

func (h *ModerationHandler) DeleteAttachment(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Moderation.DeleteAttachment(c.UserContext(), a, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

type messageReq struct {
	Body string `json:"body" validate:"required,max=10000"`
}

func (h *ModerationHandler) SendMessage(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req messageReq
	if err := parseBody(c, &req, true); err != nil {
		return err
	}
	m, err := h.Moderation.SendMessage(c.UserContext(), a, jobID, req.Body)
	if err != nil {
		return err
	}
	return created(c, m)
}

func (h *ModerationHandler) ListMessages(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.Moderation.ListMessages(c.UserContext(), a, jobID)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *ModerationHandler) PendingMessages(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	list, err := h.Moderation.PendingMessages(c.UserContext(), a)
	if err != nil {
		return err
	}
	return ok(c, list)
}

type approveMessageReq struct {
	VisibleToClient     bool `json:"visible_to_client"`
	VisibleToFreelancer bool `json:"visible_to_freelancer"`
}

func (h *ModerationHandler) ApproveMessage(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req approveMessageReq
	if err := parseBody(c, &req, false); err != nil {
		return err
	}
	m, err := h.Moderation.ApproveMessage(c.UserContext(), a, id, req.VisibleToClient, req.VisibleToFreelancer)
	if err != nil {
		return err
	}
	return ok(c, m)
}

func (h *ModerationHandler) DeleteMessage(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Moderation.DeleteMessage(c.UserContext(), a, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
