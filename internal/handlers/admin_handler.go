package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/export"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/wallet"
)

// AdminHandler groups the staff-only maintenance routes. Every route is
// mounted behind RequireRoles(admin, manager).
type AdminHandler struct {
	DB      *gorm.DB
	Settler *earnings.Settler
	Badges  *earnings.BadgeService
	Wallet  *wallet.WalletService
	Mailer  *mailer.Service
	Export  *export.Service
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext()).Model(&models.User{})
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	if v := c.Query("approved"); v != "" {
		q = q.Where("approved = ?", c.QueryBool("approved"))
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return apperr.Internal(err, "failed to count users")
	}
	var users []models.User
	if err := q.Preload("Badges").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error; err != nil {
		return apperr.Internal(err, "failed to list users")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"meta":    fiber.Map{"total": total, "page": page},
	})
}

type approveUserReq struct {
	Approved *bool `json:"approved"`
	IsActive *bool `json:"is_active"`
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req approveUserReq
	if err := parseBody(c, &req, false); err != nil {
		return err
	}
	updates := map[string]interface{}{}
	if req.Approved != nil {
		updates["approved"] = *req.Approved
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return apperr.Validation("", "nothing to update")
	}

	db := h.DB.WithContext(c.UserContext())
	var u models.User
	if err := db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err, "failed to load user")
	}
	if err := db.Model(&u).Updates(updates).Error; err != nil {
		return apperr.Internal(err, "failed to update user")
	}
	return ok(c, userView(&u))
}

func (h *AdminHandler) AssignBadges(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	added, removed, err := h.Badges.AutoAssign(c.UserContext(), id)
	if err != nil {
		return apperr.Internal(err, "failed to assign badges")
	}
	return ok(c, fiber.Map{"added": added, "removed": removed})
}

func (h *AdminHandler) AssignAllBadges(c *fiber.Ctx) error {
	changed, failed, err := h.Badges.AutoAssignAll(c.UserContext())
	if err != nil {
		return apperr.Internal(err, "failed to assign badges")
	}
	return ok(c, fiber.Map{"changed": changed, "failed": failed})
}

func (h *AdminHandler) RecomputeBalance(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	balance, err := h.Settler.RecomputeBalance(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"user_id": id, "balance": balance})
}

func (h *AdminHandler) RecomputeAllBalances(c *fiber.Ctx) error {
	n, err := h.Settler.RecomputeAll(c.UserContext())
	if err != nil {
		return apperr.Internal(err, "failed to recompute balances")
	}
	return ok(c, fiber.Map{"freelancers": n})
}

func (h *AdminHandler) WalletHistory(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.Wallet.History(c.UserContext(), id, queryInt(c, "limit", 50))
	if err != nil {
		return apperr.Internal(err, "failed to load wallet history")
	}
	return ok(c, rows)
}

func (h *AdminHandler) SendBulkEmail(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req mailer.Request
	if err := parseBody(c, &req, false); err != nil {
		return err
	}
	entry, err := h.Mailer.Send(c.UserContext(), a.ID, req)
	if err != nil {
		return err
	}
	return ok(c, entry)
}

func (h *AdminHandler) EmailQuota(c *fiber.Ctx) error {
	sent, err := h.Mailer.SentToday(c.UserContext())
	if err != nil {
		return err
	}
	remaining, err := h.Mailer.Remaining(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"limit": mailer.DailyLimit, "sent": sent, "remaining": remaining})
}

func (h *AdminHandler) EmailLogs(c *fiber.Ctx) error {
	logs, err := h.Mailer.Logs(c.UserContext(), queryInt(c, "limit", 50))
	if err != nil {
		return apperr.Internal(err, "failed to list email logs")
	}
	return ok(c, logs)
}

func parseDay(c *fiber.Ctx, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, apperr.Validation("", key+" must be YYYY-MM-DD")
	}
	return t, nil
}

// ExportJobs sends ?format=xlsx|csv&status=&from=&to= as a download.
func (h *AdminHandler) ExportJobs(c *fiber.Ctx) error {
	mime, ext, err := export.ContentType(c.Query("format"))
	if err != nil {
		return err
	}
	f := export.Filter{Status: c.Query("status")}
	if f.From, err = parseDay(c, "from"); err != nil {
		return err
	}
	if f.To, err = parseDay(c, "to"); err != nil {
		return err
	}
	if !f.To.IsZero() {
		// inclusive of the whole "to" day
		f.To = f.To.Add(24 * time.Hour)
	}

	var buf bytes.Buffer
	if err := h.Export.Jobs(c.UserContext(), &buf, ext, f); err != nil {
		return err
	}

	name := fmt.Sprintf("jobs-%s.%s", time.Now().Format("20060102-150405"), ext)
	c.Set(fiber.HeaderContentType, mime)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(buf.Bytes())
}
