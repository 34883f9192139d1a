package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/wallet"
)

type FreelancerDashboardHandler struct {
	DB     *gorm.DB
	Wallet *wallet.WalletService
	Badges *earnings.BadgeService
}

func NewFreelancerDashboardHandler(db *gorm.DB, w *wallet.WalletService, b *earnings.BadgeService) *FreelancerDashboardHandler {
	return &FreelancerDashboardHandler{DB: db, Wallet: w, Badges: b}
}

func (h *FreelancerDashboardHandler) Routes(r fiber.Router, mw ...fiber.Handler) {
	g := r.Group("/freelancer", mw...)
	g.Get("/dashboard/stats", h.GetDashboardStats)
	g.Get("/earnings", h.GetEarnings)
}

var activeStatuses = []models.JobStatus{
	models.JobStatusAssigned,
	models.JobStatusInProgress,
	models.JobStatusEditing,
	models.JobStatusDelivered,
	models.JobStatusRevision,
	models.JobStatusPaid,
}

// GetDashboardStats returns summary for the dashboard
func (h *FreelancerDashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	db := h.DB.WithContext(c.UserContext())

	var u models.User
	if err := db.First(&u, "id = ?", a.ID).Error; err != nil {
		return apperr.NotFound("user not found")
	}

	var activeJobs int64
	if err := db.Model(&models.Job{}).
		Where("assigned_freelancer_id = ?", a.ID).
		Where("status IN ?", activeStatuses).
		Count(&activeJobs).Error; err != nil {
		log.Printf("[DashboardStats] count active jobs for %s: %v", a.ID, err)
	}

	var unread int64
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", a.ID, false).
		Count(&unread).Error; err != nil {
		log.Printf("[DashboardStats] count unread notifications for %s: %v", a.ID, err)
	}

	badges, err := h.Badges.Badges(c.UserContext(), a.ID)
	if err != nil {
		log.Printf("[DashboardStats] badges for %s: %v", a.ID, err)
	}

	return ok(c, fiber.Map{
		"active_jobs":          activeJobs,
		"unread_notifications": unread,
		"balance":              u.Balance,
		"total_earned":         u.TotalEarned,
		"completed_jobs":       u.CompletedJobs,
		"on_time_deliveries":   u.OnTimeDeliveries,
		"rating":               u.Rating,
		"rating_count":         u.RatingCount,
		"tier":                 u.FreelancerBadge,
		"badges":               badges,
	})
}

// GetEarnings returns the balance, the amount it should equal and the
// ledger behind it.
func (h *FreelancerDashboardHandler) GetEarnings(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	db := h.DB.WithContext(c.UserContext())

	var u models.User
	if err := db.First(&u, "id = ?", a.ID).Error; err != nil {
		return apperr.NotFound("user not found")
	}
	settled, err := earnings.SumEarnings(db, a.ID)
	if err != nil {
		return apperr.Internal(err, "failed to sum earnings")
	}
	history, err := h.Wallet.History(c.UserContext(), a.ID, queryInt(c, "limit", 50))
	if err != nil {
		return apperr.Internal(err, "failed to load wallet history")
	}

	return ok(c, fiber.Map{
		"balance":      u.Balance,
		"settled":      settled,
		"transactions": history,
	})
}
