package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
)

// Routes holds every handler plus what the shared middleware needs.
type Routes struct {
	JWTSecret   string
	RDB         *redis.Client
	QueryLimit  int
	QueryWindow time.Duration

	Auth          *AuthHandler
	Google        *GoogleOAuthHandler
	Jobs          *JobHandler
	Payments      *PaymentHandler
	Moderation    *ModerationHandler
	Invoices      *InvoiceHandler
	Ratings       *RatingHandler
	Notifications *NotificationHandler
	Dashboard     *FreelancerDashboardHandler
	Admin         *AdminHandler
}

// Mount registers all routes on app. Public routes go first: the protected
// group's middleware matches every path under /api registered after it.
func (r *Routes) Mount(app *fiber.App) {
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	client := middleware.RequireRoles(models.RoleClient)
	freelancer := middleware.RequireRoles(models.RoleFreelancer)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", r.Auth.Register)
	api.Post("/auth/login", r.Auth.Login)
	api.Post("/auth/logout", r.Auth.Logout)
	if r.Google != nil {
		api.Get("/auth/google/start", r.Google.GoogleStart)
		api.Get("/auth/google/callback", r.Google.GoogleCallback)
	}
	api.Post("/mpesa/callback", r.Payments.Callback)

	// websocket, authenticated by the same cookie
	app.Get("/ws/notifications",
		middleware.JWTFromCookie(r.JWTSecret),
		middleware.AttachJWTLocals(),
		r.Notifications.Upgrade,
		websocket.New(r.Notifications.WebSocketHandler),
	)

	protected := api.Group("/",
		middleware.JWTFromCookie(r.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", r.Auth.Me)

	// jobs & bids
	protected.Post("/jobs", client, r.Jobs.Create)
	protected.Get("/jobs", r.Jobs.List)
	protected.Get("/jobs/:id", r.Jobs.Get)
	protected.Patch("/jobs/:id/approve", staff, r.Jobs.Approve)
	protected.Patch("/jobs/:id/assign", staff, r.Jobs.Assign)
	protected.Patch("/jobs/:id/status", r.Jobs.UpdateStatus)
	protected.Post("/jobs/:id/bids", freelancer, r.Jobs.PlaceBid)
	protected.Get("/jobs/:id/bids", r.Jobs.ListBids)
	protected.Patch("/bids/:id/approve", staff, r.Jobs.ApproveBid)
	protected.Post("/bids/:id/accept", r.Jobs.AcceptBid)

	// attachments & messages
	protected.Post("/jobs/:id/attachments", r.Moderation.UploadAttachment)
	protected.Get("/jobs/:id/attachments", r.Moderation.ListAttachments)
	protected.Get("/attachments/:id/download", r.Moderation.DownloadAttachment)
	protected.Patch("/attachments/:id/visibility", staff, r.Moderation.SetAttachmentVisibility)
	protected.Delete("/attachments/:id", r.Moderation.DeleteAttachment)
	protected.Post("/jobs/:id/messages", r.Moderation.SendMessage)
	protected.Get("/jobs/:id/messages", r.Moderation.ListMessages)
	protected.Patch("/messages/:id/approve", staff, r.Moderation.ApproveMessage)
	protected.Delete("/messages/:id", r.Moderation.DeleteMessage)

	// ratings & invoices
	protected.Post("/jobs/:id/ratings", r.Ratings.Rate)
	protected.Get("/users/:id/ratings", r.Ratings.ForUser)
	protected.Post("/jobs/:id/invoice", staff, r.Invoices.Generate)
	protected.Get("/invoices", r.Invoices.List)
	protected.Get("/invoices/:id", r.Invoices.Get)
	protected.Patch("/invoices/:id/confirm", staff, r.Invoices.Confirm)

	// payments
	protected.Post("/payments/mpesa/stk", client, r.Payments.InitiateSTK)
	protected.Post("/payments/mpesa/query",
		middleware.RateLimit(r.RDB, "mpesa-query", r.QueryLimit, r.QueryWindow),
		middleware.RequireRoles(models.RoleClient, models.RoleAdmin, models.RoleManager),
		r.Payments.Query,
	)
	protected.Get("/jobs/:id/payments", r.Payments.ListForJob)
	protected.Get("/payments/:id", r.Payments.Get)

	// notifications
	protected.Get("/notifications", r.Notifications.List)
	protected.Patch("/notifications/:id/read", r.Notifications.MarkRead)

	r.Dashboard.Routes(protected, freelancer)

	// admin / manager
	admin := protected.Group("/admin", staff)
	admin.Get("/users", r.Admin.ListUsers)
	admin.Patch("/users/:id", r.Admin.UpdateUser)
	admin.Get("/users/:id/wallet", r.Admin.WalletHistory)
	admin.Post("/users/:id/badges", r.Admin.AssignBadges)
	admin.Post("/users/:id/recompute-balance", r.Admin.RecomputeBalance)
	admin.Post("/badges/assign-all", r.Admin.AssignAllBadges)
	admin.Post("/balances/recompute", r.Admin.RecomputeAllBalances)
	admin.Get("/messages/pending", r.Moderation.PendingMessages)
	admin.Post("/emails", r.Admin.SendBulkEmail)
	admin.Get("/emails/quota", r.Admin.EmailQuota)
	admin.Get("/emails/logs", r.Admin.EmailLogs)
	admin.Get("/export/jobs", r.Admin.ExportJobs)
}
