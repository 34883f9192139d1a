package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/config"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/db"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/handlers"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/export"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/invoices"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/moderation"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/mpesa"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/payment"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/ratings"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// rate limiting fails open and pub/sub is best effort
		log.Printf("[Main] redis unavailable: %v", err)
	}

	hub := realtime.NewHub()
	go hub.Run()
	go func() {
		for {
			if err := hub.Relay(context.Background(), rdb); err != nil {
				log.Printf("[Main] notification relay stopped: %v", err)
			}
			time.Sleep(5 * time.Second)
		}
	}()

	notifier := notify.NewService(gdb, hub, rdb)
	walletSvc := wallet.NewWalletService(gdb)
	badges := earnings.NewBadgeService(gdb)
	settler := earnings.NewSettler(gdb, walletSvc, badges, notifier)
	jobSvc := jobs.NewService(gdb, settler, notifier)
	reconciler := payment.NewReconciler(gdb, notifier)
	storage := moderation.NewLocalStorage(cfg.UploadDir)
	moderationSvc := moderation.NewService(gdb, storage, notifier, hub, cfg.AppBaseURL)
	mailSvc := mailer.NewService(gdb, mailer.NewSMTPSender(cfg.SMTP))

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
		Secure:    cfg.IsProduction(),
	}
	var googleH *handlers.GoogleOAuthHandler
	if cfg.Google.ClientID != "" {
		googleH = handlers.NewGoogleOAuthHandler(authH, cfg.Google, cfg.FrontendBaseURL)
	}

	routes := &handlers.Routes{
		JWTSecret:   cfg.JWTSecret,
		RDB:         rdb,
		QueryLimit:  cfg.QueryRateLimit,
		QueryWindow: time.Duration(cfg.QueryRateWindowSec) * time.Second,

		Auth:          authH,
		Google:        googleH,
		Jobs:          handlers.NewJobHandler(jobSvc),
		Payments:      handlers.NewPaymentHandler(gdb, mpesa.NewMpesaService(cfg.Mpesa), reconciler),
		Moderation:    handlers.NewModerationHandler(moderationSvc),
		Invoices:      handlers.NewInvoiceHandler(invoices.NewService(gdb, settler, notifier)),
		Ratings:       handlers.NewRatingHandler(ratings.NewService(gdb, badges)),
		Notifications: handlers.NewNotificationHandler(gdb, hub),
		Dashboard:     handlers.NewFreelancerDashboardHandler(gdb, walletSvc, badges),
		Admin: &handlers.AdminHandler{
			DB:      gdb,
			Settler: settler,
			Badges:  badges,
			Wallet:  walletSvc,
			Mailer:  mailSvc,
			Export:  export.NewService(gdb),
		},
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(!cfg.IsProduction()),
		// above the attachment limit so oversized files get FILE_TOO_LARGE
		BodyLimit: moderation.MaxUploadSize + 8<<20,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length, Content-Disposition, Retry-After",
		AllowCredentials: true,
	}))

	routes.Mount(app)

	log.Printf("[Main] listening on :%s (%s)", cfg.AppPort, cfg.AppEnv)
	log.Fatal(app.Listen(":" + cfg.AppPort))
}
