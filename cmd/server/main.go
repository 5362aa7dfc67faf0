package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/formpay/configs"
	"github.com/maheshrc27/formpay/internal/api/handlers"
	"github.com/maheshrc27/formpay/internal/api/middleware"
	"github.com/maheshrc27/formpay/internal/hooks"
	job "github.com/maheshrc27/formpay/internal/jobs"
	"github.com/maheshrc27/formpay/internal/queue"
	"github.com/maheshrc27/formpay/internal/repository"
	"github.com/maheshrc27/formpay/internal/service"
	"github.com/maheshrc27/formpay/internal/stripeclient"
	"github.com/robfig/cron"
	"github.com/stripe/stripe-go/v74"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Stripe-Signature",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	registry := hooks.NewRegistry()

	entryRepo := repository.NewEntryRepository(db)
	feedRepo := repository.NewFeedRepository(db)

	appInfo := &stripe.AppInfo{
		Name:    cfg.AppName,
		Version: cfg.AppVersion,
		URL:     cfg.SiteURL,
	}
	clients := stripeclient.ModeSet{
		Live: stripeclient.New(cfg.LiveSecretKey, appInfo),
		Test: stripeclient.New(cfg.TestSecretKey, appInfo),
	}

	keysService := service.NewKeysService(*cfg, registry)
	activeClient := clients.ForMode(keysService.APIMode())

	fieldService := service.NewFieldService(registry)
	customerResolver := service.NewCustomerResolver(activeClient, registry)
	archiveService := service.NewArchiveService(*cfg)
	chargeService := service.NewChargeService(activeClient, fieldService, customerResolver, registry)
	subscriptionService := service.NewSubscriptionService(*cfg, activeClient, fieldService, customerResolver, entryRepo, registry)
	webhookService := service.NewWebhookService(clients, keysService, entryRepo, feedRepo, registry, archiveService)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	webhook := handlers.NewWebhookHandler(webhookService, entryRepo)
	app.Post("/webhooks/stripe", webhook.ProcessWebhook)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	payment := handlers.NewPaymentHandler(chargeService, subscriptionService, feedRepo, entryRepo)
	api.Post("/submissions", payment.ProcessSubmission)

	entry := handlers.NewEntryHandler(subscriptionService, entryRepo, feedRepo)
	api.Post("/entries/:id/subscription/cancel", authMiddleware.AdminOnly(), entry.CancelSubscription)

	settings := handlers.NewSettingsHandler(*cfg, keysService, func(secret string) stripeclient.Client {
		return stripeclient.New(secret, appInfo)
	})
	api.Post("/settings/keys/validate", authMiddleware.AdminOnly(), settings.ValidateKeys)

	// cron jobs
	staleAuthJob := job.NewStaleAuthJob(entryRepo, client)

	//queue
	queueW := queue.NewQueue(entryRepo, activeClient)

	c := cron.New()
	c.AddFunc("@every 01h00m00s", staleAuthJob.SweepAuthorizations)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeReconcileCharge, queueW.HandleReconcileChargeTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
