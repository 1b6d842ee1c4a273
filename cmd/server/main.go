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
	"github.com/robfig/cron"
	"golang.org/x/time/rate"
	config "postpilot/configs"
	"postpilot/internal/api/handlers"
	"postpilot/internal/api/middleware"
	job "postpilot/internal/jobs"
	"postpilot/internal/models"
	"postpilot/internal/publisher"
	"postpilot/internal/queue"
	"postpilot/internal/repository"
	"postpilot/internal/scheduler"
	"postpilot/internal/service"
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
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	accountResultRepo := repository.NewAccountResultRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)

	r2Service := service.NewR2Service(*cfg)
	postService := service.NewPostService(db, postRepo, accountResultRepo, socialAccountRepo, mediaAssetRepo, postMediaRepo, cfg.Scheduler.MinimumLead)
	platformService := service.NewPlatformService(*cfg, socialAccountRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	mediaService := service.NewMediaService(mediaAssetRepo, *r2Service)
	historyService := service.NewHistoryService(historyRepo)
	notifier := service.NewEmailNotifier(*cfg, settingsRepo)

	telegramAdapter, err := publisher.NewTelegramAdapter(cfg.TelegramBotToken, "")
	if err != nil {
		log.Fatalf("Failed to build telegram adapter: %v", err)
	}

	registry := publisher.NewRegistry()
	registry.Register(models.PlatformBluesky, publisher.NewBlueskyAdapter(cfg.BlueskyPDSURL), rate.Limit(5), 5)
	registry.Register(models.PlatformTelegram, telegramAdapter, rate.Limit(1), 5)
	registry.Register(models.PlatformDiscord, publisher.NewDiscordAdapter(), rate.Limit(5), 5)
	registry.Register(models.PlatformLinkedin, publisher.NewLinkedinAdapter(""), rate.Limit(1), 2)

	orchestrator := publisher.NewOrchestrator(postRepo, accountResultRepo, socialAccountRepo, historyRepo, postMediaRepo, mediaAssetRepo, registry, notifier, *cfg)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	platform := handlers.NewPlatformHandler(platformService, *cfg)
	app.Get("/auth/:platform", platform.AddSocialAccount)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Post("/accounts/bluesky", platform.ConnectBluesky)
	api.Post("/accounts/telegram", platform.ConnectTelegram)
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/remove", platform.DeleteSocialAccount)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Post("/posts/:id/cancel", post.CancelPost)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media/upload", media.UploadMedia)
	api.Get("/media", media.ListMedia)
	api.Delete("/media/:id", media.RemoveMedia)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings/info", settings.GetSettingsInfo)
	api.Post("/settings/update", settings.UpdateSettings)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	history := handlers.NewHistoryHandler(historyService)
	api.Get("/history", history.ListHistory)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, platformService, notifier)
	dispatcher := scheduler.NewDispatcher(postRepo, queue.NewRunner(client), cfg.Scheduler.BatchSize)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	if err := dispatcher.Register(c, cfg.Scheduler.TickInterval); err != nil {
		log.Fatalf("Failed to register dispatcher: %v", err)
	}
	c.Start()

	// queue
	queueW := queue.NewQueue(postRepo, orchestrator)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.Scheduler.PublishConcurrency,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

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
