package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
	config "github.com/suryatejavarmaa/DigiMark-sub000/configs"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/api/handlers"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/api/middleware"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/cache"
	job "github.com/suryatejavarmaa/DigiMark-sub000/internal/jobs"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/metrics"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/queue"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/repository"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := repository.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(registry)

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
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Device-ID, X-Tab-ID",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingsRepository := repository.NewSettingsRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	scheduledPostRepo := repository.NewScheduledPostRepository(db)
	livePostRepo := repository.NewLivePostRepository(db)

	sessions := cache.NewRedisSessionStore(rdb)
	sessionLocks := cache.NewRedisSessionLocker(rdb)
	snapshots := cache.NewRedisSnapshotStore(rdb)
	drafts := cache.NewRedisDraftCache(rdb)

	objectStore, err := service.NewR2Store(context.Background(), cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}

	userService := service.NewUserService(userRepo, notificationRepo, cfg.NotificationLimit)
	settingsService := service.NewSettingsService(settingsRepository)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)
	connectionService := service.NewConnectionService(connectionRepo)
	mediaService := service.NewMediaService(objectStore, cfg.R2.PublicURL)

	publisher := service.NewHTTPPublisher(cfg.Publish.APIURL, &http.Client{})
	publishService := service.NewPublishService(publisher, connectionService, livePostRepo, scheduledPostRepo, drafts, service.PublishOptions{
		Pause:           cfg.Publish.Pause,
		AttemptTimeout:  cfg.Publish.AttemptTimeout,
		LivePostTimeout: cfg.Publish.LivePostTimeout,
	})
	scheduleService := service.NewScheduleService(scheduledPostRepo, settingsService, queue.NewEnqueuer(client), publishService, drafts)
	redirectService := service.NewRedirectService(snapshots, connectionService, service.RedirectOptions{
		AuthBaseURL: cfg.AuthBaseURL,
		SecretKey:   cfg.SecretKey,
		TTL:         cfg.RedirectSnapshotTTL,
	})
	wizardService := service.NewWizardService(sessions, sessionLocks, drafts, publishService, scheduleService, redirectService)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	platform := handlers.NewPlatformHandler(connectionService, wizardService, *cfg)
	app.Get("/auth/:platform/return", authMiddleware.AuthMiddleware(), platform.ReturnLanding)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Get("/notifications", user.ListNotifications)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings", settings.GetSettingsInfo)
	api.Post("/settings", settings.UpdateSettings)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	wizard := handlers.NewWizardHandler(wizardService)
	api.Get("/wizard/session", wizard.GetSession)
	api.Post("/wizard/transition", wizard.Transition)
	api.Post("/wizard/draft", wizard.UpdateDraft)
	api.Post("/publish", wizard.Publish)
	api.Post("/publish/retry", wizard.RetryFailed)
	api.Post("/schedule/time", wizard.ScheduleTime)
	api.Post("/schedule/commit", wizard.Commit)
	api.Post("/schedule/edit-time", wizard.EditTime)
	api.Post("/schedule/publish-now", wizard.PublishNow)

	schedule := handlers.NewScheduleHandler(scheduleService)
	api.Get("/schedule", schedule.ListPosts)
	api.Post("/schedule/save-edit", schedule.SaveEdit)
	api.Post("/schedule/remove", schedule.RemovePost)

	api.Get("/connections", platform.ListConnections)
	api.Post("/connections/disconnect", platform.Disconnect)
	api.Post("/connections/disconnect-all", platform.DisconnectAll)
	api.Post("/redirect/suspend", platform.Suspend)
	api.Get("/redirect/resume", platform.Resume)

	media := handlers.NewMediaHandler(mediaService, wizardService)
	api.Post("/media", media.UploadMedia)

	// cron jobs
	connectionSyncJob := job.NewConnectionSyncJob(connectionService)

	c := cron.New()
	if err := connectionSyncJob.Schedule(c, cfg.ConnectionSyncInterval); err != nil {
		log.Fatalf("Failed to schedule connection sync: %v", err)
	}
	c.Start()
	defer c.Stop()

	//queue
	queueW := queue.NewQueue(scheduleService, userService)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.Publish.Concurrency,
	})

	mux := asynq.NewServeMux()
	queueW.Register(mux)

	log.Println("Starting the Asynq server...")
	if err := server.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, server)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}
