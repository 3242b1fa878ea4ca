package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daybrief/internal/ai"
	"daybrief/internal/config"
	"daybrief/internal/database"
	"daybrief/internal/handlers"
	"daybrief/internal/jobs"
	"daybrief/internal/logging"
	"daybrief/internal/middleware"
	"daybrief/internal/services"
	"daybrief/internal/tools"
	"daybrief/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️  No .env file found, using environment variables")
	}

	cfg := config.Load()
	logging.Init()

	// Database
	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			log.Printf("⚠️ Error closing MongoDB: %v", err)
		}
	}()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.EnsureIndexes(ctx); err != nil {
			log.Fatalf("❌ Failed to ensure indexes: %v", err)
		}
	}

	// Auth (nil means dev-mode bypass; the middleware refuses that in production)
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
	} else {
		log.Println("⚠️  JWT_SECRET not set, auth runs in development mode")
	}

	// AI clients
	embedder := ai.NewEmbeddingClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.EmbeddingModel)
	completer := ai.NewCompletionClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.ChatModel)

	// Stores, metrics, tools
	contextStore := database.NewMongoContextStore(db)
	feedStore := database.NewMongoFeedStore(db)
	metrics := services.InitMetrics()
	registry := tools.NewDefaultRegistry(cfg.GoogleMapsAPIKey)

	// Services
	contextService := services.NewContextService(contextStore, embedder)
	retrievalService := services.NewRetrievalService(contextStore, embedder)
	answerService := services.NewAnswerService(retrievalService, completer, registry, metrics)
	generationService := services.NewFeedGenerationService(contextStore, feedStore, completer, metrics)
	feedService := services.NewFeedService(feedStore, metrics)

	// Background expiry sweep
	expiryJob, err := jobs.NewFeedExpiryJob(feedService, time.Duration(cfg.SweepIntervalMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("❌ Failed to create expiry job: %v", err)
	}
	if err := expiryJob.Start(); err != nil {
		log.Fatalf("❌ Failed to start expiry job: %v", err)
	}

	// Handlers
	contextHandler := handlers.NewContextHandler(contextService)
	assistantHandler := handlers.NewAssistantHandler(answerService, retrievalService, registry)
	feedHandler := handlers.NewFeedHandler(generationService, feedService)
	healthHandler := handlers.NewHealthHandler(db)

	app := fiber.New(fiber.Config{
		AppName:      "DayBrief v1.0",
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  5 * time.Minute,
		BodyLimit:    4 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("daybrief")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	app.Get("/health", healthHandler.Handle)

	// Rate limiter for authenticated API routes (120 requests per minute per user)
	apiLimiter := limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Rate limit by user ID
			userID, ok := c.Locals("user_id").(string)
			if !ok || userID == "" {
				// Fallback to IP if no user ID
				return c.IP()
			}
			return "api:" + userID
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] API limit reached for user: %v", c.Locals("user_id"))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down.",
			})
		},
	})

	api := app.Group("/api/v1", middleware.LocalAuthMiddleware(jwtAuth), apiLimiter)

	api.Post("/context", contextHandler.UpsertContext)
	api.Get("/context", contextHandler.ListContext)
	api.Delete("/context/:source", contextHandler.DeleteBySource)
	api.Put("/profile", contextHandler.UpsertProfile)

	api.Post("/assistant/ask", assistantHandler.Ask)
	api.Get("/assistant/search", assistantHandler.Search)
	api.Get("/assistant/tools", assistantHandler.ListTools)

	api.Post("/feed/generate", feedHandler.Generate)
	api.Get("/feed", feedHandler.List)
	api.Patch("/feed/:id/status", feedHandler.UpdateStatus)
	api.Post("/feed/:id/interactions", feedHandler.RecordInteraction)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := expiryJob.Stop(); err != nil {
			log.Printf("⚠️ Error stopping expiry job: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	log.Printf("🚀 DayBrief listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
