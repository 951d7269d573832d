// main.go
package main

import (
	"log"
	"os"
	"quizarena/database"
	"quizarena/handlers"
	"quizarena/middleware"
	"quizarena/models"
	"quizarena/services"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	validateEnvironment()

	// Initialize database
	database.InitDB()

	// Realtime hub and the 1-second phase re-evaluation loop
	services.InitHub()
	services.InitPhaseWatcher()
	defer func() {
		if w := services.GetPhaseWatcher(); w != nil {
			w.Stop()
		}
	}()

	handlers.InitCompetitionHandlers()

	watchUpcomingCompetitions()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Apply rate limiting to all routes
	app.Use(middleware.RateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.AuthRateLimitMiddleware())
	authGroup.Post("/guest", handlers.GuestLogin)
	authGroup.Post("/login", handlers.Login)
	authGroup.Post("/register", handlers.Register)

	// User routes
	userGroup := api.Group("/users")
	userGroup.Use(middleware.AuthMiddleware)
	userGroup.Get("/me", handlers.GetCurrentUser)

	// Quiz authoring routes
	quizGroup := api.Group("/quizzes")
	quizGroup.Use(middleware.AuthMiddleware)
	quizGroup.Post("/", handlers.CreateQuiz)
	quizGroup.Get("/", handlers.GetQuizzes)
	quizGroup.Get("/:id", handlers.GetQuiz)
	quizGroup.Put("/:id", handlers.UpdateQuiz)
	quizGroup.Delete("/:id", handlers.DeleteQuiz)

	// Competition routes; reads are public but resolve the viewer when a
	// token is present so organizers can reach hidden competitions
	compGroup := api.Group("/competitions")
	compGroup.Get("/", middleware.OptionalAuthMiddleware, handlers.ListCompetitions)
	compGroup.Get("/:id", middleware.OptionalAuthMiddleware, handlers.GetCompetition)
	compGroup.Get("/:id/leaderboard", middleware.OptionalAuthMiddleware, handlers.GetLeaderboard)
	compGroup.Post("/", middleware.AuthMiddleware, handlers.CreateCompetition)
	compGroup.Put("/:id", middleware.AuthMiddleware, handlers.UpdateCompetition)
	compGroup.Post("/:id/publish", middleware.AuthMiddleware, handlers.PublishCompetition)
	compGroup.Put("/:id/visibility", middleware.AuthMiddleware, handlers.UpdateVisibility)
	compGroup.Delete("/:id", middleware.AuthMiddleware, handlers.DeleteCompetition)

	// Registration workflow
	compGroup.Post("/:id/register", middleware.AuthMiddleware, handlers.RegisterForCompetition)
	compGroup.Get("/:id/registrations", middleware.AuthMiddleware, handlers.ListRegistrations)
	compGroup.Put("/:id/registrations/:regID/verify", middleware.AuthMiddleware, handlers.VerifyRegistration)

	// Attempts and scores
	compGroup.Post("/:id/attempts/start", middleware.AuthMiddleware, handlers.StartAttempt)
	compGroup.Get("/:id/attempts/me", middleware.AuthMiddleware, handlers.GetMyAttempt)
	compGroup.Post("/:id/scores", middleware.AuthMiddleware, handlers.SubmitScore)

	// Realtime stream: phase ticks, leaderboard updates, and the
	// organizer's registration feed
	app.Get("/ws/competitions/:id", middleware.OptionalAuthMiddleware, handlers.StreamUpgrade, handlers.CompetitionStream)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🔐 JWT Secret configured: %v", os.Getenv("JWT_SECRET") != "")
	log.Printf("🌐 Competition stream available at ws://localhost:%s/ws/competitions/:id", port)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// watchUpcomingCompetitions puts every published, not-yet-ended
// competition under the phase watcher at boot so transitions broadcast
// even before any client connects.
func watchUpcomingCompetitions() {
	db := database.GetDB()
	var comps []models.Competition
	if err := db.Where("draft = ? AND end_at > ?", false, time.Now()).Find(&comps).Error; err != nil {
		log.Printf("Failed to load competitions for phase watching: %v", err)
		return
	}

	w := services.GetPhaseWatcher()
	for i := range comps {
		w.Watch(&comps[i])
	}
	if len(comps) > 0 {
		log.Printf("⏱  Watching %d active competitions", len(comps))
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
