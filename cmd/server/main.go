package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"

	"github.com/stridelog/stridelog/internal/config"
	"github.com/stridelog/stridelog/internal/database"
	"github.com/stridelog/stridelog/internal/handlers"
	"github.com/stridelog/stridelog/internal/middleware"
	"github.com/stridelog/stridelog/internal/provider"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/types"

	_ "github.com/stridelog/stridelog/docs/api" // Swagger docs
)

// @title Stridelog API
// @version 1.0.0
// @description Training journal with coach sharing, provider sync and planned-activity matching
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/stridelog/stridelog

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name stridelog_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations and seed the sport taxonomy
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.SeedStandardTypes(db); err != nil {
		log.Fatalf("Failed to seed activity types: %v", err)
	}

	// Provider client
	client := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderClientID, cfg.ProviderClientSecret)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("stridelog")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	sessionTTL := time.Duration(cfg.SessionTTLHours) * time.Hour

	// Create handlers
	authHandler := &handlers.AuthHandler{DB: db, SessionTTL: sessionTTL}
	providerHandler := &handlers.ProviderHandler{DB: db, Client: client, API: client, RedirectURL: cfg.ProviderRedirectURL}
	activityHandler := &handlers.ActivityHandler{DB: db, API: client}
	dayHandler := &handlers.DayHandler{DB: db}
	planHandler := &handlers.PlanHandler{DB: db}
	typeHandler := &handlers.TypeHandler{DB: db}
	accessHandler := &handlers.AccessHandler{DB: db}

	requireUser := middleware.RequireUser(db)
	requireCoach := middleware.RequireCoach(db)
	requireAthlete := middleware.RequireAthlete(db)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/status", requireUser, authHandler.Status)
	auth.Get("/invitation/:token", authHandler.ValidateInvitation)

	// Provider link routes (athlete-owned)
	prov := api.Group("/provider", requireAthlete)
	prov.Get("/connect", providerHandler.Connect)
	prov.Get("/callback", providerHandler.Callback)
	prov.Get("/status", providerHandler.Status)
	prov.Get("/stats", providerHandler.AthleteStats)
	prov.Delete("/", providerHandler.Disconnect)

	// Activity routes
	activities := api.Group("/activities", requireUser)
	activities.Get("/", activityHandler.List)
	activities.Get("/stats", activityHandler.Stats)
	activities.Post("/", requireAthlete, activityHandler.Create)
	activities.Post("/sync", requireAthlete, activityHandler.Sync)
	activities.Get("/:id", activityHandler.Get)
	activities.Put("/:id", activityHandler.Update)
	activities.Delete("/:id", requireAthlete, activityHandler.Delete)
	activities.Post("/:id/sync", requireAthlete, activityHandler.SyncOne)

	// Day routes
	days := api.Group("/days", requireUser)
	days.Get("/:date", dayHandler.Get)
	days.Put("/:date", dayHandler.Put)

	// Planned activity routes
	plan := api.Group("/plan", requireUser)
	plan.Get("/", planHandler.List)
	plan.Post("/", planHandler.Create)
	plan.Post("/reorder", planHandler.Reorder)
	plan.Put("/:id", planHandler.Update)
	plan.Delete("/:id", planHandler.Delete)
	plan.Post("/:id/duplicate", planHandler.Duplicate)
	plan.Post("/:id/match/:activityID", planHandler.Match)
	plan.Delete("/:id/match", planHandler.Unmatch)

	// Taxonomy routes
	typesGroup := api.Group("/types", requireUser)
	typesGroup.Get("/standard", typeHandler.Standard)
	typesGroup.Get("/extended", typeHandler.Extended)
	typesGroup.Post("/extended", typeHandler.CreateExtended)
	typesGroup.Put("/extended/:id", typeHandler.UpdateExtended)
	typesGroup.Delete("/extended/:id", typeHandler.DeleteExtended)
	typesGroup.Post("/extended/:id/restore", typeHandler.RestoreExtended)

	// Sharing routes
	api.Get("/athletes", requireCoach, accessHandler.Athletes)
	api.Get("/athletes/pending", requireCoach, accessHandler.PendingInvites)
	api.Post("/view/:athleteID", requireCoach, accessHandler.SetView)
	api.Delete("/view", requireCoach, accessHandler.ClearView)
	api.Get("/coaches", requireAthlete, accessHandler.Coaches)
	api.Post("/coaches/invite", requireAthlete, accessHandler.InviteCoach)
	api.Post("/coaches/accept/:athleteID", requireCoach, accessHandler.Accept)
	api.Post("/coaches/reject/:athleteID", requireCoach, accessHandler.Reject)
	api.Delete("/coaches/:coachID", requireAthlete, accessHandler.RemoveCoach)
	api.Get("/invitations", requireUser, accessHandler.Invitations)
	api.Post("/invitations", requireUser, accessHandler.CreateInvitation)
	api.Delete("/invitations/:id", requireUser, accessHandler.CancelInvitation)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		code = appErr.Status()
		errorType = string(appErr.Kind)
		message = appErr.Message
		// Internal detail stays in the logs, not the response.
		if appErr.Kind == types.ErrPersistence || appErr.Kind == types.ErrExternal {
			log.Printf("%s error on %s: %v", appErr.Kind, c.OriginalURL(), appErr.Unwrap())
		}
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
