package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tabletennis-reviews/internal/auth"
	"tabletennis-reviews/internal/config"
	"tabletennis-reviews/internal/database"
	"tabletennis-reviews/internal/handlers"
	"tabletennis-reviews/internal/notify"
	"tabletennis-reviews/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Outbound Discord notifications (disabled when no webhook configured)
	notifier := notify.NewDiscordWebhook(cfg.Discord.WebhookURL)
	if cfg.Discord.WebhookURL == "" {
		logger.Info("Discord webhook not configured; moderation notifications disabled")
	}

	// Initialize services
	authService := services.NewAuthService(database.GetDB(), logger)
	userService := services.NewUserService(database.GetDB())
	equipmentService := services.NewEquipmentService(database.GetDB(), logger)
	playerService := services.NewPlayerService(database.GetDB(), logger)
	reviewService := services.NewReviewService(database.GetDB(), logger)
	moderatorService := services.NewModeratorService(database.GetDB(), logger)
	moderationService := services.NewModerationService(database.GetDB(), notifier, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	equipmentHandler := handlers.NewEquipmentHandler(equipmentService, reviewService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	moderationHandler := handlers.NewModerationHandler(moderationService, moderatorService)
	discordHandler, err := handlers.NewDiscordHandler(
		moderationService,
		moderatorService,
		cfg.Discord.PublicKey,
		cfg.Discord.ModeratorRoleIDs,
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to initialize Discord handler: %v", err)
	}

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public catalog routes
	router.GET("/api/equipment", equipmentHandler.List)
	router.GET("/api/equipment/:id", equipmentHandler.Get)
	router.GET("/api/equipment/:id/reviews", reviewHandler.ListByEquipment)
	router.GET("/api/players", playerHandler.List)
	router.GET("/api/players/:id", playerHandler.Get)

	// Discord interaction callbacks (signed by Discord, not JWT-protected)
	router.POST("/discord/interactions", discordHandler.HandleInteraction)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/reviews", reviewHandler.Create)
		api.GET("/reviews/mine", reviewHandler.ListMine)
		api.POST("/equipment/submissions", equipmentHandler.Submit)
		api.POST("/players/:id/edits", playerHandler.SubmitEdit)
	}

	// Admin routes (protected + moderator only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(moderationHandler.ModeratorMiddleware())
	{
		admin.GET("/stats", moderationHandler.GetStats)
		admin.GET("/logs", moderationHandler.GetLogs)

		admin.GET("/moderation/:kind/pending", moderationHandler.ListPending)
		admin.GET("/moderation/:kind/:id", moderationHandler.Get)
		admin.POST("/moderation/:kind/:id/approve", moderationHandler.Approve)
		admin.POST("/moderation/:kind/:id/reject", moderationHandler.Reject)

		// Moderator management (admin role only)
		admin.POST("/moderators/promote", moderationHandler.AdminMiddleware(), moderationHandler.PromoteModerator)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
