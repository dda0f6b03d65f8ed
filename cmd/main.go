package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/handlers"
	"catalog-service/internal/importer"
	"catalog-service/internal/middleware"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
	"catalog-service/internal/storage"
)

// @title Catalog & Floorplan BOM API
// @version 1.0.0
// @description Catalog management service: spreadsheet-driven catalog sync and floorplan bill-of-materials assembly

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8088
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize file storage for extracted catalog images
	fileStorage, err := storage.NewLocalStorage(cfg.MediaRoot)
	if err != nil {
		log.Fatal("Failed to initialize media storage:", err)
	}

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db, redisClient)
	floorplanRepo := repository.NewFloorplanRepository(db)

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	natsURL := os.Getenv("NATS_URL")
	if natsURL != "" {
		eventsPublisher, err = events.NewPublisher(natsURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	// Initialize services
	extractor := importer.NewExtractor(fileStorage, logger)
	syncService := services.NewSyncService(catalogRepo, extractor, eventsPublisher, logger)
	bomService := services.NewBomService(catalogRepo, floorplanRepo, eventsPublisher, logger)

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(catalogRepo)
	syncHandler := handlers.NewSyncHandler(syncService, logger, cfg.MaxUploadSizeMB)
	floorplanHandler := handlers.NewFloorplanHandler(floorplanRepo)
	bomHandler := handlers.NewBomHandler(bomService)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Extracted images and floorplan backgrounds
	router.Static("/media", cfg.MediaRoot)

	// Protected API routes
	api := router.Group("/api/v1")

	// In development: header-based identity for local testing
	// In production: JWT validation
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentAuthMiddleware())
	} else {
		api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	}

	v1 := api.Group("")
	{
		categories := v1.Group("/categories")
		{
			categories.GET("", catalogHandler.GetCategories)
			categories.POST("", catalogHandler.CreateCategory)
			categories.PUT("/:id", catalogHandler.UpdateCategory)
		}

		items := v1.Group("/items")
		{
			items.GET("", catalogHandler.GetItems)
			items.GET("/:id", catalogHandler.GetItem)
			items.GET("/:id/variants", catalogHandler.GetVariants)
			items.POST("", catalogHandler.CreateItem)
			items.PUT("/:id", catalogHandler.UpdateItem)
		}

		v1.GET("/variants/:id/addons", catalogHandler.GetVariantAddons)

		// Spreadsheet sync
		v1.POST("/catalog/sync", syncHandler.SyncCatalog)

		// Floorplan hierarchy
		customers := v1.Group("/customers")
		{
			customers.GET("", floorplanHandler.GetCustomers)
			customers.POST("", floorplanHandler.CreateCustomer)
			customers.GET("/:id/projects", floorplanHandler.GetProjects)
		}
		v1.POST("/projects", floorplanHandler.CreateProject)
		v1.GET("/projects/:id/floorplans", floorplanHandler.GetFloorplans)
		v1.POST("/floorplans", floorplanHandler.CreateFloorplan)

		// BOM assembly
		v1.POST("/bom/entries", bomHandler.CreateBomEntry)
		v1.POST("/bom/entries/:id/switch", bomHandler.SwitchVariant)
		v1.GET("/floorplans/:id/bom", bomHandler.GetFloorplanBom)
		v1.POST("/floorplans/:id/bom/refresh", bomHandler.RefreshFloorplanBom)

		// Placements
		v1.POST("/placements", bomHandler.CreatePlacement)
		v1.DELETE("/placements/:id", bomHandler.DeletePlacement)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down catalog-service...")
	log.Println("Catalog service stopped")
}
