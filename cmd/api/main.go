package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"ledgerlens/internal/blobstore"
	"ledgerlens/internal/config"
	"ledgerlens/internal/database"
	"ledgerlens/internal/handlers"
	"ledgerlens/internal/ingest"
	"ledgerlens/internal/logger"
	"ledgerlens/internal/middleware"
	"ledgerlens/internal/parser"
	"ledgerlens/internal/services"
	"ledgerlens/internal/validator"
)

// @title           LedgerLens API
// @version         1.0
// @description     LedgerLens ingests bank and credit-card statement files, reconciles their transactions, and serves spending analytics.

// @host      localhost:8080
// @BasePath  /api/v1

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Parser registry
	parserConfig, err := parser.LoadConfig(appConfig.ParserConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load parser configuration: %w", err)
	}
	registry, err := parser.BuildRegistry(parserConfig)
	if err != nil {
		return fmt.Errorf("failed to build parser registry: %w", err)
	}
	log.Infow("parser registry ready", "institutions", registry.Institutions())

	// Blob storage
	var store blobstore.Store
	switch appConfig.BlobBackend {
	case "memory":
		log.Warn("Using in-memory blob storage; uploaded files will not survive restarts")
		store = blobstore.NewMemory()
	default:
		gcs, err := blobstore.NewGCS(context.Background(), appConfig.GCSBucket)
		if err != nil {
			return fmt.Errorf("failed to create blob store: %w", err)
		}
		defer gcs.Close()
		store = gcs
	}

	// Ingestion pipeline
	db := dbManager.DB()
	orchestrator := ingest.NewOrchestrator(db, registry, store, ingest.Config{
		MaxRetries:      appConfig.IngestMaxRetries,
		DedupeTolerance: appConfig.DedupeTolerance,
		Timeout:         appConfig.IngestTimeout,
	})

	// Services
	statementService := services.NewStatementService(db, orchestrator)
	transactionService := services.NewTransactionService(db)
	categoryService := services.NewCategoryService(db)
	analyticsService := services.NewAnalyticsService(db)

	// Handlers
	statementHandler := handlers.NewStatementHandler(statementService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	validator.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	statements := v1.Group("/statements")
	statements.POST("", statementHandler.CreateStatement)
	statements.GET("", statementHandler.ListStatements)
	statements.GET("/:id", statementHandler.GetStatement)
	statements.POST("/:id/reingest", statementHandler.ReingestStatement)
	statements.GET("/:id/transactions", transactionHandler.GetStatementTransactions)

	accounts := v1.Group("/accounts")
	accounts.GET("/:id/transactions", transactionHandler.GetAccountTransactions)

	transactions := v1.Group("/transactions")
	transactions.PATCH("/:id", transactionHandler.UpdateTransaction)

	categories := v1.Group("/categories")
	categories.GET("/rules", categoryHandler.ListRules)
	categories.POST("/rules", categoryHandler.CreateRule)

	analyticsRoutes := v1.Group("/analytics")
	analyticsRoutes.GET("/spending", analyticsHandler.Spending)

	log.Infof("Starting LedgerLens API server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
