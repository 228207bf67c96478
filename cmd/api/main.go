package main

import (
	"os"
	"strings"

	"stemportal/internal/database"
	"stemportal/internal/handler"
	"stemportal/internal/logger"
	"stemportal/internal/middleware"
	"stemportal/internal/repository"
	"stemportal/internal/service"
	"stemportal/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           STEM Inventory Portal API
// @version         1.0
// @description     Role-based inventory management and request fulfillment for STEM program materials.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		// Running without a .env file is fine; env vars may come from the shell.
	}

	log, err := logger.New(logger.Config{
		Level:       envOr("LOG_LEVEL", "info"),
		Environment: envOr("APP_ENV", "development"),
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	dsn := "postgres://" + envOr("DB_USER", "postgres") +
		":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") +
		":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "stemportal") +
		"?sslmode=" + envOr("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	log.Info("connected to postgres")

	// Canonical rack layout, overridable for other storerooms.
	var racks []string
	if raw := os.Getenv("RACKS"); raw != "" {
		for _, rack := range strings.Split(raw, ",") {
			if rack = strings.TrimSpace(rack); rack != "" {
				racks = append(racks, rack)
			}
		}
	}

	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Repository -> Service -> Handler
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	itemRepo := repository.NewInventoryRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo, tokenRepo, auditRepo, txManager, middleware.GetJWTSecret())
	inventoryService := service.NewInventoryService(itemRepo, auditRepo, txManager, wsHub)
	requestService := service.NewRequestService(requestRepo, itemRepo, auditRepo, txManager, wsHub)
	reportService := service.NewReportService(itemRepo, requestRepo, racks)

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	requestHandler := handler.NewRequestHandler(requestService)
	reportHandler := handler.NewReportHandler(reportService)

	if envOr("APP_ENV", "development") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(envOr("CORS_ORIGINS", "http://localhost:3000"), ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	authHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "5050")
	log.Info("server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
