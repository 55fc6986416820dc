package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/choviet/choviet-api/internal/config"
	"github.com/choviet/choviet-api/internal/dispatch"
	"github.com/choviet/choviet-api/internal/handler"
	"github.com/choviet/choviet-api/internal/middleware"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/push"
	"github.com/choviet/choviet-api/internal/ratelimit"
	"github.com/choviet/choviet-api/internal/repository"
	"github.com/choviet/choviet-api/internal/service"
	"github.com/choviet/choviet-api/internal/ws"
	"github.com/choviet/choviet-api/migrations"
	"github.com/choviet/choviet-api/pkg/auth"
	"github.com/choviet/choviet-api/pkg/mailer"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const staleEndpointMaxAge = 30 * 24 * time.Hour

// @title           ChoViet API
// @version         1.0
// @description     Second-hand marketplace API with direct messaging, push delivery, and trust & safety.

// @contact.name   API Support
// @contact.email  support@choviet.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting ChoViet API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		if err := db.AutoMigrate(
			&model.User{},
			&model.Block{},
			&model.Conversation{},
			&model.Message{},
			&model.Post{},
			&model.PushEndpoint{},
			&model.Notification{},
			&model.Report{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// The rate gate depends on atomic set-if-absent; a cache tier that
	// does not honor it silently breaks spam prevention.
	limiter := ratelimit.New(rdb)
	if err := limiter.SelfCheck(ctx); err != nil {
		log.Fatalf("❌ Cache atomicity self-check failed: %v", err)
	}
	log.Println("✅ Cache atomicity self-check passed")

	// ==================== Email (SMTP / Mailpit) ====================
	mailClient := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		AlertTo:  cfg.SMTP.AlertTo,
	})
	log.Printf("📧 SMTP configured: %s:%s", cfg.SMTP.Host, cfg.SMTP.Port)

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	blockRepo := repository.NewBlockRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	endpointRepo := repository.NewEndpointRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Push client, selected once from configuration
	pushClient := push.Build(cfg.Push, rdb)
	push.SetCurrent(pushClient)

	// Delivery dispatcher
	dispatcher := dispatch.New(notifRepo, endpointRepo, userRepo, blockRepo, pushClient, mailClient, cfg.Push.URLHost)
	dispatchCtx, dispatchCancel := context.WithCancel(context.Background())
	defer dispatchCancel()
	go dispatcher.Run(dispatchCtx)

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, rdb)
	chatService := service.NewChatService(convRepo, msgRepo, userRepo, blockRepo, notifRepo, limiter, dispatcher, cfg.Push.DMRateTTL)
	pushService := service.NewPushService(endpointRepo)
	reportService := service.NewReportService(reportRepo, convRepo, msgRepo, cfg.Trust.AutoHideReports, cfg.Trust.AutoWarningReports)

	// Periodic sweep of endpoints that have not delivered in months
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-dispatchCtx.Done():
				return
			case <-ticker.C:
				if err := pushService.SweepStale(staleEndpointMaxAge); err != nil {
					log.Printf("⚠️  Stale endpoint sweep failed: %v", err)
				}
			}
		}
	}()

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService, hub)
	pushHandler := handler.NewPushHandler(pushService)
	reportHandler := handler.NewReportHandler(reportService)
	blockHandler := handler.NewBlockHandler(blockRepo)
	wsHandler := handler.NewWSHandler(hub, chatService, jwtManager)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "choviet-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, rdb))
		{
			// Auth
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/me", authHandler.GetProfile)
			protected.PATCH("/me/settings", authHandler.UpdateSettings)

			// Conversations
			protected.GET("/conversations", chatHandler.GetConversations)
			protected.POST("/conversations/direct", chatHandler.StartDirect)
			protected.GET("/conversations/:id/messages", chatHandler.GetMessages)
			protected.POST("/conversations/:id/messages", chatHandler.SendMessage)

			// Push endpoints
			protected.POST("/push/endpoints", pushHandler.RegisterEndpoint)
			protected.DELETE("/push/endpoints", pushHandler.UnregisterEndpoint)

			// Trust & safety
			protected.POST("/reports", reportHandler.CreateReport)
			protected.POST("/blocks", blockHandler.CreateBlock)
			protected.DELETE("/blocks/:id", blockHandler.DeleteBlock)
		}
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 ChoViet API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)
	log.Printf("📲 Push client: %s", pushClient.Name())

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	dispatchCancel()
	hubCancel()
	log.Println("✅ Server exited gracefully")
}
