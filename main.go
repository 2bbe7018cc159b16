package main

import (
	"examforge/config"
	"examforge/handlers"
	"examforge/middleware"
	"examforge/models"
	"examforge/routes"
	"examforge/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Test{},
		&models.Question{},
		&models.Choice{},
		&models.ShareGrant{},
		&models.ShareRedemption{},
		&models.UserAnswer{},
	)
	if err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	questionService := services.NewQuestionService(db, redisClient, logger)
	testService := services.NewTestService(db, redisClient, logger)
	shareService := services.NewShareService(db, logger)
	takerService := services.NewTakerService(db, shareService, redisClient, logger)
	answerService := services.NewAnswerService(db, shareService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	questionHandler := handlers.NewQuestionHandler(questionService)
	testHandler := handlers.NewTestHandler(testService)
	shareHandler := handlers.NewShareHandler(shareService)
	takerHandler := handlers.NewTakerHandler(takerService)
	answerHandler := handlers.NewAnswerHandler(answerService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, questionHandler, testHandler, shareHandler, takerHandler, answerHandler, cfg.JWTSecret)

	// Start server
	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
