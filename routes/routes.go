package routes

import (
	"net/http"

	"examforge/handlers"
	"examforge/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	questionHandler *handlers.QuestionHandler,
	testHandler *handlers.TestHandler,
	shareHandler *handlers.ShareHandler,
	takerHandler *handlers.TakerHandler,
	answerHandler *handlers.AnswerHandler,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Question authoring routes
			questions := protected.Group("/questions")
			{
				questions.GET("", questionHandler.GetQuestions)
				questions.GET("/unassigned", questionHandler.GetUnassignedQuestions)
				questions.POST("", questionHandler.CreateQuestion)
				questions.GET("/:id", questionHandler.GetQuestionByID)
				questions.PUT("/:id", questionHandler.UpdateQuestion)
				questions.DELETE("/:id", questionHandler.DeleteQuestion)
			}

			// Test authoring routes
			tests := protected.Group("/tests")
			{
				tests.GET("", testHandler.GetUserTests)
				tests.POST("", testHandler.CreateTest)
				tests.GET("/:id", testHandler.GetTestByID)
				tests.PUT("/:id", testHandler.UpdateTest)
				tests.DELETE("/:id", testHandler.DeleteTest)
			}

			// Sharing routes
			share := protected.Group("/share")
			{
				share.POST("/:testId", shareHandler.CreateShare)
				share.GET("/shared", shareHandler.GetSharedWithMe)
				// Redeem link: all three capability factors live in the URL
				share.GET("/:ownerId/:testId/:token", shareHandler.RedeemShare)
			}

			// Test-taker routes (answer-stripped views)
			take := protected.Group("/take")
			{
				take.GET("/tests", takerHandler.GetSharedTests)
				take.GET("/tests/:id", takerHandler.GetTest)
			}

			// Test-taker answer sheets
			answers := protected.Group("/answers")
			{
				answers.GET("", answerHandler.GetAnswers)
				answers.POST("", answerHandler.CreateAnswer)
				answers.GET("/test/:testId", answerHandler.GetTestAnswers)
				answers.GET("/:id", answerHandler.GetAnswerByID)
				answers.PUT("/:id", answerHandler.UpdateAnswer)
			}
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
