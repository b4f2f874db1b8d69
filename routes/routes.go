package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/addislearn/quiz-backend/controllers"
	"github.com/addislearn/quiz-backend/middleware"
)

func SetupRouter(r *gin.Engine, db *gorm.DB, quiz *controllers.QuizController) *gin.Engine {
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
	}

	study := api.Group("/study")
	{
		study.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db))
		study.GET("/subjects", controllers.GetSubjects)
	}

	quizGroup := api.Group("/quiz")
	{
		quizGroup.Use(middleware.AuthMiddleware())
		quizGroup.POST("/session", quiz.GenerateQuiz)
		quizGroup.POST("/submit", quiz.SubmitQuiz)
		quizGroup.GET("/attempts", quiz.GetQuizAttempts)
	}

	textbooks := api.Group("/textbooks")
	{
		textbooks.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db))
		textbooks.GET("", controllers.GetTextbooks)
	}

	admin := api.Group("/admin")
	{
		admin.Use(middleware.RequireRoles("admin"), middleware.DBMiddleware(db))
		admin.POST("/textbooks", controllers.CreateTextbook)
	}

	return r
}
