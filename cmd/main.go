package main

import (
	"context"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/addislearn/quiz-backend/config"
	"github.com/addislearn/quiz-backend/controllers"
	"github.com/addislearn/quiz-backend/logger"
	"github.com/addislearn/quiz-backend/routes"
	"github.com/addislearn/quiz-backend/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal("cannot build logger: ", err)
	}
	defer zlog.Sync()

	config.InitDB()

	modelClient, err := services.NewModelClient(context.Background(), cfg.Quiz)
	if err != nil {
		zlog.Fatal("cannot build quiz model client", "error", err)
	}
	zlog.Info("quiz model client ready",
		"provider", cfg.Quiz.Provider, "model", cfg.Quiz.Model)

	if cfg.Quiz.FallbackProvider != "" && cfg.Quiz.DailyQuota > 0 {
		fbCfg := cfg.Quiz.WithProvider(cfg.Quiz.FallbackProvider)
		fbClient, err := services.NewModelClient(context.Background(), fbCfg)
		if err != nil {
			zlog.Fatal("cannot build fallback model client", "error", err)
		}
		usage := services.NewUsageCounter(config.DB)
		modelClient = services.NewFailoverClient(modelClient, fbClient,
			cfg.Quiz.Provider, cfg.Quiz.DailyQuota, usage, zlog)
		zlog.Info("fallback model client ready",
			"provider", fbCfg.Provider, "model", fbCfg.Model, "daily_quota", cfg.Quiz.DailyQuota)
	}

	generator := services.NewGenerator(modelClient, services.DefaultGeneratorConfig(), zlog)
	sessions := services.NewSessionManager(config.DB, zlog)
	grader := services.NewGrader(config.DB, zlog)
	quiz := controllers.NewQuizController(config.DB, generator, sessions, grader, zlog)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r = routes.SetupRouter(r, config.DB, quiz)

	zlog.Info("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server stopped", "error", err)
	}
}
