package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/addislearn/quiz-backend/models"
)

var DB *gorm.DB

// QuizConfig selects the generative backend for quiz generation. It is an
// explicit value wired once at startup; nothing mutates it at runtime.
type QuizConfig struct {
	Provider     string // gemini | openai | groq
	Model        string
	GeminiAPIKey string
	OpenAIAPIKey string
	GroqAPIKey   string
	// FallbackProvider, when set, takes over once the primary provider
	// has spent DailyQuota calls for the day.
	FallbackProvider string
	DailyQuota       int
}

// WithProvider returns a copy pointed at another provider with that
// provider's default model.
func (q QuizConfig) WithProvider(provider string) QuizConfig {
	q.Provider = provider
	q.Model = defaultModel(provider)
	return q
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.0-flash"
	case "openai":
		return "gpt-4o-mini"
	default:
		return "llama-3.1-8b-instant"
	}
}

type Config struct {
	Port    string
	LogMode string
	Quiz    QuizConfig
}

func Load() Config {
	cfg := Config{
		Port:    getenv("PORT", "8080"),
		LogMode: getenv("LOG_MODE", "dev"),
		Quiz: QuizConfig{
			Provider:         getenv("QUIZ_AI_PROVIDER", "groq"),
			Model:            os.Getenv("QUIZ_AI_MODEL"),
			GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
			OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
			GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
			FallbackProvider: os.Getenv("QUIZ_AI_FALLBACK_PROVIDER"),
		},
	}
	if v := os.Getenv("QUIZ_AI_DAILY_QUOTA"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quiz.DailyQuota = n
		}
	}
	if cfg.Quiz.Model == "" {
		cfg.Quiz.Model = defaultModel(cfg.Quiz.Provider)
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func InitDB() {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Africa/Addis_Ababa",
		dbHost, dbUser, dbPass, dbName, dbPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("cannot connect to database:", err)
	}

	DB = db

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("cannot get sql.DB from gorm:", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	err = DB.AutoMigrate(
		&models.User{},
		&models.Textbook{},
		&models.TextbookPage{},
		&models.QuizSession{},
		&models.QuizItem{},
		&models.QuizAttempt{},
		&models.QuizAnswer{},
		&models.ProviderUsage{},
	)
	if err != nil {
		log.Fatal("automigrate failed: ", err)
	}
	log.Println("postgres connected & migrated")
}
