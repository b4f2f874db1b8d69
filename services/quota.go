package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/addislearn/quiz-backend/logger"
	"github.com/addislearn/quiz-backend/models"
)

// UsageCounter tracks per-provider daily call counts in the store.
type UsageCounter struct {
	db *gorm.DB
}

func NewUsageCounter(db *gorm.DB) *UsageCounter {
	return &UsageCounter{db: db}
}

// Increment bumps today's counter for the provider and returns the new
// count. The upsert keeps concurrent instances from losing increments.
func (u *UsageCounter) Increment(provider string) (int, error) {
	day := time.Now().UTC().Format("2006-01-02")

	err := u.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"calls": gorm.Expr("calls + 1"),
		}),
	}).Create(&models.ProviderUsage{Provider: provider, Day: day, Calls: 1}).Error
	if err != nil {
		return 0, fmt.Errorf("increment provider usage: %w", err)
	}

	var row models.ProviderUsage
	if err := u.db.First(&row, "provider = ? AND day = ?", provider, day).Error; err != nil {
		return 0, fmt.Errorf("read provider usage: %w", err)
	}
	return row.Calls, nil
}

// FailoverClient routes calls to the primary provider until its daily
// quota is spent, then to the fallback. A broken counter never blocks
// generation; the primary just keeps serving.
type FailoverClient struct {
	primary     ModelClient
	fallback    ModelClient
	primaryName string
	dailyQuota  int
	usage       *UsageCounter
	log         *logger.Logger
}

func NewFailoverClient(primary, fallback ModelClient, primaryName string, dailyQuota int, usage *UsageCounter, log *logger.Logger) *FailoverClient {
	return &FailoverClient{
		primary:     primary,
		fallback:    fallback,
		primaryName: primaryName,
		dailyQuota:  dailyQuota,
		usage:       usage,
		log:         log,
	}
}

func (f *FailoverClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	calls, err := f.usage.Increment(f.primaryName)
	if err != nil {
		f.log.Warn("provider usage counter unavailable", "error", err)
		return f.primary.Complete(ctx, systemPrompt, userPrompt)
	}
	if f.dailyQuota > 0 && calls > f.dailyQuota && f.fallback != nil {
		f.log.Info("daily quota spent, using fallback provider",
			"provider", f.primaryName, "calls", calls, "quota", f.dailyQuota)
		return f.fallback.Complete(ctx, systemPrompt, userPrompt)
	}
	return f.primary.Complete(ctx, systemPrompt, userPrompt)
}
