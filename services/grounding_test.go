package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/addislearn/quiz-backend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Textbook{},
		&models.TextbookPage{},
		&models.QuizSession{},
		&models.QuizItem{},
		&models.QuizAttempt{},
		&models.QuizAnswer{},
		&models.ProviderUsage{},
	))
	return db
}

func TestExpandRanges(t *testing.T) {
	tests := []struct {
		name   string
		ranges []PageRange
		want   []int
	}{
		{
			name:   "simple range",
			ranges: []PageRange{{Start: 3, End: 5}},
			want:   []int{3, 4, 5},
		},
		{
			name:   "inverted range equals normalized range",
			ranges: []PageRange{{Start: 9, End: 3}},
			want:   []int{3, 4, 5, 6, 7, 8, 9},
		},
		{
			name:   "clamped to one",
			ranges: []PageRange{{Start: -2, End: 2}},
			want:   []int{1, 2},
		},
		{
			name:   "overlapping ranges deduplicated",
			ranges: []PageRange{{Start: 1, End: 3}, {Start: 2, End: 4}},
			want:   []int{1, 2, 3, 4},
		},
		{
			name:   "empty",
			ranges: nil,
			want:   []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandRanges(tt.ranges))
		})
	}
}

func TestExpandRangesInversionEquivalence(t *testing.T) {
	assert.Equal(t,
		ExpandRanges([]PageRange{{Start: 3, End: 9}}),
		ExpandRanges([]PageRange{{Start: 9, End: 3}}),
	)
}

func TestResolveTextbook(t *testing.T) {
	db := newTestDB(t)

	older := models.Textbook{Grade: 9, Subject: "Biology", Title: "old edition"}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Model(&older).Update("created_at", time.Now().Add(-time.Hour)).Error)
	newer := models.Textbook{Grade: 9, Subject: "biology", Title: "new edition"}
	require.NoError(t, db.Create(&newer).Error)

	t.Run("case-insensitive match picks newest", func(t *testing.T) {
		tb, err := ResolveTextbook(db, 9, "BIOLOGY")
		require.NoError(t, err)
		assert.Equal(t, newer.ID, tb.ID)
	})

	t.Run("wrong grade not found", func(t *testing.T) {
		_, err := ResolveTextbook(db, 10, "biology")
		assert.ErrorIs(t, err, ErrTextbookNotFound)
	})

	t.Run("unknown subject not found", func(t *testing.T) {
		_, err := ResolveTextbook(db, 9, "chemistry")
		assert.ErrorIs(t, err, ErrTextbookNotFound)
	})
}

func TestResolvePages(t *testing.T) {
	db := newTestDB(t)

	tb := models.Textbook{Grade: 9, Subject: "biology"}
	require.NoError(t, db.Create(&tb).Error)
	for _, n := range []int{10, 11, 12, 30} {
		page := models.TextbookPage{
			TextbookID:  tb.ID,
			PageNumber:  n,
			TextContent: fmt.Sprintf("content of page %d", n),
		}
		require.NoError(t, db.Create(&page).Error)
	}

	t.Run("ascending page order", func(t *testing.T) {
		pages, err := ResolvePages(db, tb.ID, []PageRange{{Start: 12, End: 10}})
		require.NoError(t, err)
		require.Len(t, pages, 3)
		assert.Equal(t, []int{10, 11, 12}, []int{pages[0].PageNumber, pages[1].PageNumber, pages[2].PageNumber})
	})

	t.Run("missing pages are absent, not errors", func(t *testing.T) {
		pages, err := ResolvePages(db, tb.ID, []PageRange{{Start: 29, End: 31}})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, 30, pages[0].PageNumber)
	})

	t.Run("range with no pages at all", func(t *testing.T) {
		_, err := ResolvePages(db, tb.ID, []PageRange{{Start: 100, End: 105}})
		assert.ErrorIs(t, err, ErrNoPagesInRange)
	})
}

func TestFilterTextPages(t *testing.T) {
	pages := []models.TextbookPage{
		{PageNumber: 1, TextContent: "real text"},
		{PageNumber: 2, TextContent: "   "},
		{PageNumber: 3, TextContent: ""},
		{PageNumber: 4, TextContent: "\nmore text\n"},
	}
	got := FilterTextPages(pages)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].PageNumber)
	assert.Equal(t, 4, got[1].PageNumber)
}

func TestDetectLanguageHint(t *testing.T) {
	amharic := strings.Repeat("ሀሁሂሃሄ ", 20)
	english := strings.Repeat("photosynthesis converts light ", 20)

	tests := []struct {
		name    string
		text    string
		subject string
		want    string
	}{
		{"mostly ethiopic script", amharic, "history", LangHintAmharic},
		{"mostly latin script", english, "biology", LangHintAuto},
		{"mixed below threshold", english + "ሀሁ", "biology", LangHintAuto},
		{"subject names the language", english, "Amharic", LangHintAmharic},
		{"subject in ethiopic script", english, "አማርኛ", LangHintAmharic},
		{"no letters at all", "1234 5678", "math", LangHintAuto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := []models.TextbookPage{{PageNumber: 1, TextContent: tt.text}}
			assert.Equal(t, tt.want, DetectLanguageHint(pages, tt.subject))
		})
	}
}
