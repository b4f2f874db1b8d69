package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/addislearn/quiz-backend/logger"
	"github.com/addislearn/quiz-backend/models"
)

// SubmittedAnswer is one client answer awaiting grading.
type SubmittedAnswer struct {
	ItemID        uuid.UUID
	SelectedIndex int
}

// AnswerBreakdown is the per-item grading outcome returned to the caller.
type AnswerBreakdown struct {
	ItemID        uuid.UUID `json:"item_id"`
	SelectedIndex int       `json:"selected_index"`
	IsCorrect     bool      `json:"is_correct"`
}

type GradeResult struct {
	AttemptID   uuid.UUID         `json:"attempt_id"`
	SessionID   uuid.UUID         `json:"session_id"`
	Score       int               `json:"score"`
	Total       int               `json:"total"`
	Percent     int               `json:"percent"`
	CompletedAt time.Time         `json:"completed_at"`
	Breakdown   []AnswerBreakdown `json:"breakdown"`
	// AnswersPersisted is false on the partial-success path: the attempt
	// and score are durable but the per-answer log is not.
	AnswersPersisted bool `json:"-"`
}

// Grader recomputes correctness from the stored answer key and records one
// attempt per submission.
type Grader struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGrader(db *gorm.DB, log *logger.Logger) *Grader {
	return &Grader{db: db, log: log}
}

// Grade scores the submitted answers against the session's answer key.
// A session owned by a different user reports ErrSessionNotFound, the same
// as a missing session, so the response does not confirm existence.
// Submitted item ids that do not belong to the session are ignored and do
// not count toward the total.
func (g *Grader) Grade(sessionID, userID uuid.UUID, answers []SubmittedAnswer) (*GradeResult, error) {
	var session models.QuizSession
	err := g.db.Select("id", "user_id").First(&session, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}

	itemIDs := make([]uuid.UUID, 0, len(answers))
	for _, a := range answers {
		itemIDs = append(itemIDs, a.ItemID)
	}

	var items []models.QuizItem
	err = g.db.Select("id", "correct_index").
		Where("session_id = ?", sessionID).
		Where("id IN ?", itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoGradableItems
	}

	keyByID := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		keyByID[it.ID] = it.CorrectIndex
	}

	score := 0
	breakdown := make([]AnswerBreakdown, 0, len(answers))
	for _, a := range answers {
		correctIndex, ok := keyByID[a.ItemID]
		if !ok {
			continue
		}
		isCorrect := a.SelectedIndex == correctIndex
		if isCorrect {
			score++
		}
		breakdown = append(breakdown, AnswerBreakdown{
			ItemID:        a.ItemID,
			SelectedIndex: a.SelectedIndex,
			IsCorrect:     isCorrect,
		})
	}

	total := len(breakdown)
	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(score) / float64(total) * 100))
	}

	attempt := models.QuizAttempt{
		SessionID:   sessionID,
		UserID:      userID,
		Score:       score,
		Total:       total,
		CompletedAt: time.Now(),
	}
	if err := g.db.Create(&attempt).Error; err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	result := &GradeResult{
		AttemptID:        attempt.ID,
		SessionID:        sessionID,
		Score:            score,
		Total:            total,
		Percent:          percent,
		CompletedAt:      attempt.CompletedAt,
		Breakdown:        breakdown,
		AnswersPersisted: true,
	}

	answerRows := make([]models.QuizAnswer, 0, len(breakdown))
	for _, b := range breakdown {
		answerRows = append(answerRows, models.QuizAnswer{
			AttemptID:     attempt.ID,
			ItemID:        b.ItemID,
			SelectedIndex: b.SelectedIndex,
			IsCorrect:     b.IsCorrect,
		})
	}
	if err := g.db.Create(&answerRows).Error; err != nil {
		// Partial success: the score is worth more to the caller than the
		// answer log, so the attempt survives and the failure is surfaced
		// as a warning instead of an error.
		g.log.Warn("attempt saved but answers failed to save",
			"attempt_id", attempt.ID, "error", err)
		result.AnswersPersisted = false
	}

	return result, nil
}
