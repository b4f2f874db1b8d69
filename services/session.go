package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/addislearn/quiz-backend/logger"
	"github.com/addislearn/quiz-backend/models"
)

// SessionManager owns the create -> populate -> commit/abort transition of
// a quiz session. It is the only component that writes session rows.
type SessionManager struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionManager(db *gorm.DB, log *logger.Logger) *SessionManager {
	return &SessionManager{db: db, log: log}
}

// Begin inserts the session row before generation runs, so a failed
// generation has a concrete row to clean up. The session is never returned
// to a client until CommitItems succeeds.
func (m *SessionManager) Begin(userID uuid.UUID, grade int, difficulty models.Difficulty, count int) (*models.QuizSession, error) {
	session := models.QuizSession{
		UserID:        userID,
		Grade:         grade,
		Difficulty:    difficulty,
		QuestionCount: count,
	}
	if err := m.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create quiz session: %w", err)
	}
	return &session, nil
}

// CommitItems persists all drafts in one batch insert and returns the rows
// with their server-assigned ids. Callers issue exactly one commit per
// Begin; there is no double-commit guard.
func (m *SessionManager) CommitItems(sessionID uuid.UUID, drafts []ItemDraft) ([]models.QuizItem, error) {
	items := make([]models.QuizItem, 0, len(drafts))
	for _, d := range drafts {
		opts, err := json.Marshal(d.Options)
		if err != nil {
			return nil, fmt.Errorf("encode options: %w", err)
		}
		items = append(items, models.QuizItem{
			SessionID:    sessionID,
			Subject:      d.Subject,
			Question:     d.Question,
			Options:      opts,
			CorrectIndex: d.CorrectIndex,
			SourcePageID: d.SourcePageID,
		})
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, fmt.Errorf("commit quiz items: %w", err)
	}
	return items, nil
}

// Abort deletes the session row after a failed generation. The delete is
// best-effort: a failure here is logged as a secondary diagnostic and must
// not mask the error that triggered the abort.
func (m *SessionManager) Abort(sessionID uuid.UUID) {
	res := m.db.Delete(&models.QuizSession{}, "id = ?", sessionID)
	if res.Error != nil {
		m.log.Error("quiz session cleanup failed",
			"session_id", sessionID, "error", res.Error)
		return
	}
	m.log.Info("aborted quiz session", "session_id", sessionID)
}
