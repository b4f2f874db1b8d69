package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuizSession is one quiz-taking instance. The row is inserted before
// generation runs and deleted again if generation fails, so a session that
// still exists after the create call returned is guaranteed to have items.
type QuizSession struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	Grade         int        `gorm:"not null" json:"grade"`
	Difficulty    Difficulty `gorm:"size:20;not null" json:"difficulty"`
	QuestionCount int        `gorm:"not null" json:"question_count"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Items []QuizItem `gorm:"foreignKey:SessionID" json:"items,omitempty"`
}

func (s *QuizSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// QuizItem is the answer key row. CorrectIndex is set once at generation
// time from the model output and is never updated afterwards.
type QuizItem struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID   `gorm:"type:uuid;not null;index" json:"session_id"`
	Session   QuizSession `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`

	Subject      string         `gorm:"size:100;not null" json:"subject"`
	Question     string         `gorm:"type:text;not null" json:"question"`
	Options      datatypes.JSON `gorm:"not null" json:"options"`
	CorrectIndex int            `gorm:"not null" json:"correct_index"`
	SourcePageID *uuid.UUID     `gorm:"type:uuid" json:"source_page_id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (i *QuizItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// OptionList decodes the stored options column.
func (i *QuizItem) OptionList() []string {
	var opts []string
	_ = json.Unmarshal(i.Options, &opts)
	return opts
}

// QuizAttempt is one grading event. Re-submitting the same session creates
// a new independent attempt; attempts are never merged.
type QuizAttempt struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID   `gorm:"type:uuid;not null;index" json:"session_id"`
	Session   QuizSession `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User        `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	Score       int       `gorm:"not null" json:"score"`
	Total       int       `gorm:"not null" json:"total"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// QuizAnswer records one submitted answer with its server-derived
// correctness. The flag is computed from the stored answer key, never
// trusted from the client.
type QuizAnswer struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID uuid.UUID   `gorm:"type:uuid;not null;index" json:"attempt_id"`
	Attempt   QuizAttempt `gorm:"foreignKey:AttemptID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
	ItemID    uuid.UUID   `gorm:"type:uuid;not null" json:"item_id"`
	Item      QuizItem    `gorm:"foreignKey:ItemID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`

	SelectedIndex int  `gorm:"not null" json:"selected_index"`
	IsCorrect     bool `gorm:"not null" json:"is_correct"`
}

func (a *QuizAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
