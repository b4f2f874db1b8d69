package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Textbook is the source document quizzes are grounded in. Many textbooks
// may share (grade, subject); resolution always picks the newest one.
type Textbook struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Grade     int       `gorm:"not null;index:idx_textbooks_grade_subject" json:"grade"`
	Subject   string    `gorm:"size:100;not null;index:idx_textbooks_grade_subject" json:"subject"`
	Title     string    `gorm:"size:255" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Pages []TextbookPage `gorm:"foreignKey:TextbookID" json:"pages,omitempty"`
}

func (t *Textbook) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TextbookPage carries the extracted text for one page. TextContent may be
// empty for pages that were never backfilled; those are unusable as grounding.
type TextbookPage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TextbookID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pages_book_number" json:"textbook_id"`
	Textbook   Textbook  `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	PageNumber  int    `gorm:"not null;uniqueIndex:idx_pages_book_number" json:"page_number"`
	TextContent string `gorm:"type:text" json:"text_content"`
}

func (p *TextbookPage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
