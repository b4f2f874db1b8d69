package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/addislearn/quiz-backend/logger"
	"github.com/addislearn/quiz-backend/models"
	"github.com/addislearn/quiz-backend/services"
)

// QuizController wires the grounding resolver, generation engine, session
// lifecycle manager and grading engine behind the quiz API.
type QuizController struct {
	DB        *gorm.DB
	Generator *services.Generator
	Sessions  *services.SessionManager
	Grader    *services.Grader
	Log       *logger.Logger
}

func NewQuizController(db *gorm.DB, gen *services.Generator, sessions *services.SessionManager, grader *services.Grader, log *logger.Logger) *QuizController {
	return &QuizController{DB: db, Generator: gen, Sessions: sessions, Grader: grader, Log: log}
}

type quizSelection struct {
	Subject string               `json:"subject" binding:"required"`
	Pages   []services.PageRange `json:"pages" binding:"required,min=1,dive"`
}

type generateQuizInput struct {
	Grade      *int              `json:"grade" binding:"omitempty,min=1,max=12"`
	Selections []quizSelection   `json:"selections" binding:"required,min=1,dive"`
	Count      int               `json:"count" binding:"required,min=1,max=100"`
	Difficulty models.Difficulty `json:"difficulty" binding:"required,oneof=easy medium hard"`
}

// GenerateQuiz resolves grounding pages, creates the session, drives
// generation and commits the items. Any failure after the session row
// exists aborts it before the error is surfaced.
func (qc *QuizController) GenerateQuiz(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input generateQuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grade, ok := qc.resolveGrade(c, userID, input.Grade)
	if !ok {
		return
	}

	var allPages []models.TextbookPage
	for _, sel := range input.Selections {
		tb, err := services.ResolveTextbook(qc.DB, grade, sel.Subject)
		if err != nil {
			qc.respondResolutionError(c, err)
			return
		}
		pages, err := services.ResolvePages(qc.DB, tb.ID, sel.Pages)
		if err != nil {
			qc.respondResolutionError(c, err)
			return
		}
		allPages = append(allPages, pages...)
	}

	textPages := services.FilterTextPages(allPages)
	if len(textPages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrNoGroundingText.Error()})
		return
	}

	subject := input.Selections[0].Subject
	hint := services.DetectLanguageHint(textPages, subject)

	session, err := qc.Sessions.Begin(userID, grade, input.Difficulty, input.Count)
	if err != nil {
		qc.Log.Error("begin quiz session failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	drafts, err := qc.Generator.Generate(c.Request.Context(), services.GenerateParams{
		Pages:        textPages,
		Subject:      subject,
		Grade:        grade,
		Difficulty:   input.Difficulty,
		Count:        input.Count,
		LanguageHint: hint,
	})
	if err != nil {
		qc.Sessions.Abort(session.ID)
		if errors.Is(err, services.ErrInsufficientYield) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		qc.Log.Error("quiz generation failed", "session_id", session.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": services.ErrGenerationFailed.Error()})
		return
	}

	items, err := qc.Sessions.CommitItems(session.ID, drafts)
	if err != nil {
		qc.Sessions.Abort(session.ID)
		qc.Log.Error("commit quiz items failed", "session_id", session.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save quiz items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"difficulty": input.Difficulty,
		"count":      input.Count,
		"used_ai":    true,
		"items":      items,
	})
}

type submittedAnswerInput struct {
	ItemID        uuid.UUID `json:"item_id" binding:"required"`
	SelectedIndex *int      `json:"selected_index" binding:"required,min=0"`
}

type submitQuizInput struct {
	SessionID uuid.UUID              `json:"session_id" binding:"required"`
	Answers   []submittedAnswerInput `json:"answers" binding:"required,min=1,dive"`
}

// SubmitQuiz grades the submitted answers against the server-held answer
// key. On the partial-success path (attempt saved, answer log lost) it
// responds 207 with an explicit warning.
func (qc *QuizController) SubmitQuiz(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input submitQuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answers := make([]services.SubmittedAnswer, 0, len(input.Answers))
	for _, a := range input.Answers {
		answers = append(answers, services.SubmittedAnswer{
			ItemID:        a.ItemID,
			SelectedIndex: *a.SelectedIndex,
		})
	}

	result, err := qc.Grader.Grade(input.SessionID, userID, answers)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNoGradableItems):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			qc.Log.Error("grading failed", "session_id", input.SessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grade quiz"})
		}
		return
	}

	body := gin.H{
		"attempt": gin.H{
			"attempt_id":   result.AttemptID,
			"session_id":   result.SessionID,
			"score":        result.Score,
			"total":        result.Total,
			"percent":      result.Percent,
			"completed_at": result.CompletedAt,
		},
		"breakdown": result.Breakdown,
	}
	if !result.AnswersPersisted {
		body["warning"] = "attempt saved, but answers failed to save"
		c.JSON(http.StatusMultiStatus, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// GetQuizAttempts lists the caller's grading history, newest first.
func (qc *QuizController) GetQuizAttempts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var attempts []models.QuizAttempt
	err := qc.DB.
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Find(&attempts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load attempts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    len(attempts),
		"attempts": attempts,
	})
}

// resolveGrade falls back to the grade on the caller's profile when the
// request omits one.
func (qc *QuizController) resolveGrade(c *gin.Context, userID uuid.UUID, grade *int) (int, bool) {
	if grade != nil {
		return *grade, true
	}
	var user models.User
	if err := qc.DB.Select("grade").First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return 0, false
	}
	if user.Grade < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "grade not set on profile"})
		return 0, false
	}
	return user.Grade, true
}

func (qc *QuizController) respondResolutionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTextbookNotFound),
		errors.Is(err, services.ErrNoPagesInRange),
		errors.Is(err, services.ErrNoGroundingText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		qc.Log.Error("grounding resolution failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve grounding pages"})
	}
}

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return uuid.Nil, false
	}
	return userID, true
}
