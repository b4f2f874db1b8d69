package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/addislearn/quiz-backend/models"
)

// GetSubjects lists the distinct subjects that have a textbook for the
// requested grade, so the client can offer valid quiz selections.
func GetSubjects(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	grade, err := strconv.Atoi(c.Query("grade"))
	if err != nil || grade < 1 || grade > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "grade must be an integer between 1 and 12"})
		return
	}

	var subjects []string
	err = db.Model(&models.Textbook{}).
		Where("grade = ?", grade).
		Distinct("subject").
		Order("subject ASC").
		Pluck("subject", &subjects).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subjects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"grade":    grade,
		"subjects": subjects,
	})
}

// GetTextbooks lists textbooks, optionally filtered by grade and subject.
func GetTextbooks(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	q := db.Model(&models.Textbook{}).Order("created_at DESC")
	if g := c.Query("grade"); g != "" {
		grade, err := strconv.Atoi(g)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grade"})
			return
		}
		q = q.Where("grade = ?", grade)
	}
	if s := c.Query("subject"); s != "" {
		q = q.Where("LOWER(subject) = LOWER(?)", s)
	}

	var textbooks []models.Textbook
	if err := q.Find(&textbooks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load textbooks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     len(textbooks),
		"textbooks": textbooks,
	})
}

type textbookPageInput struct {
	PageNumber  int    `json:"page_number" binding:"required,min=1"`
	TextContent string `json:"text_content"`
}

type createTextbookInput struct {
	Grade   int                 `json:"grade" binding:"required,min=1,max=12"`
	Subject string              `json:"subject" binding:"required"`
	Title   string              `json:"title"`
	Pages   []textbookPageInput `json:"pages" binding:"omitempty,dive"`
}

// CreateTextbook registers a textbook with its pages. Pages arrive with
// text already populated; this endpoint does no extraction of its own.
func CreateTextbook(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	var input createTextbookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tb := models.Textbook{
		Grade:   input.Grade,
		Subject: input.Subject,
		Title:   input.Title,
	}
	for _, p := range input.Pages {
		tb.Pages = append(tb.Pages, models.TextbookPage{
			PageNumber:  p.PageNumber,
			TextContent: p.TextContent,
		})
	}

	if err := db.Create(&tb).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create textbook"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"textbook": tb})
}
