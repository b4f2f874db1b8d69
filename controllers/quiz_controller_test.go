package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/addislearn/quiz-backend/controllers"
	"github.com/addislearn/quiz-backend/logger"
	"github.com/addislearn/quiz-backend/models"
	"github.com/addislearn/quiz-backend/routes"
	"github.com/addislearn/quiz-backend/services"
	"github.com/addislearn/quiz-backend/utils"
)

type scriptedModel struct {
	responses []string
	calls     int
}

func (s *scriptedModel) Complete(_ context.Context, _, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		return `{"items":[]}`, nil
	}
	return s.responses[i], nil
}

func quizPayload(questions ...string) string {
	type item struct {
		Question     string   `json:"question"`
		Options      []string `json:"options"`
		CorrectIndex int      `json:"correct_index"`
		SourcePage   int      `json:"source_page"`
	}
	payload := struct {
		Items []item `json:"items"`
	}{Items: []item{}}
	for i, q := range questions {
		payload.Items = append(payload.Items, item{
			Question:     q,
			Options:      []string{"stamen", "pistil", "sepal", "petal"},
			CorrectIndex: i % 4,
			SourcePage:   10,
		})
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	model  *scriptedModel
	userID uuid.UUID
	token  string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

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

	user := models.User{FullName: "Test Student", Email: "student@example.com", Password: "x", Role: models.RoleStudent, Grade: 9}
	require.NoError(t, db.Create(&user).Error)
	token, err := utils.GenerateToken(user.ID.String(), string(user.Role))
	require.NoError(t, err)

	tb := models.Textbook{Grade: 9, Subject: "biology", Title: "Biology Grade 9"}
	require.NoError(t, db.Create(&tb).Error)
	for _, n := range []int{10, 11, 12} {
		page := models.TextbookPage{
			TextbookID:  tb.ID,
			PageNumber:  n,
			TextContent: fmt.Sprintf("page %d: flowering plants reproduce via pollination", n),
		}
		require.NoError(t, db.Create(&page).Error)
	}

	model := &scriptedModel{}
	log := logger.NewNop()
	generator := services.NewGenerator(model, services.DefaultGeneratorConfig(), log)
	sessions := services.NewSessionManager(db, log)
	grader := services.NewGrader(db, log)
	quiz := controllers.NewQuizController(db, generator, sessions, grader, log)

	router := routes.SetupRouter(gin.New(), db, quiz)
	return &testEnv{router: router, db: db, model: model, userID: user.ID, token: token}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func generateBody() map[string]interface{} {
	return map[string]interface{}{
		"selections": []map[string]interface{}{
			{
				"subject": "biology",
				"pages":   []map[string]int{{"start": 10, "end": 12}},
			},
		},
		"count":      5,
		"difficulty": "medium",
	}
}

func TestGenerateQuizEndToEnd(t *testing.T) {
	env := setupEnv(t)
	env.model.responses = []string{quizPayload("q1", "q2", "q3", "q4", "q5")}

	rec := env.do(t, http.MethodPost, "/api/quiz/session", env.token, generateBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SessionID uuid.UUID `json:"session_id"`
		UsedAI    bool      `json:"used_ai"`
		Count     int       `json:"count"`
		Items     []struct {
			ID           uuid.UUID       `json:"id"`
			Question     string          `json:"question"`
			Options      json.RawMessage `json:"options"`
			CorrectIndex int             `json:"correct_index"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.UsedAI)
	assert.Equal(t, 5, resp.Count)
	require.Len(t, resp.Items, 5)
	for _, it := range resp.Items {
		var opts []string
		require.NoError(t, json.Unmarshal(it.Options, &opts))
		assert.GreaterOrEqual(t, len(opts), 4)
		assert.GreaterOrEqual(t, it.CorrectIndex, 0)
		assert.Less(t, it.CorrectIndex, len(opts))
	}
	// The grounding fits one batch, so the model was called once.
	assert.Equal(t, 1, env.model.calls)

	// Grade it: three correct, two wrong.
	answers := make([]map[string]interface{}, 0, 5)
	for i, it := range resp.Items {
		sel := it.CorrectIndex
		if i >= 3 {
			sel = (it.CorrectIndex + 1) % 4
		}
		answers = append(answers, map[string]interface{}{
			"item_id":        it.ID,
			"selected_index": sel,
		})
	}
	rec = env.do(t, http.MethodPost, "/api/quiz/submit", env.token, map[string]interface{}{
		"session_id": resp.SessionID,
		"answers":    answers,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var graded struct {
		Attempt struct {
			AttemptID uuid.UUID `json:"attempt_id"`
			Score     int       `json:"score"`
			Total     int       `json:"total"`
			Percent   int       `json:"percent"`
		} `json:"attempt"`
		Breakdown []struct {
			IsCorrect bool `json:"is_correct"`
		} `json:"breakdown"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graded))
	assert.Equal(t, 3, graded.Attempt.Score)
	assert.Equal(t, 5, graded.Attempt.Total)
	assert.Equal(t, 60, graded.Attempt.Percent)
	assert.NotEqual(t, uuid.Nil, graded.Attempt.AttemptID)
	require.Len(t, graded.Breakdown, 5)
}

func TestGenerateQuizRequiresAuth(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodPost, "/api/quiz/session", "", generateBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateQuizNoTextbook(t *testing.T) {
	env := setupEnv(t)
	body := generateBody()
	body["selections"] = []map[string]interface{}{
		{"subject": "chemistry", "pages": []map[string]int{{"start": 1, "end": 2}}},
	}
	rec := env.do(t, http.MethodPost, "/api/quiz/session", env.token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no textbook found")
}

func TestGenerateQuizInsufficientYieldLeavesNoSession(t *testing.T) {
	env := setupEnv(t)
	// Every batch yields zero valid items.
	env.model.responses = []string{`{"items":[]}`, `{"items":[]}`, `{"items":[]}`}

	rec := env.do(t, http.MethodPost, "/api/quiz/session", env.token, generateBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var sessions int64
	require.NoError(t, env.db.Model(&models.QuizSession{}).Count(&sessions).Error)
	assert.EqualValues(t, 0, sessions)
}

func TestSubmitQuizForeignSessionReadsAsNotFound(t *testing.T) {
	env := setupEnv(t)
	env.model.responses = []string{quizPayload("q1", "q2", "q3")}

	body := generateBody()
	body["count"] = 3
	rec := env.do(t, http.MethodPost, "/api/quiz/session", env.token, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID uuid.UUID `json:"session_id"`
		Items     []struct {
			ID uuid.UUID `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	intruder := models.User{FullName: "Other", Email: "other@example.com", Password: "x", Role: models.RoleStudent, Grade: 9}
	require.NoError(t, env.db.Create(&intruder).Error)
	intruderToken, err := utils.GenerateToken(intruder.ID.String(), string(intruder.Role))
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/api/quiz/submit", intruderToken, map[string]interface{}{
		"session_id": resp.SessionID,
		"answers": []map[string]interface{}{
			{"item_id": resp.Items[0].ID, "selected_index": 0},
		},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	// No item content or score leaks to the intruder.
	assert.NotContains(t, rec.Body.String(), "breakdown")
	assert.NotContains(t, rec.Body.String(), "score")
}

func TestCreateTextbookRejectsNonAdmin(t *testing.T) {
	env := setupEnv(t)

	body := map[string]interface{}{
		"grade":   9,
		"subject": "chemistry",
		"title":   "Chemistry Grade 9",
	}

	// The student token from setup must be stopped before the handler
	// runs: 403 and no row written.
	rec := env.do(t, http.MethodPost, "/api/admin/textbooks", env.token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "textbook")

	var count int64
	require.NoError(t, env.db.Model(&models.Textbook{}).Where("subject = ?", "chemistry").Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// An admin is allowed through.
	admin := models.User{FullName: "Admin", Email: "admin@example.com", Password: "x", Role: models.RoleAdmin}
	require.NoError(t, env.db.Create(&admin).Error)
	adminToken, err := utils.GenerateToken(admin.ID.String(), string(admin.Role))
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/api/admin/textbooks", adminToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, env.db.Model(&models.Textbook{}).Where("subject = ?", "chemistry").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGenerateQuizGradeFromProfile(t *testing.T) {
	env := setupEnv(t)
	env.model.responses = []string{quizPayload("q1", "q2", "q3")}

	// No explicit grade in the request; the profile's grade 9 resolves the
	// biology textbook.
	body := generateBody()
	body["count"] = 3
	rec := env.do(t, http.MethodPost, "/api/quiz/session", env.token, body)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
