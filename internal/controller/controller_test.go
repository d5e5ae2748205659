package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mysql_practice_backend/internal/config"
	"mysql_practice_backend/internal/middleware"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/repository"
	"mysql_practice_backend/internal/scoring"
	"mysql_practice_backend/internal/service"
	"mysql_practice_backend/internal/util"
	"mysql_practice_backend/pkg/database"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const secret = "controller-test-secret-controller-test"

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	storage *service.MemoryStorageProvider
	student string
	admin   string
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))

	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret, ExpireTime: time.Hour}}
	userRepo := repository.NewUserRepository(db)
	questionRepo := repository.NewQuestionRepository(db, nil, 0)
	tagRepo := repository.NewTagRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	questions := service.NewQuestionService(questionRepo, tagRepo)
	tags := service.NewTagService(tagRepo, questionRepo)
	progress := service.NewProgressService(historyRepo, questionRepo)
	memory := service.NewMemoryStorageProvider()
	reports := service.NewReportService(progress, &service.StorageService{Provider: memory})
	engine := scoring.NewEngine(scoring.NewKeywordGrader(), scoring.WithTimeout(time.Second))
	scoringService := service.NewScoringService(questions, historyRepo, engine, nil, config.ScoringConfig{BatchLimit: 2})

	auth := NewAuthController(service.NewAuthService(userRepo, cfg), service.NewUserService(userRepo))
	qc := NewQuestionController(questions, tags, nil)
	sc := NewSubmissionController(scoringService)
	pc := NewProgressController(progress, reports)
	hc := NewHealthController(db, nil, "keyword")

	r := gin.New()
	api := r.Group("/api")
	api.GET("/health", hc.HealthCheck)
	api.POST("/register", auth.Register)
	api.POST("/login", auth.Login)
	api.GET("/question-types", qc.ListTypes)
	api.GET("/difficulty-levels", qc.ListDifficulties)
	api.GET("/tags", qc.ListTags)

	authed := r.Group("/api", middleware.AuthMiddleware(secret))
	authed.GET("/profile", auth.GetProfile)
	authed.GET("/questions", qc.ListQuestions)
	authed.GET("/questions/:id", qc.GetQuestion)
	authed.POST("/questions/:id/submit", sc.Submit)
	authed.POST("/submissions/batch", sc.SubmitBatch)
	authed.GET("/recommendations", qc.Recommend)
	authed.GET("/progress", pc.GetProgress)
	authed.GET("/progress/history", pc.History)
	authed.GET("/progress/mistakes", pc.Mistakes)
	authed.GET("/progress/daily", pc.Daily)
	authed.POST("/progress/report", pc.ExportReport)

	admin := r.Group("/api/admin", middleware.AuthMiddleware(secret), middleware.RoleMiddleware(model.Admin))
	admin.POST("/questions", qc.CreateQuestion)
	admin.GET("/questions/:id", qc.GetForAdmin)
	admin.PUT("/questions/:id", qc.UpdateQuestion)
	admin.PATCH("/questions/:id/active", qc.SetActive)
	admin.PUT("/questions/:id/tags", qc.AttachTags)
	admin.POST("/tags", qc.CreateTag)
	admin.POST("/questions/auto-tag", qc.AutoTag)

	s := &testServer{router: r, db: db, storage: memory}
	s.student = s.tokenFor(t, userRepo, "alice", model.Student)
	s.admin = s.tokenFor(t, userRepo, "root", model.Admin)
	return s
}

func (s *testServer) tokenFor(t *testing.T, repo *repository.UserRepository, name string, role model.UserRole) string {
	user := &model.User{Username: name, Email: name + "@example.com", Password: "x", Role: role}
	require.NoError(t, repo.Create(user))
	tok, err := util.GenerateJWT(user, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) createChoice(t *testing.T) uint {
	code, env := s.do(t, http.MethodPost, "/api/admin/questions", s.admin, map[string]any{
		"typeId":          1,
		"difficultyLevel": 2,
		"content":         "哪条语句用于查询数据？",
		"options": []map[string]any{
			{"label": "A", "content": "DELETE"},
			{"label": "B", "content": "SELECT", "isCorrect": true},
		},
		"explanation": "SELECT 用于查询",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var q model.Question
	require.NoError(t, json.Unmarshal(env.Data, &q))
	return q.ID
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	code, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "keyword")
}

func TestRegisterLoginProfile(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username": "bob", "email": "Bob@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username": "bob2", "email": "bob@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"account": "bob", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"account": "bob@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	code, env = s.do(t, http.MethodGet, "/api/profile", login.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"username":"bob"`)
	assert.NotContains(t, string(env.Data), "secret123")
}

func TestQuestionRoutes(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/admin/questions", s.student, map[string]any{})
	assert.Equal(t, http.StatusForbidden, code)

	id := s.createChoice(t)

	code, env := s.do(t, http.MethodGet, "/api/questions?typeId=1&page=1&perPage=10", s.student, nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		List  []service.QuestionView `json:"list"`
		Total int64                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.List, 1)
	assert.Equal(t, id, page.List[0].ID)

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/questions/%d", id), s.student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "isCorrect")

	code, env = s.do(t, http.MethodGet, "/api/difficulty-levels", "", nil)
	require.Equal(t, http.StatusOK, code)
	var levels []model.DifficultyLevel
	require.NoError(t, json.Unmarshal(env.Data, &levels))
	require.Len(t, levels, 5)
	assert.Equal(t, int64(1), levels[1].QuestionCount)
	assert.Zero(t, levels[0].QuestionCount)

	code, _ = s.do(t, http.MethodGet, "/api/questions?perPage=500", s.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/questions?typeId=abc", s.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/questions/9999", s.student, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/questions/%d/active", id), s.admin, map[string]bool{"isActive": false})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/questions/%d", id), s.student, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/admin/questions/%d", id), s.admin, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"isActive":false`)
}

func TestTagRoutes(t *testing.T) {
	s := newServer(t)
	id := s.createChoice(t)

	code, env := s.do(t, http.MethodPost, "/api/admin/tags", s.admin, map[string]string{"name": "基础查询"})
	require.Equal(t, http.StatusCreated, code)
	var tag model.QuestionTag
	require.NoError(t, json.Unmarshal(env.Data, &tag))

	code, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/admin/questions/%d/tags", id), s.admin, map[string]any{"tagIds": []uint{tag.ID}})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/admin/questions/%d/tags", id), s.admin, map[string]any{"tagIds": []uint{999}})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/questions?tagId=%d", tag.ID), s.student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, env = s.do(t, http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "基础查询")

	code, _ = s.do(t, http.MethodPost, "/api/admin/questions/auto-tag", s.admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSubmitAndProgress(t *testing.T) {
	s := newServer(t)
	id := s.createChoice(t)

	code, env := s.do(t, http.MethodPost, fmt.Sprintf("/api/questions/%d/submit", id), s.student, map[string]string{"answer": "a"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var result service.SubmissionResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.IsCorrect)

	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/questions/%d/submit", id), s.student, map[string]string{"answer": " b "})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 1.0, result.Score)

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/questions/%d/submit", id), s.student, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPost, "/api/questions/9999/submit", s.student, map[string]string{"answer": "A"})
	assert.Equal(t, http.StatusNotFound, code)

	// 已被作答的题目不能再修改内容
	code, env = s.do(t, http.MethodPut, fmt.Sprintf("/api/admin/questions/%d", id), s.admin, map[string]any{
		"typeId": 4, "difficultyLevel": 5, "content": "改写后的题目", "answers": []string{"x"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "answer history")

	code, env = s.do(t, http.MethodGet, "/api/progress", s.student, nil)
	require.Equal(t, http.StatusOK, code)
	var p model.Progress
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(2), p.TotalAttempted)
	assert.Equal(t, int64(1), p.TotalCorrect)
	assert.InDelta(t, 0.5, p.Accuracy, 1e-9)
	assert.Equal(t, int64(2), p.AccuracyByDifficulty["2"].Attempted)

	code, env = s.do(t, http.MethodGet, "/api/progress/history?isCorrect=false", s.student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, _ = s.do(t, http.MethodGet, "/api/progress/history?from=2025-02-01&to=2025-01-01", s.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/progress/mistakes?limit=5", s.student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"errorCount":1`)

	code, env = s.do(t, http.MethodGet, "/api/progress/daily?days=3", s.student, nil)
	require.Equal(t, http.StatusOK, code)
	var daily []model.DailyProgress
	require.NoError(t, json.Unmarshal(env.Data, &daily))
	require.Len(t, daily, 3)
	assert.Equal(t, int64(2), daily[2].Attempted)

	code, _ = s.do(t, http.MethodGet, "/api/progress/daily?days=365", s.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	// 其他用户看不到该用户的记录
	code, env = s.do(t, http.MethodGet, "/api/progress", s.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"totalAttempted":0`)
}

func TestSubmitBatch(t *testing.T) {
	s := newServer(t)
	id := s.createChoice(t)

	code, env := s.do(t, http.MethodPost, "/api/submissions/batch", s.student, map[string]any{
		"items": []map[string]any{
			{"questionId": id, "answer": "B"},
			{"questionId": 9999, "answer": "B"},
		},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var results []service.BatchItemResult
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 2)
	require.NotNil(t, results[0].Result)
	assert.True(t, results[0].Result.IsCorrect)
	assert.Nil(t, results[1].Result)
	assert.Equal(t, http.StatusNotFound, results[1].Status)

	code, _ = s.do(t, http.MethodPost, "/api/submissions/batch", s.student, map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRecommendAndReport(t *testing.T) {
	s := newServer(t)
	first := s.createChoice(t)
	second := s.createChoice(t)

	code, _ := s.do(t, http.MethodPost, fmt.Sprintf("/api/questions/%d/submit", first), s.student, map[string]string{"answer": "B"})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/recommendations?n=5", s.student, nil)
	require.Equal(t, http.StatusOK, code)
	var list []service.QuestionView
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].ID)

	code, _ = s.do(t, http.MethodGet, "/api/recommendations?n=100", s.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, "/api/progress/report", s.student, nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var report service.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.True(t, strings.HasPrefix(report.FileName, "reports/"))
	data, ok := s.storage.Get(report.FileName)
	require.True(t, ok)
	assert.Contains(t, string(data), "summary")
}
