package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mintoons/mintoons-backend/config"
	"github.com/mintoons/mintoons-backend/middleware"
	"github.com/mintoons/mintoons-backend/models"
	"github.com/mintoons/mintoons-backend/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// DB sqlite in-memory riêng cho từng test, migrate đủ models
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	// auth controller dùng config.DB toàn cục
	config.DB = db
	return db
}

// mockAI thay Gemini trong test, đếm số lần gọi từng hàm
type mockAI struct {
	openingErr bool
	contErr    bool
	assessErr  bool
	assessment *services.Assessment

	openingCalls int
	contCalls    int
	assessCalls  int
}

func (m *mockAI) GenerateOpening(ctx context.Context, e models.StoryElements) (string, error) {
	m.openingCalls++
	if m.openingErr {
		return "", fmt.Errorf("gemini không trả kết quả hợp lệ")
	}
	return "Once upon a time in a test...", nil
}

func (m *mockAI) GenerateContinuation(ctx context.Context, childText string, previous []models.Turn, turnNumber int) (string, error) {
	m.contCalls++
	if m.contErr {
		return "", fmt.Errorf("gemini không trả kết quả hợp lệ")
	}
	return fmt.Sprintf("And then something happened at turn %d...", turnNumber), nil
}

func (m *mockAI) PerformAssessment(ctx context.Context, fullText string, meta services.AssessmentMeta) (*services.Assessment, error) {
	m.assessCalls++
	if m.assessErr {
		return nil, fmt.Errorf("gemini không trả kết quả hợp lệ")
	}
	if m.assessment != nil {
		return m.assessment, nil
	}
	return &services.Assessment{
		GrammarScore:    82,
		CreativityScore: 90,
		OverallScore:    86,
		ReadingLevel:    "elementary",
		Feedback:        "Great story!",
		IntegrityRisk:   "low",
	}, nil
}

// Middleware giả lập đăng nhập, bỏ qua JWT trong test
func authAs(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", user.ID.String())
		c.Set("role", string(user.Role))
		c.Next()
	}
}

func newChild(t *testing.T, db *gorm.DB, tier models.SubscriptionTier) *models.User {
	t.Helper()
	age := 10
	user := &models.User{
		FullName: "Bé Na",
		Email:    fmt.Sprintf("na+%s@mintoons.test", strings.ToLower(strings.ReplaceAll(t.Name(), "/", "-"))),
		Password: "x",
		Role:     models.RoleChild,
		Tier:     tier,
		Age:      &age,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newUserWithRole(t *testing.T, db *gorm.DB, role models.UserRole, email string) *models.User {
	t.Helper()
	user := &models.User{
		FullName: "Người dùng test",
		Email:    email,
		Password: "x",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Router nhóm /api/stories cho trẻ
func newStoryRouter(db *gorm.DB, ai services.StoryAI, user *models.User) *gin.Engine {
	r := gin.New()
	g := r.Group("/api/stories")
	g.Use(authAs(user), middleware.DBMiddleware(db), middleware.AIMiddleware(ai),
		middleware.RequireRoles(string(models.RoleChild)))
	g.POST("/create-session", CreateSession)
	g.POST("/ai-respond", SubmitTurn)
	g.GET("", GetMyStories)
	g.GET("/:id", GetMyStoryDetail)
	g.GET("/contests", GetActiveContests)
	g.POST("/contests/submit", SubmitToContest)
	g.GET("/contests/submissions", GetMySubmissions)
	return r
}

// Router nhóm /api/admin
func newAdminRouter(db *gorm.DB, admin *models.User) *gin.Engine {
	r := gin.New()
	g := r.Group("/api/admin")
	g.Use(authAs(admin), middleware.DBMiddleware(db),
		middleware.RequireRoles(string(models.RoleAdmin)))
	g.GET("/users", GetUsers)
	g.GET("/users/export", ExportUsersXLSX)
	g.GET("/users/:id", GetUserDetail)
	g.PUT("/users/:id", UpdateUser)
	g.DELETE("/users/:id", DeleteUser)
	g.GET("/mentors", GetMentors)
	g.GET("/sessions", AdminGetSessions)
	g.GET("/sessions/:id", AdminGetSessionDetail)
	g.PATCH("/sessions/:id/pause", PauseSession)
	g.PATCH("/sessions/:id/resume", ResumeSession)
	g.PATCH("/sessions/:id/flag", FlagSession)
	g.DELETE("/sessions/:id", AdminDeleteSession)
	g.POST("/contests", CreateContest)
	g.GET("/contests", GetContests)
	g.GET("/contests/:id", GetContestDetail)
	g.PUT("/contests/:id", UpdateContest)
	g.PATCH("/contests/:id/status", UpdateContestStatus)
	g.POST("/contests/:id/winners", AssignContestWinners)
	g.DELETE("/contests/:id", DeleteContest)
	g.GET("/stats", GetDashboardStats)
	return r
}

// Router nhóm /api/mentor
func newMentorRouter(db *gorm.DB, mentor *models.User) *gin.Engine {
	r := gin.New()
	g := r.Group("/api/mentor")
	g.Use(authAs(mentor), middleware.DBMiddleware(db),
		middleware.RequireRoles(string(models.RoleMentor), string(models.RoleAdmin)))
	g.GET("/sessions", MentorGetSessions)
	g.GET("/sessions/:id", MentorGetSessionDetail)
	g.GET("/sessions/:id/comments", GetSessionComments)
	g.POST("/comments", CreateComment)
	g.PATCH("/comments/:id/resolve", ResolveComment)
	g.DELETE("/comments/:id", DeleteComment)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var testElements = models.StoryElements{
	Genre:     "fantasy",
	Character: "Luna",
	Setting:   "forest",
	Theme:     "courage",
	Mood:      "mysterious",
	Tone:      "playful",
}

// Seed một phiên đang hoạt động ở lượt cho trước, kèm các lượt đã kể
func seedActiveSession(t *testing.T, db *gorm.DB, child *models.User, currentTurn int) *models.StorySession {
	t.Helper()

	session := &models.StorySession{
		ChildID:      child.ID,
		StoryNumber:  1,
		Title:        "Luna và khu rừng",
		Mode:         models.ModeGuided,
		Elements:     testElements,
		Opening:      "Once upon a time, Luna walked into the forest.",
		CurrentTurn:  currentTurn,
		ApiCallsUsed: currentTurn - 1,
		MaxApiCalls:  7,
		Status:       models.SessionActive,
	}
	require.NoError(t, db.Create(session).Error)

	for i := 1; i < currentTurn; i++ {
		turn := &models.Turn{
			SessionID:  session.ID,
			TurnNumber: i,
			ChildText:  fmt.Sprintf("Luna did something brave, part %d.", i),
			AiResponse: fmt.Sprintf("And the forest answered, part %d.", i),
			ChildWords: 6,
			AiWords:    6,
		}
		require.NoError(t, db.Create(turn).Error)
	}
	return session
}
