package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"

	"eduplatform/internal/middleware"
	"eduplatform/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

// newSessionRouter builds a gin engine with a cookie session store and a
// middleware that signs the request in as the given user before the handler
// runs. Pass userID 0 for an anonymous request.
func newSessionRouter(userID int, username string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("test-session", store))
	if userID > 0 {
		router.Use(func(c *gin.Context) {
			session := sessions.Default(c)
			session.Set(middleware.UserIDKey, userID)
			session.Set(middleware.UsernameKey, username)
			c.Next()
		})
	}
	return router
}

func performRequest(router *gin.Engine, method, path string, body *string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(*body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// MockQuizService implements QuizServiceInterface for testing
type MockQuizService struct {
	mock.Mock
}

func (m *MockQuizService) GetOrCreateAttempt(ctx context.Context, userID, taskID int) (*models.TaskAttempt, error) {
	args := m.Called(ctx, userID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskAttempt), args.Error(1)
}

func (m *MockQuizService) GradeSubmission(ctx context.Context, userID, taskID int, selections map[int][]int) (*models.TaskAttempt, error) {
	args := m.Called(ctx, userID, taskID, selections)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskAttempt), args.Error(1)
}

func (m *MockQuizService) Retake(ctx context.Context, userID, taskID int) error {
	args := m.Called(ctx, userID, taskID)
	return args.Error(0)
}

func (m *MockQuizService) ListResponses(ctx context.Context, userID, taskID int) ([]models.UserResponseWithQuestion, error) {
	args := m.Called(ctx, userID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserResponseWithQuestion), args.Error(1)
}

func (m *MockQuizService) RecalculateAttempts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockContentService implements ContentServiceInterface for testing
type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) CreateTheme(ctx context.Context, title, description string, displayOrder int) (*models.Theme, error) {
	args := m.Called(ctx, title, description, displayOrder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Theme), args.Error(1)
}

func (m *MockContentService) GetThemes(ctx context.Context) ([]models.Theme, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Theme), args.Error(1)
}

func (m *MockContentService) GetThemeByID(ctx context.Context, themeID int) (*models.Theme, error) {
	args := m.Called(ctx, themeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Theme), args.Error(1)
}

func (m *MockContentService) UpdateTheme(ctx context.Context, themeID int, title, description string, displayOrder int) error {
	args := m.Called(ctx, themeID, title, description, displayOrder)
	return args.Error(0)
}

func (m *MockContentService) DeleteTheme(ctx context.Context, themeID int) error {
	args := m.Called(ctx, themeID)
	return args.Error(0)
}

func (m *MockContentService) CreateLesson(ctx context.Context, themeID int, title, content, videoURL string, displayOrder int) (*models.Lesson, error) {
	args := m.Called(ctx, themeID, title, content, videoURL, displayOrder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

func (m *MockContentService) GetLessonByID(ctx context.Context, lessonID int) (*models.Lesson, error) {
	args := m.Called(ctx, lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

func (m *MockContentService) GetLessonsByTheme(ctx context.Context, themeID int) ([]models.Lesson, error) {
	args := m.Called(ctx, themeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Lesson), args.Error(1)
}

func (m *MockContentService) UpdateLesson(ctx context.Context, lessonID int, title, content, videoURL string, displayOrder int) error {
	args := m.Called(ctx, lessonID, title, content, videoURL, displayOrder)
	return args.Error(0)
}

func (m *MockContentService) DeleteLesson(ctx context.Context, lessonID int) error {
	args := m.Called(ctx, lessonID)
	return args.Error(0)
}

func (m *MockContentService) CreateTask(ctx context.Context, lessonID int, title, description string, taskType models.TaskType, maxScore int) (*models.Task, error) {
	args := m.Called(ctx, lessonID, title, description, taskType, maxScore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockContentService) GetTaskByID(ctx context.Context, taskID int) (*models.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockContentService) GetTaskWithQuestions(ctx context.Context, taskID int) (*models.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockContentService) GetTasksByLesson(ctx context.Context, lessonID int) ([]models.Task, error) {
	args := m.Called(ctx, lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockContentService) UpdateTask(ctx context.Context, taskID int, title, description string, taskType models.TaskType, maxScore int) error {
	args := m.Called(ctx, taskID, title, description, taskType, maxScore)
	return args.Error(0)
}

func (m *MockContentService) DeleteTask(ctx context.Context, taskID int) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockContentService) CreateQuestion(ctx context.Context, taskID int, text, explanation string, displayOrder int, answers []models.Answer) (*models.Question, error) {
	args := m.Called(ctx, taskID, text, explanation, displayOrder, answers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockContentService) GetQuestionByID(ctx context.Context, questionID int) (*models.Question, error) {
	args := m.Called(ctx, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockContentService) DeleteQuestion(ctx context.Context, questionID int) error {
	args := m.Called(ctx, questionID)
	return args.Error(0)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) CreateUserWithPassword(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) UpdateUserProfile(ctx context.Context, userID int, email, firstName, lastName string) error {
	args := m.Called(ctx, userID, email, firstName, lastName)
	return args.Error(0)
}

func (m *MockUserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) error {
	args := m.Called(ctx, userID, newPassword)
	return args.Error(0)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) error {
	args := m.Called(ctx, adminUsername, adminPassword)
	return args.Error(0)
}

func (m *MockUserService) GetDB() *sql.DB {
	return nil
}

// MockProgressService implements ProgressServiceInterface for testing
type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) ToggleLessonCompletion(ctx context.Context, userID, lessonID int) (bool, error) {
	args := m.Called(ctx, userID, lessonID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProgressService) IsLessonCompleted(ctx context.Context, userID, lessonID int) (bool, error) {
	args := m.Called(ctx, userID, lessonID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProgressService) GetProgressSummary(ctx context.Context, userID int) (*models.ProgressSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProgressSummary), args.Error(1)
}

// MockEmailService implements EmailServiceInterface for testing
type MockEmailService struct {
	mock.Mock
	enabled bool
}

func (m *MockEmailService) SendQuizResults(ctx context.Context, user *models.User, task *models.Task, attempt *models.TaskAttempt) error {
	args := m.Called(ctx, user, task, attempt)
	return args.Error(0)
}

func (m *MockEmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error {
	args := m.Called(ctx, to, subject, templateName, data)
	return args.Error(0)
}

func (m *MockEmailService) IsEnabled() bool {
	return m.enabled
}

func (m *MockEmailService) RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) error {
	args := m.Called(ctx, userID, notificationType, subject, templateName, status, errorMessage)
	return args.Error(0)
}
