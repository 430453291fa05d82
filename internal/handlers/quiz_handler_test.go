package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	contextutils "eduplatform/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestQuizHandler(
	quizService *MockQuizService,
	contentService *MockContentService,
	userService *MockUserService,
	emailService *MockEmailService,
	cfg *config.Config,
) *QuizHandler {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewQuizHandler(quizService, contentService, userService, emailService, cfg, logger)
}

func TestQuizHandler_StartAttempt(t *testing.T) {
	mockQuiz := &MockQuizService{}
	handler := newTestQuizHandler(mockQuiz, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	attempt := &models.TaskAttempt{ID: 1, UserID: 7, TaskID: 3, MaxScore: 10, StartedAt: time.Now()}
	mockQuiz.On("GetOrCreateAttempt", mock.Anything, 7, 3).Return(attempt, nil)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/attempt", handler.StartAttempt)

	w := performRequest(router, "POST", "/v1/quiz/tasks/3/attempt", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(3), response["task_id"])
	assert.Equal(t, false, response["is_completed"])

	mockQuiz.AssertExpectations(t)
}

func TestQuizHandler_StartAttempt_Unauthenticated(t *testing.T) {
	handler := newTestQuizHandler(&MockQuizService{}, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	router := newSessionRouter(0, "")
	router.POST("/v1/quiz/tasks/:id/attempt", handler.StartAttempt)

	w := performRequest(router, "POST", "/v1/quiz/tasks/3/attempt", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuizHandler_StartAttempt_InvalidTaskID(t *testing.T) {
	handler := newTestQuizHandler(&MockQuizService{}, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/attempt", handler.StartAttempt)

	for _, taskID := range []string{"abc", "-1", "0"} {
		w := performRequest(router, "POST", "/v1/quiz/tasks/"+taskID+"/attempt", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "task ID %q", taskID)
	}
}

func TestQuizHandler_Submit(t *testing.T) {
	mockQuiz := &MockQuizService{}
	handler := newTestQuizHandler(mockQuiz, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	attempt := &models.TaskAttempt{ID: 1, UserID: 7, TaskID: 3, Score: 5, MaxScore: 10, Percentage: 50, IsCompleted: false}
	expectedSelections := map[int][]int{1: {3}, 2: {4, 5}}
	mockQuiz.On("GradeSubmission", mock.Anything, 7, 3, expectedSelections).Return(attempt, nil)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/submit", handler.Submit)

	body := `{"selections": {"1": [3], "2": [4, 5]}}`
	w := performRequest(router, "POST", "/v1/quiz/tasks/3/submit", &body)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(5), response["score"])
	assert.Equal(t, float64(50), response["percentage"])

	mockQuiz.AssertExpectations(t)
}

func TestQuizHandler_Submit_NonNumericQuestionKey(t *testing.T) {
	handler := newTestQuizHandler(&MockQuizService{}, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/submit", handler.Submit)

	body := `{"selections": {"abc": [3]}}`
	w := performRequest(router, "POST", "/v1/quiz/tasks/3/submit", &body)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), response["code"])
}

func TestQuizHandler_Submit_AttemptCompletedConflict(t *testing.T) {
	mockQuiz := &MockQuizService{}
	handler := newTestQuizHandler(mockQuiz, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	mockQuiz.On("GradeSubmission", mock.Anything, 7, 3, mock.Anything).Return(nil, contextutils.ErrAttemptCompleted)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/submit", handler.Submit)

	body := `{"selections": {"1": [3]}}`
	w := performRequest(router, "POST", "/v1/quiz/tasks/3/submit", &body)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockQuiz.AssertExpectations(t)
}

func TestQuizHandler_Submit_CompletedAttemptSendsEmail(t *testing.T) {
	mockQuiz := &MockQuizService{}
	mockContent := &MockContentService{}
	mockUser := &MockUserService{}
	mockEmail := &MockEmailService{enabled: true}
	cfg := &config.Config{Grading: config.GradingConfig{EmailResults: true}}
	handler := newTestQuizHandler(mockQuiz, mockContent, mockUser, mockEmail, cfg)

	attempt := &models.TaskAttempt{
		ID: 1, UserID: 7, TaskID: 3,
		Score: 10, MaxScore: 10, Percentage: 100, IsCompleted: true,
		CompletedAt: sql.NullTime{Time: time.Now(), Valid: true},
	}
	user := &models.User{ID: 7, Username: "alice", Email: sql.NullString{String: "alice@example.com", Valid: true}}
	task := &models.Task{ID: 3, Title: "Cases quiz", MaxScore: 10}

	mockQuiz.On("GradeSubmission", mock.Anything, 7, 3, mock.Anything).Return(attempt, nil)
	mockUser.On("GetUserByID", mock.Anything, 7).Return(user, nil)
	mockContent.On("GetTaskByID", mock.Anything, 3).Return(task, nil)
	mockEmail.On("SendQuizResults", mock.Anything, user, task, attempt).Return(nil)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/submit", handler.Submit)

	body := `{"selections": {"1": [3]}}`
	w := performRequest(router, "POST", "/v1/quiz/tasks/3/submit", &body)

	assert.Equal(t, http.StatusOK, w.Code)
	mockEmail.AssertExpectations(t)
}

func TestQuizHandler_Submit_EmailFailureDoesNotAffectResponse(t *testing.T) {
	mockQuiz := &MockQuizService{}
	mockContent := &MockContentService{}
	mockUser := &MockUserService{}
	mockEmail := &MockEmailService{enabled: true}
	cfg := &config.Config{Grading: config.GradingConfig{EmailResults: true}}
	handler := newTestQuizHandler(mockQuiz, mockContent, mockUser, mockEmail, cfg)

	attempt := &models.TaskAttempt{ID: 1, UserID: 7, TaskID: 3, Score: 8, MaxScore: 10, Percentage: 80, IsCompleted: true}
	user := &models.User{ID: 7, Username: "alice"}
	task := &models.Task{ID: 3, Title: "Cases quiz"}

	mockQuiz.On("GradeSubmission", mock.Anything, 7, 3, mock.Anything).Return(attempt, nil)
	mockUser.On("GetUserByID", mock.Anything, 7).Return(user, nil)
	mockContent.On("GetTaskByID", mock.Anything, 3).Return(task, nil)
	mockEmail.On("SendQuizResults", mock.Anything, user, task, attempt).Return(assert.AnError)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/submit", handler.Submit)

	body := `{"selections": {"1": [3]}}`
	w := performRequest(router, "POST", "/v1/quiz/tasks/3/submit", &body)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuizHandler_Submit_EmailDisabledSkipsLookups(t *testing.T) {
	mockQuiz := &MockQuizService{}
	mockUser := &MockUserService{}
	handler := newTestQuizHandler(mockQuiz, &MockContentService{}, mockUser, &MockEmailService{enabled: false}, &config.Config{})

	attempt := &models.TaskAttempt{ID: 1, UserID: 7, TaskID: 3, Score: 10, MaxScore: 10, Percentage: 100, IsCompleted: true}
	mockQuiz.On("GradeSubmission", mock.Anything, 7, 3, mock.Anything).Return(attempt, nil)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/submit", handler.Submit)

	body := `{"selections": {"1": [3]}}`
	w := performRequest(router, "POST", "/v1/quiz/tasks/3/submit", &body)

	assert.Equal(t, http.StatusOK, w.Code)
	mockUser.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
}

func TestQuizHandler_Retake(t *testing.T) {
	mockQuiz := &MockQuizService{}
	handler := newTestQuizHandler(mockQuiz, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	mockQuiz.On("Retake", mock.Anything, 7, 3).Return(nil)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/retake", handler.Retake)

	w := performRequest(router, "POST", "/v1/quiz/tasks/3/retake", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Task reset", response["message"])

	mockQuiz.AssertExpectations(t)
}

func TestQuizHandler_Retake_TaskNotFound(t *testing.T) {
	mockQuiz := &MockQuizService{}
	handler := newTestQuizHandler(mockQuiz, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	mockQuiz.On("Retake", mock.Anything, 7, 99).Return(contextutils.ErrTaskNotFound)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/quiz/tasks/:id/retake", handler.Retake)

	w := performRequest(router, "POST", "/v1/quiz/tasks/99/retake", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuizHandler_GetResponses(t *testing.T) {
	mockQuiz := &MockQuizService{}
	handler := newTestQuizHandler(mockQuiz, &MockContentService{}, &MockUserService{}, &MockEmailService{}, &config.Config{})

	responses := []models.UserResponseWithQuestion{
		{
			UserResponse:   models.UserResponse{ID: 1, UserID: 7, QuestionID: 1, SelectedAnswers: []int{3}, IsCorrect: true, Score: 10},
			QuestionText:   "Which case follows this preposition?",
			CorrectAnswers: []int{3},
		},
	}
	mockQuiz.On("ListResponses", mock.Anything, 7, 3).Return(responses, nil)

	router := newSessionRouter(7, "alice")
	router.GET("/v1/quiz/tasks/:id/responses", handler.GetResponses)

	w := performRequest(router, "GET", "/v1/quiz/tasks/3/responses", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	list, ok := response["responses"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	first := list[0].(map[string]interface{})
	assert.Equal(t, true, first["is_correct"])
	assert.Equal(t, "Which case follows this preposition?", first["question_text"])

	mockQuiz.AssertExpectations(t)
}
