package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	contextutils "eduplatform/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestProgressHandler(progressService *MockProgressService) *ProgressHandler {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewProgressHandler(progressService, &config.Config{}, logger)
}

func TestProgressHandler_ToggleLesson(t *testing.T) {
	mockProgress := &MockProgressService{}
	handler := newTestProgressHandler(mockProgress)

	mockProgress.On("ToggleLessonCompletion", mock.Anything, 7, 2).Return(true, nil)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/progress/lessons/:id/toggle", handler.ToggleLesson)

	w := performRequest(router, "POST", "/v1/progress/lessons/2/toggle", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(2), response["lesson_id"])
	assert.Equal(t, true, response["completed"])

	mockProgress.AssertExpectations(t)
}

func TestProgressHandler_ToggleLesson_NotFound(t *testing.T) {
	mockProgress := &MockProgressService{}
	handler := newTestProgressHandler(mockProgress)

	mockProgress.On("ToggleLessonCompletion", mock.Anything, 7, 99).Return(false, contextutils.ErrLessonNotFound)

	router := newSessionRouter(7, "alice")
	router.POST("/v1/progress/lessons/:id/toggle", handler.ToggleLesson)

	w := performRequest(router, "POST", "/v1/progress/lessons/99/toggle", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressHandler_ToggleLesson_Unauthenticated(t *testing.T) {
	handler := newTestProgressHandler(&MockProgressService{})

	router := newSessionRouter(0, "")
	router.POST("/v1/progress/lessons/:id/toggle", handler.ToggleLesson)

	w := performRequest(router, "POST", "/v1/progress/lessons/2/toggle", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProgressHandler_GetSummary(t *testing.T) {
	mockProgress := &MockProgressService{}
	handler := newTestProgressHandler(mockProgress)

	summary := &models.ProgressSummary{
		TotalLessons:     10,
		CompletedLessons: 4,
		CompletionRate:   40,
		TasksCovered:     9,
		Themes: []models.ThemeProgress{
			{ThemeID: 1, ThemeTitle: "Grammar", TotalLessons: 6, CompletedLessons: 3},
			{ThemeID: 2, ThemeTitle: "Vocabulary", TotalLessons: 4, CompletedLessons: 1},
		},
	}
	mockProgress.On("GetProgressSummary", mock.Anything, 7).Return(summary, nil)

	router := newSessionRouter(7, "alice")
	router.GET("/v1/progress/summary", handler.GetSummary)

	w := performRequest(router, "GET", "/v1/progress/summary", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(10), response["total_lessons"])
	assert.Equal(t, float64(40), response["completion_rate"])
	assert.Equal(t, float64(9), response["tasks_covered"])
	themes, ok := response["themes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, themes, 2)

	mockProgress.AssertExpectations(t)
}
