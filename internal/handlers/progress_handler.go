package handlers

import (
	"net/http"

	"eduplatform/internal/config"
	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"github.com/gin-gonic/gin"
)

// ProgressHandler serves lesson completion and progress endpoints
type ProgressHandler struct {
	progressService services.ProgressServiceInterface
	cfg             *config.Config
	logger          *observability.Logger
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(progressService services.ProgressServiceInterface, cfg *config.Config, logger *observability.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		cfg:             cfg,
		logger:          logger,
	}
}

// ToggleLesson flips the completed flag for a lesson
func (h *ProgressHandler) ToggleLesson(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "toggle_lesson")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	lessonID, ok := idParam(c, "lesson ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeLessonID(lessonID))

	completed, err := h.progressService.ToggleLessonCompletion(c.Request.Context(), userID, lessonID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lesson_id": lessonID,
		"completed": completed,
	})
}

// GetSummary returns the user's per-theme and overall progress
func (h *ProgressHandler) GetSummary(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_progress_summary")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	summary, err := h.progressService.GetProgressSummary(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
