package handlers

import (
	"net/http"
	"strconv"

	"eduplatform/internal/config"
	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ContentHandler serves course content: themes, lessons and tasks
type ContentHandler struct {
	contentService services.ContentServiceInterface
	cfg            *config.Config
	logger         *observability.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(contentService services.ContentServiceInterface, cfg *config.Config, logger *observability.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		cfg:            cfg,
		logger:         logger,
	}
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		HandleValidationError(c, name, c.Param("id"), "must be a positive integer")
		return 0, false
	}
	return id, true
}

// GetThemes lists all themes ordered for display
func (h *ContentHandler) GetThemes(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_themes")
	defer observability.FinishSpan(span, nil)

	themes, err := h.contentService.GetThemes(c.Request.Context())
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"themes": themes})
}

// GetTheme returns a theme with its lessons
func (h *ContentHandler) GetTheme(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_theme")
	defer observability.FinishSpan(span, nil)

	themeID, ok := idParam(c, "theme ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeThemeID(themeID))

	theme, err := h.contentService.GetThemeByID(c.Request.Context(), themeID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, theme)
}

// GetLesson returns a lesson with its tasks
func (h *ContentHandler) GetLesson(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_lesson")
	defer observability.FinishSpan(span, nil)

	lessonID, ok := idParam(c, "lesson ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeLessonID(lessonID))

	lesson, err := h.contentService.GetLessonByID(c.Request.Context(), lessonID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	tasks, err := h.contentService.GetTasksByLesson(c.Request.Context(), lessonID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	lesson.Tasks = tasks

	c.JSON(http.StatusOK, lesson)
}

// GetTask returns a task with its questions and answer options.
// Answer correctness is never serialized on this endpoint.
func (h *ContentHandler) GetTask(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_task")
	defer observability.FinishSpan(span, nil)

	taskID, ok := idParam(c, "task ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeTaskID(taskID))

	task, err := h.contentService.GetTaskWithQuestions(c.Request.Context(), taskID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("task.question_count", len(task.Questions)))

	c.JSON(http.StatusOK, task)
}

// GetQuestion returns a single question with its answer options
func (h *ContentHandler) GetQuestion(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_question")
	defer observability.FinishSpan(span, nil)

	questionID, ok := idParam(c, "question ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeQuestionID(questionID))

	question, err := h.contentService.GetQuestionByID(c.Request.Context(), questionID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if question == nil {
		HandleAppError(c, contextutils.ErrQuestionNotFound)
		return
	}

	c.JSON(http.StatusOK, question)
}
