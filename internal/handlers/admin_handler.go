package handlers

import (
	"net/http"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AdminHandler handles content management and maintenance endpoints
type AdminHandler struct {
	contentService services.ContentServiceInterface
	quizService    services.QuizServiceInterface
	userService    services.UserServiceInterface
	cfg            *config.Config
	logger         *observability.Logger
}

// NewAdminHandlerWithLogger creates a new AdminHandler
func NewAdminHandlerWithLogger(
	contentService services.ContentServiceInterface,
	quizService services.QuizServiceInterface,
	userService services.UserServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *AdminHandler {
	return &AdminHandler{
		contentService: contentService,
		quizService:    quizService,
		userService:    userService,
		cfg:            cfg,
		logger:         logger,
	}
}

type themeRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

type lessonRequest struct {
	ThemeID      int    `json:"theme_id" binding:"required"`
	Title        string `json:"title" binding:"required"`
	Content      string `json:"content"`
	VideoURL     string `json:"video_url"`
	DisplayOrder int    `json:"display_order"`
}

type taskRequest struct {
	LessonID    int    `json:"lesson_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required"`
	MaxScore    int    `json:"max_score"`
}

type questionRequest struct {
	TaskID       int    `json:"task_id" binding:"required"`
	Text         string `json:"text" binding:"required"`
	Explanation  string `json:"explanation"`
	DisplayOrder int    `json:"display_order"`
	Answers      []struct {
		Text      string `json:"text" binding:"required"`
		IsCorrect bool   `json:"is_correct"`
	} `json:"answers" binding:"required"`
}

func bindJSONOrAbort(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return false
	}
	return true
}

// CreateTheme creates a new theme
func (h *AdminHandler) CreateTheme(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_create_theme")
	defer observability.FinishSpan(span, nil)

	var req themeRequest
	if !bindJSONOrAbort(c, &req) {
		return
	}

	theme, err := h.contentService.CreateTheme(c.Request.Context(), req.Title, req.Description, req.DisplayOrder)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, theme)
}

// UpdateTheme updates an existing theme
func (h *AdminHandler) UpdateTheme(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_update_theme")
	defer observability.FinishSpan(span, nil)

	themeID, ok := idParam(c, "theme ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeThemeID(themeID))

	var req themeRequest
	if !bindJSONOrAbort(c, &req) {
		return
	}

	if err := h.contentService.UpdateTheme(c.Request.Context(), themeID, req.Title, req.Description, req.DisplayOrder); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Theme updated"})
}

// DeleteTheme deletes a theme and everything under it
func (h *AdminHandler) DeleteTheme(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_delete_theme")
	defer observability.FinishSpan(span, nil)

	themeID, ok := idParam(c, "theme ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeThemeID(themeID))

	if err := h.contentService.DeleteTheme(c.Request.Context(), themeID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Theme deleted"})
}

// CreateLesson creates a new lesson under a theme
func (h *AdminHandler) CreateLesson(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_create_lesson")
	defer observability.FinishSpan(span, nil)

	var req lessonRequest
	if !bindJSONOrAbort(c, &req) {
		return
	}
	span.SetAttributes(observability.AttributeThemeID(req.ThemeID))

	lesson, err := h.contentService.CreateLesson(c.Request.Context(), req.ThemeID, req.Title, req.Content, req.VideoURL, req.DisplayOrder)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lesson)
}

// UpdateLesson updates an existing lesson
func (h *AdminHandler) UpdateLesson(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_update_lesson")
	defer observability.FinishSpan(span, nil)

	lessonID, ok := idParam(c, "lesson ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeLessonID(lessonID))

	var req lessonRequest
	if !bindJSONOrAbort(c, &req) {
		return
	}

	if err := h.contentService.UpdateLesson(c.Request.Context(), lessonID, req.Title, req.Content, req.VideoURL, req.DisplayOrder); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Lesson updated"})
}

// DeleteLesson deletes a lesson and its tasks
func (h *AdminHandler) DeleteLesson(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_delete_lesson")
	defer observability.FinishSpan(span, nil)

	lessonID, ok := idParam(c, "lesson ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeLessonID(lessonID))

	if err := h.contentService.DeleteLesson(c.Request.Context(), lessonID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Lesson deleted"})
}

// CreateTask creates a new task under a lesson
func (h *AdminHandler) CreateTask(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_create_task")
	defer observability.FinishSpan(span, nil)

	var req taskRequest
	if !bindJSONOrAbort(c, &req) {
		return
	}
	span.SetAttributes(
		observability.AttributeLessonID(req.LessonID),
		attribute.String("task.type", req.Type),
	)

	task, err := h.contentService.CreateTask(c.Request.Context(), req.LessonID, req.Title, req.Description, models.TaskType(req.Type), req.MaxScore)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// UpdateTask updates an existing task
func (h *AdminHandler) UpdateTask(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_update_task")
	defer observability.FinishSpan(span, nil)

	taskID, ok := idParam(c, "task ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeTaskID(taskID))

	var req taskRequest
	if !bindJSONOrAbort(c, &req) {
		return
	}

	if err := h.contentService.UpdateTask(c.Request.Context(), taskID, req.Title, req.Description, models.TaskType(req.Type), req.MaxScore); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task updated"})
}

// DeleteTask deletes a task and its questions
func (h *AdminHandler) DeleteTask(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_delete_task")
	defer observability.FinishSpan(span, nil)

	taskID, ok := idParam(c, "task ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeTaskID(taskID))

	if err := h.contentService.DeleteTask(c.Request.Context(), taskID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// CreateQuestion creates a question together with its answer options
func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_create_question")
	defer observability.FinishSpan(span, nil)

	var req questionRequest
	if !bindJSONOrAbort(c, &req) {
		return
	}
	span.SetAttributes(observability.AttributeTaskID(req.TaskID))

	answers := make([]models.Answer, 0, len(req.Answers))
	for i, a := range req.Answers {
		answers = append(answers, models.Answer{
			Text:         a.Text,
			IsCorrect:    a.IsCorrect,
			DisplayOrder: i,
		})
	}

	question, err := h.contentService.CreateQuestion(c.Request.Context(), req.TaskID, req.Text, req.Explanation, req.DisplayOrder, answers)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// DeleteQuestion deletes a question and its answers
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_delete_question")
	defer observability.FinishSpan(span, nil)

	questionID, ok := idParam(c, "question ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeQuestionID(questionID))

	if err := h.contentService.DeleteQuestion(c.Request.Context(), questionID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question deleted"})
}

// RecalculateAttempts recomputes scores for every stored attempt
func (h *AdminHandler) RecalculateAttempts(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_recalculate_attempts")
	defer observability.FinishSpan(span, nil)

	updated, err := h.quizService.RecalculateAttempts(c.Request.Context())
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info(c.Request.Context(), "Recalculated attempts", map[string]interface{}{"updated": updated})

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// GetAllUsers lists all registered users
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_get_users")
	defer observability.FinishSpan(span, nil)

	users, err := h.userService.GetAllUsers(c.Request.Context())
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// DeleteUser removes a user and all their data
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_delete_user")
	defer observability.FinishSpan(span, nil)

	userID, ok := idParam(c, "user ID")
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
