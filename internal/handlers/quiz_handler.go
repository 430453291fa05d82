package handlers

import (
	"net/http"
	"strconv"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"github.com/gin-gonic/gin"
)

// QuizHandler handles quiz attempt and grading HTTP requests
type QuizHandler struct {
	quizService    services.QuizServiceInterface
	contentService services.ContentServiceInterface
	userService    services.UserServiceInterface
	emailService   services.EmailServiceInterface
	cfg            *config.Config
	logger         *observability.Logger
}

// NewQuizHandler creates a new QuizHandler
func NewQuizHandler(
	quizService services.QuizServiceInterface,
	contentService services.ContentServiceInterface,
	userService services.UserServiceInterface,
	emailService services.EmailServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		contentService: contentService,
		userService:    userService,
		emailService:   emailService,
		cfg:            cfg,
		logger:         logger,
	}
}

// submissionRequest carries the user's selected answers keyed by question ID.
// Keys arrive as strings because JSON object keys always do.
type submissionRequest struct {
	Selections map[string][]int `json:"selections" binding:"required"`
}

func taskIDParam(c *gin.Context) (int, bool) {
	taskID, err := strconv.Atoi(c.Param("id"))
	if err != nil || taskID <= 0 {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid task ID format",
			"Task ID must be a positive integer",
		))
		return 0, false
	}
	return taskID, true
}

// StartAttempt returns the user's attempt for a task, creating one if needed
func (h *QuizHandler) StartAttempt(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "start_attempt")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeTaskID(taskID))

	attempt, err := h.quizService.GetOrCreateAttempt(c.Request.Context(), userID, taskID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// Submit grades the user's selected answers for a task
func (h *QuizHandler) Submit(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_answers")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeTaskID(taskID))

	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	selections := make(map[int][]int, len(req.Selections))
	for key, answerIDs := range req.Selections {
		questionID, err := strconv.Atoi(key)
		if err != nil {
			HandleAppError(c, contextutils.NewAppError(
				contextutils.ErrorCodeInvalidInput,
				contextutils.SeverityWarn,
				"Invalid question ID in selections",
				"Selection keys must be numeric question IDs",
			))
			return
		}
		selections[questionID] = answerIDs
	}

	attempt, err := h.quizService.GradeSubmission(c.Request.Context(), userID, taskID, selections)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if attempt.IsCompleted {
		h.sendResultsEmail(c, userID, taskID, attempt)
	}

	c.JSON(http.StatusOK, attempt)
}

// sendResultsEmail delivers the results email for a completed attempt.
// Failures are logged and never affect the grading response.
func (h *QuizHandler) sendResultsEmail(c *gin.Context, userID, taskID int, attempt *models.TaskAttempt) {
	if !h.cfg.Grading.EmailResults || !h.emailService.IsEnabled() {
		return
	}

	ctx := c.Request.Context()
	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		h.logger.Warn(ctx, "Skipping results email, user lookup failed", map[string]interface{}{"user_id": userID})
		return
	}
	task, err := h.contentService.GetTaskByID(ctx, taskID)
	if err != nil {
		h.logger.Warn(ctx, "Skipping results email, task lookup failed", map[string]interface{}{"task_id": taskID})
		return
	}

	if err := h.emailService.SendQuizResults(ctx, user, task, attempt); err != nil {
		h.logger.Warn(ctx, "Failed to send quiz results email", map[string]interface{}{
			"user_id": userID,
			"task_id": taskID,
			"error":   err.Error(),
		})
	}
}

// Retake clears the user's responses and attempt for a task
func (h *QuizHandler) Retake(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "retake_task")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeTaskID(taskID))

	if err := h.quizService.Retake(c.Request.Context(), userID, taskID); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info(c.Request.Context(), "User reset task attempt", map[string]interface{}{
		"user_id": userID,
		"task_id": taskID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Task reset"})
}

// GetResponses lists the user's graded responses for a task
func (h *QuizHandler) GetResponses(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_responses")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeTaskID(taskID))

	responses, err := h.quizService.ListResponses(c.Request.Context(), userID, taskID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"responses": responses})
}
