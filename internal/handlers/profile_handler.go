package handlers

import (
	"net/http"

	"eduplatform/internal/config"
	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"github.com/gin-gonic/gin"
)

// ProfileHandler handles the current user's profile endpoints
type ProfileHandler struct {
	userService services.UserServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *ProfileHandler {
	return &ProfileHandler{
		userService: userService,
		cfg:         cfg,
		logger:      logger,
	}
}

type profileUpdateRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type passwordUpdateRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// GetProfile returns the current user's profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_profile")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to get user"))
		return
	}
	if user == nil {
		HandleAppError(c, contextutils.ErrRecordNotFound)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the current user's email and name
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "update_profile")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	var req profileUpdateRequest
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

	if err := h.userService.UpdateUserProfile(c.Request.Context(), userID, req.Email, req.FirstName, req.LastName); err != nil {
		HandleAppError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to reload user"))
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdatePassword changes the current user's password after verifying the old one
func (h *ProfileHandler) UpdatePassword(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "update_password")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	var req passwordUpdateRequest
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

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		HandleAppError(c, contextutils.ErrRecordNotFound)
		return
	}

	authenticated, err := h.userService.AuthenticateUser(c.Request.Context(), user.Username, req.CurrentPassword)
	if err != nil || authenticated == nil {
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	}

	if err := h.userService.UpdateUserPassword(c.Request.Context(), userID, req.NewPassword); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info(c.Request.Context(), "User changed password", map[string]interface{}{"user_id": userID})

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
