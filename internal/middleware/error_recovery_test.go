package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contextutils "eduplatform/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDefaultErrorRecoveryConfig(t *testing.T) {
	config := DefaultErrorRecoveryConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, config.RetryDelay)
	assert.Equal(t, 5*time.Second, config.MaxRetryDelay)
	assert.False(t, config.EnableCircuitBreaker)
	assert.Equal(t, 5, config.CircuitBreakerThreshold)
	assert.Equal(t, 30*time.Second, config.CircuitBreakerTimeout)
}

func TestErrorRecoveryMiddleware_PanicRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Create a router with panic recovery middleware
	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(nil))

	router.GET("/panic", func(_ *gin.Context) {
		panic("test panic")
	})

	req, _ := http.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Should return 500 with error message
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestErrorRecoveryMiddleware_NormalRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(nil))

	router.GET("/normal", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/normal", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCircuitBreaker_CanExecute(t *testing.T) {
	config := &ErrorRecoveryConfig{
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 2,
		CircuitBreakerTimeout:   100 * time.Millisecond,
	}

	cb := newCircuitBreaker(config)

	// Initially closed, should allow execution
	assert.True(t, cb.canExecute())
	assert.Equal(t, circuitClosed, cb.state)

	// Record failures
	cb.recordFailure()
	cb.recordFailure()

	// Should be open now
	assert.False(t, cb.canExecute())
	assert.Equal(t, circuitOpen, cb.state)

	// Wait for timeout
	time.Sleep(150 * time.Millisecond)

	// Should be half-open now
	assert.True(t, cb.canExecute())
	assert.Equal(t, circuitHalfOpen, cb.state)

	// Record success
	cb.recordSuccess()

	// Should be closed again
	assert.True(t, cb.canExecute())
	assert.Equal(t, circuitClosed, cb.state)
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     contextutils.ErrorCode
		expected int
	}{
		{"invalid input", contextutils.ErrorCodeInvalidInput, http.StatusBadRequest},
		{"validation failed", contextutils.ErrorCodeValidationFailed, http.StatusBadRequest},
		{"unauthorized", contextutils.ErrorCodeUnauthorized, http.StatusUnauthorized},
		{"invalid credentials", contextutils.ErrorCodeInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", contextutils.ErrorCodeForbidden, http.StatusForbidden},
		{"task not found", contextutils.ErrorCodeTaskNotFound, http.StatusNotFound},
		{"attempt not found", contextutils.ErrorCodeAttemptNotFound, http.StatusNotFound},
		{"record exists", contextutils.ErrorCodeRecordExists, http.StatusConflict},
		{"attempt completed", contextutils.ErrorCodeAttemptCompleted, http.StatusConflict},
		{"task not gradable", contextutils.ErrorCodeTaskNotGradable, http.StatusConflict},
		{"no questions", contextutils.ErrorCodeNoQuestionsAvailable, http.StatusConflict},
		{"internal error", contextutils.ErrorCodeInternalError, http.StatusInternalServerError},
		{"database connection", contextutils.ErrorCodeDatabaseConnection, http.StatusServiceUnavailable},
		{"timeout", contextutils.ErrorCodeTimeout, http.StatusRequestTimeout},
		{"unknown code", contextutils.ErrorCode("WHO_KNOWS"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestHandleAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/app-error", func(c *gin.Context) {
		HandleAppError(c, contextutils.ErrTaskNotFound)
	})
	router.GET("/wrapped-error", func(c *gin.Context) {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrAttemptCompleted, "grading"))
	})
	router.GET("/plain-error", func(c *gin.Context) {
		HandleAppError(c, errors.New("boom"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/app-error", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "TASK_NOT_FOUND")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/wrapped-error", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/plain-error", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
