package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"eduplatform/internal/observability"

	"github.com/gin-gonic/gin"
)

// RequestValidationMiddleware validates JSON request bodies against the
// schema registered for the matched route. Endpoints without a registered
// schema pass through untouched.
func RequestValidationMiddleware(logger *observability.Logger) gin.HandlerFunc {
	schemaLoader := sharedSchemaLoader()

	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
			c.Next()
			return
		}

		schemaName := schemaLoader.SchemaForRoute(method, c.FullPath())
		if schemaName == "" {
			c.Next()
			return
		}

		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation")
		defer span.End()

		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Failed to read request body",
				"code":  "INVALID_INPUT",
			})
			c.Abort()
			return
		}
		// Restore the body so handlers can bind it
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		var requestData interface{}
		if err := json.Unmarshal(body, &requestData); err != nil {
			logger.Warn(ctx, "Request body is not valid JSON", map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Request body must be valid JSON",
				"code":  "INVALID_FORMAT",
			})
			c.Abort()
			return
		}

		if err := schemaLoader.ValidateData(requestData, schemaName); err != nil {
			logger.Warn(ctx, "Request validation failed", map[string]interface{}{
				"method":      method,
				"path":        c.Request.URL.Path,
				"schema_name": schemaName,
				"error":       err.Error(),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"code":    "VALIDATION_FAILED",
				"schema":  schemaName,
				"details": err.Error(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
