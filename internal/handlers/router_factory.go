package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"eduplatform/internal/config"
	"eduplatform/internal/middleware"
	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	"eduplatform/internal/version"
)

// NewRouter creates a new router with all the necessary middleware and routes
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	contentService services.ContentServiceInterface,
	quizService services.QuizServiceInterface,
	progressService services.ProgressServiceInterface,
	emailService services.EmailServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	// Add HTTP request logging middleware using our observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}

		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		// Use appropriate log level based on status code
		if statusCode >= 500 {
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		} else if statusCode >= 400 {
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		} else {
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "eduplatform"})
	})

	// Add OpenTelemetry middleware for HTTP tracing and context propagation with automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling("eduplatform"))

	// Panic recovery with circuit breaking for repeated failures
	router.Use(middleware.ErrorRecoveryMiddleware(nil))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	// Setup CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Setup session middleware
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	// Setup Gin mode
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	// Security middleware
	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	// Initialize handlers
	authHandler := NewAuthHandler(userService, cfg, logger)
	profileHandler := NewProfileHandler(userService, cfg, logger)
	contentHandler := NewContentHandler(contentService, cfg, logger)
	quizHandler := NewQuizHandler(quizService, contentService, userService, emailService, cfg, logger)
	progressHandler := NewProgressHandler(progressService, cfg, logger)
	adminHandler := NewAdminHandlerWithLogger(contentService, quizService, userService, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "eduplatform",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RequestValidationMiddleware(logger), authHandler.Login)
			auth.POST("/signup", middleware.RequestValidationMiddleware(logger), authHandler.Signup)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
			auth.GET("/signup/status", authHandler.SignupStatus)
		}

		profile := v1.Group("/profile")
		profile.Use(middleware.RequireAuth())
		profile.Use(middleware.RequestValidationMiddleware(logger))
		{
			profile.GET("", profileHandler.GetProfile)
			profile.PUT("", profileHandler.UpdateProfile)
			profile.PUT("/password", profileHandler.UpdatePassword)
		}

		// Published content is readable by any signed-in user
		content := v1.Group("")
		content.Use(middleware.RequireAuth())
		{
			content.GET("/themes", contentHandler.GetThemes)
			content.GET("/themes/:id", contentHandler.GetTheme)
			content.GET("/lessons/:id", contentHandler.GetLesson)
			content.GET("/tasks/:id", contentHandler.GetTask)
			content.GET("/questions/:id", contentHandler.GetQuestion)
		}

		quiz := v1.Group("/quiz")
		quiz.Use(middleware.RequireAuth())
		quiz.Use(middleware.RequestValidationMiddleware(logger))
		{
			quiz.POST("/tasks/:id/attempt", quizHandler.StartAttempt)
			quiz.POST("/tasks/:id/submit", quizHandler.Submit)
			quiz.POST("/tasks/:id/retake", quizHandler.Retake)
			quiz.GET("/tasks/:id/responses", quizHandler.GetResponses)
		}

		progress := v1.Group("/progress")
		progress.Use(middleware.RequireAuth())
		{
			progress.POST("/lessons/:id/toggle", progressHandler.ToggleLesson)
			progress.GET("/summary", progressHandler.GetSummary)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAuth())
		admin.Use(middleware.RequireAdmin(cfg.Server.AdminUsername))
		admin.Use(middleware.RequestValidationMiddleware(logger))
		{
			admin.POST("/themes", adminHandler.CreateTheme)
			admin.PUT("/themes/:id", adminHandler.UpdateTheme)
			admin.DELETE("/themes/:id", adminHandler.DeleteTheme)

			admin.POST("/lessons", adminHandler.CreateLesson)
			admin.PUT("/lessons/:id", adminHandler.UpdateLesson)
			admin.DELETE("/lessons/:id", adminHandler.DeleteLesson)

			admin.POST("/tasks", adminHandler.CreateTask)
			admin.PUT("/tasks/:id", adminHandler.UpdateTask)
			admin.DELETE("/tasks/:id", adminHandler.DeleteTask)

			admin.POST("/questions", adminHandler.CreateQuestion)
			admin.DELETE("/questions/:id", adminHandler.DeleteQuestion)

			admin.POST("/attempts/recalculate", adminHandler.RecalculateAttempts)

			admin.GET("/users", adminHandler.GetAllUsers)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Automatic route listing at root path
	routeListing := NewRouteListingHandler("EduPlatform")
	routeListing.CollectRoutes(router)

	router.GET("/", func(c *gin.Context) {
		if c.Query("json") == "true" {
			routeListing.GetRouteListingJSON(c)
		} else {
			routeListing.GetRouteListingPage(c)
		}
	})

	return router
}
