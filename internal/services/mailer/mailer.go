// Package mailer defines the email sending interface for the learning platform.
package mailer

import (
	"context"

	"eduplatform/internal/models"
)

// Mailer defines the interface for email sending functionality
type Mailer interface {
	// SendQuizResults emails a user the results of a completed task attempt
	SendQuizResults(ctx context.Context, user *models.User, task *models.Task, attempt *models.TaskAttempt) error

	// SendEmail sends a generic email with the given parameters
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool

	// RecordSentNotification records a sent notification in the database
	RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) error
}
