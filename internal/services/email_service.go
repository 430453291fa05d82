package services

import (
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/mail.v2"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	"eduplatform/internal/services/mailer"
	contextutils "eduplatform/internal/utils"
)

// EmailServiceInterface defines the interface for email functionality
type EmailServiceInterface = mailer.Mailer

// EmailService implements mailer.Mailer using gomail over SMTP
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
	db     *sql.DB
}

// Ensure EmailService implements the Mailer interface
var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger, db *sql.DB) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
		db:     db,
	}
}

// SendQuizResults emails a user the results of a completed task attempt.
// Callers treat failures as non-fatal; grading never depends on delivery.
func (e *EmailService) SendQuizResults(ctx context.Context, user *models.User, task *models.Task, attempt *models.TaskAttempt) (err error) {
	ctx, span := otel.Tracer("email-service").Start(ctx, "SendQuizResults",
		trace.WithAttributes(
			attribute.Int("user.id", user.ID),
			attribute.Int("task.id", task.ID),
		),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping quiz results", map[string]interface{}{
			"user_id": user.ID,
			"task_id": task.ID,
		})
		return nil
	}

	if !user.Email.Valid || user.Email.String == "" {
		e.logger.Warn(ctx, "User has no email address, skipping quiz results", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	data := map[string]interface{}{
		"Username":   user.Username,
		"TaskTitle":  task.Title,
		"Score":      attempt.Score,
		"MaxScore":   attempt.MaxScore,
		"Percentage": fmt.Sprintf("%.1f", attempt.Percentage),
		"AppBaseURL": e.cfg.Server.AppBaseURL,
		"SentDate":   time.Now().Format("January 2, 2006"),
	}

	subject := fmt.Sprintf("Your results for %q", task.Title)

	err = e.SendEmail(ctx, user.Email.String, subject, "quiz_results", data)

	status := "sent"
	errorMessage := ""
	if err != nil {
		status = "failed"
		errorMessage = err.Error()
	}
	if recordErr := e.RecordSentNotification(ctx, user.ID, "quiz_results", subject, "quiz_results", status, errorMessage); recordErr != nil {
		e.logger.Warn(ctx, "Failed to record sent notification", map[string]interface{}{"error": recordErr.Error()})
	}

	if err != nil {
		return contextutils.WrapError(err, "failed to send quiz results")
	}

	e.logger.Info(ctx, "Quiz results sent", map[string]interface{}{
		"user_id": user.ID,
		"task_id": task.ID,
		"email":   user.Email.String,
	})
	return nil
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := otel.Tracer("email-service").Start(ctx, "SendEmail",
		trace.WithAttributes(
			attribute.String("email.to", to),
			attribute.String("email.subject", subject),
			attribute.String("email.template", templateName),
		),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"to":       to,
			"template": templateName,
		})
		return nil
	}

	if e.dialer == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}

	m := mail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", e.cfg.Email.SMTP.FromName, e.cfg.Email.SMTP.FromAddress))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	content, err := e.generateEmailContent(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}
	m.SetBody("text/html", content)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"to":       to,
			"template": templateName,
			"subject":  subject,
		})
		return contextutils.WrapError(err, "failed to send email")
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"to":       to,
		"template": templateName,
		"subject":  subject,
	})
	return nil
}

// RecordSentNotification records a sent notification in the database
func (e *EmailService) RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) (err error) {
	ctx, span := otel.Tracer("email-service").Start(ctx, "RecordSentNotification",
		trace.WithAttributes(
			attribute.Int("user.id", userID),
			attribute.String("notification.type", notificationType),
			attribute.String("notification.status", status),
		),
	)
	defer observability.FinishSpan(span, &err)

	if e.db == nil {
		return contextutils.ErrorWithContextf("EmailService database connection is nil")
	}

	query := `
		INSERT INTO sent_notifications (user_id, notification_type, subject, template_name, sent_at, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = e.db.ExecContext(ctx, query, userID, notificationType, subject, templateName, time.Now(), status, errorMessage)
	if err != nil {
		return contextutils.WrapError(err, "failed to record sent notification")
	}
	return nil
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.cfg.Email.SMTP.Host != ""
}

// generateEmailContent generates email content from templates
func (e *EmailService) generateEmailContent(templateName string, data map[string]interface{}) (string, error) {
	switch templateName {
	case "quiz_results":
		return renderTemplate("quiz_results", quizResultsTemplate, data)
	case "test_email":
		return renderTemplate("test_email", testEmailTemplate, data)
	default:
		return "", contextutils.ErrorWithContextf("unknown template: %s", templateName)
	}
}

func renderTemplate(name, templateStr string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to parse template")
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", contextutils.WrapError(err, "failed to execute template")
	}
	return buf.String(), nil
}

const quizResultsTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Quiz Results</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; }
        .score { font-size: 28px; font-weight: bold; text-align: center; margin: 20px 0; }
        .footer { background-color: #eee; padding: 15px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Quiz Results</h1>
        </div>
        <div class="content">
            <h2>Hello {{.Username}}!</h2>
            <p>You completed <strong>{{.TaskTitle}}</strong> on {{.SentDate}}.</p>
            <div class="score">{{.Score}} / {{.MaxScore}} ({{.Percentage}}%)</div>
            <p>You can review your answers any time in the course.</p>
        </div>
        <div class="footer">
            <p>This email was sent by the learning platform at {{.AppBaseURL}}.</p>
        </div>
    </div>
</body>
</html>`

const testEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Test Email</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2196F3; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; }
        .footer { background-color: #eee; padding: 15px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Test Email</h1>
        </div>
        <div class="content">
            <h2>Hello {{.Username}}!</h2>
            <p>This is a test email confirming that SMTP delivery is configured correctly.</p>
        </div>
        <div class="footer">
            <p>This email was sent by the learning platform at {{.AppBaseURL}}.</p>
        </div>
    </div>
</body>
</html>`
