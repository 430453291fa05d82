package mailer

import (
	"context"
	"testing"

	"eduplatform/internal/models"

	"github.com/stretchr/testify/assert"
)

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendQuizResultsCalled        bool
	SendEmailCalled              bool
	RecordSentNotificationCalled bool
	IsEnabledResult              bool
}

func (m *MockMailer) SendQuizResults(_ context.Context, _ *models.User, _ *models.Task, _ *models.TaskAttempt) error {
	m.SendQuizResultsCalled = true
	return nil
}

func (m *MockMailer) SendEmail(_ context.Context, _, _, _ string, _ map[string]interface{}) error {
	m.SendEmailCalled = true
	return nil
}

func (m *MockMailer) RecordSentNotification(_ context.Context, _ int, _, _, _, _, _ string) error {
	m.RecordSentNotificationCalled = true
	return nil
}

func (m *MockMailer) IsEnabled() bool {
	return m.IsEnabledResult
}

func TestMailerInterface_Implementation(t *testing.T) {
	var _ Mailer = (*MockMailer)(nil)

	mock := &MockMailer{}
	ctx := context.Background()
	user := &models.User{ID: 1, Username: "test"}
	task := &models.Task{ID: 2, Title: "Quiz", Type: models.TaskTypeChoice, MaxScore: 10}
	attempt := &models.TaskAttempt{ID: 3, UserID: 1, TaskID: 2, Score: 7, MaxScore: 10, Percentage: 75, IsCompleted: true}

	err := mock.SendQuizResults(ctx, user, task, attempt)
	assert.NoError(t, err)
	assert.True(t, mock.SendQuizResultsCalled)

	err = mock.SendEmail(ctx, "test@example.com", "Test Subject", "test_template", map[string]interface{}{})
	assert.NoError(t, err)
	assert.True(t, mock.SendEmailCalled)

	err = mock.RecordSentNotification(ctx, 1, "quiz_results", "Test Subject", "test_template", "sent", "")
	assert.NoError(t, err)
	assert.True(t, mock.RecordSentNotificationCalled)

	assert.False(t, mock.IsEnabled())
	mock.IsEnabledResult = true
	assert.True(t, mock.IsEnabled())
}
