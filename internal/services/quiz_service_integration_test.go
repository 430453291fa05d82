//go:build integration

package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	contextutils "eduplatform/internal/utils"
)

type quizTestEnv struct {
	db       *sql.DB
	users    *UserService
	content  *ContentService
	quiz     *QuizService
	progress *ProgressService
}

// setupQuizTestEnv wires the full service stack against a clean database
func setupQuizTestEnv(t *testing.T) *quizTestEnv {
	db := SharedTestDBSetup(t)

	cfg, err := config.NewConfig()
	require.NoError(t, err)
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	content := NewContentServiceWithLogger(db, cfg, logger)
	env := &quizTestEnv{
		db:       db,
		users:    NewUserServiceWithLogger(db, cfg, logger),
		content:  content,
		quiz:     NewQuizServiceWithLogger(db, cfg, logger, content),
		progress: NewProgressServiceWithLogger(db, cfg, logger),
	}
	t.Cleanup(func() { env.db.Close() })
	return env
}

// seedChoiceTask creates a user plus a single-choice task with the given
// question layout. Each entry in correctPerQuestion lists the correct answer
// indexes (0-based) out of four answers per question.
func seedChoiceTask(t *testing.T, env *quizTestEnv, taskType models.TaskType, maxScore int, correctPerQuestion [][]int) (userID int, task *models.Task) {
	ctx := context.Background()

	user, err := env.users.CreateUserWithPassword(ctx, "student", "student@example.com", "password123")
	require.NoError(t, err)

	theme, err := env.content.CreateTheme(ctx, "Grammar", "Basics", 1)
	require.NoError(t, err)
	lesson, err := env.content.CreateLesson(ctx, theme.ID, "Lesson 1", "Content", "", 1)
	require.NoError(t, err)
	created, err := env.content.CreateTask(ctx, lesson.ID, "Quiz 1", "", taskType, maxScore)
	require.NoError(t, err)

	for qi, correctIdxs := range correctPerQuestion {
		answers := make([]models.Answer, 4)
		for ai := range answers {
			answers[ai] = models.Answer{Text: "Option", DisplayOrder: ai}
		}
		for _, ci := range correctIdxs {
			answers[ci].IsCorrect = true
		}
		_, err := env.content.CreateQuestion(ctx, created.ID, "Question", "", qi, answers)
		require.NoError(t, err)
	}

	task, err = env.content.GetTaskWithQuestions(ctx, created.ID)
	require.NoError(t, err)
	return user.ID, task
}

func TestQuizService_GetOrCreateAttempt_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}})

	attempt, err := env.quiz.GetOrCreateAttempt(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.False(t, attempt.IsCompleted)
	assert.Equal(t, 0, attempt.Score)
	assert.Equal(t, 10, attempt.MaxScore)

	// Second call returns the same attempt
	again, err := env.quiz.GetOrCreateAttempt(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, again.ID)
}

func TestQuizService_GetOrCreateAttempt_TaskNotFound_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)

	user, err := env.users.CreateUser(context.Background(), "student", "")
	require.NoError(t, err)

	_, err = env.quiz.GetOrCreateAttempt(context.Background(), user.ID, 99999)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrTaskNotFound))
}

func TestQuizService_GradeSubmission_SingleChoice_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	// 4 questions, answer index 0 correct in each
	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}, {0}, {0}, {0}})

	// Answer 3 of 4 correctly, the last one wrong
	selections := map[int][]int{}
	for i, q := range task.Questions {
		if i < 3 {
			selections[q.ID] = []int{q.Answers[0].ID}
		} else {
			selections[q.ID] = []int{q.Answers[1].ID}
		}
	}

	attempt, err := env.quiz.GradeSubmission(ctx, userID, task.ID, selections)
	require.NoError(t, err)

	assert.True(t, attempt.IsCompleted)
	assert.True(t, attempt.CompletedAt.Valid)
	assert.InDelta(t, 75.0, attempt.Percentage, 1e-9)
	assert.Equal(t, 7, attempt.Score)
}

func TestQuizService_GradeSubmission_MultipleChoice_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	// One question, answers 1 and 2 correct
	userID, task := seedChoiceTask(t, env, models.TaskTypeMultiple, 10, [][]int{{1, 2}})
	q := task.Questions[0]

	// Superset selection counts as incorrect
	attempt, err := env.quiz.GradeSubmission(ctx, userID, task.ID, map[int][]int{
		q.ID: {q.Answers[1].ID, q.Answers[2].ID, q.Answers[3].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, attempt.Score)

	// Exact set after retake counts as correct
	require.NoError(t, env.quiz.Retake(ctx, userID, task.ID))
	attempt, err = env.quiz.GradeSubmission(ctx, userID, task.ID, map[int][]int{
		q.ID: {q.Answers[2].ID, q.Answers[1].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, attempt.Score)
	assert.InDelta(t, 100.0, attempt.Percentage, 1e-9)
}

func TestQuizService_GradeSubmission_MissingQuestionsGradeEmpty_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}, {0}})
	q := task.Questions[0]

	// Only one of two questions is present in the payload
	attempt, err := env.quiz.GradeSubmission(ctx, userID, task.ID, map[int][]int{
		q.ID: {q.Answers[0].ID},
	})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, attempt.Percentage, 1e-9)
	assert.Equal(t, 5, attempt.Score)

	responses, err := env.quiz.ListResponses(ctx, userID, task.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Empty(t, responses[1].SelectedAnswers)
	assert.False(t, responses[1].IsCorrect)
}

func TestQuizService_GradeSubmission_UnknownQuestionRejected_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}})

	_, err := env.quiz.GradeSubmission(ctx, userID, task.ID, map[int][]int{99999: {1}})
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))

	// Nothing was persisted
	responses, err := env.quiz.ListResponses(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestQuizService_GradeSubmission_ForeignAnswerIDsFiltered_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}, {1}})
	q0, q1 := task.Questions[0], task.Questions[1]

	// Selecting the other question's answer id is ignored, leaving only the
	// correct one
	attempt, err := env.quiz.GradeSubmission(ctx, userID, task.ID, map[int][]int{
		q0.ID: {q0.Answers[0].ID, q1.Answers[0].ID},
		q1.ID: {q1.Answers[1].ID},
	})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, attempt.Percentage, 1e-9)

	responses, err := env.quiz.ListResponses(ctx, userID, task.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, []int{q0.Answers[0].ID}, responses[0].SelectedAnswers)
}

func TestQuizService_GradeSubmission_CompletedAttemptRejected_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}})
	q := task.Questions[0]
	selections := map[int][]int{q.ID: {q.Answers[0].ID}}

	_, err := env.quiz.GradeSubmission(ctx, userID, task.ID, selections)
	require.NoError(t, err)

	_, err = env.quiz.GradeSubmission(ctx, userID, task.ID, selections)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrAttemptCompleted))
}

func TestQuizService_GradeSubmission_Concurrent_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}, {0}, {0}})

	// Two full submissions with disjoint answer sets for every question
	first := map[int][]int{}
	second := map[int][]int{}
	for _, q := range task.Questions {
		first[q.ID] = []int{q.Answers[0].ID}
		second[q.ID] = []int{q.Answers[1].ID}
	}

	// Materialize the attempt up front so both writers contend on the
	// same row lock rather than racing the insert
	_, err := env.quiz.GetOrCreateAttempt(ctx, userID, task.ID)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i, selections := range []map[int][]int{first, second} {
		go func(i int, selections map[int][]int) {
			defer wg.Done()
			_, errs[i] = env.quiz.GradeSubmission(ctx, userID, task.ID, selections)
		}(i, selections)
	}
	wg.Wait()

	// Exactly one submission wins; the loser sees the completed attempt
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, contextutils.IsError(err, contextutils.ErrAttemptCompleted))
		}
	}
	assert.Equal(t, 1, winners)

	// The stored responses belong entirely to one submission, never a mix
	responses, err := env.quiz.ListResponses(ctx, userID, task.ID)
	require.NoError(t, err)
	require.Len(t, responses, len(task.Questions))

	stored := map[int][]int{}
	for _, r := range responses {
		stored[r.QuestionID] = r.SelectedAnswers
	}
	matches := func(want map[int][]int) bool {
		for qid, answers := range want {
			if !assert.ObjectsAreEqual(answers, stored[qid]) {
				return false
			}
		}
		return true
	}
	assert.True(t, matches(first) || matches(second))
}

func TestQuizService_GradeSubmission_TextTaskNotGradable_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	user, err := env.users.CreateUser(ctx, "student", "")
	require.NoError(t, err)
	theme, err := env.content.CreateTheme(ctx, "Theme", "", 1)
	require.NoError(t, err)
	lesson, err := env.content.CreateLesson(ctx, theme.ID, "Lesson", "", "", 1)
	require.NoError(t, err)
	task, err := env.content.CreateTask(ctx, lesson.ID, "Essay", "", models.TaskTypeText, 10)
	require.NoError(t, err)

	_, err = env.quiz.GradeSubmission(ctx, user.ID, task.ID, nil)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrTaskNotGradable))
}

func TestQuizService_GradeSubmission_NoQuestions_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	user, err := env.users.CreateUser(ctx, "student", "")
	require.NoError(t, err)
	theme, err := env.content.CreateTheme(ctx, "Theme", "", 1)
	require.NoError(t, err)
	lesson, err := env.content.CreateLesson(ctx, theme.ID, "Lesson", "", "", 1)
	require.NoError(t, err)
	task, err := env.content.CreateTask(ctx, lesson.ID, "Empty quiz", "", models.TaskTypeChoice, 10)
	require.NoError(t, err)

	_, err = env.quiz.GradeSubmission(ctx, user.ID, task.ID, nil)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrNoQuestionsAvailable))
}

func TestQuizService_Retake_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}})
	q := task.Questions[0]

	first, err := env.quiz.GradeSubmission(ctx, userID, task.ID, map[int][]int{q.ID: {q.Answers[0].ID}})
	require.NoError(t, err)
	require.True(t, first.IsCompleted)

	require.NoError(t, env.quiz.Retake(ctx, userID, task.ID))

	fresh, err := env.quiz.GetOrCreateAttempt(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.False(t, fresh.IsCompleted)
	assert.Equal(t, 0, fresh.Score)

	responses, err := env.quiz.ListResponses(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestQuizService_ListResponses_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}, {2}})
	q0, q1 := task.Questions[0], task.Questions[1]

	_, err := env.quiz.GradeSubmission(ctx, userID, task.ID, map[int][]int{
		q0.ID: {q0.Answers[0].ID},
		q1.ID: {q1.Answers[1].ID},
	})
	require.NoError(t, err)

	responses, err := env.quiz.ListResponses(ctx, userID, task.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)

	assert.Equal(t, q0.ID, responses[0].QuestionID)
	assert.True(t, responses[0].IsCorrect)
	assert.Equal(t, 10, responses[0].Score)
	assert.Equal(t, []int{q0.Answers[0].ID}, responses[0].CorrectAnswers)
	assert.NotEmpty(t, responses[0].QuestionText)

	assert.Equal(t, q1.ID, responses[1].QuestionID)
	assert.False(t, responses[1].IsCorrect)
	assert.Equal(t, 0, responses[1].Score)
	assert.Equal(t, []int{q1.Answers[2].ID}, responses[1].CorrectAnswers)
}

func TestQuizService_RecalculateAttempts_Idempotent_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}, {0}, {0}, {0}})
	selections := map[int][]int{}
	for i, q := range task.Questions {
		if i < 3 {
			selections[q.ID] = []int{q.Answers[0].ID}
		} else {
			selections[q.ID] = []int{q.Answers[1].ID}
		}
	}
	first, err := env.quiz.GradeSubmission(ctx, userID, task.ID, selections)
	require.NoError(t, err)

	recomputed, err := env.quiz.RecalculateAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recomputed)

	after, err := env.quiz.GetOrCreateAttempt(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Score, after.Score)
	assert.InDelta(t, first.Percentage, after.Percentage, 1e-9)
	assert.True(t, after.IsCompleted)
}

func TestQuizService_CalculateScore_NoResponses_NoOp_Integration(t *testing.T) {
	env := setupQuizTestEnv(t)
	ctx := context.Background()

	userID, task := seedChoiceTask(t, env, models.TaskTypeChoice, 10, [][]int{{0}})

	// Attempt exists but no responses were ever recorded
	_, err := env.quiz.GetOrCreateAttempt(ctx, userID, task.ID)
	require.NoError(t, err)

	recomputed, err := env.quiz.RecalculateAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recomputed)

	attempt, err := env.quiz.GetOrCreateAttempt(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.False(t, attempt.IsCompleted)
	assert.Equal(t, 0, attempt.Score)
}
