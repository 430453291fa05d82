package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	contextutils "eduplatform/internal/utils"
)

// QuizServiceInterface defines the interface for quiz grading operations
type QuizServiceInterface interface {
	GetOrCreateAttempt(ctx context.Context, userID, taskID int) (*models.TaskAttempt, error)
	GradeSubmission(ctx context.Context, userID, taskID int, selections map[int][]int) (*models.TaskAttempt, error)
	Retake(ctx context.Context, userID, taskID int) error
	ListResponses(ctx context.Context, userID, taskID int) ([]models.UserResponseWithQuestion, error)
	RecalculateAttempts(ctx context.Context) (int, error)
}

// QuizService grades quiz submissions and tracks per-task attempts.
// All writes for one submission happen inside a single transaction.
type QuizService struct {
	db      *sql.DB
	cfg     *config.Config
	logger  *observability.Logger
	content ContentServiceInterface
}

// NewQuizServiceWithLogger creates a new quiz service with the provided logger
func NewQuizServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger, content ContentServiceInterface) *QuizService {
	return &QuizService{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		content: content,
	}
}

const attemptSelectFields = `id, user_id, task_id, score, max_score, percentage, is_completed, started_at, completed_at`

func scanAttempt(scanner interface{ Scan(...interface{}) error }) (*models.TaskAttempt, error) {
	var a models.TaskAttempt
	err := scanner.Scan(
		&a.ID, &a.UserID, &a.TaskID, &a.Score, &a.MaxScore,
		&a.Percentage, &a.IsCompleted, &a.StartedAt, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetOrCreateAttempt returns the user's attempt for a task, creating a fresh
// one when none exists. Callers use IsCompleted to decide between the quiz
// form and the results view.
func (s *QuizService) GetOrCreateAttempt(ctx context.Context, userID, taskID int) (result0 *models.TaskAttempt, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "get_or_create_attempt",
		observability.AttributeUserID(userID),
		observability.AttributeTaskID(taskID),
	)
	defer observability.FinishSpan(span, &err)

	task, err := s.content.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// The unique (user_id, task_id) constraint makes concurrent first visits
	// converge on a single row.
	insertQuery := `
		INSERT INTO task_attempts (user_id, task_id, max_score)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, task_id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, insertQuery, userID, taskID, task.MaxScore)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user with id %d not found", userID)
		}
		return nil, contextutils.WrapError(err, "failed to create task attempt")
	}

	query := `SELECT ` + attemptSelectFields + ` FROM task_attempts WHERE user_id = $1 AND task_id = $2`
	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, userID, taskID))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load task attempt")
	}
	return attempt, nil
}

// GradeSubmission grades a full quiz submission for a task and returns the
// recomputed attempt. The selections map question ids to selected answer ids;
// questions absent from the map grade as empty selections. The whole pass is
// one transaction, so concurrent submissions serialize on the attempt row and
// never interleave their selected-answer sets.
func (s *QuizService) GradeSubmission(ctx context.Context, userID, taskID int, selections map[int][]int) (result0 *models.TaskAttempt, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "grade_submission",
		observability.AttributeUserID(userID),
		observability.AttributeTaskID(taskID),
	)
	defer observability.FinishSpan(span, &err)

	task, err := s.content.GetTaskWithQuestions(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Type.IsAutoGradable() {
		return nil, contextutils.WrapErrorf(contextutils.ErrTaskNotGradable, "task type '%s' cannot be auto-graded", task.Type)
	}
	if len(task.Questions) == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrNoQuestionsAvailable, "task %d has no questions", taskID)
	}

	// Reject identifiers that do not belong to this task before touching
	// any state.
	questionIDSet := make(map[int]bool, len(task.Questions))
	for _, q := range task.Questions {
		questionIDSet[q.ID] = true
	}
	for questionID := range selections {
		if !questionIDSet[questionID] {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "question %d does not belong to task %d", questionID, taskID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rollbackErr.Error()})
			}
		}
	}()

	attempt, err := s.lockAttemptTx(ctx, tx, userID, taskID, task.MaxScore)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return nil, contextutils.WrapErrorf(contextutils.ErrAttemptCompleted, "attempt %d is already completed, retake required", attempt.ID)
	}

	for _, question := range task.Questions {
		if err = s.gradeQuestionTx(ctx, tx, userID, &question, task, selections[question.ID]); err != nil {
			return nil, err
		}
	}

	attempt, err = s.calculateScoreTx(ctx, tx, userID, task)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit grading transaction")
	}

	span.SetAttributes(
		observability.AttributeScore(attempt.Score),
		attribute.Float64("attempt.percentage", attempt.Percentage),
	)
	s.logger.Info(ctx, "Submission graded", map[string]interface{}{
		"user_id":    userID,
		"task_id":    taskID,
		"score":      attempt.Score,
		"percentage": attempt.Percentage,
	})
	return attempt, nil
}

// lockAttemptTx upserts and row-locks the attempt so concurrent submissions
// for the same (user, task) serialize rather than interleave.
func (s *QuizService) lockAttemptTx(ctx context.Context, tx *sql.Tx, userID, taskID, maxScore int) (*models.TaskAttempt, error) {
	insertQuery := `
		INSERT INTO task_attempts (user_id, task_id, max_score)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, task_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insertQuery, userID, taskID, maxScore); err != nil {
		return nil, contextutils.WrapError(err, "failed to upsert task attempt")
	}

	query := `SELECT ` + attemptSelectFields + ` FROM task_attempts WHERE user_id = $1 AND task_id = $2 FOR UPDATE`
	attempt, err := scanAttempt(tx.QueryRowContext(ctx, query, userID, taskID))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to lock task attempt")
	}
	return attempt, nil
}

// gradeQuestionTx grades one question and persists its response. The response
// keeps its original submitted_at on regrade; the selected-answer set is
// cleared and rebuilt inside the same transaction.
func (s *QuizService) gradeQuestionTx(ctx context.Context, tx *sql.Tx, userID int, question *models.Question, task *models.Task, selectedIDs []int) error {
	// Identifiers outside the question's own answer set are filtered out.
	answerIDSet := make(map[int]bool, len(question.Answers))
	for _, a := range question.Answers {
		answerIDSet[a.ID] = true
	}
	var resolved []int
	seen := make(map[int]bool)
	for _, id := range selectedIDs {
		if answerIDSet[id] && !seen[id] {
			resolved = append(resolved, id)
			seen[id] = true
		}
	}

	correctIDs := question.CorrectAnswerIDs()
	if len(correctIDs) == 0 {
		// Authoring problem, not the quiz-taker's: grade proceeds, the
		// question just cannot be answered correctly (except an empty
		// multiple-choice submission, which matches vacuously).
		s.logger.Warn(ctx, "Question has no correct answers", map[string]interface{}{
			"question_id": question.ID,
			"task_id":     task.ID,
		})
	}

	isCorrect := isSelectionCorrect(task.Type, resolved, correctIDs)

	// Per-response score mirrors the task-level maximum on a correct answer.
	// The attempt aggregate below is count-based and authoritative.
	score := 0
	if isCorrect {
		score = task.MaxScore
	}

	upsertQuery := `
		INSERT INTO user_responses (user_id, question_id, is_correct, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, question_id)
		DO UPDATE SET is_correct = EXCLUDED.is_correct, score = EXCLUDED.score
		RETURNING id
	`
	var responseID int
	if err := tx.QueryRowContext(ctx, upsertQuery, userID, question.ID, isCorrect, score).Scan(&responseID); err != nil {
		return contextutils.WrapErrorf(err, "failed to upsert response for question %d", question.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_response_answers WHERE user_response_id = $1`, responseID); err != nil {
		return contextutils.WrapError(err, "failed to clear selected answers")
	}
	for _, answerID := range resolved {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_response_answers (user_response_id, answer_id) VALUES ($1, $2)`, responseID, answerID); err != nil {
			return contextutils.WrapErrorf(err, "failed to record selected answer %d", answerID)
		}
	}
	return nil
}

// isSelectionCorrect applies the per-type correctness rule: single choice is
// a presence test for the correct id, multiple choice is exact set equality.
func isSelectionCorrect(taskType models.TaskType, selected, correct []int) bool {
	switch taskType {
	case models.TaskTypeChoice:
		if len(correct) == 0 {
			return false
		}
		for _, id := range selected {
			if id == correct[0] {
				return true
			}
		}
		return false
	case models.TaskTypeMultiple:
		if len(selected) != len(correct) {
			return false
		}
		correctSet := make(map[int]bool, len(correct))
		for _, id := range correct {
			correctSet[id] = true
		}
		for _, id := range selected {
			if !correctSet[id] {
				return false
			}
		}
		return true
	}
	return false
}

// calculateScoreTx recomputes the attempt aggregate from stored responses.
// Idempotent; with zero responses or zero questions it leaves the attempt
// untouched.
func (s *QuizService) calculateScoreTx(ctx context.Context, tx *sql.Tx, userID int, task *models.Task) (*models.TaskAttempt, error) {
	countQuery := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE ur.is_correct)
		FROM user_responses ur
		JOIN questions q ON q.id = ur.question_id
		WHERE ur.user_id = $1 AND q.task_id = $2
	`
	var responseCount, correctCount int
	if err := tx.QueryRowContext(ctx, countQuery, userID, task.ID).Scan(&responseCount, &correctCount); err != nil {
		return nil, contextutils.WrapError(err, "failed to count responses")
	}

	var totalQuestions int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE task_id = $1`, task.ID).Scan(&totalQuestions); err != nil {
		return nil, contextutils.WrapError(err, "failed to count questions")
	}

	selectQuery := `SELECT ` + attemptSelectFields + ` FROM task_attempts WHERE user_id = $1 AND task_id = $2`

	if responseCount == 0 || totalQuestions == 0 {
		attempt, err := scanAttempt(tx.QueryRowContext(ctx, selectQuery, userID, task.ID))
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to load task attempt")
		}
		return attempt, nil
	}

	percentage, score := computeAttemptScore(correctCount, totalQuestions, task.MaxScore)

	updateQuery := `
		UPDATE task_attempts
		SET score = $1, max_score = $2, percentage = $3, is_completed = TRUE, completed_at = $4
		WHERE user_id = $5 AND task_id = $6
	`
	if _, err := tx.ExecContext(ctx, updateQuery, score, task.MaxScore, percentage, time.Now(), userID, task.ID); err != nil {
		return nil, contextutils.WrapError(err, "failed to update task attempt")
	}

	attempt, err := scanAttempt(tx.QueryRowContext(ctx, selectQuery, userID, task.ID))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load task attempt")
	}
	return attempt, nil
}

// computeAttemptScore turns correct/total counts into a percentage and an
// integer score. The score truncates toward zero, so 3 of 4 at max 10 is 7.
func computeAttemptScore(correctCount, totalQuestions, maxScore int) (float64, int) {
	percentage := float64(correctCount) / float64(totalQuestions) * 100
	score := int(percentage / 100 * float64(maxScore))
	return percentage, score
}

// Retake wipes the user's responses and attempt for a task. The next
// GetOrCreateAttempt yields a fresh attempt with started_at reset.
func (s *QuizService) Retake(ctx context.Context, userID, taskID int) (err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "retake",
		observability.AttributeUserID(userID),
		observability.AttributeTaskID(taskID),
	)
	defer observability.FinishSpan(span, &err)

	if _, err = s.content.GetTaskByID(ctx, taskID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rollbackErr.Error()})
			}
		}
	}()

	deleteResponses := `
		DELETE FROM user_responses
		WHERE user_id = $1 AND question_id IN (SELECT id FROM questions WHERE task_id = $2)
	`
	if _, err = tx.ExecContext(ctx, deleteResponses, userID, taskID); err != nil {
		return contextutils.WrapError(err, "failed to delete responses")
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM task_attempts WHERE user_id = $1 AND task_id = $2`, userID, taskID); err != nil {
		return contextutils.WrapError(err, "failed to delete task attempt")
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(err, "failed to commit retake transaction")
	}

	s.logger.Info(ctx, "Quiz retake", map[string]interface{}{"user_id": userID, "task_id": taskID})
	return nil
}

// ListResponses returns the user's graded responses for a task, each joined
// with its question text, correct answer ids and selected answer ids, ordered
// by question display order.
func (s *QuizService) ListResponses(ctx context.Context, userID, taskID int) (result0 []models.UserResponseWithQuestion, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "list_responses",
		observability.AttributeUserID(userID),
		observability.AttributeTaskID(taskID),
	)
	defer observability.FinishSpan(span, &err)

	if _, err = s.content.GetTaskByID(ctx, taskID); err != nil {
		return nil, err
	}

	query := `
		SELECT ur.id, ur.user_id, ur.question_id, ur.is_correct, ur.score, ur.submitted_at,
			q.text,
			COALESCE((SELECT ARRAY_AGG(ura.answer_id ORDER BY ura.answer_id)
				FROM user_response_answers ura WHERE ura.user_response_id = ur.id), '{}'),
			COALESCE((SELECT ARRAY_AGG(a.id ORDER BY a.display_order, a.id)
				FROM answers a WHERE a.question_id = q.id AND a.is_correct), '{}')
		FROM user_responses ur
		JOIN questions q ON q.id = ur.question_id
		WHERE ur.user_id = $1 AND q.task_id = $2
		ORDER BY q.display_order, q.id
	`
	rows, err := s.db.QueryContext(ctx, query, userID, taskID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query responses")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var responses []models.UserResponseWithQuestion
	for rows.Next() {
		var r models.UserResponseWithQuestion
		var selected, correct pq.Int64Array
		err = rows.Scan(
			&r.ID, &r.UserID, &r.QuestionID, &r.IsCorrect, &r.Score, &r.SubmittedAt,
			&r.QuestionText, &selected, &correct,
		)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan response row")
		}
		r.SelectedAnswers = int64sToInts(selected)
		r.CorrectAnswers = int64sToInts(correct)
		responses = append(responses, r)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating response rows")
	}
	return responses, nil
}

// RecalculateAttempts re-runs the aggregate scoring for every attempt that
// has stored responses. Returns the number of attempts recomputed.
func (s *QuizService) RecalculateAttempts(ctx context.Context) (result0 int, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "recalculate_attempts")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT user_id, task_id FROM task_attempts ORDER BY id`)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to query attempts")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	type attemptKey struct{ userID, taskID int }
	var keys []attemptKey
	for rows.Next() {
		var k attemptKey
		if err := rows.Scan(&k.userID, &k.taskID); err != nil {
			return 0, contextutils.WrapError(err, "failed to scan attempt row")
		}
		keys = append(keys, k)
	}
	if err = rows.Err(); err != nil {
		return 0, contextutils.WrapError(err, "error iterating attempt rows")
	}

	recomputed := 0
	for _, k := range keys {
		if err := s.recalculateAttempt(ctx, k.userID, k.taskID); err != nil {
			if errors.Is(err, contextutils.ErrTaskNotFound) {
				continue
			}
			return recomputed, err
		}
		recomputed++
	}
	return recomputed, nil
}

func (s *QuizService) recalculateAttempt(ctx context.Context, userID, taskID int) (err error) {
	task, err := s.content.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rollbackErr.Error()})
			}
		}
	}()

	if _, err = s.calculateScoreTx(ctx, tx, userID, task); err != nil {
		return err
	}
	return tx.Commit()
}

func int64sToInts(in []int64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
