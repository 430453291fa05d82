package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	contextutils "eduplatform/internal/utils"
)

// ContentServiceInterface defines the interface for course content operations
type ContentServiceInterface interface {
	CreateTheme(ctx context.Context, title, description string, displayOrder int) (*models.Theme, error)
	GetThemes(ctx context.Context) ([]models.Theme, error)
	GetThemeByID(ctx context.Context, themeID int) (*models.Theme, error)
	UpdateTheme(ctx context.Context, themeID int, title, description string, displayOrder int) error
	DeleteTheme(ctx context.Context, themeID int) error

	CreateLesson(ctx context.Context, themeID int, title, content, videoURL string, displayOrder int) (*models.Lesson, error)
	GetLessonByID(ctx context.Context, lessonID int) (*models.Lesson, error)
	GetLessonsByTheme(ctx context.Context, themeID int) ([]models.Lesson, error)
	UpdateLesson(ctx context.Context, lessonID int, title, content, videoURL string, displayOrder int) error
	DeleteLesson(ctx context.Context, lessonID int) error

	CreateTask(ctx context.Context, lessonID int, title, description string, taskType models.TaskType, maxScore int) (*models.Task, error)
	GetTaskByID(ctx context.Context, taskID int) (*models.Task, error)
	GetTaskWithQuestions(ctx context.Context, taskID int) (*models.Task, error)
	GetTasksByLesson(ctx context.Context, lessonID int) ([]models.Task, error)
	UpdateTask(ctx context.Context, taskID int, title, description string, taskType models.TaskType, maxScore int) error
	DeleteTask(ctx context.Context, taskID int) error

	CreateQuestion(ctx context.Context, taskID int, text, explanation string, displayOrder int, answers []models.Answer) (*models.Question, error)
	GetQuestionByID(ctx context.Context, questionID int) (*models.Question, error)
	DeleteQuestion(ctx context.Context, questionID int) error
}

// ContentService manages themes, lessons, tasks, questions and answers
type ContentService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewContentServiceWithLogger creates a new content service with the provided logger
func NewContentServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *ContentService {
	return &ContentService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

const themeSelectFields = `id, title, description, display_order, created_at`
const lessonSelectFields = `id, theme_id, title, content, video_url, display_order, created_at`
const taskSelectFields = `id, lesson_id, title, description, task_type, max_score, created_at`
const questionSelectFields = `id, task_id, text, display_order, explanation, created_at`
const answerSelectFields = `id, question_id, text, is_correct, display_order`

func scanTheme(scanner interface{ Scan(...interface{}) error }) (*models.Theme, error) {
	var t models.Theme
	err := scanner.Scan(&t.ID, &t.Title, &t.Description, &t.DisplayOrder, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanLesson(scanner interface{ Scan(...interface{}) error }) (*models.Lesson, error) {
	var l models.Lesson
	err := scanner.Scan(&l.ID, &l.ThemeID, &l.Title, &l.Content, &l.VideoURL, &l.DisplayOrder, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanTask(scanner interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	err := scanner.Scan(&t.ID, &t.LessonID, &t.Title, &t.Description, &t.Type, &t.MaxScore, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanQuestion(scanner interface{ Scan(...interface{}) error }) (*models.Question, error) {
	var q models.Question
	err := scanner.Scan(&q.ID, &q.TaskID, &q.Text, &q.DisplayOrder, &q.Explanation, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateTheme creates a new course theme
func (s *ContentService) CreateTheme(ctx context.Context, title, description string, displayOrder int) (result0 *models.Theme, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "create_theme")
	defer observability.FinishSpan(span, &err)

	if title == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "theme title cannot be empty")
	}

	query := `
		INSERT INTO themes (title, description, display_order)
		VALUES ($1, $2, $3)
		RETURNING ` + themeSelectFields
	row := s.db.QueryRowContext(ctx, query, title, description, displayOrder)
	theme, err := scanTheme(row)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create theme")
	}
	return theme, nil
}

// GetThemes returns all themes ordered by display order
func (s *ContentService) GetThemes(ctx context.Context) (result0 []models.Theme, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_themes")
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + themeSelectFields + ` FROM themes ORDER BY display_order, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query themes")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var themes []models.Theme
	for rows.Next() {
		theme, err := scanTheme(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan theme row")
		}
		themes = append(themes, *theme)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating theme rows")
	}
	return themes, nil
}

// GetThemeByID returns a theme with its lessons loaded
func (s *ContentService) GetThemeByID(ctx context.Context, themeID int) (result0 *models.Theme, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_theme_by_id", observability.AttributeThemeID(themeID))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + themeSelectFields + ` FROM themes WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, themeID)
	theme, err := scanTheme(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrThemeNotFound, "theme with id %d not found", themeID)
		}
		return nil, contextutils.WrapError(err, "failed to get theme")
	}

	theme.Lessons, err = s.GetLessonsByTheme(ctx, themeID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load lessons for theme")
	}
	return theme, nil
}

// UpdateTheme updates a theme's title, description and ordering
func (s *ContentService) UpdateTheme(ctx context.Context, themeID int, title, description string, displayOrder int) (err error) {
	ctx, span := observability.TraceContentFunction(ctx, "update_theme", observability.AttributeThemeID(themeID))
	defer observability.FinishSpan(span, &err)

	query := `UPDATE themes SET title = $1, description = $2, display_order = $3 WHERE id = $4`
	result, err := s.db.ExecContext(ctx, query, title, description, displayOrder, themeID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update theme")
	}
	return requireRowsAffected(result, contextutils.ErrThemeNotFound)
}

// DeleteTheme removes a theme; lessons and tasks cascade
func (s *ContentService) DeleteTheme(ctx context.Context, themeID int) (err error) {
	ctx, span := observability.TraceContentFunction(ctx, "delete_theme", observability.AttributeThemeID(themeID))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM themes WHERE id = $1`, themeID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete theme")
	}
	return requireRowsAffected(result, contextutils.ErrThemeNotFound)
}

// CreateLesson creates a lesson under a theme
func (s *ContentService) CreateLesson(ctx context.Context, themeID int, title, content, videoURL string, displayOrder int) (result0 *models.Lesson, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "create_lesson", observability.AttributeThemeID(themeID))
	defer observability.FinishSpan(span, &err)

	if title == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "lesson title cannot be empty")
	}

	query := `
		INSERT INTO lessons (theme_id, title, content, video_url, display_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + lessonSelectFields
	row := s.db.QueryRowContext(ctx, query, themeID, title, content, nullIfEmpty(videoURL), displayOrder)
	lesson, err := scanLesson(row)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrThemeNotFound, "theme with id %d not found", themeID)
		}
		return nil, contextutils.WrapError(err, "failed to create lesson")
	}
	return lesson, nil
}

// GetLessonByID returns a lesson with its tasks loaded
func (s *ContentService) GetLessonByID(ctx context.Context, lessonID int) (result0 *models.Lesson, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_lesson_by_id", observability.AttributeLessonID(lessonID))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + lessonSelectFields + ` FROM lessons WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, lessonID)
	lesson, err := scanLesson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrLessonNotFound, "lesson with id %d not found", lessonID)
		}
		return nil, contextutils.WrapError(err, "failed to get lesson")
	}

	lesson.Tasks, err = s.GetTasksByLesson(ctx, lessonID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load tasks for lesson")
	}
	return lesson, nil
}

// GetLessonsByTheme returns lessons of a theme ordered by display order
func (s *ContentService) GetLessonsByTheme(ctx context.Context, themeID int) (result0 []models.Lesson, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_lessons_by_theme", observability.AttributeThemeID(themeID))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + lessonSelectFields + ` FROM lessons WHERE theme_id = $1 ORDER BY display_order, id`
	rows, err := s.db.QueryContext(ctx, query, themeID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query lessons")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var lessons []models.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan lesson row")
		}
		lessons = append(lessons, *lesson)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating lesson rows")
	}
	return lessons, nil
}

// UpdateLesson updates a lesson's fields
func (s *ContentService) UpdateLesson(ctx context.Context, lessonID int, title, content, videoURL string, displayOrder int) (err error) {
	ctx, span := observability.TraceContentFunction(ctx, "update_lesson", observability.AttributeLessonID(lessonID))
	defer observability.FinishSpan(span, &err)

	query := `UPDATE lessons SET title = $1, content = $2, video_url = $3, display_order = $4 WHERE id = $5`
	result, err := s.db.ExecContext(ctx, query, title, content, nullIfEmpty(videoURL), displayOrder, lessonID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update lesson")
	}
	return requireRowsAffected(result, contextutils.ErrLessonNotFound)
}

// DeleteLesson removes a lesson; tasks and questions cascade
func (s *ContentService) DeleteLesson(ctx context.Context, lessonID int) (err error) {
	ctx, span := observability.TraceContentFunction(ctx, "delete_lesson", observability.AttributeLessonID(lessonID))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, lessonID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete lesson")
	}
	return requireRowsAffected(result, contextutils.ErrLessonNotFound)
}

// CreateTask creates a task under a lesson
func (s *ContentService) CreateTask(ctx context.Context, lessonID int, title, description string, taskType models.TaskType, maxScore int) (result0 *models.Task, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "create_task",
		observability.AttributeLessonID(lessonID),
		observability.AttributeTaskType(string(taskType)),
	)
	defer observability.FinishSpan(span, &err)

	if title == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "task title cannot be empty")
	}
	if !isValidTaskType(taskType) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid task type '%s'", taskType)
	}
	if maxScore == 0 {
		maxScore = s.cfg.Grading.DefaultMaxScore
	}
	if maxScore < config.MinTaskMaxScore || maxScore > config.MaxTaskMaxScore {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "max score must be between %d and %d", config.MinTaskMaxScore, config.MaxTaskMaxScore)
	}

	query := `
		INSERT INTO tasks (lesson_id, title, description, task_type, max_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + taskSelectFields
	row := s.db.QueryRowContext(ctx, query, lessonID, title, description, taskType, maxScore)
	task, err := scanTask(row)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrLessonNotFound, "lesson with id %d not found", lessonID)
		}
		return nil, contextutils.WrapError(err, "failed to create task")
	}
	return task, nil
}

// GetTaskByID returns a task without its questions
func (s *ContentService) GetTaskByID(ctx context.Context, taskID int) (result0 *models.Task, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_task_by_id", observability.AttributeTaskID(taskID))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + taskSelectFields + ` FROM tasks WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, taskID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrTaskNotFound, "task with id %d not found", taskID)
		}
		return nil, contextutils.WrapError(err, "failed to get task")
	}
	return task, nil
}

// GetTaskWithQuestions returns a task with questions and answers fully loaded
func (s *ContentService) GetTaskWithQuestions(ctx context.Context, taskID int) (result0 *models.Task, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_task_with_questions", observability.AttributeTaskID(taskID))
	defer observability.FinishSpan(span, &err)

	task, err := s.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task.Questions, err = s.getQuestionsForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("task.question_count", len(task.Questions)))
	return task, nil
}

// GetTasksByLesson returns tasks of a lesson ordered by id
func (s *ContentService) GetTasksByLesson(ctx context.Context, lessonID int) (result0 []models.Task, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_tasks_by_lesson", observability.AttributeLessonID(lessonID))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + taskSelectFields + ` FROM tasks WHERE lesson_id = $1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, lessonID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query tasks")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan task row")
		}
		tasks = append(tasks, *task)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating task rows")
	}
	return tasks, nil
}

// UpdateTask updates a task's metadata and score ceiling
func (s *ContentService) UpdateTask(ctx context.Context, taskID int, title, description string, taskType models.TaskType, maxScore int) (err error) {
	ctx, span := observability.TraceContentFunction(ctx, "update_task", observability.AttributeTaskID(taskID))
	defer observability.FinishSpan(span, &err)

	if !isValidTaskType(taskType) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid task type '%s'", taskType)
	}
	if maxScore < config.MinTaskMaxScore || maxScore > config.MaxTaskMaxScore {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "max score must be between %d and %d", config.MinTaskMaxScore, config.MaxTaskMaxScore)
	}

	query := `UPDATE tasks SET title = $1, description = $2, task_type = $3, max_score = $4 WHERE id = $5`
	result, err := s.db.ExecContext(ctx, query, title, description, taskType, maxScore, taskID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update task")
	}
	return requireRowsAffected(result, contextutils.ErrTaskNotFound)
}

// DeleteTask removes a task; questions, responses and attempts cascade
func (s *ContentService) DeleteTask(ctx context.Context, taskID int) (err error) {
	ctx, span := observability.TraceContentFunction(ctx, "delete_task", observability.AttributeTaskID(taskID))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete task")
	}
	return requireRowsAffected(result, contextutils.ErrTaskNotFound)
}

// CreateQuestion creates a question and its answers in a single transaction
func (s *ContentService) CreateQuestion(ctx context.Context, taskID int, text, explanation string, displayOrder int, answers []models.Answer) (result0 *models.Question, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "create_question", observability.AttributeTaskID(taskID))
	defer observability.FinishSpan(span, &err)

	if text == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "question text cannot be empty")
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

	query := `
		INSERT INTO questions (task_id, text, display_order, explanation)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + questionSelectFields
	row := tx.QueryRowContext(ctx, query, taskID, text, displayOrder, nullIfEmpty(explanation))
	question, err := scanQuestion(row)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrTaskNotFound, "task with id %d not found", taskID)
		}
		return nil, contextutils.WrapError(err, "failed to create question")
	}

	for i := range answers {
		answerQuery := `
			INSERT INTO answers (question_id, text, is_correct, display_order)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		var answerID int
		err = tx.QueryRowContext(ctx, answerQuery, question.ID, answers[i].Text, answers[i].IsCorrect, answers[i].DisplayOrder).Scan(&answerID)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to create answer")
		}
		answers[i].ID = answerID
		answers[i].QuestionID = question.ID
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit question transaction")
	}

	question.Answers = answers
	return question, nil
}

// GetQuestionByID returns a question with its answers loaded
func (s *ContentService) GetQuestionByID(ctx context.Context, questionID int) (result0 *models.Question, err error) {
	ctx, span := observability.TraceContentFunction(ctx, "get_question_by_id", observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + questionSelectFields + ` FROM questions WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, questionID)
	question, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrQuestionNotFound, "question with id %d not found", questionID)
		}
		return nil, contextutils.WrapError(err, "failed to get question")
	}

	answersByQuestion, err := s.loadAnswersForQuestions(ctx, []int{questionID})
	if err != nil {
		return nil, err
	}
	question.Answers = answersByQuestion[questionID]
	return question, nil
}

// DeleteQuestion removes a question and its answers
func (s *ContentService) DeleteQuestion(ctx context.Context, questionID int) (err error) {
	ctx, span := observability.TraceContentFunction(ctx, "delete_question", observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, questionID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete question")
	}
	return requireRowsAffected(result, contextutils.ErrQuestionNotFound)
}

// getQuestionsForTask loads ordered questions plus their answers in two queries
func (s *ContentService) getQuestionsForTask(ctx context.Context, taskID int) ([]models.Question, error) {
	query := `SELECT ` + questionSelectFields + ` FROM questions WHERE task_id = $1 ORDER BY display_order, id`
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var questions []models.Question
	var questionIDs []int
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question row")
		}
		questions = append(questions, *question)
		questionIDs = append(questionIDs, question.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating question rows")
	}

	if len(questions) == 0 {
		return questions, nil
	}

	answersByQuestion, err := s.loadAnswersForQuestions(ctx, questionIDs)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Answers = answersByQuestion[questions[i].ID]
	}
	return questions, nil
}

// loadAnswersForQuestions fetches answers for a set of questions in one query
func (s *ContentService) loadAnswersForQuestions(ctx context.Context, questionIDs []int) (map[int][]models.Answer, error) {
	query := `SELECT ` + answerSelectFields + ` FROM answers WHERE question_id = ANY($1) ORDER BY question_id, display_order, id`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(questionIDs))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query answers")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	answersByQuestion := make(map[int][]models.Answer)
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect, &a.DisplayOrder); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan answer row")
		}
		answersByQuestion[a.QuestionID] = append(answersByQuestion[a.QuestionID], a)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating answer rows")
	}
	return answersByQuestion, nil
}

func isValidTaskType(t models.TaskType) bool {
	switch t {
	case models.TaskTypeText, models.TaskTypeChoice, models.TaskTypeMultiple, models.TaskTypeFile:
		return true
	}
	return false
}

// isForeignKeyError checks whether an error is a PostgreSQL foreign key violation
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

// requireRowsAffected maps a zero-row update/delete to the given not-found error
func requireRowsAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
