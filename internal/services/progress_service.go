package services

import (
	"context"
	"database/sql"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	contextutils "eduplatform/internal/utils"
)

// ProgressServiceInterface defines the interface for progress tracking
type ProgressServiceInterface interface {
	ToggleLessonCompletion(ctx context.Context, userID, lessonID int) (bool, error)
	IsLessonCompleted(ctx context.Context, userID, lessonID int) (bool, error)
	GetProgressSummary(ctx context.Context, userID int) (*models.ProgressSummary, error)
}

// ProgressService tracks per-user lesson completion
type ProgressService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewProgressServiceWithLogger creates a new progress service with the provided logger
func NewProgressServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *ProgressService {
	return &ProgressService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// ToggleLessonCompletion flips a lesson's completed state for a user and
// returns the new state.
func (s *ProgressService) ToggleLessonCompletion(ctx context.Context, userID, lessonID int) (result0 bool, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "toggle_lesson_completion",
		observability.AttributeUserID(userID),
		observability.AttributeLessonID(lessonID),
	)
	defer observability.FinishSpan(span, &err)

	var lessonExists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM lessons WHERE id = $1)`, lessonID).Scan(&lessonExists)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check if lesson exists")
	}
	if !lessonExists {
		return false, contextutils.WrapErrorf(contextutils.ErrLessonNotFound, "lesson with id %d not found", lessonID)
	}

	// Try to remove first; when nothing was there, insert. A concurrent
	// duplicate insert collapses via ON CONFLICT.
	result, err := s.db.ExecContext(ctx, `DELETE FROM completed_lessons WHERE user_id = $1 AND lesson_id = $2`, userID, lessonID)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to clear lesson completion")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected > 0 {
		return false, nil
	}

	insertQuery := `
		INSERT INTO completed_lessons (user_id, lesson_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, lesson_id) DO NOTHING
	`
	if _, err = s.db.ExecContext(ctx, insertQuery, userID, lessonID); err != nil {
		return false, contextutils.WrapError(err, "failed to mark lesson completed")
	}
	return true, nil
}

// IsLessonCompleted reports whether a user has marked a lesson completed
func (s *ProgressService) IsLessonCompleted(ctx context.Context, userID, lessonID int) (result0 bool, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "is_lesson_completed",
		observability.AttributeUserID(userID),
		observability.AttributeLessonID(lessonID),
	)
	defer observability.FinishSpan(span, &err)

	var completed bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM completed_lessons WHERE user_id = $1 AND lesson_id = $2)`, userID, lessonID).Scan(&completed)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check lesson completion")
	}
	return completed, nil
}

// GetProgressSummary returns per-theme and overall lesson completion counts
func (s *ProgressService) GetProgressSummary(ctx context.Context, userID int) (result0 *models.ProgressSummary, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "get_progress_summary", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT t.id, t.title,
			COUNT(l.id),
			COUNT(cl.lesson_id)
		FROM themes t
		LEFT JOIN lessons l ON l.theme_id = t.id
		LEFT JOIN completed_lessons cl ON cl.lesson_id = l.id AND cl.user_id = $1
		GROUP BY t.id, t.title, t.display_order
		ORDER BY t.display_order, t.id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query progress summary")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	summary := &models.ProgressSummary{}
	for rows.Next() {
		var tp models.ThemeProgress
		if err := rows.Scan(&tp.ThemeID, &tp.ThemeTitle, &tp.TotalLessons, &tp.CompletedLessons); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan progress row")
		}
		summary.Themes = append(summary.Themes, tp)
		summary.TotalLessons += tp.TotalLessons
		summary.CompletedLessons += tp.CompletedLessons
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating progress rows")
	}

	if summary.TotalLessons > 0 {
		summary.CompletionRate = float64(summary.CompletedLessons) / float64(summary.TotalLessons) * 100
	}

	tasksQuery := `
		SELECT COUNT(*)
		FROM tasks t
		JOIN completed_lessons cl ON cl.lesson_id = t.lesson_id AND cl.user_id = $1
	`
	if err = s.db.QueryRowContext(ctx, tasksQuery, userID).Scan(&summary.TasksCovered); err != nil {
		return nil, contextutils.WrapError(err, "failed to count tasks covered by completed lessons")
	}

	return summary, nil
}
