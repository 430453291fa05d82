//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"eduplatform/internal/config"
	"eduplatform/internal/database"
	"eduplatform/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a clean, isolated database for each integration test
func SharedTestDBSetup(t *testing.T) *sql.DB {
	observabilityLogger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(observabilityLogger)

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	db, err := dbManager.InitDB(databaseURL)
	require.NoError(t, err)

	CleanupTestDatabase(db, t)

	return db
}

// cleanupDatabase truncates all tables and resets their sequences so each
// integration test starts from a blank slate
func cleanupDatabase(db *sql.DB, logger *observability.Logger) {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "Failed to begin cleanup transaction", err)
		}
		return
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	cleanupQueries := []string{
		"TRUNCATE TABLE user_response_answers CASCADE",
		"TRUNCATE TABLE user_responses CASCADE",
		"TRUNCATE TABLE task_attempts CASCADE",
		"TRUNCATE TABLE completed_lessons CASCADE",
		"TRUNCATE TABLE sent_notifications CASCADE",
		"TRUNCATE TABLE answers CASCADE",
		"TRUNCATE TABLE questions CASCADE",
		"TRUNCATE TABLE tasks CASCADE",
		"TRUNCATE TABLE lessons CASCADE",
		"TRUNCATE TABLE themes CASCADE",
		"TRUNCATE TABLE users CASCADE",
	}

	for _, query := range cleanupQueries {
		_, err := tx.ExecContext(ctx, query)
		if err != nil {
			if logger != nil {
				logger.Warn(ctx, "Could not execute cleanup query", map[string]interface{}{
					"query": query,
				})
			}
		}
	}

	sequenceQueries := []string{
		"ALTER SEQUENCE users_id_seq RESTART WITH 1",
		"ALTER SEQUENCE themes_id_seq RESTART WITH 1",
		"ALTER SEQUENCE lessons_id_seq RESTART WITH 1",
		"ALTER SEQUENCE tasks_id_seq RESTART WITH 1",
		"ALTER SEQUENCE questions_id_seq RESTART WITH 1",
		"ALTER SEQUENCE answers_id_seq RESTART WITH 1",
		"ALTER SEQUENCE user_responses_id_seq RESTART WITH 1",
		"ALTER SEQUENCE task_attempts_id_seq RESTART WITH 1",
		"ALTER SEQUENCE sent_notifications_id_seq RESTART WITH 1",
	}

	for _, query := range sequenceQueries {
		_, err := tx.ExecContext(ctx, query)
		if err != nil {
			if logger != nil {
				logger.Warn(ctx, "Could not reset sequence", map[string]interface{}{
					"query": query,
				})
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "Failed to commit cleanup transaction", err)
		}
	}
}

// CleanupTestDatabase cleans up the database for integration tests
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	cleanupDatabase(db, nil)
}
