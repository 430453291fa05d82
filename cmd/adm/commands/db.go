// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(userService *services.UserService, logger *observability.Logger, db *sql.DB) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the learning platform.

Available commands:
  stats     - Show database statistics
  cleanup   - Remove orphaned grading data`,
	}

	// Add subcommands
	dbCmd.AddCommand(statsCmd(userService, logger, db))
	dbCmd.AddCommand(cleanupCmd(logger, db))

	return dbCmd
}

// statsCmd returns the stats command
func statsCmd(userService *services.UserService, logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  `Show database statistics including user, content, and attempt counts.`,
		RunE:  runStats(userService, logger, db),
	}
}

// cleanupCmd returns the cleanup command
func cleanupCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	var statsOnly bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove orphaned grading data",
		Long: `Remove orphaned grading data from the database.

This command will:
- Remove user responses whose question no longer exists
- Remove task attempts whose task no longer exists

Use --stats flag to see what would be cleaned up without actually performing the cleanup.`,
		RunE: runCleanup(logger, &statsOnly, db),
	}

	// Add flags
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "Only show cleanup statistics, don't perform cleanup")

	return cmd
}

// runStats returns a function that shows database statistics
func runStats(userService *services.UserService, logger *observability.Logger, db *sql.DB) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Log diagnostic information
		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("EDU_CONFIG_FILE"), "database": getDatabaseInfo(db)})

		users, err := userService.GetAllUsers(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to get user statistics", err, map[string]interface{}{})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get user statistics: %v", err)
		}

		counts := map[string]int64{}
		for _, table := range []string{"themes", "lessons", "tasks", "questions", "task_attempts", "user_responses"} {
			var count int64
			if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to count %s: %v", table, err)
			}
			counts[table] = count
		}

		logger.Info(ctx, "Database statistics", map[string]interface{}{
			"total_users":    len(users),
			"themes":         counts["themes"],
			"lessons":        counts["lessons"],
			"tasks":          counts["tasks"],
			"questions":      counts["questions"],
			"task_attempts":  counts["task_attempts"],
			"user_responses": counts["user_responses"],
			"database":       "PostgreSQL",
			"status":         "Connected",
		})

		fmt.Printf("Users:          %d\n", len(users))
		fmt.Printf("Themes:         %d\n", counts["themes"])
		fmt.Printf("Lessons:        %d\n", counts["lessons"])
		fmt.Printf("Tasks:          %d\n", counts["tasks"])
		fmt.Printf("Questions:      %d\n", counts["questions"])
		fmt.Printf("Task attempts:  %d\n", counts["task_attempts"])
		fmt.Printf("User responses: %d\n", counts["user_responses"])

		return nil
	}
}

// runCleanup returns a function that removes orphaned grading data
func runCleanup(logger *observability.Logger, statsOnly *bool, db *sql.DB) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Log diagnostic information
		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("EDU_CONFIG_FILE"), "database": getDatabaseInfo(db)})

		if db == nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "database connection not available")
		}

		var orphanedResponses, orphanedAttempts int64
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM user_responses ur WHERE NOT EXISTS (SELECT 1 FROM questions q WHERE q.id = ur.question_id)`,
		).Scan(&orphanedResponses)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to count orphaned responses: %v", err)
		}
		err = db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM task_attempts ta WHERE NOT EXISTS (SELECT 1 FROM tasks t WHERE t.id = ta.task_id)`,
		).Scan(&orphanedAttempts)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to count orphaned attempts: %v", err)
		}

		total := orphanedResponses + orphanedAttempts

		if *statsOnly {
			logger.Info(ctx, "Database cleanup statistics", map[string]interface{}{"orphaned_responses": orphanedResponses, "orphaned_attempts": orphanedAttempts})
			if total == 0 {
				fmt.Println("No cleanup needed - database is clean")
			} else {
				fmt.Printf("Cleanup would remove %d rows (%d responses, %d attempts)\n", total, orphanedResponses, orphanedAttempts)
			}
			return nil
		}

		logger.Info(ctx, "Starting database cleanup", map[string]interface{}{"orphaned_responses": orphanedResponses, "orphaned_attempts": orphanedAttempts})

		if _, err := db.ExecContext(ctx,
			`DELETE FROM user_responses ur WHERE NOT EXISTS (SELECT 1 FROM questions q WHERE q.id = ur.question_id)`,
		); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to delete orphaned responses: %v", err)
		}
		if _, err := db.ExecContext(ctx,
			`DELETE FROM task_attempts ta WHERE NOT EXISTS (SELECT 1 FROM tasks t WHERE t.id = ta.task_id)`,
		); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to delete orphaned attempts: %v", err)
		}

		fmt.Printf("Cleanup removed %d rows\n", total)
		logger.Info(ctx, "Database cleanup completed successfully", map[string]interface{}{"removed": total})
		return nil
	}
}
