package commands

import (
	"context"
	"fmt"

	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"github.com/spf13/cobra"
)

// AttemptCommands returns the attempt maintenance commands
func AttemptCommands(quizService *services.QuizService, logger *observability.Logger) *cobra.Command {
	attemptsCmd := &cobra.Command{
		Use:   "attempts",
		Short: "Attempt maintenance commands",
		Long: `Attempt maintenance commands for the learning platform.

Available commands:
  recalculate - Recompute scores for all stored attempts`,
	}

	attemptsCmd.AddCommand(recalculateCmd(quizService, logger))

	return attemptsCmd
}

func recalculateCmd(quizService *services.QuizService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate",
		Short: "Recompute scores for all stored attempts",
		Long: `Recompute score, max score and percentage for every stored attempt
from the underlying responses. Useful after content edits change task
max scores or question sets.`,
		RunE: runRecalculate(quizService, logger),
	}
}

func runRecalculate(quizService *services.QuizService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		updated, err := quizService.RecalculateAttempts(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to recalculate attempts", err, map[string]interface{}{})
			return contextutils.WrapError(err, "failed to recalculate attempts")
		}

		fmt.Printf("Recalculated %d attempts\n", updated)
		logger.Info(ctx, "Attempt recalculation completed", map[string]interface{}{"updated": updated})
		return nil
	}
}
