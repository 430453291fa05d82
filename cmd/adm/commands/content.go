package commands

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"github.com/spf13/cobra"
)

// Course content as serialized to and from YAML. IDs are intentionally
// omitted so that an export can be re-imported into a fresh database.
type contentExport struct {
	Themes []themeExport `yaml:"themes"`
}

type themeExport struct {
	Title        string         `yaml:"title"`
	Description  string         `yaml:"description,omitempty"`
	DisplayOrder int            `yaml:"display_order"`
	Lessons      []lessonExport `yaml:"lessons,omitempty"`
}

type lessonExport struct {
	Title        string       `yaml:"title"`
	Content      string       `yaml:"content,omitempty"`
	VideoURL     string       `yaml:"video_url,omitempty"`
	DisplayOrder int          `yaml:"display_order"`
	Tasks        []taskExport `yaml:"tasks,omitempty"`
}

type taskExport struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description,omitempty"`
	Type        string           `yaml:"type"`
	MaxScore    int              `yaml:"max_score,omitempty"`
	Questions   []questionExport `yaml:"questions,omitempty"`
}

type questionExport struct {
	Text         string         `yaml:"text"`
	Explanation  string         `yaml:"explanation,omitempty"`
	DisplayOrder int            `yaml:"display_order"`
	Answers      []answerExport `yaml:"answers"`
}

type answerExport struct {
	Text      string `yaml:"text"`
	IsCorrect bool   `yaml:"is_correct"`
}

// ContentCommands returns the course content import/export commands
func ContentCommands(contentService *services.ContentService, cfg *config.Config, logger *observability.Logger) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Course content management commands",
		Long: `Course content management commands for the learning platform.

Available commands:
  export    - Export all themes, lessons, tasks and questions to YAML
  import    - Import course content from a YAML file`,
	}

	contentCmd.AddCommand(exportCmd(contentService, logger))
	contentCmd.AddCommand(importCmd(contentService, cfg, logger))

	return contentCmd
}

func exportCmd(contentService *services.ContentService, logger *observability.Logger) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export course content to YAML",
		Long:  `Export all themes with their lessons, tasks, questions and answers to a YAML file.`,
		RunE:  runExport(contentService, logger, &outputFile),
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "content.yaml", "Output file path")

	return cmd
}

func importCmd(contentService *services.ContentService, cfg *config.Config, logger *observability.Logger) *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import course content from YAML",
		Long: `Import course content from a YAML file.

Each theme in the file is created with its nested lessons, tasks,
questions and answers. Tasks without a max_score use the configured
default.`,
		RunE: runImport(contentService, cfg, logger, &inputFile),
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "content.yaml", "Input file path")

	return cmd
}

func runExport(contentService *services.ContentService, logger *observability.Logger, outputFile *string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		themes, err := contentService.GetThemes(ctx)
		if err != nil {
			return contextutils.WrapError(err, "failed to load themes")
		}

		export := contentExport{}
		for _, theme := range themes {
			themeOut := themeExport{
				Title:        theme.Title,
				Description:  theme.Description,
				DisplayOrder: theme.DisplayOrder,
			}

			lessons, err := contentService.GetLessonsByTheme(ctx, theme.ID)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to load lessons for theme %d", theme.ID)
			}
			for _, lesson := range lessons {
				lessonOut := lessonExport{
					Title:        lesson.Title,
					Content:      lesson.Content,
					VideoURL:     lesson.VideoURL.String,
					DisplayOrder: lesson.DisplayOrder,
				}

				tasks, err := contentService.GetTasksByLesson(ctx, lesson.ID)
				if err != nil {
					return contextutils.WrapErrorf(err, "failed to load tasks for lesson %d", lesson.ID)
				}
				for _, task := range tasks {
					full, err := contentService.GetTaskWithQuestions(ctx, task.ID)
					if err != nil {
						return contextutils.WrapErrorf(err, "failed to load questions for task %d", task.ID)
					}

					taskOut := taskExport{
						Title:       full.Title,
						Description: full.Description,
						Type:        string(full.Type),
						MaxScore:    full.MaxScore,
					}
					for _, question := range full.Questions {
						questionOut := questionExport{
							Text:         question.Text,
							Explanation:  question.Explanation.String,
							DisplayOrder: question.DisplayOrder,
						}
						for _, answer := range question.Answers {
							questionOut.Answers = append(questionOut.Answers, answerExport{
								Text:      answer.Text,
								IsCorrect: answer.IsCorrect,
							})
						}
						taskOut.Questions = append(taskOut.Questions, questionOut)
					}
					lessonOut.Tasks = append(lessonOut.Tasks, taskOut)
				}
				themeOut.Lessons = append(themeOut.Lessons, lessonOut)
			}
			export.Themes = append(export.Themes, themeOut)
		}

		data, err := yaml.Marshal(&export)
		if err != nil {
			return contextutils.WrapError(err, "failed to marshal content")
		}

		if err := os.WriteFile(*outputFile, data, 0o600); err != nil {
			return contextutils.WrapError(err, "failed to write output file")
		}

		fmt.Printf("Exported %d themes to %s\n", len(export.Themes), *outputFile)
		logger.Info(ctx, "Content export completed", map[string]interface{}{"themes": len(export.Themes), "file": *outputFile})
		return nil
	}
}

func runImport(contentService *services.ContentService, cfg *config.Config, logger *observability.Logger, inputFile *string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		data, err := os.ReadFile(*inputFile)
		if err != nil {
			return contextutils.WrapError(err, "failed to read input file")
		}

		var imported contentExport
		if err := yaml.Unmarshal(data, &imported); err != nil {
			return contextutils.WrapError(err, "failed to parse content file")
		}

		var themeCount, taskCount, questionCount int
		for _, themeIn := range imported.Themes {
			theme, err := contentService.CreateTheme(ctx, themeIn.Title, themeIn.Description, themeIn.DisplayOrder)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to create theme %q", themeIn.Title)
			}
			themeCount++

			for _, lessonIn := range themeIn.Lessons {
				lesson, err := contentService.CreateLesson(ctx, theme.ID, lessonIn.Title, lessonIn.Content, lessonIn.VideoURL, lessonIn.DisplayOrder)
				if err != nil {
					return contextutils.WrapErrorf(err, "failed to create lesson %q", lessonIn.Title)
				}

				for _, taskIn := range lessonIn.Tasks {
					maxScore := taskIn.MaxScore
					if maxScore == 0 {
						maxScore = cfg.Grading.DefaultMaxScore
					}

					task, err := contentService.CreateTask(ctx, lesson.ID, taskIn.Title, taskIn.Description, models.TaskType(taskIn.Type), maxScore)
					if err != nil {
						return contextutils.WrapErrorf(err, "failed to create task %q", taskIn.Title)
					}
					taskCount++

					for _, questionIn := range taskIn.Questions {
						answers := make([]models.Answer, 0, len(questionIn.Answers))
						for i, answerIn := range questionIn.Answers {
							answers = append(answers, models.Answer{
								Text:         answerIn.Text,
								IsCorrect:    answerIn.IsCorrect,
								DisplayOrder: i,
							})
						}

						if _, err := contentService.CreateQuestion(ctx, task.ID, questionIn.Text, questionIn.Explanation, questionIn.DisplayOrder, answers); err != nil {
							return contextutils.WrapErrorf(err, "failed to create question %q", questionIn.Text)
						}
						questionCount++
					}
				}
			}
		}

		fmt.Printf("Imported %d themes, %d tasks, %d questions from %s\n", themeCount, taskCount, questionCount, *inputFile)
		logger.Info(ctx, "Content import completed", map[string]interface{}{
			"themes":    themeCount,
			"tasks":     taskCount,
			"questions": questionCount,
			"file":      *inputFile,
		})
		return nil
	}
}
