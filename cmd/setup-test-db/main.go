// Package main provides a utility to seed the test database with initial data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"eduplatform/internal/config"
	"eduplatform/internal/database"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
	"eduplatform/internal/services"
	contextutils "eduplatform/internal/utils"

	"gopkg.in/yaml.v3"
)

// SeedUser represents a user entry in the seed data file.
type SeedUser struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// SeedAnswer represents an answer option for a seeded question.
type SeedAnswer struct {
	Text      string `yaml:"text"`
	IsCorrect bool   `yaml:"is_correct"`
}

// SeedQuestion represents a question with its answer options.
type SeedQuestion struct {
	Text        string       `yaml:"text"`
	Explanation string       `yaml:"explanation"`
	Answers     []SeedAnswer `yaml:"answers"`
}

// SeedTask represents a task inside a seeded lesson.
type SeedTask struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Type        string         `yaml:"type"`
	MaxScore    int            `yaml:"max_score"`
	Questions   []SeedQuestion `yaml:"questions"`
}

// SeedLesson represents a lesson inside a seeded theme.
type SeedLesson struct {
	Title    string     `yaml:"title"`
	Content  string     `yaml:"content"`
	VideoURL string     `yaml:"video_url"`
	Tasks    []SeedTask `yaml:"tasks"`
}

// SeedTheme represents a theme with its nested course content.
type SeedTheme struct {
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Lessons     []SeedLesson `yaml:"lessons"`
}

// SeedSubmission represents a graded quiz submission for a seeded user.
// Questions and answers are referenced by zero-based position within the task.
type SeedSubmission struct {
	Username   string        `yaml:"username"`
	TaskTitle  string        `yaml:"task_title"`
	Selections map[int][]int `yaml:"selections"`
}

// SeedData is the root structure of the seed data file.
type SeedData struct {
	Users       []SeedUser       `yaml:"users"`
	Themes      []SeedTheme      `yaml:"themes"`
	Submissions []SeedSubmission `yaml:"submissions"`
}

func main() {
	var dataFile string
	var reset bool
	flag.StringVar(&dataFile, "data", "testdata/seed.yaml", "Path to the seed data YAML file")
	flag.BoolVar(&reset, "reset", false, "Reset the database before seeding")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Seeding tool runs without telemetry exporters.
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	logger := observability.NewLogger(&cfg.OpenTelemetry)

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		databaseURL = cfg.Database.URL
	}

	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDB(databaseURL)
	if err != nil {
		logger.Error(ctx, "Failed to initialize database", err, map[string]interface{}{"db_url": databaseURL})
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	userService := services.NewUserServiceWithLogger(db, cfg, logger)
	contentService := services.NewContentServiceWithLogger(db, cfg, logger)
	quizService := services.NewQuizServiceWithLogger(db, cfg, logger, contentService)

	if reset {
		if err := userService.ResetDatabase(ctx); err != nil {
			logger.Error(ctx, "Failed to reset database", err)
			os.Exit(1)
		}
		fmt.Println("Database reset")
	}

	seed, err := loadSeedData(dataFile)
	if err != nil {
		logger.Error(ctx, "Failed to load seed data", err, map[string]interface{}{"file": dataFile})
		os.Exit(1)
	}

	if err := seedUsers(ctx, userService, seed.Users); err != nil {
		logger.Error(ctx, "Failed to seed users", err)
		os.Exit(1)
	}

	taskIDs, err := seedContent(ctx, contentService, cfg, seed.Themes)
	if err != nil {
		logger.Error(ctx, "Failed to seed content", err)
		os.Exit(1)
	}

	if err := seedSubmissions(ctx, userService, contentService, quizService, taskIDs, seed.Submissions); err != nil {
		logger.Error(ctx, "Failed to seed submissions", err)
		os.Exit(1)
	}

	fmt.Printf("Seeded %d users, %d themes, %d submissions from %s\n",
		len(seed.Users), len(seed.Themes), len(seed.Submissions), dataFile)
}

func loadSeedData(path string) (*SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read seed file %s", path)
	}

	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to parse seed file %s", path)
	}
	return &seed, nil
}

func seedUsers(ctx context.Context, userService *services.UserService, users []SeedUser) error {
	for _, u := range users {
		existing, err := userService.GetUserByUsername(ctx, u.Username)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to look up user %s", u.Username)
		}
		if existing != nil {
			fmt.Printf("User %s already exists, skipping\n", u.Username)
			continue
		}

		created, err := userService.CreateUserWithPassword(ctx, u.Username, u.Email, u.Password)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to create user %s", u.Username)
		}
		if u.FirstName != "" || u.LastName != "" {
			if err := userService.UpdateUserProfile(ctx, created.ID, u.Email, u.FirstName, u.LastName); err != nil {
				return contextutils.WrapErrorf(err, "failed to set profile for user %s", u.Username)
			}
		}
		fmt.Printf("Created user %s\n", u.Username)
	}
	return nil
}

// seedContent creates the theme tree and returns task IDs keyed by task title.
func seedContent(ctx context.Context, contentService *services.ContentService, cfg *config.Config, themes []SeedTheme) (map[string]int, error) {
	taskIDs := make(map[string]int)

	for themeOrder, t := range themes {
		theme, err := contentService.CreateTheme(ctx, t.Title, t.Description, themeOrder+1)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to create theme %s", t.Title)
		}

		for lessonOrder, l := range t.Lessons {
			lesson, err := contentService.CreateLesson(ctx, theme.ID, l.Title, l.Content, l.VideoURL, lessonOrder+1)
			if err != nil {
				return nil, contextutils.WrapErrorf(err, "failed to create lesson %s", l.Title)
			}

			for _, task := range l.Tasks {
				maxScore := task.MaxScore
				if maxScore == 0 {
					maxScore = cfg.Grading.DefaultMaxScore
				}
				created, err := contentService.CreateTask(ctx, lesson.ID, task.Title, task.Description, models.TaskType(task.Type), maxScore)
				if err != nil {
					return nil, contextutils.WrapErrorf(err, "failed to create task %s", task.Title)
				}
				taskIDs[task.Title] = created.ID

				for questionOrder, q := range task.Questions {
					answers := make([]models.Answer, 0, len(q.Answers))
					for answerOrder, a := range q.Answers {
						answers = append(answers, models.Answer{
							Text:         a.Text,
							IsCorrect:    a.IsCorrect,
							DisplayOrder: answerOrder,
						})
					}
					if _, err := contentService.CreateQuestion(ctx, created.ID, q.Text, q.Explanation, questionOrder+1, answers); err != nil {
						return nil, contextutils.WrapErrorf(err, "failed to create question for task %s", task.Title)
					}
				}
			}
		}
		fmt.Printf("Created theme %s\n", t.Title)
	}
	return taskIDs, nil
}

// seedSubmissions grades seeded selections so attempts and responses exist.
// Selection keys and values are zero-based positions, translated here to row IDs.
func seedSubmissions(ctx context.Context, userService *services.UserService, contentService *services.ContentService, quizService *services.QuizService, taskIDs map[string]int, submissions []SeedSubmission) error {
	for _, sub := range submissions {
		user, err := userService.GetUserByUsername(ctx, sub.Username)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to look up user %s", sub.Username)
		}
		if user == nil {
			return contextutils.ErrorWithContextf("submission references unknown user %s", sub.Username)
		}

		taskID, ok := taskIDs[sub.TaskTitle]
		if !ok {
			return contextutils.ErrorWithContextf("submission references unknown task %s", sub.TaskTitle)
		}

		task, err := contentService.GetTaskWithQuestions(ctx, taskID)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to load task %s", sub.TaskTitle)
		}

		submission := models.TaskSubmission{Answers: make([]models.QuestionSelection, 0, len(sub.Selections))}
		for questionIdx, answerIdxs := range sub.Selections {
			if questionIdx < 0 || questionIdx >= len(task.Questions) {
				return contextutils.ErrorWithContextf("question index %d out of range for task %s", questionIdx, sub.TaskTitle)
			}
			question := task.Questions[questionIdx]
			answerIDs := make([]int, 0, len(answerIdxs))
			for _, answerIdx := range answerIdxs {
				if answerIdx < 0 || answerIdx >= len(question.Answers) {
					return contextutils.ErrorWithContextf("answer index %d out of range for question %d in task %s", answerIdx, questionIdx, sub.TaskTitle)
				}
				answerIDs = append(answerIDs, question.Answers[answerIdx].ID)
			}
			submission.Answers = append(submission.Answers, models.QuestionSelection{
				QuestionID: question.ID,
				AnswerIDs:  answerIDs,
			})
		}

		if _, err := quizService.GradeSubmission(ctx, user.ID, taskID, submission.Selections()); err != nil {
			return contextutils.WrapErrorf(err, "failed to grade submission for user %s task %s", sub.Username, sub.TaskTitle)
		}
		fmt.Printf("Graded submission for %s on %s\n", sub.Username, sub.TaskTitle)
	}
	return nil
}
