// Package models defines data structures used throughout the learning platform.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User represents a user in the system
type User struct {
	ID           int            `json:"id" yaml:"id"`
	Username     string         `json:"username" yaml:"username"`
	Email        sql.NullString `json:"email" yaml:"email"`
	FirstName    sql.NullString `json:"first_name" yaml:"first_name"`
	LastName     sql.NullString `json:"last_name" yaml:"last_name"`
	PasswordHash sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" yaml:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for User to handle sql.NullString properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID        int       `json:"id"`
		Username  string    `json:"username"`
		Email     *string   `json:"email"`
		FirstName *string   `json:"first_name"`
		LastName  *string   `json:"last_name"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}{
		ID:        u.ID,
		Username:  u.Username,
		Email:     nullStringToPointer(u.Email),
		FirstName: nullStringToPointer(u.FirstName),
		LastName:  nullStringToPointer(u.LastName),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// TaskType represents the kind of work a task asks for
type TaskType string

// Task types supported by the system
const (
	// TaskTypeText represents free-form written answers
	TaskTypeText TaskType = "text"
	// TaskTypeChoice represents single-choice quizzes
	TaskTypeChoice TaskType = "choice"
	// TaskTypeMultiple represents multiple-choice quizzes
	TaskTypeMultiple TaskType = "multiple"
	// TaskTypeFile represents file upload assignments
	TaskTypeFile TaskType = "file"
)

// IsAutoGradable reports whether the grading engine can score this task type.
func (t TaskType) IsAutoGradable() bool {
	return t == TaskTypeChoice || t == TaskTypeMultiple
}

// Theme represents a top-level course topic grouping lessons
type Theme struct {
	ID           int            `json:"id" yaml:"id"`
	Title        string         `json:"title" yaml:"title"`
	Description  string         `json:"description" yaml:"description"`
	DisplayOrder int            `json:"display_order" yaml:"display_order"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	Lessons      []Lesson       `json:"lessons,omitempty" yaml:"lessons,omitempty"`
}

// Lesson represents a unit of learning material within a theme
type Lesson struct {
	ID           int            `json:"id" yaml:"id"`
	ThemeID      int            `json:"theme_id" yaml:"theme_id"`
	Title        string         `json:"title" yaml:"title"`
	Content      string         `json:"content" yaml:"content"`
	VideoURL     sql.NullString `json:"video_url" yaml:"video_url"`
	DisplayOrder int            `json:"display_order" yaml:"display_order"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	Tasks        []Task         `json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// MarshalJSON customizes JSON marshaling for Lesson to handle sql.NullString properly
func (l Lesson) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int       `json:"id"`
		ThemeID      int       `json:"theme_id"`
		Title        string    `json:"title"`
		Content      string    `json:"content"`
		VideoURL     *string   `json:"video_url"`
		DisplayOrder int       `json:"display_order"`
		CreatedAt    time.Time `json:"created_at"`
		Tasks        []Task    `json:"tasks,omitempty"`
	}{
		ID:           l.ID,
		ThemeID:      l.ThemeID,
		Title:        l.Title,
		Content:      l.Content,
		VideoURL:     nullStringToPointer(l.VideoURL),
		DisplayOrder: l.DisplayOrder,
		CreatedAt:    l.CreatedAt,
		Tasks:        l.Tasks,
	})
}

// Task represents an assignment attached to a lesson
type Task struct {
	ID          int        `json:"id" yaml:"id"`
	LessonID    int        `json:"lesson_id" yaml:"lesson_id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Type        TaskType   `json:"task_type" yaml:"task_type"`
	MaxScore    int        `json:"max_score" yaml:"max_score"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	Questions   []Question `json:"questions,omitempty" yaml:"questions,omitempty"`
}

// Question represents a single quiz question within a task
type Question struct {
	ID           int            `json:"id" yaml:"id"`
	TaskID       int            `json:"task_id" yaml:"task_id"`
	Text         string         `json:"text" yaml:"text"`
	DisplayOrder int            `json:"display_order" yaml:"display_order"`
	Explanation  sql.NullString `json:"explanation" yaml:"explanation"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	Answers      []Answer       `json:"answers,omitempty" yaml:"answers,omitempty"`
}

// MarshalJSON customizes JSON marshaling for Question to handle sql.NullString properly
func (q Question) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int       `json:"id"`
		TaskID       int       `json:"task_id"`
		Text         string    `json:"text"`
		DisplayOrder int       `json:"display_order"`
		Explanation  *string   `json:"explanation"`
		CreatedAt    time.Time `json:"created_at"`
		Answers      []Answer  `json:"answers,omitempty"`
	}{
		ID:           q.ID,
		TaskID:       q.TaskID,
		Text:         q.Text,
		DisplayOrder: q.DisplayOrder,
		Explanation:  nullStringToPointer(q.Explanation),
		CreatedAt:    q.CreatedAt,
		Answers:      q.Answers,
	})
}

// CorrectAnswerIDs returns the ids of answers marked correct, preserving order.
func (q *Question) CorrectAnswerIDs() []int {
	var ids []int
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Answer represents one selectable option for a question.
// IsCorrect is never serialized to API responses; sanitized views strip it.
type Answer struct {
	ID           int    `json:"id" yaml:"id"`
	QuestionID   int    `json:"question_id" yaml:"question_id"`
	Text         string `json:"text" yaml:"text"`
	IsCorrect    bool   `json:"-" yaml:"is_correct"`
	DisplayOrder int    `json:"display_order" yaml:"display_order"`
}

// UserResponse represents a user's graded submission for a single question
type UserResponse struct {
	ID              int       `json:"id" yaml:"id"`
	UserID          int       `json:"user_id" yaml:"user_id"`
	QuestionID      int       `json:"question_id" yaml:"question_id"`
	SelectedAnswers []int     `json:"selected_answers" yaml:"selected_answers"`
	IsCorrect       bool      `json:"is_correct" yaml:"is_correct"`
	Score           int       `json:"score" yaml:"score"`
	SubmittedAt     time.Time `json:"submitted_at" yaml:"submitted_at"`
}

// UserResponseWithQuestion pairs a response with its question for review views
type UserResponseWithQuestion struct {
	UserResponse
	QuestionText   string `json:"question_text"`
	CorrectAnswers []int  `json:"correct_answers"`
}

// TaskAttempt represents a user's aggregate grading state for one task
type TaskAttempt struct {
	ID          int          `json:"id" yaml:"id"`
	UserID      int          `json:"user_id" yaml:"user_id"`
	TaskID      int          `json:"task_id" yaml:"task_id"`
	Score       int          `json:"score" yaml:"score"`
	MaxScore    int          `json:"max_score" yaml:"max_score"`
	Percentage  float64      `json:"percentage" yaml:"percentage"`
	IsCompleted bool         `json:"is_completed" yaml:"is_completed"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	CompletedAt sql.NullTime `json:"completed_at" yaml:"completed_at"`
}

// MarshalJSON customizes JSON marshaling for TaskAttempt to handle sql.NullTime properly
func (ta TaskAttempt) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID          int        `json:"id"`
		UserID      int        `json:"user_id"`
		TaskID      int        `json:"task_id"`
		Score       int        `json:"score"`
		MaxScore    int        `json:"max_score"`
		Percentage  float64    `json:"percentage"`
		IsCompleted bool       `json:"is_completed"`
		StartedAt   time.Time  `json:"started_at"`
		CompletedAt *time.Time `json:"completed_at"`
	}{
		ID:          ta.ID,
		UserID:      ta.UserID,
		TaskID:      ta.TaskID,
		Score:       ta.Score,
		MaxScore:    ta.MaxScore,
		Percentage:  ta.Percentage,
		IsCompleted: ta.IsCompleted,
		StartedAt:   ta.StartedAt,
		CompletedAt: nullTimeToPointer(ta.CompletedAt),
	})
}

// LessonCompletion represents a user's completion mark for a lesson
type LessonCompletion struct {
	UserID      int       `json:"user_id"`
	LessonID    int       `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// QuestionSelection represents the answers a user picked for one question
type QuestionSelection struct {
	QuestionID int   `json:"question_id"`
	AnswerIDs  []int `json:"answer_ids"`
}

// TaskSubmission represents a full quiz submission for a task
type TaskSubmission struct {
	Answers []QuestionSelection `json:"answers"`
}

// Selections converts the submission into a question-id keyed map.
// Duplicate question entries keep the last selection.
func (ts *TaskSubmission) Selections() map[int][]int {
	selections := make(map[int][]int, len(ts.Answers))
	for _, a := range ts.Answers {
		selections[a.QuestionID] = a.AnswerIDs
	}
	return selections
}

// ThemeProgress summarizes a user's lesson completion within one theme
type ThemeProgress struct {
	ThemeID          int    `json:"theme_id"`
	ThemeTitle       string `json:"theme_title"`
	TotalLessons     int    `json:"total_lessons"`
	CompletedLessons int    `json:"completed_lessons"`
}

// ProgressSummary represents a user's overall progress across the course.
// TasksCovered counts the tasks belonging to the user's completed lessons.
type ProgressSummary struct {
	TotalLessons     int             `json:"total_lessons"`
	CompletedLessons int             `json:"completed_lessons"`
	CompletionRate   float64         `json:"completion_rate"`
	TasksCovered     int             `json:"tasks_covered"`
	Themes           []ThemeProgress `json:"themes"`
}
