package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/observability"
)

func TestQuizService_NewQuizServiceWithLogger(t *testing.T) {
	cfg := &config.Config{}
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewQuizServiceWithLogger(nil, cfg, logger, nil)
	assert.NotNil(t, service)
}

func TestIsSelectionCorrect_SingleChoice(t *testing.T) {
	correct := []int{2}

	tests := []struct {
		name     string
		selected []int
		want     bool
	}{
		{"exact correct answer", []int{2}, true},
		{"correct answer among extras", []int{1, 2, 3}, true},
		{"wrong answer", []int{3}, false},
		{"several wrong answers", []int{1, 3}, false},
		{"empty selection", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isSelectionCorrect(models.TaskTypeChoice, tt.selected, correct)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSelectionCorrect_MultipleChoice(t *testing.T) {
	correct := []int{2, 3}

	tests := []struct {
		name     string
		selected []int
		want     bool
	}{
		{"exact set", []int{2, 3}, true},
		{"exact set reordered", []int{3, 2}, true},
		{"superset", []int{2, 3, 4}, false},
		{"subset", []int{2}, false},
		{"disjoint", []int{1, 4}, false},
		{"empty selection", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isSelectionCorrect(models.TaskTypeMultiple, tt.selected, correct)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSelectionCorrect_NoCorrectAnswers(t *testing.T) {
	// A single-choice question without a correct answer can never be
	// answered correctly; a multiple-choice one matches only the empty set.
	assert.False(t, isSelectionCorrect(models.TaskTypeChoice, []int{1}, nil))
	assert.False(t, isSelectionCorrect(models.TaskTypeChoice, nil, nil))
	assert.False(t, isSelectionCorrect(models.TaskTypeMultiple, []int{1}, nil))
	assert.True(t, isSelectionCorrect(models.TaskTypeMultiple, nil, nil))
}

func TestIsSelectionCorrect_NonGradableTypes(t *testing.T) {
	assert.False(t, isSelectionCorrect(models.TaskTypeText, []int{1}, []int{1}))
	assert.False(t, isSelectionCorrect(models.TaskTypeFile, []int{1}, []int{1}))
}

func TestComputeAttemptScore(t *testing.T) {
	tests := []struct {
		name           string
		correct        int
		total          int
		maxScore       int
		wantPercentage float64
		wantScore      int
	}{
		{"three of four at max ten", 3, 4, 10, 75.0, 7},
		{"all correct", 4, 4, 10, 100.0, 10},
		{"none correct", 0, 4, 10, 0.0, 0},
		{"one of three at max ten truncates", 1, 3, 10, 100.0 / 3, 3},
		{"two of three at max five", 2, 3, 5, 200.0 / 3, 3},
		{"half at max one truncates to zero", 1, 2, 1, 50.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			percentage, score := computeAttemptScore(tt.correct, tt.total, tt.maxScore)
			assert.InDelta(t, tt.wantPercentage, percentage, 1e-9)
			assert.Equal(t, tt.wantScore, score)
		})
	}
}
