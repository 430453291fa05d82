package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaLoader_CompilesAllSchemas(t *testing.T) {
	loader, err := NewSchemaLoader()
	require.NoError(t, err)

	for name := range requestSchemaSources {
		assert.Contains(t, loader.schemas, name)
	}
}

func TestSchemaForRoute(t *testing.T) {
	loader, err := NewSchemaLoader()
	require.NoError(t, err)

	assert.Equal(t, "submission", loader.SchemaForRoute("POST", "/v1/quiz/tasks/:id/submit"))
	assert.Equal(t, "login", loader.SchemaForRoute("POST", "/v1/auth/login"))
	assert.Equal(t, "theme", loader.SchemaForRoute("PUT", "/v1/admin/themes/:id"))
	assert.Equal(t, "", loader.SchemaForRoute("GET", "/v1/themes"))
	assert.Equal(t, "", loader.SchemaForRoute("POST", "/v1/unknown"))
}

func TestValidateData_Submission(t *testing.T) {
	loader, err := NewSchemaLoader()
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid selections",
			data: map[string]interface{}{
				"selections": map[string]interface{}{
					"1": []interface{}{float64(3)},
					"2": []interface{}{float64(5), float64(6)},
				},
			},
			wantErr: false,
		},
		{
			name: "empty selections object",
			data: map[string]interface{}{
				"selections": map[string]interface{}{},
			},
			wantErr: false,
		},
		{
			name: "empty selection list is allowed",
			data: map[string]interface{}{
				"selections": map[string]interface{}{
					"1": []interface{}{},
				},
			},
			wantErr: false,
		},
		{
			name:    "missing selections",
			data:    map[string]interface{}{},
			wantErr: true,
		},
		{
			name: "non-numeric question key",
			data: map[string]interface{}{
				"selections": map[string]interface{}{
					"abc": []interface{}{float64(1)},
				},
			},
			wantErr: true,
		},
		{
			name: "non-integer answer id",
			data: map[string]interface{}{
				"selections": map[string]interface{}{
					"1": []interface{}{"three"},
				},
			},
			wantErr: true,
		},
		{
			name: "unexpected extra field",
			data: map[string]interface{}{
				"selections": map[string]interface{}{},
				"bonus":      true,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loader.ValidateData(tt.data, "submission")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateData_Login(t *testing.T) {
	loader, err := NewSchemaLoader()
	require.NoError(t, err)

	valid := map[string]interface{}{"username": "alice", "password": "secret"}
	assert.NoError(t, loader.ValidateData(valid, "login"))

	missingPassword := map[string]interface{}{"username": "alice"}
	assert.Error(t, loader.ValidateData(missingPassword, "login"))

	emptyUsername := map[string]interface{}{"username": "", "password": "secret"}
	assert.Error(t, loader.ValidateData(emptyUsername, "login"))
}

func TestValidateData_Question(t *testing.T) {
	loader, err := NewSchemaLoader()
	require.NoError(t, err)

	valid := map[string]interface{}{
		"task_id": float64(1),
		"text":    "Which form is correct?",
		"answers": []interface{}{
			map[string]interface{}{"text": "option a", "is_correct": true},
			map[string]interface{}{"text": "option b"},
		},
	}
	assert.NoError(t, loader.ValidateData(valid, "question"))

	noAnswers := map[string]interface{}{
		"task_id": float64(1),
		"text":    "Which form is correct?",
		"answers": []interface{}{},
	}
	assert.Error(t, loader.ValidateData(noAnswers, "question"))
}

func TestValidateData_UnknownSchema(t *testing.T) {
	loader, err := NewSchemaLoader()
	require.NoError(t, err)

	err = loader.ValidateData(map[string]interface{}{}, "does_not_exist")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
