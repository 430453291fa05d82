package middleware

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	contextutils "eduplatform/internal/utils"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaLoader holds compiled JSON schemas for request body validation
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// requestSchemaSources maps schema names to their JSON Schema documents.
// Schemas are strict: unknown top-level fields are rejected.
var requestSchemaSources = map[string]string{
	"login": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"username": {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1}
		},
		"required": ["username", "password"],
		"additionalProperties": false
	}`,
	"signup": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"username": {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1},
			"email": {"type": "string"},
			"first_name": {"type": "string"},
			"last_name": {"type": "string"}
		},
		"required": ["username", "password"],
		"additionalProperties": false
	}`,
	"profile_update": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"email": {"type": "string"},
			"first_name": {"type": "string"},
			"last_name": {"type": "string"}
		},
		"additionalProperties": false
	}`,
	"password_update": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"current_password": {"type": "string", "minLength": 1},
			"new_password": {"type": "string", "minLength": 1}
		},
		"required": ["current_password", "new_password"],
		"additionalProperties": false
	}`,
	"theme": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"display_order": {"type": "integer", "minimum": 0}
		},
		"required": ["title"],
		"additionalProperties": false
	}`,
	"lesson": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"theme_id": {"type": "integer", "minimum": 1},
			"title": {"type": "string", "minLength": 1},
			"content": {"type": "string"},
			"video_url": {"type": "string"},
			"display_order": {"type": "integer", "minimum": 0}
		},
		"required": ["theme_id", "title"],
		"additionalProperties": false
	}`,
	"task": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"lesson_id": {"type": "integer", "minimum": 1},
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"type": {"type": "string", "minLength": 1},
			"max_score": {"type": "integer", "minimum": 0}
		},
		"required": ["lesson_id", "title", "type"],
		"additionalProperties": false
	}`,
	"question": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"task_id": {"type": "integer", "minimum": 1},
			"text": {"type": "string", "minLength": 1},
			"explanation": {"type": "string"},
			"display_order": {"type": "integer", "minimum": 0},
			"answers": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"properties": {
						"text": {"type": "string", "minLength": 1},
						"is_correct": {"type": "boolean"}
					},
					"required": ["text"],
					"additionalProperties": false
				}
			}
		},
		"required": ["task_id", "text", "answers"],
		"additionalProperties": false
	}`,
	"submission": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"selections": {
				"type": "object",
				"propertyNames": {"pattern": "^[0-9]+$"},
				"additionalProperties": {
					"type": "array",
					"items": {"type": "integer"}
				}
			}
		},
		"required": ["selections"],
		"additionalProperties": false
	}`,
}

// requestSchemaRoutes maps "METHOD /route/pattern" (gin full paths) to
// the schema validating that endpoint's request body.
var requestSchemaRoutes = map[string]string{
	"POST /v1/auth/login":            "login",
	"POST /v1/auth/signup":           "signup",
	"PUT /v1/profile":                "profile_update",
	"PUT /v1/profile/password":       "password_update",
	"POST /v1/admin/themes":          "theme",
	"PUT /v1/admin/themes/:id":       "theme",
	"POST /v1/admin/lessons":         "lesson",
	"PUT /v1/admin/lessons/:id":      "lesson",
	"POST /v1/admin/tasks":           "task",
	"PUT /v1/admin/tasks/:id":        "task",
	"POST /v1/admin/questions":       "question",
	"POST /v1/quiz/tasks/:id/submit": "submission",
}

// NewSchemaLoader compiles all request schemas
func NewSchemaLoader() (*SchemaLoader, error) {
	sl := &SchemaLoader{schemas: make(map[string]*gojsonschema.Schema)}
	for name, source := range requestSchemaSources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to compile schema %s", name)
		}
		sl.schemas[name] = schema
	}
	return sl, nil
}

var (
	globalSchemaLoader   *SchemaLoader
	schemaLoaderInitOnce sync.Once
)

// sharedSchemaLoader returns the process-wide schema loader. Schemas are
// compiled from constants, so compilation failure is a programming error.
func sharedSchemaLoader() *SchemaLoader {
	schemaLoaderInitOnce.Do(func() {
		loader, err := NewSchemaLoader()
		if err != nil {
			panic(err)
		}
		globalSchemaLoader = loader
	})
	return globalSchemaLoader
}

// SchemaForRoute returns the schema name registered for a method and gin
// route pattern, or "" when the endpoint has no body schema.
func (sl *SchemaLoader) SchemaForRoute(method, routePattern string) string {
	return requestSchemaRoutes[method+" "+routePattern]
}

// ValidateData validates data against a named schema
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal data")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return contextutils.WrapError(err, "validation error")
	}

	if !result.Valid() {
		var validationErrors []string
		for _, validationErr := range result.Errors() {
			validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		return contextutils.ErrorWithContextf("schema validation failed: %s", strings.Join(validationErrors, "; "))
	}

	return nil
}
