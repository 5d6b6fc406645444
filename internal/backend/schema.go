package backend

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a named JSON Schema describing one response shape.
type Schema struct {
	Name       string
	Definition map[string]any
}

var practiceTypeEnum = []any{"recall", "refine", "conquer"}

var startSchema = &Schema{
	Name: "practice-start",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"session_id"},
	},
}

var nextSchema = &Schema{
	Name: "practice-next",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"delivery_uuid": map[string]any{"type": "string", "minLength": 1},
			"question": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":            map[string]any{"type": "string"},
					"text":          map[string]any{"type": "string", "minLength": 1},
					"options":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"correctAnswer": map[string]any{"type": "string"},
					"explanation":   map[string]any{"type": "string"},
					"hint":          map[string]any{"type": "string"},
					"difficulty":    map[string]any{"type": "string"},
				},
				"required": []any{"id", "text", "options"},
			},
			"xp_so_far":    map[string]any{"type": "integer", "minimum": 0},
			"xp_goal":      map[string]any{"type": "integer", "minimum": 1},
			"bonus_active": map[string]any{"type": "boolean"},
		},
		"required": []any{"delivery_uuid", "question", "xp_so_far", "xp_goal", "bonus_active"},
	},
}

var answerSchema = &Schema{
	Name: "practice-answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success":    map[string]any{"type": "boolean"},
			"is_correct": map[string]any{"type": "boolean"},
			"xp_awarded": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []any{"success", "is_correct", "xp_awarded"},
	},
}

var endSchema = &Schema{
	Name:       "practice-end",
	Definition: map[string]any{"type": "object"},
}

var attemptSchema = &Schema{
	Name: "increment_practice_attempt",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recall_attempts":  map[string]any{"type": "integer", "minimum": 0},
			"refine_attempts":  map[string]any{"type": "integer", "minimum": 0},
			"conquer_attempts": map[string]any{"type": "integer", "minimum": 0},
			"newly_unlocked": map[string]any{
				"type":  []any{"array", "null"},
				"items": map[string]any{"enum": practiceTypeEnum},
			},
		},
		"required": []any{"recall_attempts", "refine_attempts", "conquer_attempts"},
	},
}

var statsSchema = &Schema{
	Name: "practice_stats",
	Definition: map[string]any{
		"type":     "array",
		"maxItems": 1,
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recall_attempts":  map[string]any{"type": "integer", "minimum": 0},
				"refine_attempts":  map[string]any{"type": "integer", "minimum": 0},
				"conquer_attempts": map[string]any{"type": "integer", "minimum": 0},
			},
			"required": []any{"recall_attempts", "refine_attempts", "conquer_attempts"},
		},
	},
}

var unlocksSchema = &Schema{
	Name: "practice_unlocks",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"practice_type": map[string]any{"enum": []any{"refine", "conquer"}},
				"unlocked_at":   map[string]any{"type": "string"},
			},
			"required": []any{"practice_type", "unlocked_at"},
		},
	},
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateResponse checks raw against schema. The parsed value is returned so
// callers can inspect it further.
func validateResponse(schema *Schema, raw []byte) (any, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if schema == nil {
		return parsed, nil
	}

	compiled, err := getCompiledSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return parsed, nil
}

// getCompiledSchema returns a cached compiled schema or compiles and caches it.
func getCompiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants plain JSON values; round-trip to normalize Go types.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
