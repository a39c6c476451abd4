package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled schemas keyed by question count
var schemaCache sync.Map // map[int]*jsonschema.Schema

func definition(questionCount int) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type":     "array",
				"minItems": questionCount,
				"maxItems": questionCount,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string", "minLength": 1},
						"options": map[string]any{
							"type":     "array",
							"minItems": 2,
							"items":    map[string]any{"type": "string"},
						},
						"correctAnswer": map[string]any{"type": "integer", "minimum": 0},
						"explanation":   map[string]any{"type": "string"},
					},
					"required": []any{"question", "options", "correctAnswer"},
				},
			},
		},
		"required": []any{"title", "questions"},
	}
}

func compiledSchema(questionCount int) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(questionCount); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// the compiler wants a decoded JSON value, not Go literals
	defBytes, err := json.Marshal(definition(questionCount))
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	defParsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://quiz-%d.json", questionCount)
	if err := c.AddResource(url, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(questionCount, compiled)
	return compiled, nil
}
