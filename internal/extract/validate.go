package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resultSchema pins the processor's wire format. Output that does not
// match is treated as a failed attempt, not silently coerced.
const resultSchema = `{
	"type": "object",
	"required": ["fields", "confidence"],
	"properties": {
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"fields": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["field_name", "field_value", "confidence_score", "bounding_box"],
				"properties": {
					"field_name": {"type": "string", "minLength": 1},
					"field_value": {"type": "string"},
					"confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
					"bounding_box": {
						"type": "object",
						"required": ["page", "left", "top", "width", "height"],
						"properties": {
							"page": {"type": "integer", "minimum": 1},
							"left": {"type": "number"},
							"top": {"type": "number"},
							"width": {"type": "number"},
							"height": {"type": "number"}
						}
					}
				}
			}
		}
	}
}`

var compiledResultSchema = jsonschema.MustCompileString("processor_result.json", resultSchema)

// ParseResult validates raw processor output against the wire schema and
// decodes it.
func ParseResult(data []byte) (*Result, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("processor returned malformed JSON: %w", err)
	}
	if err := compiledResultSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("processor output failed schema validation: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var result Result
	if err := dec.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
