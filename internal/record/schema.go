package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildRecordJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Records are validated against it before they enter the
// result set, so a malformed detail response can never poison the dataset.
func BuildRecordJSONSchema() map[string]any {
	props := map[string]any{
		"patent_no":          map[string]any{"type": "string", "minLength": 6, "pattern": `^[A-Z]{2}[0-9A-Z]+$`},
		"patent_type":        map[string]any{"type": "string"},
		"application_date":   map[string]any{"type": "string", "pattern": `^(\d{8})?$`},
		"application_number": map[string]any{"type": "string"},
		"inventors":          map[string]any{"type": "string"},
		"first_applicant":    map[string]any{"type": "string"},
		"abstract":           map[string]any{"type": "string"},
		"examiner":           map[string]any{"type": "string"},
		"first_claim":        map[string]any{"type": "string"},
		"fetched_at":         map[string]any{"type": "string"},
	}
	required := []string{"patent_no"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

var compiledSchema *jsonschema.Schema

func init() {
	b, err := json.Marshal(BuildRecordJSONSchema())
	if err != nil {
		panic(fmt.Sprintf("marshal record schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add record schema: %v", err))
	}
	compiledSchema, err = compiler.Compile("record.json")
	if err != nil {
		panic(fmt.Sprintf("compile record schema: %v", err))
	}
}

// Validate checks a record against the dataset schema.
func Validate(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
