package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// analysisSchema describes the object the prompt asks for. It is only used
// for diagnostics: the normalizer repairs whatever does not match.
var analysisSchema = map[string]any{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"required": []string{
		"contractType", "effectiveDate", "renewalDate", "noticePeriodDays",
		"terminationClauseReference", "parties", "alerts", "riskScore", "abusiveClauses",
	},
	"properties": map[string]any{
		"contractType":               map[string]any{"type": "string", "minLength": 1},
		"effectiveDate":              map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"renewalDate":                map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"noticePeriodDays":           map[string]any{"type": "number", "minimum": 0},
		"terminationClauseReference": map[string]any{"type": "string"},
		"summary":                    map[string]any{"type": "string"},
		"parties":                    schemaStringArray,
		"alerts":                     schemaStringArray,
		"abusiveClauses":             schemaStringArray,
		"riskScore":                  map[string]any{"type": "number", "minimum": 1, "maximum": 10},
		"customAnswer":               map[string]any{"type": "string"},
		"extractedData":              schemaStringMap,
		"dataSources":                schemaStringMap,
	},
}

var (
	schemaStringArray = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	schemaStringMap   = map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}}
)

// SchemaValidator checks raw model output against the expected shape.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles the analysis schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	b, err := json.Marshal(analysisSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analysis.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("analysis.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate returns nil when raw matches the schema.
func (v *SchemaValidator) Validate(raw map[string]any) error {
	// Round-trip so values have the types the validator expects.
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal raw result: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("unmarshal raw result: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("model output does not match schema: %w", err)
	}
	return nil
}
