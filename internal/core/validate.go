package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wenjia-zhai/genbridge/internal/common"
	"github.com/wenjia-zhai/genbridge/internal/vendors"
)

// paramsSchema constrains the request surface before anything is sent to a
// vendor. Vendor-specific knobs travel unvalidated in "extra".
var paramsSchema = map[string]any{
	"type":     "object",
	"required": []any{"kind", "prompt"},
	"properties": map[string]any{
		"kind": map[string]any{
			"type": "string",
			"enum": []any{"IMAGE", "VIDEO"},
		},
		"model": map[string]any{
			"type": "string",
		},
		"prompt": map[string]any{
			"type":      "string",
			"minLength": 1,
			"maxLength": 4000,
		},
		"image_url": map[string]any{
			"type":   "string",
			"format": "uri",
		},
		"count": map[string]any{
			"type":    "integer",
			"minimum": 0,
			"maximum": 8,
		},
		"size": map[string]any{
			"type":    "string",
			"pattern": `^\d+\*\d+$`,
		},
		"extra": map[string]any{
			"type": "object",
		},
	},
}

var compiledParamsSchema = mustCompileSchema(paramsSchema)

func mustCompileSchema(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("params.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	schema, err := compiler.Compile("params.json")
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// ValidateParams checks a generation request against the params schema and
// returns a ValidationError describing the first offending field.
func ValidateParams(params vendors.GenerationParams) error {
	b, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	if err := compiledParamsSchema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if ok := jsonschemaAs(err, &ve); ok {
			leaf := leafError(ve)
			return &common.ValidationError{
				Field:   leaf.InstanceLocation,
				Message: leaf.Message,
			}
		}
		return &common.ValidationError{Field: "", Message: err.Error()}
	}
	return nil
}

func jsonschemaAs(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}

// leafError descends to the most specific cause of a validation failure.
func leafError(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
