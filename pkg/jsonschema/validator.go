// Package jsonschema wraps compiled JSON Schema validation for
// response-shape checks.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validator is a compiled JSON Schema. Compile once, validate many
// times; Validate is safe for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles a JSON Schema from its source text.
func NewValidator(schemaStr string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("schema.json", strings.NewReader(schemaStr)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks a JSON document against the compiled schema.
// Returns true if the JSON is valid, and the validation errors if not.
// A parse failure of the document itself is reported as an error.
func (v *Validator) Validate(jsonStr string) (bool, ValidationErrors) {
	var jsonData interface{}
	if err := json.Unmarshal([]byte(jsonStr), &jsonData); err != nil {
		return false, ValidationErrors{fmt.Errorf("invalid JSON: %w", err)}
	}

	err := v.schema.Validate(jsonData)
	if err == nil {
		return true, nil
	}

	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		return false, extractValidationErrors(validationErr)
	}
	return false, ValidationErrors{err}
}

// extractValidationErrors flattens a jsonschema.ValidationError tree.
func extractValidationErrors(err *jsonschema.ValidationError) ValidationErrors {
	var errors ValidationErrors

	if err.Message != "" {
		errors = append(errors, fmt.Errorf("validation error at %s: %s", err.InstanceLocation, err.Message))
	}

	for _, childErr := range err.Causes {
		errors = append(errors, extractValidationErrors(childErr)...)
	}

	return errors
}
