// Package schema validates canonical records against the embedded
// iSamples Core 1.0 JSON Schema.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360studio/isamples/core"
)

//go:embed iSamplesSchemaCore1.0.json
var coreSchema []byte

// CoreSchema returns the raw iSamples Core schema document.
func CoreSchema() []byte {
	return append([]byte(nil), coreSchema...)
}

// ValidationError lists every schema violation found in one record.
type ValidationError struct {
	Identifier string
	Problems   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %s is not valid iSamples Core: %s", e.Identifier, strings.Join(e.Problems, "; "))
}

// Validator checks records against a compiled schema. It is safe for
// concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(coreSchema))
	if err != nil {
		return nil, fmt.Errorf("compile core schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Validate returns a *ValidationError when rec does not conform.
func (v *Validator) Validate(rec core.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return v.ValidateJSON(rec.SampleIdentifier, data)
}

// ValidateJSON validates an already-encoded record.
func (v *Validator) ValidateJSON(identifier string, data []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate %s: %w", identifier, err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return &ValidationError{Identifier: identifier, Problems: problems}
}

var defaultValidator = sync.OnceValues(NewValidator)

// Validate checks rec with a validator shared by the process.
func Validate(rec core.Record) error {
	v, err := defaultValidator()
	if err != nil {
		return err
	}
	return v.Validate(rec)
}
