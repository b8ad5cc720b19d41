package generator

import (
	"encoding/json"
	"fmt"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/preppro/backend/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// mcqEnvelope is the JSON object the MCQ prompt asks for.
type mcqEnvelope struct {
	Questions []models.GeneratedMCQ `json:"questions" jsonschema:"required,minItems=1"`
}

// mcqResponse is the shape a response must have to be read as JSON at all.
// Individual questions are checked after decoding so one malformed entry
// does not discard the rest.
type mcqResponse struct {
	Questions []map[string]any `json:"questions" jsonschema:"required"`
}

var (
	mcqSchemaOnce sync.Once
	mcqSchema     *jsonschema.Schema
	mcqSchemaErr  error
)

func reflectSchema(v any) ([]byte, error) {
	r := invopop.Reflector{
		Anonymous:                 true,
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	return json.Marshal(r.Reflect(v))
}

// MCQSchemaJSON returns the schema of the object the MCQ prompt asks for.
func MCQSchemaJSON() ([]byte, error) {
	return reflectSchema(&mcqEnvelope{})
}

func compiledMCQSchema() (*jsonschema.Schema, error) {
	mcqSchemaOnce.Do(func() {
		raw, err := reflectSchema(&mcqResponse{})
		if err != nil {
			mcqSchemaErr = fmt.Errorf("reflect MCQ schema: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			mcqSchemaErr = fmt.Errorf("parse MCQ schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://generated-mcqs.json"
		if err := c.AddResource(url, doc); err != nil {
			mcqSchemaErr = fmt.Errorf("add MCQ schema: %w", err)
			return
		}
		mcqSchema, mcqSchemaErr = c.Compile(url)
	})
	return mcqSchema, mcqSchemaErr
}

// validateMCQJSON checks that raw is an object holding a questions array.
func validateMCQJSON(raw []byte) error {
	schema, err := compiledMCQSchema()
	if err != nil {
		return err
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := schema.Validate(parsed); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}
