// Package jsonschema wraps santhosh-tekuri/jsonschema (Draft-07) for
// validating crew job payloads against schemas held in the metadata
// store. Schemas are compiled per call — the schema registry (C2)
// deliberately does not cache, favoring freshness over micro-latency.
package jsonschema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Result is the outcome of validating one document against one schema.
type Result struct {
	Valid  bool
	Errors []string
}

// Validate compiles schemaDoc as a Draft-07 schema and validates data
// against it, aggregating every violation rather than stopping at the
// first (per §4.2).
func Validate(schemaDoc map[string]interface{}, data map[string]interface{}) (Result, error) {
	schemaBytes, err := json.Marshal(schemaDoc)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	const resourceName = "schema.json"
	if err := compiler.AddResource(resourceName, bytesReader(schemaBytes)); err != nil {
		return Result{}, fmt.Errorf("failed to load schema: %w", err)
	}

	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compile schema: %w", err)
	}

	// jsonschema validates against decoded JSON values (map[string]interface{}
	// for objects), which is exactly what our payload already is.
	if err := compiled.Validate(toInterface(data)); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return Result{Valid: false, Errors: flatten(verr)}, nil
		}
		return Result{Valid: false, Errors: []string{err.Error()}}, nil
	}

	return Result{Valid: true}, nil
}

func toInterface(data map[string]interface{}) interface{} {
	return interface{}(data)
}

func flatten(verr *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return out
}
