package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greetingSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"client_user_id"},
		"properties": map[string]interface{}{
			"client_user_id": map[string]interface{}{"type": "string"},
			"age":            map[string]interface{}{"type": "integer", "minimum": 0},
		},
	}
}

func TestValidatePassesOnValidDocument(t *testing.T) {
	result, err := Validate(greetingSchema(), map[string]interface{}{
		"client_user_id": "acme",
		"age":             float64(5),
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateReportsMissingRequiredField(t *testing.T) {
	result, err := Validate(greetingSchema(), map[string]interface{}{
		"age": float64(5),
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
}

func TestValidateAggregatesMultipleViolations(t *testing.T) {
	result, err := Validate(greetingSchema(), map[string]interface{}{
		"age": float64(-1),
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.GreaterOrEqual(t, len(result.Errors), 2)
}

func TestValidateErrorsOnUncompilableSchema(t *testing.T) {
	_, err := Validate(map[string]interface{}{"type": 123}, map[string]interface{}{})
	assert.Error(t, err)
}
