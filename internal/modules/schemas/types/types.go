package types

import "time"

// ObjectType enumerates the schema kinds recognized by the registry.
const (
	ObjectTypeCrew        = "crew"
	ObjectTypeGenCrew      = "gen_crew"
	ObjectTypeCrewContext = "crew_context"
)

// SchemaDescriptor is a stored JSON Schema Draft-07 document keyed by
// (name, object_type), with at most one active version per key.
type SchemaDescriptor struct {
	ID         int64                  `json:"id" db:"id"`
	Name       string                 `json:"name" db:"name"`
	ObjectType string                 `json:"object_type" db:"object_type"`
	Schema     map[string]interface{} `json:"schema" db:"schema"`
	Version    int                    `json:"version" db:"version"`
	IsActive   bool                   `json:"is_active" db:"is_active"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}

// ValidationResult mirrors validate_request_data's return shape from
// the original implementation: {valid, schema_used, schema_id, errors,
// validated_data}.
type ValidationResult struct {
	Valid         bool                   `json:"valid"`
	SchemaUsed    string                 `json:"schema_used,omitempty"`
	SchemaID      int64                  `json:"schema_id,omitempty"`
	Errors        []string               `json:"errors,omitempty"`
	ValidatedData map[string]interface{} `json:"validated_data,omitempty"`
	Suggestion    string                 `json:"suggestion,omitempty"`
}

// CoreFields are required on every crew request regardless of schema.
var CoreFields = []string{"job_key", "client_user_id", "actor_type", "actor_id"}
