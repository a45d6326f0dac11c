// Package service implements the schema registry (C2): resolving the
// correct schema descriptor for an inbound payload and validating
// against it, exactly as _determine_schema_from_job_key and
// validate_request_data did in the original Python validator.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/sparkjar/crew-orchestrator/internal/modules/schemas/repository"
	"github.com/sparkjar/crew-orchestrator/internal/modules/schemas/types"
	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
	"github.com/sparkjar/crew-orchestrator/pkg/jsonschema"
)

// Service resolves and validates crew job payloads against schemas.
type Service struct {
	repo repository.Repository
}

func NewService(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// ResolveSchemaName implements the resolution rule from §4.2: an
// explicit name wins, else the payload's job_key, looked up by exact
// match only — no fuzzy matching, no enum/const rescanning.
func (s *Service) ResolveSchemaName(ctx context.Context, explicitName string, data map[string]interface{}) (string, error) {
	if explicitName != "" {
		return explicitName, nil
	}

	jobKey, _ := data["job_key"].(string)
	if jobKey == "" {
		return "", apierr.New(apierr.Validation, "no schema_name provided and no job_key found in data")
	}
	return jobKey, nil
}

// Validate always enforces the core required fields first, then
// validates against the JSON schema, aggregating both sets of
// violations rather than stopping at the first.
func (s *Service) Validate(ctx context.Context, schemaName string, data map[string]interface{}) (*types.ValidationResult, error) {
	descriptor, err := s.repo.GetByName(ctx, schemaName)
	if err != nil {
		return nil, apierr.Wrap(apierr.StoreUnavailable, "failed to load schema", err)
	}
	if descriptor == nil {
		suggestion, _ := s.suggestSchemaName(ctx, schemaName)
		msg := fmt.Sprintf("schema %q not found", schemaName)
		errs := []string{msg}
		if suggestion != "" {
			errs = append(errs, fmt.Sprintf("did you mean %q?", suggestion))
		}
		return &types.ValidationResult{Valid: false, SchemaUsed: schemaName, Errors: errs, Suggestion: suggestion}, nil
	}

	coreErrors := validateCoreFields(data)

	result, err := jsonschema.Validate(descriptor.Schema, data)
	if err != nil {
		return nil, apierr.Wrap(apierr.Validation, "schema compilation failed", err)
	}

	allErrors := append(append([]string{}, coreErrors...), result.Errors...)

	out := &types.ValidationResult{
		Valid:      len(allErrors) == 0,
		SchemaUsed: schemaName,
		SchemaID:   descriptor.ID,
		Errors:     allErrors,
	}
	if out.Valid {
		out.ValidatedData = data
	}
	return out, nil
}

// ObjectType returns the object_type recorded for schemaName, used by
// the dispatch layer to route object_type=="gen_crew" jobs to the
// generic handler (§4.3). Returns "" with no error when the schema
// does not exist, since an unknown schema already fails at Validate.
func (s *Service) ObjectType(ctx context.Context, schemaName string) (string, error) {
	descriptor, err := s.repo.GetByName(ctx, schemaName)
	if err != nil {
		return "", apierr.Wrap(apierr.StoreUnavailable, "failed to load schema", err)
	}
	if descriptor == nil {
		return "", nil
	}
	return descriptor.ObjectType, nil
}

// validateCoreFields checks job_key, client_user_id, actor_type,
// actor_id are present, non-null, and non-empty once trimmed.
func validateCoreFields(data map[string]interface{}) []string {
	var errs []string
	for _, field := range types.CoreFields {
		value, present := data[field]
		if !present {
			errs = append(errs, fmt.Sprintf("missing required core field: %s", field))
			continue
		}
		if value == nil {
			errs = append(errs, fmt.Sprintf("core field '%s' cannot be null", field))
			continue
		}
		if str, ok := value.(string); ok && strings.TrimSpace(str) == "" {
			errs = append(errs, fmt.Sprintf("core field '%s' cannot be empty", field))
		}
	}
	return errs
}

// suggestSchemaName offers a "did you mean" candidate via Levenshtein
// similarity over the known crew/gen_crew schema names, used only to
// enrich the error message on an unknown job_key — never to silently
// resolve to a different schema.
func (s *Service) suggestSchemaName(ctx context.Context, name string) (string, error) {
	names, err := s.repo.ListNames(ctx)
	if err != nil || len(names) == 0 {
		return "", err
	}

	best := ""
	bestSimilarity := -1
	for _, candidate := range names {
		similarity := similarityPercent(name, candidate)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = candidate
		}
	}
	if bestSimilarity < 50 {
		return "", nil
	}
	return best, nil
}

func similarityPercent(a, b string) int {
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	similarity := 100 - (distance * 100 / maxLen)
	if similarity < 0 {
		return 0
	}
	return similarity
}
