package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkjar/crew-orchestrator/internal/modules/schemas/types"
)

type fakeRepo struct {
	byName map[string]*types.SchemaDescriptor
	names  []string
}

func (f *fakeRepo) GetByName(ctx context.Context, name string) (*types.SchemaDescriptor, error) {
	return f.byName[name], nil
}

func (f *fakeRepo) GetCrewSchemas(ctx context.Context) (map[string]*types.SchemaDescriptor, error) {
	return f.byName, nil
}

func (f *fakeRepo) ListNames(ctx context.Context) ([]string, error) {
	return f.names, nil
}

func helloSchema() *types.SchemaDescriptor {
	return &types.SchemaDescriptor{
		ID:   1,
		Name: "hello_crew",
		Schema: map[string]interface{}{
			"type": "object",
		},
		IsActive: true,
	}
}

func validCoreFields() map[string]interface{} {
	return map[string]interface{}{
		"job_key":        "hello_crew",
		"client_user_id": "acme",
		"actor_type":     "client",
		"actor_id":       "user-1",
	}
}

func TestResolveSchemaNamePrefersExplicitName(t *testing.T) {
	svc := NewService(&fakeRepo{})
	name, err := svc.ResolveSchemaName(context.Background(), "explicit_name", map[string]interface{}{"job_key": "hello_crew"})
	require.NoError(t, err)
	assert.Equal(t, "explicit_name", name)
}

func TestResolveSchemaNameFallsBackToJobKey(t *testing.T) {
	svc := NewService(&fakeRepo{})
	name, err := svc.ResolveSchemaName(context.Background(), "", map[string]interface{}{"job_key": "hello_crew"})
	require.NoError(t, err)
	assert.Equal(t, "hello_crew", name)
}

func TestResolveSchemaNameErrorsWithNeither(t *testing.T) {
	svc := NewService(&fakeRepo{})
	_, err := svc.ResolveSchemaName(context.Background(), "", map[string]interface{}{})
	assert.Error(t, err)
}

func TestValidateSucceedsOnWellFormedPayload(t *testing.T) {
	repo := &fakeRepo{byName: map[string]*types.SchemaDescriptor{"hello_crew": helloSchema()}}
	svc := NewService(repo)

	result, err := svc.Validate(context.Background(), "hello_crew", validCoreFields())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, validCoreFields(), result.ValidatedData)
}

func TestValidateReportsMissingCoreFields(t *testing.T) {
	repo := &fakeRepo{byName: map[string]*types.SchemaDescriptor{"hello_crew": helloSchema()}}
	svc := NewService(repo)

	result, err := svc.Validate(context.Background(), "hello_crew", map[string]interface{}{"job_key": "hello_crew"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "missing required core field: client_user_id")
}

func TestValidateUnknownSchemaSuggestsClosestName(t *testing.T) {
	repo := &fakeRepo{
		byName: map[string]*types.SchemaDescriptor{"hello_crew": helloSchema()},
		names:  []string{"hello_crew"},
	}
	svc := NewService(repo)

	result, err := svc.Validate(context.Background(), "hello_crwe", validCoreFields())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "hello_crew", result.Suggestion)
}

func TestValidateUnknownSchemaNoSuggestionWhenTooDissimilar(t *testing.T) {
	repo := &fakeRepo{
		byName: map[string]*types.SchemaDescriptor{"hello_crew": helloSchema()},
		names:  []string{"hello_crew"},
	}
	svc := NewService(repo)

	result, err := svc.Validate(context.Background(), "completely_unrelated_name", validCoreFields())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Empty(t, result.Suggestion)
}
