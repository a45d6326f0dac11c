package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sparkjar/crew-orchestrator/internal/modules/schemas/types"
)

// Repository loads schema descriptors from object_schemas. There is no
// in-process caching: schemas are fetched fresh on every call, the same
// tradeoff the original validator made in favor of freshness over
// micro-latency.
type Repository interface {
	GetByName(ctx context.Context, name string) (*types.SchemaDescriptor, error)
	GetCrewSchemas(ctx context.Context) (map[string]*types.SchemaDescriptor, error)
	ListNames(ctx context.Context) ([]string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByName(ctx context.Context, name string) (*types.SchemaDescriptor, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, object_type, schema, version, is_active, created_at
		FROM object_schemas
		WHERE name = $1 AND is_active = true
	`, name)

	var d types.SchemaDescriptor
	var schemaJSON []byte
	err := row.Scan(&d.ID, &d.Name, &d.ObjectType, &schemaJSON, &d.Version, &d.IsActive, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load schema %q: %w", name, err)
	}

	if err := json.Unmarshal(schemaJSON, &d.Schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema %q: %w", name, err)
	}
	return &d, nil
}

func (r *repository) GetCrewSchemas(ctx context.Context) (map[string]*types.SchemaDescriptor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, object_type, schema, version, is_active, created_at
		FROM object_schemas
		WHERE object_type IN ($1, $2) AND is_active = true
	`, types.ObjectTypeCrew, types.ObjectTypeGenCrew)
	if err != nil {
		return nil, fmt.Errorf("failed to load crew schemas: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*types.SchemaDescriptor)
	for rows.Next() {
		var d types.SchemaDescriptor
		var schemaJSON []byte
		if err := rows.Scan(&d.ID, &d.Name, &d.ObjectType, &schemaJSON, &d.Version, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		if err := json.Unmarshal(schemaJSON, &d.Schema); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema %q: %w", d.Name, err)
		}
		out[d.Name] = &d
	}
	return out, rows.Err()
}

func (r *repository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM object_schemas
		WHERE object_type IN ($1, $2) AND is_active = true
	`, types.ObjectTypeCrew, types.ObjectTypeGenCrew)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
