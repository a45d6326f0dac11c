// Package repository implements the read-only secrets KV lookup from
// spec §6.4, backed by the Postgres client_secrets table per the fixed
// "secrets path" open-question decision.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when the (client_id, key) pair has no secret.
var ErrNotFound = errors.New("secret not found")

// Repository is the read-only KV lookup consumed by handlers.
type Repository interface {
	Get(ctx context.Context, clientID, key string) (string, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Get(ctx context.Context, clientID, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `
		SELECT value FROM client_secrets WHERE client_id = $1 AND secret_key = $2
	`, clientID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return value, nil
}
