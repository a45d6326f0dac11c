// Package database owns the connection pool shared by every module's
// repository layer, mirroring the Service/New()/GetDB() shape
// internal/server/server.go expects.
package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// Service is the narrow surface modules depend on to reach Postgres.
type Service interface {
	GetDB() *sqlx.DB
	Health(ctx context.Context) error
	Close() error
}

type service struct {
	db *sqlx.DB
}

// New opens a pgx-backed connection pool against dsn using database/sql
// through sqlx, the way pkg/queue and the CRM repositories already do.
func New(dsn string) (Service, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &service{db: db}, nil
}

func (s *service) GetDB() *sqlx.DB { return s.db }

func (s *service) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *service) Close() error {
	return s.db.Close()
}
