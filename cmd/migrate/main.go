// Command migrate applies pending SQL migrations from
// internal/database/migrations, tracked in a migrations table the same
// way tools/migrate/migrate.go always has.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/sparkjar/crew-orchestrator/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	log.Println("connected to database successfully")

	if err := createMigrationsTable(db); err != nil {
		log.Fatalf("failed to create migrations table: %v", err)
	}

	migrationFiles, err := getMigrationFiles("internal/database/migrations")
	if err != nil {
		log.Fatalf("failed to list migration files: %v", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		log.Fatalf("failed to list applied migrations: %v", err)
	}

	log.Printf("found %d migration files, %d already applied", len(migrationFiles), len(applied))

	pending := getPendingMigrations(migrationFiles, applied)
	if len(pending) == 0 {
		log.Println("no pending migrations to apply")
		return
	}

	log.Printf("applying %d pending migrations...", len(pending))
	for _, migration := range pending {
		log.Printf("applying migration: %s", migration)
		if err := applyMigration(db, migration); err != nil {
			log.Fatalf("failed to apply migration %s: %v", migration, err)
		}
		log.Printf("applied migration: %s", migration)
	}
	log.Println("all migrations applied")
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(name)
		)
	`)
	return err
}

// getMigrationFiles only considers *.up.sql files; the matching
// *.down.sql is applied manually when an operator rolls back.
func getMigrationFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".up.sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func getAppliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM migrations ORDER BY applied_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func getPendingMigrations(all []string, applied map[string]bool) []string {
	var pending []string
	for _, file := range all {
		if !applied[filepath.Base(file)] {
			pending = append(pending, file)
		}
	}
	return pending
}

func applyMigration(db *sql.DB, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, stmt := range strings.Split(string(content), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute statement %q: %w", stmt, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO migrations (name) VALUES ($1)", filepath.Base(path)); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
