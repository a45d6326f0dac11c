// Package repository implements document_vectors access: idempotent
// upsert keyed by (source_table, source_id, chunk_index) and
// cosine-distance nearest-neighbor search, executed as raw SQL through
// pgx since no dedicated pgvector Go driver exists in the pack.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/types"
)

type Repository struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts or updates a vector record keyed by (source_table,
// source_id, chunk_index), satisfying L2 (embed(x); embed(x) == embed(x)
// except updated_at).
func (r *Repository) Upsert(ctx context.Context, rec types.VectorRecord) error {
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO document_vectors
			(id, source_table, source_id, chunk_index, chunk_text, chunk_start, chunk_end, embedding, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (source_table, source_id, chunk_index)
		DO UPDATE SET
			chunk_text = EXCLUDED.chunk_text,
			chunk_start = EXCLUDED.chunk_start,
			chunk_end = EXCLUDED.chunk_end,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`, rec.ID, rec.SourceTable, rec.SourceID, rec.ChunkIndex, rec.ChunkText, rec.ChunkStart, rec.ChunkEnd,
		vectorLiteral(rec.Embedding), metadataJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert document vector: %w", err)
	}
	return nil
}

// CountBySource returns how many chunk rows exist for a source, used
// to verify I4 (embedding row count equals chunk count after a run).
func (r *Repository) CountBySource(ctx context.Context, sourceTable, sourceID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM document_vectors WHERE source_table = $1 AND source_id = $2
	`, sourceTable, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to count document vectors: %w", err)
	}
	return count, nil
}

// Search performs cosine-distance nearest-neighbor search with
// optional metadata filters (job_id, event_type), read-only.
func (r *Repository) Search(ctx context.Context, queryVector []float64, limit int, metadataFilter map[string]string) ([]types.SearchResult, error) {
	query := `
		SELECT id, source_table, source_id, chunk_index, chunk_text, chunk_start, chunk_end, metadata, created_at, updated_at,
			embedding <=> $1 AS distance
		FROM document_vectors
	`
	args := []interface{}{vectorLiteral(queryVector)}
	var whereClauses []string
	for key, value := range metadataFilter {
		args = append(args, value)
		whereClauses = append(whereClauses, fmt.Sprintf("metadata->>'%s' = $%d", key, len(args)))
	}
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY distance ASC LIMIT $%d", len(args))

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search document vectors: %w", err)
	}
	defer rows.Close()

	var results []types.SearchResult
	for rows.Next() {
		var rec types.VectorRecord
		var metadataJSON []byte
		var distance float64
		if err := rows.Scan(&rec.ID, &rec.SourceTable, &rec.SourceID, &rec.ChunkIndex, &rec.ChunkText,
			&rec.ChunkStart, &rec.ChunkEnd, &metadataJSON, &rec.CreatedAt, &rec.UpdatedAt, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan document vector: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		results = append(results, types.SearchResult{Record: rec, Distance: distance})
	}
	return results, rows.Err()
}

// vectorLiteral renders a float slice as pgvector's "[v1,v2,...]"
// input literal, the format pgvector's text I/O expects over raw SQL.
func vectorLiteral(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
