// Package types holds the document-vector shapes for the event
// vectorization pipeline (C7).
package types

import "time"

// Chunk is one piece of a chunked document, produced per §4.7's
// target-2000/overlap-200 rule.
type Chunk struct {
	Text  string
	Start int
	End   int
}

// VectorRecord is one row of document_vectors, upserted idempotently
// keyed by (SourceTable, SourceID, ChunkIndex).
type VectorRecord struct {
	ID          string                 `db:"id"`
	SourceTable string                 `db:"source_table"`
	SourceID    string                 `db:"source_id"`
	ChunkIndex  int                    `db:"chunk_index"`
	ChunkText   string                 `db:"chunk_text"`
	ChunkStart  int                    `db:"chunk_start"`
	ChunkEnd    int                    `db:"chunk_end"`
	Embedding   []float64              `db:"embedding"`
	Metadata    map[string]interface{} `db:"metadata"`
	CreatedAt   time.Time              `db:"created_at"`
	UpdatedAt   time.Time              `db:"updated_at"`
}

// SearchResult is one hit from a similarity search, nearest first.
type SearchResult struct {
	Record   VectorRecord
	Distance float64
}
