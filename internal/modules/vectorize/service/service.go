// Package service implements the event vectorization pipeline (C7):
// given a job_id, build per-event documents, chunk them, embed, and
// upsert idempotently, ported from vectorization_service.py's
// vectorize_job_events.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/client"
	"github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/repository"
	"github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/types"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
)

const sourceTable = "crew_job_event"

// Service vectorizes a job's event log into document_vectors.
type Service struct {
	store  engine.Store
	repo   *repository.Repository
	embed  *client.EmbeddingClient
	logger *slog.Logger
}

func New(store engine.Store, repo *repository.Repository, embed *client.EmbeddingClient, logger *slog.Logger) *Service {
	return &Service{store: store, repo: repo, embed: embed, logger: logger}
}

// VectorizeJob builds, chunks, embeds and upserts document vectors for
// every event of jobID. Safely re-runnable: re-running over the same
// events produces the same (source_table, source_id, chunk_index) keys
// and replaces their content in place (I4, L2).
func (s *Service) VectorizeJob(ctx context.Context, jobID uuid.UUID) error {
	events, err := s.store.ListEvents(ctx, jobID, 0)
	if err != nil {
		return fmt.Errorf("failed to load events for vectorization: %w", err)
	}

	for _, event := range events {
		sourceID := fmt.Sprintf("%s:%d", jobID, event.Seq)
		doc := eventText(event)
		chunks := chunkText(doc)

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		vectors, degraded := s.embed.Embed(ctx, texts)

		for i, chunk := range chunks {
			metadata := map[string]interface{}{
				"job_id":     jobID.String(),
				"event_type": string(event.EventType),
			}
			if degraded {
				metadata["embedding_degraded"] = true
			}

			rec := types.VectorRecord{
				SourceTable: sourceTable,
				SourceID:    sourceID,
				ChunkIndex:  i,
				ChunkText:   chunk.Text,
				ChunkStart:  chunk.Start,
				ChunkEnd:    chunk.End,
				Embedding:   vectors[i],
				Metadata:    metadata,
			}
			if err := s.repo.Upsert(ctx, rec); err != nil {
				return fmt.Errorf("failed to upsert chunk %d of event seq %d: %w", i, event.Seq, err)
			}
		}

		if degraded {
			s.logger.Warn("embedding degraded to zero vector", "job_id", jobID, "event_seq", event.Seq)
		}
	}

	return nil
}

// Search performs the read-only similarity-search query path; exposed
// for future consumers, not as a public HTTP route.
func (s *Service) Search(ctx context.Context, queryText string, limit int, metadataFilter map[string]string) ([]types.SearchResult, error) {
	vectors, _ := s.embed.Embed(ctx, []string{queryText})
	return s.repo.Search(ctx, vectors[0], limit, metadataFilter)
}
