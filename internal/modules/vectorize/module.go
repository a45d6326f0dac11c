// Package vectorize wires the event vectorization pipeline (C7) into
// the module registry. It is triggered by subscribing to job.finalized
// on the shared event bus rather than a direct call from the job
// engine, keeping C4 and C7 decoupled the way sales/module.go
// subscribes to contact.created instead of being called directly by CRM.
package vectorize

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/client"
	"github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/repository"
	"github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/service"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/events"
	"github.com/sparkjar/crew-orchestrator/pkg/registry"
)

const embeddingDimension = 1536

// Module subscribes to job.finalized and vectorizes the job's event log.
type Module struct {
	store              engine.Store
	embeddingBaseURL   string
	embeddingModel     string
	service            *service.Service
	logger             *slog.Logger
}

// New takes the store jobs.Module exposes so this module never needs
// its own database handle for job data, only for document_vectors.
func New(store engine.Store, embeddingBaseURL, embeddingModel string) *Module {
	return &Module{store: store, embeddingBaseURL: embeddingBaseURL, embeddingModel: embeddingModel}
}

func (m *Module) Name() string { return "vectorize" }

func (m *Module) Init(ctx context.Context, deps registry.Dependencies) error {
	m.logger = deps.Logger.With("module", "vectorize")

	repo := repository.New(deps.DBX)
	embedClient := client.New(m.embeddingBaseURL, m.embeddingModel, embeddingDimension, nil)
	m.service = service.New(m.store, repo, embedClient, m.logger)

	m.logger.Info("vectorize module initialized")
	return nil
}

func (m *Module) RegisterRoutes(router interface{}) {}

func (m *Module) RegisterEventHandlers(bus interface{}) {
	eventBus, ok := bus.(*events.Bus)
	if !ok {
		return
	}
	eventBus.Subscribe(engine.JobFinalizedEvent, m.handleJobFinalized)
}

func (m *Module) Health() error { return nil }

func (m *Module) handleJobFinalized(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		return nil
	}
	jobIDStr, _ := payload["job_id"].(string)
	jobID, err := uuid.Parse(jobIDStr)
	if err != nil {
		m.logger.Error("job.finalized carried an invalid job_id", "job_id", jobIDStr, "error", err)
		return nil
	}

	if err := m.service.VectorizeJob(ctx, jobID); err != nil {
		m.logger.Error("failed to vectorize job events", "job_id", jobID, "error", err)
	}
	return nil
}
