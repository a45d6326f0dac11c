// Package service implements the thin job-lifecycle service sitting
// between the HTTP handler and pkg/engine: validating inbound payloads
// against the schema registry (C2) before handing off to the engine's
// store (C1), and mapping cancel requests to the two legal transitions
// from §4.4 (queued->cancelled directly, running->cancel_requested).
package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/google/uuid"

	schemasservice "github.com/sparkjar/crew-orchestrator/internal/modules/schemas/service"
	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/storage"
)

// Service wires schema validation and job persistence for the HTTP layer.
type Service struct {
	store   engine.Store
	schemas *schemasservice.Service
	logger  *slog.Logger

	// archive resolves a job's result_archive_key back to inline JSON
	// for GET /crew_job/{id}, mirroring internal/modules/archive's
	// upload path. Nil when ARCHIVE_S3_BUCKET is unset, in which case
	// archived jobs surface the pointer instead of the inline result.
	archive storage.Storage
}

func New(store engine.Store, schemas *schemasservice.Service, archive storage.Storage) *Service {
	return &Service{store: store, schemas: schemas, archive: archive, logger: slog.Default()}
}

// SetLogger overrides the default slog logger, mirroring the
// teacher's service constructors that accept a module-scoped logger
// from registry.Dependencies at Init time.
func (s *Service) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// CreateJob validates payload against the resolved schema, then
// creates a queued job. The core fields (job_key, client_user_id,
// actor_type, actor_id) must already be present in payload; they are
// re-validated by the schema service regardless of the schema body.
func (s *Service) CreateJob(ctx context.Context, explicitSchemaName string, payload map[string]interface{}) (uuid.UUID, error) {
	schemaName, err := s.schemas.ResolveSchemaName(ctx, explicitSchemaName, payload)
	if err != nil {
		return uuid.Nil, err
	}

	result, err := s.schemas.Validate(ctx, schemaName, payload)
	if err != nil {
		return uuid.Nil, err
	}
	if !result.Valid {
		return uuid.Nil, apierr.NewValidation("payload failed schema validation", result.Errors)
	}

	jobKey, _ := payload["job_key"].(string)
	clientID, _ := payload["client_user_id"].(string)
	actorType, _ := payload["actor_type"].(string)
	actorID, _ := payload["actor_id"].(string)

	jobID, err := s.store.CreateJob(ctx, jobKey, payload, clientID, actorType, actorID)
	if err != nil {
		return uuid.Nil, apierr.Wrap(apierr.StoreUnavailable, "failed to create job", err)
	}
	return jobID, nil
}

// GetJob returns a job and its full event log for §6.1's GET response.
// When the result was archived, it transparently resolves
// result_archive_key back to inline JSON if archive storage is
// configured; otherwise the caller sees the pointer fields instead.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (*engine.Job, []engine.JobEvent, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.StoreUnavailable, "failed to load job", err)
	}
	if job == nil {
		return nil, nil, nil
	}

	if job.ResultArchiveKey != nil && s.archive != nil {
		if resolved, err := s.resolveArchivedResult(ctx, *job.ResultArchiveKey); err != nil {
			s.logger.Warn("failed to resolve archived job result, returning pointer instead", "job_id", jobID, "error", err)
		} else {
			job.Result = resolved
			job.ResultArchiveKey = nil
			job.ResultByteCount = nil
		}
	}

	events, err := s.store.ListEvents(ctx, jobID, 0)
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.StoreUnavailable, "failed to load job events", err)
	}
	return job, events, nil
}

func (s *Service) resolveArchivedResult(ctx context.Context, key string) (map[string]interface{}, error) {
	file, err := s.archive.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer file.Reader.Close()

	body, err := io.ReadAll(file.Reader)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel requests cancellation per §4.4: a queued job transitions
// directly to cancelled; a running job gets cancel_requested=true for
// the handler to observe cooperatively. Returns the job's status after
// the request and whether the job was already terminal.
func (s *Service) Cancel(ctx context.Context, jobID uuid.UUID) (engine.Status, bool, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return "", false, apierr.Wrap(apierr.StoreUnavailable, "failed to load job", err)
	}
	if job == nil {
		return "", false, apierr.New(apierr.Validation, "job not found")
	}

	switch job.Status {
	case engine.StatusQueued:
		if err := s.store.CancelQueuedJob(ctx, jobID); err != nil {
			if err == engine.ErrInvalidTransition {
				return s.reload(ctx, jobID)
			}
			return "", false, apierr.Wrap(apierr.StoreUnavailable, "failed to cancel job", err)
		}
		return engine.StatusCancelled, false, nil
	case engine.StatusRunning:
		if err := s.store.RequestCancel(ctx, jobID); err != nil {
			if err == engine.ErrInvalidTransition {
				return s.reload(ctx, jobID)
			}
			return "", false, apierr.Wrap(apierr.StoreUnavailable, "failed to request cancellation", err)
		}
		return engine.StatusRunning, false, nil
	default:
		return job.Status, true, nil
	}
}

func (s *Service) reload(ctx context.Context, jobID uuid.UUID) (engine.Status, bool, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil || job == nil {
		return "", false, apierr.Wrap(apierr.StoreUnavailable, "failed to reload job", err)
	}
	return job.Status, job.Status != engine.StatusQueued && job.Status != engine.StatusRunning, nil
}
