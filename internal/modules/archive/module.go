// Package archive implements the large-result-archival and
// job-finalized-notification supplemented features, subscribing to
// job.finalized the same way internal/modules/vectorize does rather
// than being invoked directly by the job engine.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sparkjar/crew-orchestrator/pkg/email"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/events"
	"github.com/sparkjar/crew-orchestrator/pkg/notify"
	"github.com/sparkjar/crew-orchestrator/pkg/registry"
	"github.com/sparkjar/crew-orchestrator/pkg/storage"
)

// thresholdBytes is the marshaled result size above which a job's
// result is archived to S3 instead of kept inline.
const thresholdBytes = 256 * 1024

// Module archives oversized job results to S3 and emails an operator
// inbox when a job finishes in status failed.
type Module struct {
	store    engine.Store
	storage  storage.Storage
	notifier *notify.Notifier
	logger   *slog.Logger
}

// New takes the store jobs.Module exposes so this module never needs
// its own connection for job data.
func New(store engine.Store) *Module {
	return &Module{store: store}
}

func (m *Module) Name() string { return "archive" }

func (m *Module) Init(ctx context.Context, deps registry.Dependencies) error {
	m.logger = deps.Logger.With("module", "archive")
	cfg := deps.Config

	if cfg.ArchiveBucket != "" {
		st, err := storage.NewStorage(&storage.Config{
			Provider: "s3",
			S3: &storage.S3Config{
				Region: cfg.ArchiveRegion,
				Bucket: cfg.ArchiveBucket,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to initialize archive storage: %w", err)
		}
		m.storage = st
	}

	if cfg.SMTPHost != "" {
		n, err := notify.New(&email.Config{
			Provider: "smtp",
			From:     cfg.SMTPFrom,
			SMTP: &email.SMTPConfig{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Username: cfg.SMTPUser,
				Password: cfg.SMTPPass,
			},
		}, []string{cfg.SMTPFrom})
		if err != nil {
			return fmt.Errorf("failed to initialize job-finalized notifier: %w", err)
		}
		m.notifier = n
	}

	m.logger.Info("archive module initialized",
		"archival_enabled", m.storage != nil,
		"notifications_enabled", m.notifier != nil)
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
	status, _ := payload["status"].(string)

	jobID, err := uuid.Parse(jobIDStr)
	if err != nil {
		return nil
	}

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil || job == nil {
		return nil
	}

	if m.storage != nil && job.Result != nil {
		if err := m.archiveIfOversized(ctx, job); err != nil {
			m.logger.Error("failed to archive job result", "job_id", jobID, "error", err)
		}
	}

	if m.notifier != nil && status == string(engine.StatusFailed) {
		lastErr := ""
		if job.LastError != nil {
			lastErr = *job.LastError
		}
		if err := m.notifier.NotifyJobFailed(ctx, jobIDStr, job.JobKey, lastErr); err != nil {
			m.logger.Error("failed to send job-failed notification", "job_id", jobID, "error", err)
		}
	}

	return nil
}

func (m *Module) archiveIfOversized(ctx context.Context, job *engine.Job) error {
	body, err := json.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}
	if len(body) <= thresholdBytes {
		return nil
	}

	key := fmt.Sprintf("crew_job/%s/result.json", job.ID)
	if _, err := m.storage.Upload(ctx, storage.UploadOptions{
		Key:         key,
		Reader:      bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
	}); err != nil {
		return fmt.Errorf("failed to upload archived result: %w", err)
	}

	if err := m.store.SetResultArchivePointer(ctx, job.ID, key, len(body)); err != nil {
		return fmt.Errorf("failed to record archive pointer: %w", err)
	}

	m.logger.Info("archived oversized job result", "job_id", job.ID, "key", key, "size_bytes", len(body))
	return nil
}
