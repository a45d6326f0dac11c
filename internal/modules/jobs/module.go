// Package jobs wires the job lifecycle engine (C4) and its HTTP surface
// into the module registry, the way internal/modules/sales/module.go
// wires repository -> service -> handler for a domain module.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/julienschmidt/httprouter"

	"github.com/sparkjar/crew-orchestrator/internal/config"
	"github.com/sparkjar/crew-orchestrator/internal/modules/jobs/handler"
	"github.com/sparkjar/crew-orchestrator/internal/modules/jobs/service"
	schemasservice "github.com/sparkjar/crew-orchestrator/internal/modules/schemas/service"
	"github.com/sparkjar/crew-orchestrator/pkg/dispatch"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/registry"
	"github.com/sparkjar/crew-orchestrator/pkg/storage"
)

// Module wires the job store, worker pool, and HTTP handler together.
type Module struct {
	dispatcher *dispatch.Dispatcher
	schemas    *schemasservice.Service

	store      *engine.PostgresStore
	pool       *engine.Pool
	handler    *handler.Handler
	workerSize int
	logger     *slog.Logger
}

func New(dispatcher *dispatch.Dispatcher, schemas *schemasservice.Service, workerSize int) *Module {
	return &Module{dispatcher: dispatcher, schemas: schemas, workerSize: workerSize}
}

func (m *Module) Name() string { return "jobs" }

func (m *Module) Init(ctx context.Context, deps registry.Dependencies) error {
	m.logger = deps.Logger.With("module", "jobs")

	m.store = engine.NewPostgresStore(deps.DBX, m.logger)

	archiveStorage, err := archiveStorageFromConfig(deps.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize archive read-side storage: %w", err)
	}

	svc := service.New(m.store, m.schemas, archiveStorage)
	svc.SetLogger(m.logger)
	m.handler = handler.NewHandler(svc, deps.PolicyEngine)

	m.pool = engine.NewPool(m.store, m.dispatcher, retryPolicyFromConfig(deps.Config), m.logger)
	m.pool.SetEventBus(deps.EventBus)
	if m.workerSize <= 0 {
		m.workerSize = 4
	}
	m.pool.Start(ctx, m.workerSize)

	m.logger.Info("jobs module initialized", "worker_pool_size", m.workerSize)
	return nil
}

func (m *Module) RegisterRoutes(router interface{}) {
	if r, ok := router.(*httprouter.Router); ok {
		m.handler.RegisterRoutes(r)
	}
}

func (m *Module) RegisterEventHandlers(bus interface{}) {}

func (m *Module) Health() error { return nil }

// Store exposes the job store so other modules (e.g. vectorize) can
// read finalized job events without importing the HTTP handler.
func (m *Module) Store() *engine.PostgresStore { return m.store }

// archiveStorageFromConfig builds the same storage.Storage the archive
// module uploads to, so GetJob can resolve an archived result back to
// inline JSON. Returns (nil, nil) when ARCHIVE_S3_BUCKET is unset, in
// which case archived jobs surface the pointer instead.
func archiveStorageFromConfig(cfg *config.Config) (storage.Storage, error) {
	if cfg == nil || cfg.ArchiveBucket == "" {
		return nil, nil
	}
	return storage.NewStorage(&storage.Config{
		Provider: "s3",
		S3: &storage.S3Config{
			Region: cfg.ArchiveRegion,
			Bucket: cfg.ArchiveBucket,
		},
	})
}

// retryPolicyFromConfig builds the engine's default retry policy from
// the process config instead of engine.DefaultRetryPolicy's hardcoded
// constants, so RETRY_MAX_ATTEMPTS/RETRY_BASE_DELAY/RETRY_MAX_DELAY/
// MAX_WALL_TIME actually take effect.
func retryPolicyFromConfig(cfg *config.Config) engine.RetryPolicy {
	policy := engine.DefaultRetryPolicy()
	if cfg == nil {
		return policy
	}
	if cfg.RetryMaxAttempts > 0 {
		policy.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.RetryBaseDelay
	}
	if cfg.RetryMaxDelay > 0 {
		policy.MaxDelay = cfg.RetryMaxDelay
	}
	if cfg.MaxWallTime > 0 {
		policy.MaxWallTime = cfg.MaxWallTime
	}
	return policy
}
