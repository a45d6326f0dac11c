package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/julienschmidt/httprouter"

	"github.com/sparkjar/crew-orchestrator/internal/config"
	"github.com/sparkjar/crew-orchestrator/internal/crews/genconfig"
	"github.com/sparkjar/crew-orchestrator/internal/crews/hello"
	"github.com/sparkjar/crew-orchestrator/internal/database"
	archivemodule "github.com/sparkjar/crew-orchestrator/internal/modules/archive"
	authmodule "github.com/sparkjar/crew-orchestrator/internal/modules/auth"
	jobsmodule "github.com/sparkjar/crew-orchestrator/internal/modules/jobs"
	schemasrepo "github.com/sparkjar/crew-orchestrator/internal/modules/schemas/repository"
	schemasservice "github.com/sparkjar/crew-orchestrator/internal/modules/schemas/service"
	secretsrepo "github.com/sparkjar/crew-orchestrator/internal/modules/secrets/repository"
	vectorizemodule "github.com/sparkjar/crew-orchestrator/internal/modules/vectorize"
	embeddingclient "github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/client"
	"github.com/sparkjar/crew-orchestrator/pkg/dispatch"
	"github.com/sparkjar/crew-orchestrator/pkg/events"
	"github.com/sparkjar/crew-orchestrator/pkg/policy"
	"github.com/sparkjar/crew-orchestrator/pkg/registry"
	"github.com/sparkjar/crew-orchestrator/pkg/rules"
	"github.com/sparkjar/crew-orchestrator/pkg/workflow"
)

// Server holds the wiring needed to build the top-level HTTP handler
// and the module registry backing it, mirroring the teacher's
// http.Server-plus-Dependencies shape.
type Server struct {
	port       int
	db         database.Service
	registry   *registry.Registry
	auth       *authmodule.AuthModule
	schemas    schemasrepo.Repository
	embeddings *embeddingclient.EmbeddingClient
	logger     *slog.Logger
}

// NewServer wires configuration, infrastructure, and every module,
// returning an *http.Server ready to ListenAndServe.
func NewServer(cfg *config.Config) *http.Server {
	logger := slog.Default()

	dbService, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		panicf("database connection failed: %v", err)
	}

	eventBus := events.NewBus(false)

	var casbinEnforcer *policy.CasbinEnforcer
	casbinEnforcer, err = policy.NewCasbinEnforcer(cfg.CasbinDSN, cfg.CasbinModelPath)
	if err != nil {
		logger.Error("failed to initialize casbin enforcer, falling back to mock mode", "error", err)
		casbinEnforcer, _ = policy.NewCasbinEnforcer("", "")
	}
	policyEngine := policy.NewEngine(casbinEnforcer)
	if err := policyEngine.LoadConfigFromFile("config/policy/rules.yaml"); err != nil {
		logger.Warn("no fallback policy config loaded", "error", err)
	}

	ruleEngine := rules.NewRuleEngine(nil)
	if err := ruleEngine.LoadConfigFromFile("config/rules/crew_job.yaml"); err != nil {
		logger.Warn("no validation rule config loaded", "error", err)
	}

	stateMachineFactory := workflow.NewStateMachineFactory()
	if err := stateMachineFactory.LoadFromDirectory("config/workflows"); err != nil {
		logger.Warn("no workflow state machines loaded", "error", err)
	}

	deps := registry.Dependencies{
		DBX:                 dbService.GetDB(),
		Config:              cfg,
		EventBus:            eventBus,
		RuleEngine:          ruleEngine,
		PolicyEngine:        policyEngine,
		StateMachineFactory: stateMachineFactory,
		Logger:              logger,
	}

	repoRegistry := registry.NewRegistry(deps)

	authMod := authmodule.NewAuthModule()
	repoRegistry.Register(authMod)

	schemaRepo := schemasrepo.NewRepository(dbService.GetDB().DB)
	schemaService := schemasservice.NewService(schemaRepo)

	secretStore := secretsrepo.New(dbService.GetDB())

	tokenMinter := func(subject, clientUserID, actorType, actorID string) (string, time.Time, error) {
		return authMod.GetJWTService().MintInternalToken(subject, clientUserID, actorType, actorID)
	}
	tokenCache := dispatch.NewTokenCache(tokenMinter)
	handlerRegistry := dispatch.NewRegistry()
	handlerRegistry.MustRegister(hello.JobKey, hello.New(secretStore))
	handlerRegistry.MustRegister(dispatch.GenCrewObjectType, genconfig.New(schemaRepo))
	remoteClient := dispatch.NewRemoteCrewClient(cfg.RemoteCrewBaseURL, nil)
	dispatcher := dispatch.NewDispatcher(handlerRegistry, remoteClient, tokenCache, schemaService, dispatch.Config{
		UseRemoteCrews:  cfg.UseRemoteCrews,
		FallbackToLocal: cfg.FallbackToLocal,
	}, logger)

	jobsMod := jobsmodule.New(dispatcher, schemaService, cfg.WorkerPoolSize)
	repoRegistry.Register(jobsMod)

	if err := repoRegistry.InitAll(context.Background()); err != nil {
		logger.Error("failed to initialize modules", "error", err)
		panicf("module initialization failed: %v", err)
	}

	vectorizeMod := vectorizemodule.New(jobsMod.Store(), cfg.EmbeddingServiceBaseURL, cfg.EmbeddingModel)
	repoRegistry.Register(vectorizeMod)
	if err := vectorizeMod.Init(context.Background(), deps); err != nil {
		logger.Error("failed to initialize vectorize module", "error", err)
		panicf("vectorize module initialization failed: %v", err)
	}

	archiveMod := archivemodule.New(jobsMod.Store())
	repoRegistry.Register(archiveMod)
	if err := archiveMod.Init(context.Background(), deps); err != nil {
		logger.Error("failed to initialize archive module", "error", err)
		panicf("archive module initialization failed: %v", err)
	}

	repoRegistry.RegisterAllEventHandlers(eventBus)
	logger.Info("event handlers registered for all modules")

	s := &Server{
		port:       cfg.Port,
		db:         dbService,
		registry:   repoRegistry,
		auth:       authMod,
		schemas:    schemaRepo,
		embeddings: embeddingclient.New(cfg.EmbeddingServiceBaseURL, cfg.EmbeddingModel, 0, nil),
		logger:     logger,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes builds the top-level router, wraps every module route
// with the auth middleware, and adds the health check from §6.1.
func (s *Server) RegisterRoutes() http.Handler {
	router := httprouter.New()
	s.registry.RegisterAllRoutes(router)

	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.handleHealth(w, r)
	})

	return s.auth.GetMiddleware().Middleware(router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, schemaErr := s.schemas.ListNames(r.Context())
	checks := map[string]bool{
		"db":                s.db.Health(r.Context()) == nil,
		"schema_registry":   schemaErr == nil,
		"embedding_service": s.embeddings.Health(r.Context()) == nil,
	}
	status := "ok"
	for _, ok := range checks {
		if !ok {
			status = "degraded"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"status": status, "checks": checks})
}

func panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}
