package dispatch

import (
	"context"
	"log/slog"

	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
	"github.com/sparkjar/crew-orchestrator/pkg/eventlog"
)

// Config controls the remote-vs-local execution policy from §4.5.
type Config struct {
	UseRemoteCrews  bool
	FallbackToLocal bool
}

// GenCrewObjectType is the schema object_type that always routes to
// the generic configuration-driven handler registered under this same
// key, regardless of what job_key-specific handler may also exist
// (spec §4.3: "if schema.object_type == gen_crew, dispatch to the
// generic configuration-driven handler; else to the registered
// concrete handler").
const GenCrewObjectType = "gen_crew"

// SchemaLookup resolves the object_type registered for a job_key, the
// narrow slice of internal/modules/schemas/service.Service.ObjectType
// the dispatch layer needs to apply the gen_crew routing rule without
// importing the schemas package directly.
type SchemaLookup interface {
	ObjectType(ctx context.Context, schemaName string) (string, error)
}

// Dispatcher resolves a job_key to a handler (C5), choosing between a
// locally registered handler and the remote crew execution service, and
// falling back to the local handler when the remote call is unavailable.
type Dispatcher struct {
	registry *Registry
	remote   *RemoteCrewClient
	tokens   *TokenCache
	schemas  SchemaLookup
	cfg      Config
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, remote *RemoteCrewClient, tokens *TokenCache, schemas SchemaLookup, cfg Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, remote: remote, tokens: tokens, schemas: schemas, cfg: cfg, logger: logger}
}

// Dispatch resolves jobKey and runs it, applying remote/local/fallback
// policy. workerID identifies the caller for token caching purposes;
// jobID is propagated to the remote crew service as request_id/
// X-Request-ID so its logs correlate to this job (§4.5/§6.2).
func (d *Dispatcher) Dispatch(ctx context.Context, workerID, jobID, jobKey string, payload map[string]interface{}, clientUserID, actorType, actorID string, sink eventlog.Sink) (map[string]interface{}, error) {
	handlerKey := jobKey
	if d.schemas != nil {
		if objectType, err := d.schemas.ObjectType(ctx, jobKey); err == nil && objectType == GenCrewObjectType {
			handlerKey = GenCrewObjectType
		}
	}

	handler, hasLocal := d.registry.Lookup(handlerKey)

	if !d.cfg.UseRemoteCrews {
		if !hasLocal {
			return nil, apierr.New(apierr.HandlerNotFound, "no registered handler for job_key "+jobKey)
		}
		return handler.Execute(ctx, payload, sink)
	}

	result, err := d.executeRemote(ctx, workerID, jobID, jobKey, payload, clientUserID, actorType, actorID)

	apiErr, isAPIErr := apierr.As(err)

	if isAPIErr && apiErr.Category == apierr.Authorization {
		// §4.5: on a 401/403 from the remote service, reload the
		// token and retry exactly once before giving up.
		d.logger.Warn("remote crew service rejected internal token, reloading and retrying once", "job_key", jobKey)
		d.tokens.Invalidate(workerID)
		result, err = d.executeRemote(ctx, workerID, jobID, jobKey, payload, clientUserID, actorType, actorID)
		apiErr, isAPIErr = apierr.As(err)
	}

	if err == nil {
		return result, nil
	}

	remoteUnavailable := isAPIErr && apiErr.Category == apierr.RemoteCrewUnavailable

	if remoteUnavailable && d.cfg.FallbackToLocal && hasLocal {
		d.logger.Warn("remote crew unavailable, falling back to local handler", "job_key", jobKey)
		return handler.Execute(ctx, payload, sink)
	}

	if !hasLocal && !isAPIErr {
		return nil, apierr.New(apierr.HandlerNotFound, "no registered handler for job_key "+jobKey)
	}

	return nil, err
}

func (d *Dispatcher) executeRemote(ctx context.Context, workerID, jobID, jobKey string, payload map[string]interface{}, clientUserID, actorType, actorID string) (map[string]interface{}, error) {
	token, err := d.tokens.Get(workerID, clientUserID, actorType, actorID)
	if err != nil {
		return nil, apierr.Wrap(apierr.Authorization, "failed to mint internal token", err)
	}
	return d.remote.Execute(ctx, jobKey, payload, jobID, token)
}
