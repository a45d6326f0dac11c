// Package genconfig implements the generic configuration-driven crew
// handler (C5a): a single handler registered under
// dispatch.GenCrewObjectType that serves every schema whose
// object_type is "gen_crew", reading its behavior from the schema's
// own JSON body instead of from compiled Go code, the way hello.Handler
// is the one compiled handler for job_key="hello_crew".
package genconfig

import (
	"context"
	"fmt"

	"github.com/sparkjar/crew-orchestrator/internal/modules/schemas/types"
	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
	"github.com/sparkjar/crew-orchestrator/pkg/dispatch"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/eventlog"
)

// SchemaReader is the narrow slice of
// internal/modules/schemas/repository.Repository this handler needs.
type SchemaReader interface {
	GetByName(ctx context.Context, name string) (*types.SchemaDescriptor, error)
}

// Handler executes any gen_crew schema by replaying its "steps" array
// against an in-memory eventlog.BufferedSink, then flushing the whole
// buffer as a single crew_execution_logs event on the job's real sink
// — one row summarizing the run instead of one store round-trip per
// step, per eventlog.BufferedSink's documented purpose. A step is an
// arbitrary JSON object; this handler does not interpret it beyond
// counting and logging, since real step execution (agent/LLM calls)
// belongs to the remote crew execution service, not this layer.
type Handler struct {
	schemas SchemaReader
}

func New(schemas SchemaReader) *Handler {
	return &Handler{schemas: schemas}
}

func (h *Handler) Metadata() dispatch.Metadata {
	return dispatch.Metadata{Name: dispatch.GenCrewObjectType, Version: "1"}
}

func (h *Handler) Execute(ctx context.Context, payload map[string]interface{}, sink eventlog.Sink) (map[string]interface{}, error) {
	jobKey, _ := payload["job_key"].(string)
	if jobKey == "" {
		return nil, apierr.New(apierr.Validation, "gen_crew job payload is missing job_key")
	}

	descriptor, err := h.schemas.GetByName(ctx, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load gen_crew schema %q: %w", jobKey, err)
	}
	if descriptor == nil {
		return nil, apierr.New(apierr.Validation, fmt.Sprintf("gen_crew schema %q not found", jobKey))
	}

	steps, _ := descriptor.Schema["steps"].([]interface{})

	buffer := &eventlog.BufferedSink{}
	_ = buffer.Emit(ctx, engine.EventCrewConfig, map[string]interface{}{
		"schema_name": jobKey,
		"object_type": descriptor.ObjectType,
		"step_count":  len(steps),
	})
	for i, raw := range steps {
		step, _ := raw.(map[string]interface{})
		_ = buffer.Emit(ctx, engine.EventAgentStep, map[string]interface{}{
			"step":   i,
			"config": step,
		})
	}

	if sink != nil {
		logs := make([]map[string]interface{}, len(buffer.Events))
		for i, e := range buffer.Events {
			logs[i] = map[string]interface{}{"event_type": string(e.EventType), "data": e.Data}
		}
		if err := sink.Emit(ctx, engine.EventCrewExecutionLogs, map[string]interface{}{
			"schema_name": jobKey,
			"logs":        logs,
		}); err != nil {
			return nil, fmt.Errorf("failed to emit crew_execution_logs event: %w", err)
		}
	}

	return map[string]interface{}{
		"schema_name": jobKey,
		"step_count":  len(steps),
	}, nil
}
