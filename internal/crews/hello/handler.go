// Package hello implements a minimal local crew handler, the reference
// job_key="hello_crew" handler the end-to-end scenarios (S1, S4, S5)
// exercise, grounded the way internal/modules/sales/handler wires a
// thin handler directly over a repository.
package hello

import (
	"context"
	"errors"
	"fmt"

	"github.com/sparkjar/crew-orchestrator/internal/modules/secrets/repository"
	"github.com/sparkjar/crew-orchestrator/pkg/dispatch"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/eventlog"
)

const JobKey = "hello_crew"

// defaultGreeting is used when the client has no custom
// "greeting_template" secret configured.
const defaultGreeting = "hello, %s"

// Handler is the dispatch.Handler for job_key="hello_crew": it emits a
// crew_message event and returns a greeting built from an optional
// per-client secret, the way a generic configuration-driven crew would
// read client-scoped settings from internal/modules/secrets.
type Handler struct {
	secrets repository.Repository
}

func New(secrets repository.Repository) *Handler {
	return &Handler{secrets: secrets}
}

func (h *Handler) Metadata() dispatch.Metadata {
	return dispatch.Metadata{Name: JobKey, Version: "1"}
}

func (h *Handler) Execute(ctx context.Context, payload map[string]interface{}, sink eventlog.Sink) (map[string]interface{}, error) {
	clientUserID, _ := payload["client_user_id"].(string)

	template := defaultGreeting
	if h.secrets != nil {
		if v, err := h.secrets.Get(ctx, clientUserID, "greeting_template"); err == nil {
			template = v
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up greeting_template secret: %w", err)
		}
	}

	message := fmt.Sprintf(template, clientUserID)

	if sink != nil {
		if err := sink.Emit(ctx, engine.EventCrewMessage, map[string]interface{}{"message": message}); err != nil {
			return nil, fmt.Errorf("failed to emit crew_message event: %w", err)
		}
	}

	return map[string]interface{}{"message": message}, nil
}
