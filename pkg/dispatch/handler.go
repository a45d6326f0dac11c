// Package dispatch implements the crew dispatch layer (C5): a pluggable
// handler registry, local-vs-remote execution policy with fallback, and
// per-handler contracts (metadata, expected scopes, timeouts).
package dispatch

import (
	"context"
	"time"

	"github.com/sparkjar/crew-orchestrator/pkg/eventlog"
)

// Metadata describes a handler: its name, version, expected scopes, a
// wall-clock budget, and which error categories its own Execute may
// self-report as transient. The engine does not read MaxWallTime or
// RetryableOnErrors: every job runs under the pool's
// RetryPolicy.MaxWallTime deadline, and retries follow
// apierr.Error.Retryable.
type Metadata struct {
	Name              string
	Version           string
	ExpectedScopes    []string
	MaxWallTime       time.Duration
	RetryableOnErrors []string
}

// Handler is any object satisfying execute(payload) -> result_or_raises
// with a metadata descriptor, per §4.5.
type Handler interface {
	Metadata() Metadata
	Execute(ctx context.Context, payload map[string]interface{}, sink eventlog.Sink) (map[string]interface{}, error)
}

// HandlerFunc adapts a plain function to Handler for simple, stateless
// crews that don't need their own type.
type HandlerFunc struct {
	Meta Metadata
	Fn   func(ctx context.Context, payload map[string]interface{}, sink eventlog.Sink) (map[string]interface{}, error)
}

func (f HandlerFunc) Metadata() Metadata { return f.Meta }

func (f HandlerFunc) Execute(ctx context.Context, payload map[string]interface{}, sink eventlog.Sink) (map[string]interface{}, error) {
	return f.Fn(ctx, payload, sink)
}
