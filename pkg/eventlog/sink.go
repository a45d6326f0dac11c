// Package eventlog implements the execution event log (C6): a faithful,
// ordered audit trail of what a crew did, capturing agent steps, tool
// calls, errors and the final outcome for every job.
package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
)

// Sink is handed to a crew handler so it can emit structured events
// synchronously from its own perspective. It serializes to the metadata
// store in the calling goroutine; there is no unbounded in-memory
// buffer — if the store is unavailable, Emit blocks up to Deadline and
// then fails with a StoreUnavailable apierr.Error.
type Sink interface {
	Emit(ctx context.Context, eventType engine.EventType, data map[string]interface{}) error
}

// appendFunc matches engine.Store.AppendEvent, kept narrow so Sink
// implementations don't need the whole Store interface.
type appendFunc func(ctx context.Context, jobID uuid.UUID, eventType engine.EventType, data map[string]interface{}) (int64, error)

// StoreSink is the production Sink, backed by the metadata store.
type StoreSink struct {
	jobID    uuid.UUID
	append   appendFunc
	deadline time.Duration
}

// DefaultEmitDeadline bounds how long Emit blocks on a slow store before
// surfacing StoreUnavailable to the handler.
const DefaultEmitDeadline = 5 * time.Second

// NewStoreSink creates a Sink bound to a single job, backed by store's
// AppendEvent operation.
func NewStoreSink(jobID uuid.UUID, store engine.Store) *StoreSink {
	return &StoreSink{jobID: jobID, append: store.AppendEvent, deadline: DefaultEmitDeadline}
}

func (s *StoreSink) Emit(ctx context.Context, eventType engine.EventType, data map[string]interface{}) error {
	emitCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := s.append(emitCtx, s.jobID, eventType, data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return apierr.Wrap(apierr.StoreUnavailable, "failed to append execution event", err)
		}
		return nil
	case <-emitCtx.Done():
		return apierr.Wrap(apierr.StoreUnavailable, "event sink deadline exceeded", emitCtx.Err())
	}
}

// BufferedSink accumulates events in memory, used by tests and by the
// generic gen_crew handler to batch a crew_execution_logs event instead
// of one row per fine-grained log line.
type BufferedSink struct {
	Events []Emitted
}

// Emitted is one buffered (type, data) pair, with the time it was recorded.
type Emitted struct {
	EventType engine.EventType
	Data      map[string]interface{}
	At        time.Time
}

func (b *BufferedSink) Emit(ctx context.Context, eventType engine.EventType, data map[string]interface{}) error {
	b.Events = append(b.Events, Emitted{EventType: eventType, Data: data, At: time.Now()})
	return nil
}
