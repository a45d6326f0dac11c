package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store exposes the narrow set of metadata-store operations (C1) the
// engine needs. All operations are transactional; multi-row changes
// within one operation commit atomically.
type Store interface {
	// CreateJob inserts a row in status queued, attempts=0, and emits a
	// job_created event in the same transaction.
	CreateJob(ctx context.Context, jobKey string, payload map[string]interface{}, clientID, actorType, actorID string) (uuid.UUID, error)

	// ClaimNextJob atomically selects the oldest queued job whose
	// queued_at <= now, transitions it to running, sets started_at=now,
	// and increments attempts. Returns (nil, nil) when none is available.
	ClaimNextJob(ctx context.Context, workerID string, now time.Time) (*Job, error)

	// FinalizeJob conditionally transitions running -> one of
	// completed|failed|cancelled, setting finished_at. Returns
	// ErrInvalidTransition if the prior status was not running.
	FinalizeJob(ctx context.Context, jobID uuid.UUID, status Status, result map[string]interface{}, lastError *string) error

	// RequeueJob conditionally transitions running -> queued.
	RequeueJob(ctx context.Context, jobID uuid.UUID, notBefore time.Time) error

	// CancelQueuedJob conditionally transitions queued -> cancelled.
	// Returns ErrInvalidTransition if the job is no longer queued.
	CancelQueuedJob(ctx context.Context, jobID uuid.UUID) error

	// RequestCancel sets cancel_requested=true on a running job so the
	// handler can observe it cooperatively.
	RequestCancel(ctx context.Context, jobID uuid.UUID) error

	// AppendEvent computes the next seq under a row lock on the job and
	// inserts the event.
	AppendEvent(ctx context.Context, jobID uuid.UUID, eventType EventType, data map[string]interface{}) (int64, error)

	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)
	ListEvents(ctx context.Context, jobID uuid.UUID, sinceSeq int64) ([]JobEvent, error)

	// SetResultArchivePointer clears the inline result and records
	// where the archive module moved it, once a result exceeds the
	// archival size threshold.
	SetResultArchivePointer(ctx context.Context, jobID uuid.UUID, archiveKey string, byteCount int) error
}
