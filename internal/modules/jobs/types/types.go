// Package types holds the HTTP-facing request/response shapes for the
// job API (spec §6.1); the persisted Job/JobEvent types live in
// pkg/engine.
package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/sparkjar/crew-orchestrator/pkg/engine"
)

// CreateJobResponse is returned by POST /crew_job on success.
type CreateJobResponse struct {
	JobID  uuid.UUID     `json:"job_id"`
	Status engine.Status `json:"status"`
}

// EventView is the event shape embedded in GetJobResponse.
type EventView struct {
	Seq       int64                  `json:"seq"`
	EventType engine.EventType       `json:"event_type"`
	EventTime time.Time              `json:"event_time"`
	EventData map[string]interface{} `json:"event_data"`
}

// GetJobResponse is returned by GET /crew_job/{job_id}.
type GetJobResponse struct {
	JobID      uuid.UUID              `json:"job_id"`
	JobKey     string                 `json:"job_key"`
	Status     engine.Status          `json:"status"`
	QueuedAt   time.Time              `json:"queued_at"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	Attempts   int                    `json:"attempts"`
	LastError  *string                `json:"last_error,omitempty"`
	Result     map[string]interface{} `json:"result,omitempty"`

	// ResultArchiveKey and ResultByteCount are only set when the
	// result was archived and could not be resolved back to inline
	// JSON (no archive storage configured, or the download failed).
	ResultArchiveKey *string     `json:"result_archive_key,omitempty"`
	ResultByteCount  *int        `json:"result_byte_count,omitempty"`
	Events           []EventView `json:"events"`
}

// CancelResponse is returned by POST /crew_job/{job_id}/cancel.
type CancelResponse struct {
	Status engine.Status `json:"status"`
}

// ErrorResponse is the standard error body for 400/401/422/5xx responses.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string          `json:"status"`
	Checks map[string]bool `json:"checks"`
}
