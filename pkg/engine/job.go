// Package engine implements the job lifecycle state machine (C4) on top
// of the metadata store access operations (C1): create, claim, finalize,
// requeue and the append-only event log.
package engine

import (
	"time"

	"github.com/google/uuid"
)

// Status is one of the five job lifecycle states.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is the durable representation of a crew job request.
type Job struct {
	ID             uuid.UUID              `json:"job_id" db:"id"`
	JobKey         string                 `json:"job_key" db:"job_key"`
	Payload        map[string]interface{} `json:"payload" db:"payload"`
	ClientID       string                 `json:"client_id" db:"client_id"`
	ActorType      string                 `json:"actor_type" db:"actor_type"`
	ActorID        string                 `json:"actor_id" db:"actor_id"`
	Status         Status                 `json:"status" db:"status"`
	Result         map[string]interface{} `json:"result,omitempty" db:"result"`
	LastError      *string                `json:"last_error,omitempty" db:"last_error"`
	Attempts       int                    `json:"attempts" db:"attempts"`
	CancelRequested bool                  `json:"-" db:"cancel_requested"`
	QueuedAt       time.Time              `json:"queued_at" db:"queued_at"`
	StartedAt      *time.Time             `json:"started_at,omitempty" db:"started_at"`
	FinishedAt     *time.Time             `json:"finished_at,omitempty" db:"finished_at"`
	Notes          string                 `json:"notes,omitempty" db:"notes"`

	// ResultArchiveKey and ResultByteCount are set once the archive
	// module moves an oversized result out of this row and into
	// storage; when set, Result is NULL at the store layer and the job
	// API resolves or surfaces the pointer per §6.1.
	ResultArchiveKey *string `json:"result_archive_key,omitempty" db:"result_archive_key"`
	ResultByteCount  *int    `json:"result_byte_count,omitempty" db:"result_byte_count"`
}

// ActorType enumerates the actor kinds recognized by the engine.
const (
	ActorClient      = "client"
	ActorSynth       = "synth"
	ActorSynthClass  = "synth_class"
	ActorSkillModule = "skill_module"
	ActorHuman       = "human"
)

// EventType is one of the closed set of execution event kinds (C6).
type EventType string

const (
	EventJobCreated        EventType = "job_created"
	EventCrewConfig        EventType = "crew_config"
	EventAgentStep         EventType = "agent_step"
	EventTaskComplete      EventType = "task_complete"
	EventCrewMessage       EventType = "crew_message"
	EventCrewExecutionLogs EventType = "crew_execution_logs"
	EventError             EventType = "error"
	EventJobFinalized      EventType = "job_finalized"
)

// JobEvent is one append-only row in the execution event log.
type JobEvent struct {
	JobID     uuid.UUID              `json:"job_id" db:"job_id"`
	Seq       int64                  `json:"seq" db:"seq"`
	EventType EventType              `json:"event_type" db:"event_type"`
	EventData map[string]interface{} `json:"event_data" db:"event_data"`
	EventTime time.Time              `json:"event_time" db:"event_time"`
}

// RetryPolicy controls how the engine reacts to a handler failure.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxWallTime time.Duration
}

// DefaultRetryPolicy matches §4.4: 3 attempts, 1s base, 30s cap, 10m wall time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		MaxWallTime: 10 * time.Minute,
	}
}
