package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrInvalidTransition is returned when a conditional update affects no
// rows because the job's prior status did not match what the caller
// expected; the engine treats this as a benign race.
var ErrInvalidTransition = errors.New("invalid state transition")

// PostgresStore implements Store on top of crew_jobs and crew_job_event.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) CreateJob(ctx context.Context, jobKey string, payload map[string]interface{}, clientID, actorType, actorID string) (uuid.UUID, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	jobID := uuid.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO crew_jobs
			(id, job_key, payload, client_id, actor_type, actor_id, status, attempts, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, NOW())
	`, jobID, jobKey, payloadJSON, clientID, actorType, actorID, StatusQueued)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert job: %w", err)
	}

	if _, err := s.appendEventTx(ctx, tx, jobID, EventJobCreated, map[string]interface{}{
		"job_key": jobKey,
	}); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit job creation: %w", err)
	}

	return jobID, nil
}

// ClaimNextJob uses a conditional UPDATE ... WHERE status='queued' RETURNING
// so that two workers racing on the same row have exactly one winner.
func (s *PostgresStore) ClaimNextJob(ctx context.Context, workerID string, now time.Time) (*Job, error) {
	row := s.db.QueryRowxContext(ctx, `
		UPDATE crew_jobs
		SET status = $1, started_at = $2, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM crew_jobs
			WHERE status = $3 AND queued_at <= $2
			ORDER BY queued_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, job_key, payload, client_id, actor_type, actor_id, status, result,
			last_error, attempts, cancel_requested, queued_at, started_at, finished_at, notes,
			result_archive_key, result_byte_count
	`, StatusRunning, now, StatusQueued)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	_ = workerID // surfaced only in logs at the call site
	return job, nil
}

func (s *PostgresStore) FinalizeJob(ctx context.Context, jobID uuid.UUID, status Status, result map[string]interface{}, lastError *string) error {
	var resultJSON []byte
	var err error
	if result != nil {
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE crew_jobs
		SET status = $1, result = $2, last_error = $3, finished_at = NOW()
		WHERE id = $4 AND status = $5
	`, status, resultJSON, lastError, jobID, StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}
	return requireRowAffected(res)
}

// SetResultArchivePointer records where an oversized result was moved
// to and clears the inline result column, per the archive module's
// "pointer + byte count" contract. It does not require the job to be
// in any particular status since archival runs from the job.finalized
// bus event, after FinalizeJob already committed.
func (s *PostgresStore) SetResultArchivePointer(ctx context.Context, jobID uuid.UUID, archiveKey string, byteCount int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crew_jobs
		SET result = NULL, result_archive_key = $1, result_byte_count = $2
		WHERE id = $3
	`, archiveKey, byteCount, jobID)
	if err != nil {
		return fmt.Errorf("failed to record archive pointer: %w", err)
	}
	return requireRowAffected(res)
}

func (s *PostgresStore) RequeueJob(ctx context.Context, jobID uuid.UUID, notBefore time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crew_jobs
		SET status = $1, queued_at = $2, started_at = NULL, cancel_requested = false
		WHERE id = $3 AND status = $4
	`, StatusQueued, notBefore, jobID, StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}
	return requireRowAffected(res)
}

func (s *PostgresStore) CancelQueuedJob(ctx context.Context, jobID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE crew_jobs
		SET status = $1, finished_at = NOW()
		WHERE id = $2 AND status = $3
	`, StatusCancelled, jobID, StatusQueued)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	if _, err := s.appendEventTx(ctx, tx, jobID, EventJobFinalized, map[string]interface{}{
		"outcome": StatusCancelled,
	}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) RequestCancel(ctx context.Context, jobID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crew_jobs SET cancel_requested = true WHERE id = $1 AND status = $2
	`, jobID, StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to request cancellation: %w", err)
	}
	return requireRowAffected(res)
}

// AppendEvent takes a row lock on the job to compute the next gap-free
// seq, then inserts the event — mirroring the append-only contract of
// crew_job_event.
func (s *PostgresStore) AppendEvent(ctx context.Context, jobID uuid.UUID, eventType EventType, data map[string]interface{}) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := s.appendEventTx(ctx, tx, jobID, eventType, data)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit event append: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) appendEventTx(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID, eventType EventType, data map[string]interface{}) (int64, error) {
	// Row-lock the job so seq assignment is serialized per job_id.
	if _, err := tx.ExecContext(ctx, `SELECT id FROM crew_jobs WHERE id = $1 FOR UPDATE`, jobID); err != nil {
		return 0, fmt.Errorf("failed to lock job for event append: %w", err)
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event data: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO crew_job_event (job_id, seq, event_type, event_data, event_time)
		VALUES ($1, COALESCE((SELECT MAX(seq) FROM crew_job_event WHERE job_id = $1), 0) + 1, $2, $3, NOW())
		RETURNING seq
	`, jobID, eventType, dataJSON).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to append event: %w", err)
	}

	return seq, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT id, job_key, payload, client_id, actor_type, actor_id, status, result,
			last_error, attempts, cancel_requested, queued_at, started_at, finished_at, notes,
			result_archive_key, result_byte_count
		FROM crew_jobs WHERE id = $1
	`, jobID)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, jobID uuid.UUID, sinceSeq int64) ([]JobEvent, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT job_id, seq, event_type, event_data, event_time
		FROM crew_job_event
		WHERE job_id = $1 AND seq > $2
		ORDER BY seq ASC
	`, jobID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []JobEvent
	for rows.Next() {
		var e JobEvent
		var dataJSON []byte
		if err := rows.Scan(&e.JobID, &e.Seq, &e.EventType, &dataJSON, &e.EventTime); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &e.EventData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var payloadJSON, resultJSON []byte

	err := row.Scan(
		&job.ID, &job.JobKey, &payloadJSON, &job.ClientID, &job.ActorType, &job.ActorID,
		&job.Status, &resultJSON, &job.LastError, &job.Attempts, &job.CancelRequested,
		&job.QueuedAt, &job.StartedAt, &job.FinishedAt, &job.Notes,
		&job.ResultArchiveKey, &job.ResultByteCount,
	)
	if err != nil {
		return nil, err
	}

	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}

	return &job, nil
}
