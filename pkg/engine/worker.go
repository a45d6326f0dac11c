package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
	"github.com/sparkjar/crew-orchestrator/pkg/eventlog"
	"github.com/sparkjar/crew-orchestrator/pkg/events"
)

// JobFinalizedEvent is the bus event type published whenever a job
// reaches a terminal status, decoupling C7 (vectorization) from C4 the
// way spec §2's "(separately triggered)" language intends.
const JobFinalizedEvent = "job.finalized"

// Dispatcher is the narrow slice of pkg/dispatch.Dispatcher the engine
// needs, kept as a local interface to avoid a dependency cycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, workerID, jobID, jobKey string, payload map[string]interface{}, clientUserID, actorType, actorID string, sink eventlog.Sink) (map[string]interface{}, error)
}

// Pool runs a configurable number of workers, each looping claim ->
// dispatch -> finalize against the shared store, per §4.4/§5.
type Pool struct {
	store      Store
	dispatcher Dispatcher
	policy     RetryPolicy
	pollEvery  time.Duration
	logger     *slog.Logger
	bus        *events.Bus

	stop chan struct{}
}

// NewPool creates a worker pool. An idle worker checks ClaimNextJob
// once every pollEvery, which NewPool sets to one second.
func NewPool(store Store, dispatcher Dispatcher, policy RetryPolicy, logger *slog.Logger) *Pool {
	return &Pool{
		store:      store,
		dispatcher: dispatcher,
		policy:     policy,
		pollEvery:  time.Second,
		logger:     logger,
		stop:       make(chan struct{}),
	}
}

// SetEventBus wires the bus used to publish job.finalized for C7's
// subscription; optional, nil is a no-op.
func (p *Pool) SetEventBus(bus *events.Bus) {
	p.bus = bus
}

// Start launches workerCount goroutines; they run until ctx is cancelled
// or Stop is called.
func (p *Pool) Start(ctx context.Context, workerCount int) {
	if workerCount <= 0 {
		workerCount = 1
	}
	for i := 0; i < workerCount; i++ {
		go p.runWorker(ctx, fmt.Sprintf("worker-%d", i+1))
	}
}

func (p *Pool) Stop() {
	close(p.stop)
}

func (p *Pool) runWorker(ctx context.Context, workerID string) {
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			job, err := p.store.ClaimNextJob(ctx, workerID, time.Now().UTC())
			if err != nil {
				p.logger.Error("failed to claim job", "worker", workerID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			p.run(ctx, workerID, job)
		}
	}
}

// run executes one claimed job to completion (success, terminal
// failure, or requeue) and applies the deadline and retry rules.
func (p *Pool) run(ctx context.Context, workerID string, job *Job) {
	logger := p.logger.With("worker", workerID, "job_id", job.ID, "job_key", job.JobKey)

	sink := eventlog.NewStoreSink(job.ID, p.store)

	handlerCtx, cancel := context.WithTimeout(ctx, p.policy.MaxWallTime)
	defer cancel()

	cancelPollDone := make(chan struct{})
	go p.watchCancellation(ctx, job.ID, cancel, cancelPollDone)
	defer close(cancelPollDone)

	clientUserID, _ := job.Payload["client_user_id"].(string)

	result, err := p.dispatcher.Dispatch(handlerCtx, workerID, job.ID.String(), job.JobKey, job.Payload, clientUserID, job.ActorType, job.ActorID, sink)

	if handlerCtx.Err() == context.Canceled {
		p.finalize(ctx, job, StatusCancelled, nil, nil, logger)
		return
	}
	if handlerCtx.Err() == context.DeadlineExceeded {
		err = apierr.New(apierr.DeadlineExceeded, "handler exceeded max_wall_time")
	}

	if err == nil {
		p.finalize(ctx, job, StatusCompleted, result, nil, logger)
		return
	}

	apiErr, _ := apierr.As(err)
	retryable := apiErr != nil && apiErr.Retryable()

	if retryable && job.Attempts < p.policy.MaxAttempts {
		p.emitError(ctx, job.ID, apiErr, logger)
		notBefore := time.Now().Add(p.backoffDelay(job.Attempts))
		if reqErr := p.store.RequeueJob(ctx, job.ID, notBefore); reqErr != nil {
			logger.Warn("requeue lost the race (another worker already finalized)", "error", reqErr)
		}
		return
	}

	msg := err.Error()
	p.finalize(ctx, job, StatusFailed, nil, &msg, logger)
}

// watchCancellation polls cancel_requested on the running job and
// cancels handlerCancel as soon as it observes the flag, implementing
// cooperative cancellation for in-process handlers (§4.4). If the
// handler returns before noticing, its result is discarded by run()
// because handlerCtx.Err() is already Canceled.
func (p *Pool) watchCancellation(ctx context.Context, jobID uuid.UUID, handlerCancel context.CancelFunc, done <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := p.store.GetJob(ctx, jobID)
			if err != nil || job == nil {
				continue
			}
			if job.CancelRequested {
				handlerCancel()
				return
			}
		}
	}
}

func (p *Pool) finalize(ctx context.Context, job *Job, status Status, result map[string]interface{}, lastError *string, logger *slog.Logger) {
	if err := p.store.FinalizeJob(ctx, job.ID, status, result, lastError); err != nil {
		logger.Warn("finalize lost the race (another worker already finalized)", "error", err)
		return
	}
	if _, err := p.store.AppendEvent(ctx, job.ID, EventJobFinalized, map[string]interface{}{
		"outcome": status,
	}); err != nil {
		logger.Error("failed to append job_finalized event", "error", err)
	}

	if p.bus != nil {
		if err := p.bus.Publish(ctx, JobFinalizedEvent, map[string]interface{}{
			"job_id": job.ID.String(),
			"status": string(status),
		}); err != nil {
			logger.Error("failed to publish job.finalized", "error", err)
		}
	}
}

func (p *Pool) emitError(ctx context.Context, jobID uuid.UUID, apiErr *apierr.Error, logger *slog.Logger) {
	if _, err := p.store.AppendEvent(ctx, jobID, EventError, map[string]interface{}{
		"category": string(apiErr.Category),
		"message":  apiErr.Message,
	}); err != nil {
		logger.Error("failed to append error event", "error", err)
	}
}

// backoffDelay computes an exponential-with-full-jitter delay for the
// given attempt count, base 1s, cap 30s, using cenkalti/backoff's
// exponential curve for the base computation and rand for the jitter.
func (p *Pool) backoffDelay(attempts int) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.policy.BaseDelay
	eb.MaxInterval = p.policy.MaxDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0

	delay := p.policy.BaseDelay
	for i := 0; i < attempts; i++ {
		delay = eb.NextBackOff()
		if delay > p.policy.MaxDelay || delay == backoff.Stop {
			delay = p.policy.MaxDelay
			break
		}
	}

	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)))
}
