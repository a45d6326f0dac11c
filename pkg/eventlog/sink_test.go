package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
)

func TestStoreSinkEmitSuccess(t *testing.T) {
	jobID := uuid.New()
	var gotJobID uuid.UUID
	var gotType engine.EventType
	var gotData map[string]interface{}

	sink := &StoreSink{
		jobID: jobID,
		append: func(ctx context.Context, id uuid.UUID, eventType engine.EventType, data map[string]interface{}) (int64, error) {
			gotJobID = id
			gotType = eventType
			gotData = data
			return 1, nil
		},
		deadline: DefaultEmitDeadline,
	}

	err := sink.Emit(context.Background(), engine.EventCrewMessage, map[string]interface{}{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, jobID, gotJobID)
	assert.Equal(t, engine.EventCrewMessage, gotType)
	assert.Equal(t, "hi", gotData["message"])
}

func TestStoreSinkEmitStoreError(t *testing.T) {
	sink := &StoreSink{
		jobID: uuid.New(),
		append: func(ctx context.Context, id uuid.UUID, eventType engine.EventType, data map[string]interface{}) (int64, error) {
			return 0, errors.New("connection refused")
		},
		deadline: DefaultEmitDeadline,
	}

	err := sink.Emit(context.Background(), engine.EventError, nil)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.StoreUnavailable, apiErr.Category)
}

func TestStoreSinkEmitDeadlineExceeded(t *testing.T) {
	sink := &StoreSink{
		jobID: uuid.New(),
		append: func(ctx context.Context, id uuid.UUID, eventType engine.EventType, data map[string]interface{}) (int64, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
		deadline: 10 * time.Millisecond,
	}

	err := sink.Emit(context.Background(), engine.EventAgentStep, nil)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.StoreUnavailable, apiErr.Category)
}

func TestBufferedSinkAccumulates(t *testing.T) {
	sink := &BufferedSink{}

	require.NoError(t, sink.Emit(context.Background(), engine.EventTaskComplete, map[string]interface{}{"n": 1}))
	require.NoError(t, sink.Emit(context.Background(), engine.EventCrewMessage, map[string]interface{}{"n": 2}))

	require.Len(t, sink.Events, 2)
	assert.Equal(t, engine.EventTaskComplete, sink.Events[0].EventType)
	assert.Equal(t, engine.EventCrewMessage, sink.Events[1].EventType)
}
