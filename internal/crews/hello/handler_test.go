package hello

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkjar/crew-orchestrator/internal/modules/secrets/repository"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/eventlog"
)

type fakeSecrets struct {
	value string
	err   error
}

func (f fakeSecrets) Get(ctx context.Context, clientID, key string) (string, error) {
	return f.value, f.err
}

func TestExecuteUsesDefaultGreetingWhenNoSecret(t *testing.T) {
	h := New(fakeSecrets{err: repository.ErrNotFound})
	sink := &eventlog.BufferedSink{}

	result, err := h.Execute(context.Background(), map[string]interface{}{"client_user_id": "acme"}, sink)
	require.NoError(t, err)
	assert.Equal(t, "hello, acme", result["message"])
	require.Len(t, sink.Events, 1)
	assert.Equal(t, engine.EventCrewMessage, sink.Events[0].EventType)
	assert.Equal(t, "hello, acme", sink.Events[0].Data["message"])
}

func TestExecuteUsesCustomGreetingTemplate(t *testing.T) {
	h := New(fakeSecrets{value: "howdy, %s!"})
	sink := &eventlog.BufferedSink{}

	result, err := h.Execute(context.Background(), map[string]interface{}{"client_user_id": "acme"}, sink)
	require.NoError(t, err)
	assert.Equal(t, "howdy, acme!", result["message"])
}

func TestExecutePropagatesSecretLookupError(t *testing.T) {
	h := New(fakeSecrets{err: errors.New("db unavailable")})

	_, err := h.Execute(context.Background(), map[string]interface{}{"client_user_id": "acme"}, &eventlog.BufferedSink{})
	require.Error(t, err)
}

func TestExecuteWithNilSecretsUsesDefault(t *testing.T) {
	h := New(nil)

	result, err := h.Execute(context.Background(), map[string]interface{}{"client_user_id": "acme"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello, acme", result["message"])
}

func TestMetadataReportsJobKey(t *testing.T) {
	h := New(nil)
	meta := h.Metadata()
	assert.Equal(t, JobKey, meta.Name)
	assert.Equal(t, "1", meta.Version)
}
