package genconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkjar/crew-orchestrator/internal/modules/schemas/types"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/eventlog"
)

type fakeSchemaReader struct {
	descriptor *types.SchemaDescriptor
}

func (f fakeSchemaReader) GetByName(ctx context.Context, name string) (*types.SchemaDescriptor, error) {
	return f.descriptor, nil
}

func TestExecuteReplaysConfiguredSteps(t *testing.T) {
	h := New(fakeSchemaReader{descriptor: &types.SchemaDescriptor{
		Name:       "blog_post_crew",
		ObjectType: types.ObjectTypeGenCrew,
		Schema: map[string]interface{}{
			"steps": []interface{}{
				map[string]interface{}{"agent": "writer"},
				map[string]interface{}{"agent": "editor"},
			},
		},
	}})
	sink := &eventlog.BufferedSink{}

	result, err := h.Execute(context.Background(), map[string]interface{}{"job_key": "blog_post_crew"}, sink)
	require.NoError(t, err)
	assert.Equal(t, 2, result["step_count"])

	require.Len(t, sink.Events, 1)
	assert.Equal(t, engine.EventCrewExecutionLogs, sink.Events[0].EventType)

	logs, ok := sink.Events[0].Data["logs"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, logs, 3)
	assert.Equal(t, string(engine.EventCrewConfig), logs[0]["event_type"])
	assert.Equal(t, string(engine.EventAgentStep), logs[1]["event_type"])
	assert.Equal(t, string(engine.EventAgentStep), logs[2]["event_type"])
}

func TestExecuteRejectsMissingJobKey(t *testing.T) {
	h := New(fakeSchemaReader{})
	_, err := h.Execute(context.Background(), map[string]interface{}{}, nil)
	assert.Error(t, err)
}

func TestExecuteRejectsUnknownSchema(t *testing.T) {
	h := New(fakeSchemaReader{descriptor: nil})
	_, err := h.Execute(context.Background(), map[string]interface{}{"job_key": "missing_crew"}, nil)
	assert.Error(t, err)
}

func TestMetadataReportsGenCrewKey(t *testing.T) {
	h := New(fakeSchemaReader{})
	meta := h.Metadata()
	assert.Equal(t, "gen_crew", meta.Name)
}
