package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkjar/crew-orchestrator/pkg/eventlog"
)

func noopHandler(name string) HandlerFunc {
	return HandlerFunc{
		Meta: Metadata{Name: name, Version: "1"},
		Fn: func(ctx context.Context, payload map[string]interface{}, sink eventlog.Sink) (map[string]interface{}, error) {
			return map[string]interface{}{"ok": true}, nil
		},
	}
}

func TestRegistryLookupMiss(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("hello_crew")
	assert.False(t, ok)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	h := noopHandler("hello_crew")
	r.Register("hello_crew", h)

	got, ok := r.Lookup("hello_crew")
	require.True(t, ok)
	assert.Equal(t, "hello_crew", got.Metadata().Name)
}

func TestRegistryRegisterReplacesExisting(t *testing.T) {
	r := NewRegistry()
	r.Register("hello_crew", noopHandler("hello_crew"))
	r.Register("hello_crew", noopHandler("hello_crew_v2"))

	got, ok := r.Lookup("hello_crew")
	require.True(t, ok)
	assert.Equal(t, "hello_crew_v2", got.Metadata().Name)
}

func TestRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("hello_crew", noopHandler("hello_crew"))

	assert.Panics(t, func() {
		r.MustRegister("hello_crew", noopHandler("hello_crew_again"))
	})
}
