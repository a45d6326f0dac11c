package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkjar/crew-orchestrator/pkg/engine"
)

func TestEventTextOrdersImportantKeysFirst(t *testing.T) {
	event := engine.JobEvent{
		EventType: engine.EventAgentStep,
		EventTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		EventData: map[string]interface{}{
			"tool_name": "search",
			"thought":   "I should look this up",
			"action":    "call search tool",
		},
	}

	text := eventText(event)
	lines := strings.Split(text, "\n")

	require.Len(t, lines, 5)
	assert.Equal(t, "Event Type: agent_step", lines[0])
	assert.Equal(t, "Time: 2026-01-02T03:04:05Z", lines[1])
	assert.Equal(t, "thought: I should look this up", lines[2])
	assert.Equal(t, "action: call search tool", lines[3])
	assert.Equal(t, "tool_name: search", lines[4])
}

func TestOrderedKeysSortsNonPriorityKeysAlphabetically(t *testing.T) {
	data := map[string]interface{}{
		"zebra":   1,
		"apple":   2,
		"message": "hi",
	}
	keys := orderedKeys(data)
	assert.Equal(t, []string{"message", "apple", "zebra"}, keys)
}

func TestChunkTextShortTextIsOneChunk(t *testing.T) {
	text := "a short event description"
	chunks := chunkText(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[0].End)
}

func TestChunkTextSplitsLongTextWithOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString("word ")
	}
	text := b.String()
	require.Greater(t, len(text), maxChunkSize)

	chunks := chunkText(text)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), maxChunkSize+1, "chunk %d exceeds target size", i)
		assert.Equal(t, text[c.Start:c.End], c.Text)
	}

	// consecutive chunks should overlap, not leave a gap
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].Start, chunks[i-1].End)
	}
}

func TestLastIndexInRangeFindsLastOccurrence(t *testing.T) {
	text := "one two three two one"
	idx := lastIndexInRange(text, "two", 0, len(text))
	assert.Equal(t, strings.LastIndex(text, "two"), idx)

	assert.Equal(t, -1, lastIndexInRange(text, "zzz", 0, len(text)))
	assert.Equal(t, -1, lastIndexInRange(text, "two", 5, 5))
}
