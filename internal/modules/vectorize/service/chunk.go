package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sparkjar/crew-orchestrator/internal/modules/vectorize/types"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
)

const (
	maxChunkSize = 2000
	chunkOverlap = 200

	jsonSummaryCap = 200
)

// importantKeys get full text; everything else is summarized, ported
// field-for-field from _create_event_text.
var importantKeys = map[string]bool{
	"message":     true,
	"thought":     true,
	"action":      true,
	"observation": true,
	"error":       true,
}

// eventText builds a plain-text representation of one job event in a
// fixed order: type, time, then each event_data key.
func eventText(event engine.JobEvent) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Event Type: %s", event.EventType))
	parts = append(parts, fmt.Sprintf("Time: %s", event.EventTime.Format("2006-01-02T15:04:05Z07:00")))

	for _, key := range orderedKeys(event.EventData) {
		value := event.EventData[key]
		switch v := value.(type) {
		case map[string]interface{}:
			summary, _ := json.Marshal(v)
			truncated := string(summary)
			if len(truncated) > jsonSummaryCap {
				truncated = truncated[:jsonSummaryCap]
			}
			parts = append(parts, fmt.Sprintf("%s: %s...", key, truncated))
		case string, float64, bool, int, int64:
			parts = append(parts, fmt.Sprintf("%s: %v", key, v))
		default:
			if importantKeys[key] {
				parts = append(parts, fmt.Sprintf("%s: %v", key, v))
			}
		}
	}

	return strings.Join(parts, "\n")
}

// orderedKeys gives important keys priority, matching the reading
// order a human reviewing the original event_data dict would expect;
// Go map iteration has no natural order so we impose one deterministically.
func orderedKeys(data map[string]interface{}) []string {
	priority := []string{"message", "thought", "action", "observation", "error"}
	seen := make(map[string]bool, len(data))
	var keys []string
	for _, k := range priority {
		if _, ok := data[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range data {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sortStrings(rest)
	return append(keys, rest...)
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// chunkText splits text into overlapping chunks, preferring a newline
// break within the overlap window, else a space, else a hard cut.
// Ported field-for-field from _chunk_text.
func chunkText(text string) []types.Chunk {
	if len(text) <= maxChunkSize {
		return []types.Chunk{{Text: text, Start: 0, End: len(text)}}
	}

	var chunks []types.Chunk
	start := 0
	for start < len(text) {
		end := start + maxChunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			windowStart := start + chunkOverlap
			if newlinePos := lastIndexInRange(text, "\n", windowStart, end); newlinePos > start {
				end = newlinePos + 1
			} else if spacePos := lastIndexInRange(text, " ", windowStart, end); spacePos > start {
				end = spacePos + 1
			}
		}

		chunks = append(chunks, types.Chunk{Text: text[start:end], Start: start, End: end})
		if end >= len(text) {
			break
		}

		start = end - chunkOverlap
		if start >= len(text) {
			break
		}
	}
	return chunks
}

// lastIndexInRange mirrors Python's str.rfind(sub, start, end): the
// last occurrence of sub within text[start:end], or -1.
func lastIndexInRange(text, sub string, start, end int) int {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return -1
	}
	window := text[start:end]
	idx := strings.LastIndex(window, sub)
	if idx == -1 {
		return -1
	}
	return start + idx
}
