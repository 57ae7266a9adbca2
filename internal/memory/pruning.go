// Package memory implements the three-layer memory manager from spec.md
// §4.6: in-memory pruning, LLM-driven compaction, and tool-pair repair.
package memory

import (
	"strconv"

	"github.com/lucentsys/agentspace/internal/models"
)

// Thresholds, all in characters (~4 chars/token). Var, not const, so
// internal/config's RuntimeConfig can override the spec.md defaults at
// process startup.
var (
	SoftTrimThreshold   = 80_000
	HardClearThreshold  = 120_000
	CompactionThreshold = 160_000

	KeepLastAssistants = 3

	SoftTrimMaxChars = 4_000
	SoftTrimHead     = 1_500
	SoftTrimTail     = 1_500

	HardClearMinChars = 100
)

// HardClearPlaceholder replaces a tool result's content once the hard-clear
// threshold is crossed.
const HardClearPlaceholder = "[Tool result cleared to save context space]"

// EstimateChars approximates the token cost of messages by summing their
// content lengths.
func EstimateChars(messages []models.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total
}

// Prune rewrites tool messages earlier than the cut-off before the last
// KeepLastAssistants assistant messages, per spec.md §4.6 step 1. Below
// SoftTrimThreshold it is a no-op; it never touches messages at or after the
// cut-off, so the most recent exchange is always left untouched.
func Prune(messages []models.Message) []models.Message {
	total := EstimateChars(messages)
	if total < SoftTrimThreshold {
		return messages
	}

	cutoff := cutoffIndex(messages, KeepLastAssistants)
	if cutoff <= 0 {
		return messages
	}

	out := make([]models.Message, len(messages))
	copy(out, messages)

	hardClear := total >= HardClearThreshold
	for i := 0; i < cutoff; i++ {
		if out[i].Role != models.RoleTool {
			continue
		}
		if hardClear {
			out[i].Content = hardClearResult(out[i].Content)
		} else {
			out[i].Content = softTrimResult(out[i].Content)
		}
	}
	return out
}

// cutoffIndex returns the index before which pruning may act: the position
// of the (keepLast)-th-from-last assistant message. If fewer than keepLast
// assistant messages exist, pruning is disabled (returns 0).
func cutoffIndex(messages []models.Message, keepLast int) int {
	remaining := keepLast
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant {
			remaining--
			if remaining == 0 {
				return i
			}
		}
	}
	return 0
}

func softTrimResult(content string) string {
	if len(content) <= SoftTrimMaxChars {
		return content
	}
	head := content[:SoftTrimHead]
	tail := content[len(content)-SoftTrimTail:]
	banner := "\n\n[Tool result trimmed: kept first " + strconv.Itoa(SoftTrimHead) +
		" and last " + strconv.Itoa(SoftTrimTail) + " of " + strconv.Itoa(len(content)) + " chars]"
	return head + "..." + tail + banner
}

func hardClearResult(content string) string {
	if len(content) <= HardClearMinChars {
		return content
	}
	return HardClearPlaceholder
}
