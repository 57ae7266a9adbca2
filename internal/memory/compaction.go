package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucentsys/agentspace/internal/models"
	"github.com/lucentsys/agentspace/internal/scripts"
)

// CompactionChunkChars bounds each summarization call's input, per spec.md
// §4.6 step 2. Var, not const, so RuntimeConfig can override it.
var CompactionChunkChars = 30_000

const summarizerSystemPrompt = "You are summarizing part of an agent's conversation history so it can " +
	"be discarded from the active context. Write a concise summary covering what happened: " +
	"user requests, decisions made, tool calls and their outcomes, and any unresolved threads. " +
	"Do not add commentary; output only the summary."

// Summarizer is the narrow interface compaction needs from a loaded
// provider: *scripts.Provider satisfies it directly.
type Summarizer interface {
	Chat(ctx context.Context, messages []models.Message, tools []scripts.ToolDescriptor, model string) (*models.ProviderResponse, error)
}

// ShouldCompact reports whether the pruned context has crossed
// CompactionThreshold.
func ShouldCompact(messages []models.Message) bool {
	return EstimateChars(messages) >= CompactionThreshold
}

// Compact summarizes the oldest portion of messages via provider, appends
// the summary to memory/summary.md (via appendSummary), and returns the
// replacement context: a single summary message followed by the untouched
// tail. Per spec.md §4.6 step 2, the split index targets the last
// one-third of messages, then walks forward to the next user message so
// tool call/result pairs are never split.
func Compact(ctx context.Context, messages []models.Message, provider Summarizer, model string, appendSummary func(string) error) ([]models.Message, error) {
	split := splitIndex(messages)
	if split <= 0 {
		return messages, nil
	}

	head := messages[:split]
	tail := messages[split:]

	summary, err := summarizeChunked(ctx, head, provider, model)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	if appendSummary != nil {
		if err := appendSummary(summary); err != nil {
			return nil, fmt.Errorf("append summary: %w", err)
		}
	}

	replacement := models.Message{
		Role:    models.RoleUser,
		Content: "[Previous context summary]\n" + summary,
	}

	out := make([]models.Message, 0, len(tail)+1)
	out = append(out, replacement)
	out = append(out, tail...)
	return RepairToolPairs(out), nil
}

// splitIndex targets the last one-third of messages, then walks forward to
// the next user message boundary so no tool call/result pair is split
// across the summarized/kept divide.
func splitIndex(messages []models.Message) int {
	n := len(messages)
	if n == 0 {
		return 0
	}
	target := n - n/3
	for i := target; i < n; i++ {
		if messages[i].Role == models.RoleUser {
			return i
		}
	}
	return n
}

// summarizeChunked splits messages into CompactionChunkChars-sized chunks,
// summarizes each independently with a fixed summarizer system prompt, and
// concatenates the partial summaries.
func summarizeChunked(ctx context.Context, messages []models.Message, provider Summarizer, model string) (string, error) {
	chunks := chunkByChars(messages, CompactionChunkChars)

	var parts []string
	for _, chunk := range chunks {
		req := []models.Message{
			{Role: models.RoleSystem, Content: summarizerSystemPrompt},
			{Role: models.RoleUser, Content: renderChunk(chunk)},
		}
		resp, err := provider.Chat(ctx, req, nil, model)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(resp.Content))
	}
	return strings.Join(parts, "\n\n"), nil
}

// chunkByChars groups messages into runs whose combined rendered length
// stays under maxChars, without splitting a single message.
func chunkByChars(messages []models.Message, maxChars int) [][]models.Message {
	if len(messages) == 0 {
		return nil
	}

	var chunks [][]models.Message
	var current []models.Message
	currentChars := 0

	for _, m := range messages {
		mChars := len(renderMessage(m))
		if currentChars > 0 && currentChars+mChars > maxChars {
			chunks = append(chunks, current)
			current = nil
			currentChars = 0
		}
		current = append(current, m)
		currentChars += mChars
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

func renderChunk(messages []models.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(renderMessage(m))
	}
	return sb.String()
}

func renderMessage(m models.Message) string {
	var sb strings.Builder
	sb.WriteString("[" + string(m.Role) + "] ")
	sb.WriteString(m.Content)
	for _, tc := range m.ToolCalls {
		sb.WriteString("\n  (called " + tc.Name + ")")
	}
	sb.WriteString("\n")
	return sb.String()
}
