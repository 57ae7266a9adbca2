package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/lucentsys/agentspace/internal/models"
	"github.com/lucentsys/agentspace/internal/scripts"
)

type fakeSummarizer struct {
	calls int
}

func (f *fakeSummarizer) Chat(ctx context.Context, messages []models.Message, tools []scripts.ToolDescriptor, model string) (*models.ProviderResponse, error) {
	f.calls++
	return &models.ProviderResponse{Content: "summary of chunk"}, nil
}

func TestShouldCompactThreshold(t *testing.T) {
	under := []models.Message{{Content: strings.Repeat("x", CompactionThreshold-1)}}
	over := []models.Message{{Content: strings.Repeat("x", CompactionThreshold)}}
	if ShouldCompact(under) {
		t.Fatal("expected no compaction below threshold")
	}
	if !ShouldCompact(over) {
		t.Fatal("expected compaction at/above threshold")
	}
}

func TestCompactReplacesPrefixWithSummary(t *testing.T) {
	var messages []models.Message
	for i := 0; i < 12; i++ {
		messages = append(messages, models.Message{Role: models.RoleUser, Content: "question"})
		messages = append(messages, models.Message{Role: models.RoleAssistant, Content: "answer"})
	}

	var appended string
	summarizer := &fakeSummarizer{}
	out, err := Compact(context.Background(), messages, summarizer, "test-model", func(s string) error {
		appended = s
		return nil
	})
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if summarizer.calls == 0 {
		t.Fatal("expected summarizer to be invoked")
	}
	if appended == "" {
		t.Fatal("expected summary to be appended to memory/summary.md")
	}
	if !strings.HasPrefix(out[0].Content, "[Previous context summary]\n") {
		t.Fatalf("expected replacement message prefix, got %q", out[0].Content)
	}
}

func TestCompactNeverSplitsToolPair(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "do something"},
		{Role: models.RoleAssistant, Content: "", ToolCalls: []models.ToolCall{{ID: "t1", Name: "bash"}}},
		makeToolMsg("t1", "tool output"),
		{Role: models.RoleUser, Content: "ok thanks"},
		{Role: models.RoleAssistant, Content: "done"},
	}

	summarizer := &fakeSummarizer{}
	out, err := Compact(context.Background(), messages, summarizer, "test-model", func(string) error { return nil })
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}

	for i, m := range out {
		if m.Role == models.RoleTool {
			if i == 0 || out[i-1].Role != models.RoleAssistant {
				t.Fatalf("tool message at %d has no preceding assistant call in replacement context", i)
			}
		}
	}
}

func TestChunkByCharsRespectsLimit(t *testing.T) {
	var messages []models.Message
	for i := 0; i < 5; i++ {
		messages = append(messages, models.Message{Role: models.RoleUser, Content: strings.Repeat("a", 100)})
	}
	chunks := chunkByChars(messages, 250)
	if len(chunks) < 2 {
		t.Fatalf("expected messages split across multiple chunks, got %d", len(chunks))
	}
}
