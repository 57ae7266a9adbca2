package memory

import (
	"strings"
	"testing"

	"github.com/lucentsys/agentspace/internal/models"
)

func makeToolMsg(id string, content string) models.Message {
	return models.Message{Role: models.RoleTool, ToolCallID: id, Content: content}
}

func TestPruneNoOpBelowThreshold(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}
	out := Prune(messages)
	if len(out) != len(messages) || out[1].Content != "hello" {
		t.Fatalf("expected no-op below threshold, got %+v", out)
	}
}

func TestPruneSoftTrimsOldToolResults(t *testing.T) {
	big := strings.Repeat("x", SoftTrimMaxChars+500)
	pad := strings.Repeat("y", SoftTrimThreshold) // push total over soft threshold

	messages := []models.Message{
		{Role: models.RoleUser, Content: pad},
		makeToolMsg("t1", big),
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleAssistant, Content: "a2"},
		{Role: models.RoleAssistant, Content: "a3"},
	}

	out := Prune(messages)
	if out[1].Content == big {
		t.Fatal("expected old tool result to be soft-trimmed")
	}
	if !strings.Contains(out[1].Content, "trimmed") {
		t.Fatalf("expected trim banner, got %q", out[1].Content)
	}
}

func TestPruneLeavesRecentToolResultsUntouched(t *testing.T) {
	pad := strings.Repeat("y", SoftTrimThreshold)
	recent := strings.Repeat("z", SoftTrimMaxChars+500)

	messages := []models.Message{
		{Role: models.RoleUser, Content: pad},
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleAssistant, Content: "a2"},
		{Role: models.RoleAssistant, Content: "a3"},
		makeToolMsg("t1", recent),
	}

	out := Prune(messages)
	if out[4].Content != recent {
		t.Fatalf("expected tool result at/after cutoff to be untouched, got trimmed")
	}
}

func TestPruneHardClearsPastHardThreshold(t *testing.T) {
	pad := strings.Repeat("y", HardClearThreshold)
	small := strings.Repeat("x", HardClearMinChars+10)

	messages := []models.Message{
		{Role: models.RoleUser, Content: pad},
		makeToolMsg("t1", small),
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleAssistant, Content: "a2"},
		{Role: models.RoleAssistant, Content: "a3"},
	}

	out := Prune(messages)
	if out[1].Content != HardClearPlaceholder {
		t.Fatalf("expected hard-clear placeholder, got %q", out[1].Content)
	}
}

func TestPruneFewerThanKeepLastAssistantsDisablesPruning(t *testing.T) {
	pad := strings.Repeat("y", SoftTrimThreshold)
	big := strings.Repeat("x", SoftTrimMaxChars+500)

	messages := []models.Message{
		{Role: models.RoleUser, Content: pad},
		makeToolMsg("t1", big),
		{Role: models.RoleAssistant, Content: "only one"},
	}

	out := Prune(messages)
	if out[1].Content != big {
		t.Fatal("expected pruning disabled when fewer than KeepLastAssistants assistant messages exist")
	}
}
