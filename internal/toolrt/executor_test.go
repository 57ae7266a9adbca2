package toolrt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/lucentsys/agentspace/internal/models"
)

type mockReplier struct {
	destination string
	err         error
}

func (m *mockReplier) Reply(ctx context.Context, source, content string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.destination, nil
}

type mockModule struct {
	result string
	action string
	err    error
	delay  time.Duration
}

func (m *mockModule) Execute(ctx context.Context, args json.RawMessage) (string, string, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	return m.result, m.action, m.err
}

func TestExecuteAllBuiltins(t *testing.T) {
	e := &Executor{registry: &Registry{}, replier: &mockReplier{destination: "outbox"}}

	calls := []models.ToolCall{
		{ID: "1", Name: "think", Args: json.RawMessage(`{"thought":"hmm"}`)},
		{ID: "2", Name: "reply", Args: json.RawMessage(`{"source":"test:1","content":"hi"}`)},
		{ID: "3", Name: "wait_for", Args: json.RawMessage(`{}`)},
	}

	out := e.ExecuteAll(context.Background(), calls)
	if len(out.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out.Results))
	}
	if out.Results[0].ToolCallID != "1" || out.Results[0].Content != "OK" {
		t.Fatalf("unexpected think result: %+v", out.Results[0])
	}
	if out.Results[1].ToolCallID != "2" || out.Results[1].Content != "delivered via outbox" {
		t.Fatalf("unexpected reply result: %+v", out.Results[1])
	}
	if !out.ShouldWait {
		t.Fatal("expected ShouldWait after wait_for")
	}
	// order preserved despite concurrent dispatch
	for i, r := range out.Results {
		want := fmt.Sprintf("%d", i+1)
		if r.ToolCallID != want {
			t.Fatalf("result order broken: index %d has id %s", i, r.ToolCallID)
		}
	}
}

func TestUnknownToolReturnsError(t *testing.T) {
	e := &Executor{registry: &Registry{}, replier: &mockReplier{}}
	out := e.ExecuteAll(context.Background(), []models.ToolCall{{ID: "1", Name: "nope"}})
	if !out.Results[0].IsError {
		t.Fatal("expected error result for unknown tool")
	}
}

func TestReplyFailureSurfacedAsError(t *testing.T) {
	e := &Executor{registry: &Registry{}, replier: &mockReplier{err: fmt.Errorf("boom")}}
	out := e.ExecuteAll(context.Background(), []models.ToolCall{
		{ID: "1", Name: "reply", Args: json.RawMessage(`{"source":"s","content":"c"}`)},
	})
	if !out.Results[0].IsError {
		t.Fatal("expected error result")
	}
}

func TestUserToolTimeout(t *testing.T) {
	e := &Executor{registry: &Registry{}, replier: &mockReplier{}}
	mod := &mockModule{delay: 2 * ToolTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := e.executeUserTool(ctx, models.ToolCall{ID: "1", Name: "slow"}, mod)
	if !res.IsError {
		t.Fatalf("expected timeout error, got %+v", res)
	}
}

func TestUserToolWaitAction(t *testing.T) {
	e := &Executor{registry: &Registry{}, replier: &mockReplier{}}
	mod := &mockModule{result: "done", action: "wait"}
	res := e.executeUserTool(context.Background(), models.ToolCall{ID: "1"}, mod)
	if !res.ShouldWait {
		t.Fatal("expected ShouldWait from action:wait")
	}
}
