package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucentsys/agentspace/internal/models"
	"github.com/lucentsys/agentspace/internal/scripts"
	"github.com/lucentsys/agentspace/internal/workspace"
)

func writeProbeScript(t *testing.T, path string) {
	t.Helper()
	body := "#!/bin/sh\ncat <<'EOF'\n{\"content\":\"ok\"}\nEOF\n"
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func newHealthyWorkspace(t *testing.T) (*workspace.Workspace, *scripts.Loader) {
	t.Helper()
	dir := t.TempDir()
	ws := workspace.New(dir)

	state := &models.AgentState{Provider: "echo", SystemPrompt: "be helpful", Role: workspace.RoleWorker}
	if err := ws.SaveState(state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	os.MkdirAll(ws.ProvidersDir(), 0o755)
	os.MkdirAll(ws.ToolsDir(), 0o755)
	writeProbeScript(t, filepath.Join(ws.ProvidersDir(), "echo.sh"))

	loader := scripts.NewLoader(ws.ProvidersDir(), ws.ToolsDir())
	return ws, loader
}

func TestRunHealthyWorkspace(t *testing.T) {
	ws, loader := newHealthyWorkspace(t)

	report := Run(context.Background(), ws, loader)
	if !report.OK() {
		t.Fatalf("expected healthy report, got %+v", report.Findings)
	}
}

func TestRunMissingAgentState(t *testing.T) {
	dir := t.TempDir()
	ws := workspace.New(dir)
	loader := scripts.NewLoader(ws.ProvidersDir(), ws.ToolsDir())

	report := Run(context.Background(), ws, loader)
	if report.OK() {
		t.Fatal("expected an error finding for missing agent.json")
	}
}

func TestRunFlagsUnconsumedRepairSignal(t *testing.T) {
	ws, loader := newHealthyWorkspace(t)
	if err := ws.WriteRepairSignal(); err != nil {
		t.Fatalf("WriteRepairSignal: %v", err)
	}

	report := Run(context.Background(), ws, loader)
	found := false
	for _, f := range report.Findings {
		if f.Check == ".repair-signal" && f.Severity == SeverityWarn {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warn finding for .repair-signal, got %+v", report.Findings)
	}
}
