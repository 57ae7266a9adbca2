package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucentsys/agentspace/internal/workspace"
)

func writeSetup(t *testing.T, ws *workspace.Workspace, skill, body string) {
	t.Helper()
	dir := filepath.Join(ws.SkillsDir(), skill)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "setup.sh"), []byte(body), 0o755); err != nil {
		t.Fatalf("write setup.sh: %v", err)
	}
}

func TestRunSetupScriptsRunsEachSkill(t *testing.T) {
	ws := workspace.New(t.TempDir())
	writeSetup(t, ws, "alpha", "#!/bin/sh\necho alpha-ok\n")
	writeSetup(t, ws, "beta", "#!/bin/sh\necho beta-ok\n")

	results := RunSetupScripts(context.Background(), ws, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].Skill != "alpha" || results[1].Skill != "beta" {
		t.Fatalf("expected lexical order [alpha, beta], got %+v", results)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("skill %s unexpectedly failed: %v (%s)", r.Skill, r.Err, r.Output)
		}
	}
}

func TestRunSetupScriptsSkillWithoutSetupIgnored(t *testing.T) {
	ws := workspace.New(t.TempDir())
	dir := filepath.Join(ws.SkillsDir(), "no-setup")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("# no setup here"), 0o644)

	results := RunSetupScripts(context.Background(), ws, nil)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

func TestRunSetupScriptsRecordsFailure(t *testing.T) {
	ws := workspace.New(t.TempDir())
	writeSetup(t, ws, "broken", "#!/bin/sh\nexit 3\n")

	results := RunSetupScripts(context.Background(), ws, nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %+v", results)
	}
	if results[0].Err == nil {
		t.Fatal("expected an error for exit code 3")
	}
	if results[0].ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", results[0].ExitCode)
	}
}

func TestRunSetupScriptsMissingDir(t *testing.T) {
	ws := workspace.New(t.TempDir())
	results := RunSetupScripts(context.Background(), ws, nil)
	if results != nil {
		t.Fatalf("expected nil results for missing skills dir, got %+v", results)
	}
}
