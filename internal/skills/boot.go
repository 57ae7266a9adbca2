// Package skills runs the one piece of the skills/*/ contract that is
// in-core: executing each skill directory's setup.sh at boot. Everything
// else about a skill (its markdown guidance, any bridge process it talks
// to) is an external collaborator per spec.md §1 and has no code here.
package skills

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/lucentsys/agentspace/internal/workspace"
)

// SetupTimeout bounds each skill's setup.sh, so one hung script can't stall
// boot indefinitely.
var SetupTimeout = 60 * time.Second

// Result records one skill's setup.sh outcome.
type Result struct {
	Skill    string
	Ran      bool
	ExitCode int
	Output   string
	Err      error
}

// RunSetupScripts runs skills/<name>/setup.sh for every skill directory
// that has one, in lexical order, and returns one Result per script run. A
// setup.sh failure is recorded, not fatal: boot continues so a broken skill
// doesn't take the whole agent down.
func RunSetupScripts(ctx context.Context, ws *workspace.Workspace, logger *slog.Logger) []Result {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "skills")

	entries, err := os.ReadDir(ws.SkillsDir())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("read skills dir failed", "err", err)
		}
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var results []Result
	for _, name := range names {
		setupPath := filepath.Join(ws.SkillsDir(), name, "setup.sh")
		if _, err := os.Stat(setupPath); err != nil {
			continue
		}
		results = append(results, runOne(ctx, name, setupPath, logger))
	}
	return results
}

func runOne(ctx context.Context, name, setupPath string, logger *slog.Logger) Result {
	runCtx, cancel := context.WithTimeout(ctx, SetupTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", setupPath)
	cmd.Dir = filepath.Dir(setupPath)
	output, err := cmd.CombinedOutput()

	result := Result{Skill: name, Ran: true, Output: string(output)}
	if err != nil {
		result.Err = fmt.Errorf("skill %s setup.sh: %w", name, err)
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		logger.Error("skill setup failed", "skill", name, "err", err, "output", result.Output)
	} else {
		logger.Info("skill setup ok", "skill", name)
	}
	return result
}
