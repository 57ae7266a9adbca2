package workspace

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucentsys/agentspace/internal/models"
)

// Role names recognized by role templating.
const (
	RoleRoot   = "root"
	RoleWorker = "worker"
)

// RoleTemplate describes the on-disk layout of one role template directory
// (either "_base" or a role name) under a templates root.
type RoleTemplate struct {
	// TemplatesRoot holds "_base/" and "<role>/" subdirectories, each
	// optionally containing scripts/, skills/, and prompt.md.
	TemplatesRoot string
}

// InitResult reports what InitWorkspace created.
type InitResult struct {
	Created []string
}

// InitWorkspace creates a fresh workspace at w.Root by layering the shared
// _base template then the role template, then generating agent.json with
// the given provider and base system prompt. It does nothing destructive if
// agent.json already exists.
func (w *Workspace) InitWorkspace(tpl RoleTemplate, role, provider, systemPrompt string) (InitResult, error) {
	result := InitResult{}

	if _, err := os.Stat(w.path("agent.json")); err == nil {
		return result, fmt.Errorf("workspace already initialized: agent.json exists")
	}

	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return result, fmt.Errorf("create workspace root: %w", err)
	}

	for _, layer := range []string{"_base", role} {
		src := filepath.Join(tpl.TemplatesRoot, layer)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		created, err := copyTree(src, w.Root)
		if err != nil {
			return result, fmt.Errorf("layer %s: %w", layer, err)
		}
		result.Created = append(result.Created, created...)
	}

	for _, dir := range []string{"memory", "history", "outbox", ".tool-output"} {
		if err := os.MkdirAll(w.path(dir), 0o755); err != nil {
			return result, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	state := &models.AgentState{
		Provider:     provider,
		Round:        0,
		SystemPrompt: systemPrompt,
		Role:         role,
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return result, fmt.Errorf("marshal agent.json: %w", err)
	}
	if err := writeFileAtomic(w.path("agent.json"), data); err != nil {
		return result, fmt.Errorf("write agent.json: %w", err)
	}
	result.Created = append(result.Created, w.path("agent.json"))

	return result, nil
}

// ResetToWorker clears inherited root state: blanks context, sets role to
// worker and round to 0, overwrites prompt.md with the worker prompt, wipes
// skills/ and re-layers _base + worker skills, and deletes history/round-*.
func (w *Workspace) ResetToWorker(tpl RoleTemplate, workerPrompt string) error {
	if err := w.SaveContext(nil); err != nil {
		return fmt.Errorf("clear context: %w", err)
	}

	state, err := w.LoadState()
	if err != nil {
		return fmt.Errorf("load agent.json: %w", err)
	}
	state.Role = RoleWorker
	state.Round = 0
	if err := w.SaveState(state); err != nil {
		return fmt.Errorf("save agent.json: %w", err)
	}

	if err := w.SavePrompt(workerPrompt); err != nil {
		return fmt.Errorf("overwrite prompt.md: %w", err)
	}

	if err := os.RemoveAll(w.SkillsDir()); err != nil {
		return fmt.Errorf("wipe skills: %w", err)
	}
	for _, layer := range []string{"_base", RoleWorker} {
		src := filepath.Join(tpl.TemplatesRoot, layer, "skills")
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if _, err := copyTree(src, w.SkillsDir()); err != nil {
			return fmt.Errorf("re-layer skills from %s: %w", layer, err)
		}
	}

	if err := w.WipeHistory(); err != nil {
		return fmt.Errorf("wipe history: %w", err)
	}
	return nil
}

// HasInheritedRootState detects whether a worker process has inherited
// artefacts from a root role: a [system:boot] message in context, role ==
// root in agent.json, or round > 0 with an effectively empty context.
func HasInheritedRootState(state *models.AgentState, context []models.Message) bool {
	if state.Role == RoleRoot {
		return true
	}
	for _, m := range context {
		if m.Role == models.RoleUser && strings.Contains(m.Content, "[system:boot]") {
			return true
		}
	}
	if state.Round > 0 && len(context) == 0 {
		return true
	}
	return false
}

// isScriptPath reports whether rel (relative to a template layer root) is a
// provider or tool script. internal/scripts/transport.go execs these files
// directly with no shell wrapper, so they need the exec bit regardless of
// extension, unlike the rest of a template tree.
func isScriptPath(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 3 || parts[0] != "scripts" {
		return false
	}
	return parts[1] == "providers" || parts[1] == "tools"
}

func copyTree(src, dst string) ([]string, error) {
	var created []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		mode := os.FileMode(0o644)
		if strings.HasSuffix(path, ".sh") || isScriptPath(rel) {
			mode = 0o755
		}
		if err := os.WriteFile(target, data, mode); err != nil {
			return err
		}
		created = append(created, target)
		return nil
	})
	return created, err
}
