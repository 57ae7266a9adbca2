// Package workspace manages the on-disk state store for one agent: reading
// and writing agent.json, memory/context.json, routes.json, and per-round
// history files, plus workspace creation from role templates.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucentsys/agentspace/internal/models"
)

// Workspace wraps the filesystem root holding one agent's authoritative
// state. All paths are resolved relative to Root.
type Workspace struct {
	Root string
}

// New returns a Workspace rooted at the given absolute or relative path.
func New(root string) *Workspace {
	return &Workspace{Root: root}
}

func (w *Workspace) path(parts ...string) string {
	all := append([]string{w.Root}, parts...)
	return filepath.Join(all...)
}

// LoadState reads agent.json.
func (w *Workspace) LoadState() (*models.AgentState, error) {
	data, err := os.ReadFile(w.path("agent.json"))
	if err != nil {
		return nil, fmt.Errorf("read agent.json: %w", err)
	}
	var state models.AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse agent.json: %w", err)
	}
	return &state, nil
}

// SaveState writes agent.json, pretty-printed.
func (w *Workspace) SaveState(state *models.AgentState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal agent.json: %w", err)
	}
	return writeFileAtomic(w.path("agent.json"), data)
}

// LoadPrompt reads prompt.md. Missing file is not an error; it returns "".
func (w *Workspace) LoadPrompt() (string, error) {
	return readOptional(w.path("prompt.md"))
}

// SavePrompt overwrites prompt.md.
func (w *Workspace) SavePrompt(content string) error {
	return writeFileAtomic(w.path("prompt.md"), []byte(content))
}

// Route is one routes.json entry.
type Route struct {
	URL string `json:"url"`
}

// LoadRoutes reads routes.json. Missing file yields an empty map.
func (w *Workspace) LoadRoutes() (map[string]Route, error) {
	data, err := os.ReadFile(w.path("routes.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Route{}, nil
		}
		return nil, fmt.Errorf("read routes.json: %w", err)
	}
	var routes map[string]Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("parse routes.json: %w", err)
	}
	return routes, nil
}

// LoadContext reads memory/context.json. Missing file yields an empty
// slice.
func (w *Workspace) LoadContext() ([]models.Message, error) {
	data, err := os.ReadFile(w.path("memory", "context.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read context.json: %w", err)
	}
	var messages []models.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("parse context.json: %w", err)
	}
	return messages, nil
}

// SaveContext persists the ordered context immediately (called after
// draining the queue and again after tool results are appended, so that
// valid invariants hold at every suspension point).
func (w *Workspace) SaveContext(messages []models.Message) error {
	if messages == nil {
		messages = []models.Message{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal context.json: %w", err)
	}
	if err := os.MkdirAll(w.path("memory"), 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	return writeFileAtomic(w.path("memory", "context.json"), data)
}

// AppendSummary appends a compaction summary to the append-only
// memory/summary.md log.
func (w *Workspace) AppendSummary(summary string) error {
	if err := os.MkdirAll(w.path("memory"), 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	f, err := os.OpenFile(w.path("memory", "summary.md"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open summary.md: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(summary + "\n\n"); err != nil {
		return fmt.Errorf("append summary.md: %w", err)
	}
	return nil
}

// SaveHistoryRound writes history/round-NNNNN.json, zero-padded to 5
// digits.
func (w *Workspace) SaveHistoryRound(round models.HistoryRound) error {
	if err := os.MkdirAll(w.path("history"), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	data, err := json.MarshalIndent(round, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal round record: %w", err)
	}
	name := fmt.Sprintf("round-%05d.json", round.Round)
	return writeFileAtomic(w.path("history", name), data)
}

// LoadHistoryRound reads a single round record. Returns os.ErrNotExist
// (wrapped) if it doesn't exist.
func (w *Workspace) LoadHistoryRound(round int) (*models.HistoryRound, error) {
	name := fmt.Sprintf("round-%05d.json", round)
	data, err := os.ReadFile(w.path("history", name))
	if err != nil {
		return nil, err
	}
	var rec models.HistoryRound
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &rec, nil
}

// ListHistoryRounds returns the round numbers present under history/,
// ascending.
func (w *Workspace) ListHistoryRounds() ([]int, error) {
	entries, err := os.ReadDir(w.path("history"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history dir: %w", err)
	}
	var rounds []int
	for _, e := range entries {
		var n int
		if _, err := fmt.Sscanf(e.Name(), "round-%05d.json", &n); err == nil {
			rounds = append(rounds, n)
		}
	}
	return rounds, nil
}

// WipeHistory removes all history/round-* files (used by worker reset).
func (w *Workspace) WipeHistory() error {
	rounds, err := w.ListHistoryRounds()
	if err != nil {
		return err
	}
	for _, r := range rounds {
		name := fmt.Sprintf("round-%05d.json", r)
		if err := os.Remove(w.path("history", name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// AppendCrash appends one JSON line to crash.log.
func (w *Workspace) AppendCrash(rec models.CrashRecord) error {
	f, err := os.OpenFile(w.path("crash.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open crash.log: %w", err)
	}
	defer f.Close()
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal crash record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append crash.log: %w", err)
	}
	return nil
}

// LastCrash returns the most recent crash.log entry, if any.
func (w *Workspace) LastCrash() (*models.CrashRecord, error) {
	data, err := os.ReadFile(w.path("crash.log"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read crash.log: %w", err)
	}
	lines := splitNonEmptyLines(data)
	if len(lines) == 0 {
		return nil, nil
	}
	var rec models.CrashRecord
	if err := json.Unmarshal(lines[len(lines)-1], &rec); err != nil {
		return nil, fmt.Errorf("parse last crash record: %w", err)
	}
	return &rec, nil
}

// HasRepairSignal reports whether .repair-signal is present.
func (w *Workspace) HasRepairSignal() bool {
	_, err := os.Stat(w.path(".repair-signal"))
	return err == nil
}

// WriteRepairSignal creates .repair-signal.
func (w *Workspace) WriteRepairSignal() error {
	return os.WriteFile(w.path(".repair-signal"), []byte{}, 0o644)
}

// ConsumeRepairSignal removes .repair-signal if present, reporting whether
// it existed.
func (w *Workspace) ConsumeRepairSignal() (bool, error) {
	err := os.Remove(w.path(".repair-signal"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("remove .repair-signal: %w", err)
	}
	return true, nil
}

// RepairSignalInfo stats .repair-signal, for doctor's staleness check.
func (w *Workspace) RepairSignalInfo() (os.FileInfo, error) {
	return os.Stat(w.path(".repair-signal"))
}

// WriteOutbox persists an OutboxMessage to outbox/<id>.json.
func (w *Workspace) WriteOutbox(msg models.OutboxMessage) error {
	if err := os.MkdirAll(w.path("outbox"), 0o755); err != nil {
		return fmt.Errorf("create outbox dir: %w", err)
	}
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal outbox message: %w", err)
	}
	return writeFileAtomic(w.path("outbox", msg.ID+".json"), data)
}

// OutboxDir returns the outbox/ directory path, for reply.ListOutbox and
// reply.DeleteOutbox.
func (w *Workspace) OutboxDir() string {
	return w.path("outbox")
}

// ToolOutputPath returns the path of a background job's live output file.
func (w *Workspace) ToolOutputPath(jobID string) string {
	return w.path(".tool-output", jobID+".txt")
}

// EnsureToolOutputDir creates the .tool-output directory.
func (w *Workspace) EnsureToolOutputDir() error {
	return os.MkdirAll(w.path(".tool-output"), 0o755)
}

// ProvidersDir and ToolsDir return the script directories.
func (w *Workspace) ProvidersDir() string { return w.path("scripts", "providers") }
func (w *Workspace) ToolsDir() string     { return w.path("scripts", "tools") }
func (w *Workspace) SkillsDir() string    { return w.path("skills") }

// AbsRoot returns the absolute workspace path, used in the system-prompt
// trailer.
func (w *Workspace) AbsRoot() (string, error) {
	return filepath.Abs(w.Root)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

func splitNonEmptyLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
