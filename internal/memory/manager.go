package memory

import (
	"context"

	"github.com/lucentsys/agentspace/internal/models"
)

// Manager runs the three memory layers in order against one workspace's
// context. It is deliberately stateless beyond its dependencies: the
// executor loop is responsible for persisting the returned context.
type Manager struct {
	Provider      Summarizer
	Model         string
	AppendSummary func(string) error
}

// NewManager returns a Manager that compacts via provider/model and appends
// compaction summaries via appendSummary (workspace.Workspace.AppendSummary).
func NewManager(provider Summarizer, model string, appendSummary func(string) error) *Manager {
	return &Manager{Provider: provider, Model: model, AppendSummary: appendSummary}
}

// Run applies pruning every round, then compaction if the pruned context
// still exceeds CompactionThreshold, then tool-pair repair to clean up any
// structural edit compaction may have introduced.
func (m *Manager) Run(ctx context.Context, messages []models.Message) ([]models.Message, error) {
	pruned := Prune(messages)

	if !ShouldCompact(pruned) {
		return pruned, nil
	}

	compacted, err := Compact(ctx, pruned, m.Provider, m.Model, m.AppendSummary)
	if err != nil {
		// Compaction is best-effort: the caller falls back to the already
		// pruned transcript rather than losing it entirely.
		return pruned, err
	}
	return compacted, nil
}
