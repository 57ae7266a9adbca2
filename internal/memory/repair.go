package memory

import "github.com/lucentsys/agentspace/internal/models"

// RepairToolPairs drops orphaned and duplicate tool messages, and inserts a
// synthetic tool message for any assistant tool call left without a
// matching result, per spec.md §4.6 step 3. It is run after any structural
// edit (compaction, manual context surgery) that may leave pairings broken.
func RepairToolPairs(messages []models.Message) []models.Message {
	expected := make(map[string]bool)
	for _, m := range messages {
		if m.Role != models.RoleAssistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			expected[tc.ID] = true
		}
	}

	seen := make(map[string]bool, len(expected))
	out := make([]models.Message, 0, len(messages))

	for _, m := range messages {
		if m.Role != models.RoleTool {
			out = append(out, m)
			continue
		}
		if !expected[m.ToolCallID] || seen[m.ToolCallID] {
			continue // orphan or duplicate
		}
		seen[m.ToolCallID] = true
		out = append(out, m)
	}

	return insertMissingResults(out, seen)
}

// insertMissingResults walks the repaired transcript and, immediately after
// each assistant tool call left unanswered, synthesizes a placeholder tool
// message so every call still has exactly one matching result.
func insertMissingResults(messages []models.Message, seen map[string]bool) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, m)
		if m.Role != models.RoleAssistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			if seen[tc.ID] {
				continue
			}
			out = append(out, models.Message{
				Role:       models.RoleTool,
				Content:    "[Result cleared during context compaction]",
				ToolCallID: tc.ID,
				Timestamp:  m.Timestamp,
			})
			seen[tc.ID] = true
		}
	}
	return out
}
