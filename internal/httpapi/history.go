package httpapi

import (
	"github.com/lucentsys/agentspace/internal/models"
)

const (
	userPreviewMax      = 120
	assistantPreviewMax = 200
)

// callSummary is one entry of a historySummary's ToolCalls: the call name
// plus a truncated rendering of its arguments.
type callSummary struct {
	Name        string `json:"name"`
	ArgsSummary string `json:"argsSummary"`
}

// historySummary is the per-round shape returned by GET /history, per
// spec.md §4.8: everything needed to browse rounds without fetching each
// full record.
type historySummary struct {
	Round           int            `json:"round"`
	Timestamp       string         `json:"timestamp"`
	Provider        string         `json:"provider"`
	Model           string         `json:"model,omitempty"`
	MessageCount    int            `json:"messageCount"`
	ToolCallCount   int            `json:"toolCallCount"`
	ToolNames       []string       `json:"toolNames"`
	ToolCalls       []callSummary  `json:"toolCalls"`
	UserPreview     string         `json:"userPreview,omitempty"`
	AssistantPreview string        `json:"assistantPreview,omitempty"`
	Usage           *models.Usage  `json:"usage,omitempty"`
}

func summarizeRound(rec models.HistoryRound) historySummary {
	names := make([]string, 0, len(rec.Response.ToolCalls))
	seen := make(map[string]bool, len(rec.Response.ToolCalls))
	calls := make([]callSummary, 0, len(rec.Response.ToolCalls))
	for _, tc := range rec.Response.ToolCalls {
		if !seen[tc.Name] {
			seen[tc.Name] = true
			names = append(names, tc.Name)
		}
		calls = append(calls, callSummary{Name: tc.Name, ArgsSummary: truncate(string(tc.Args), 120)})
	}

	var userPreview string
	for _, m := range rec.Messages {
		if m.Role == models.RoleUser {
			userPreview = truncate(m.Content, userPreviewMax)
			break
		}
	}

	return historySummary{
		Round:            rec.Round,
		Timestamp:        rec.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Provider:         rec.Provider,
		Model:            rec.Model,
		MessageCount:     len(rec.Messages),
		ToolCallCount:    len(rec.Response.ToolCalls),
		ToolNames:        names,
		ToolCalls:        calls,
		UserPreview:      userPreview,
		AssistantPreview: truncate(rec.Response.Content, assistantPreviewMax),
		Usage:            rec.Response.Usage,
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
