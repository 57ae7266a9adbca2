package executor

import "fmt"

// buildSystemPrompt assembles the base prompt, the role-specific prompt.md
// fragment (if present), and a trailer naming the workspace's absolute
// path, per spec.md §4.7 step 5. Kept in one place, as spec.md §9's
// "dual-prompt assembly" design note requires, so the base prompt never
// needs role-specific edits for the §4.9 reset path.
func buildSystemPrompt(base, promptMD, workspaceAbsPath string) string {
	out := base
	if promptMD != "" {
		out += "\n\n" + promptMD
	}
	out += fmt.Sprintf("\n\nWorkspace: %s", workspaceAbsPath)
	return out
}
