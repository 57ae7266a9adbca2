package executor

// Error sources recognized by the executor loop's repair protocol, per
// spec.md §7. "tool" errors never reach here: they are isolated inside
// toolrt and surfaced as an "ERROR: " tool-message instead.
const (
	SourceScriptLoad = "script_load"
	SourceLLMCall    = "llm_call"
	SourceUnknown    = "unknown"
)
