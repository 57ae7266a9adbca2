package toolrt

import (
	"encoding/json"

	"github.com/lucentsys/agentspace/internal/scripts"
)

// BuiltinToolDefs returns the descriptors for the tools the executor
// implements itself (think, reply, wait_for, bash, bash_kill), for
// advertising to the provider alongside whatever user tool modules a
// round's Registry describes. These are never looked up in a Registry:
// Executor.execute dispatches them before falling through to user tools.
func BuiltinToolDefs() []scripts.ToolDescriptor {
	return []scripts.ToolDescriptor{
		{
			Name:        toolThink,
			Description: "Record a private thought. Has no side effect beyond being logged.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"thought":{"type":"string"}},"required":["thought"]}`),
		},
		{
			Name:        toolReply,
			Description: "Send a reply to a source. Delivered via routes.json if the source prefix matches a route, otherwise written to the outbox.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"source":{"type":"string"},"content":{"type":"string"}},"required":["source","content"]}`),
		},
		{
			Name:        toolWaitFor,
			Description: "Request that the executor enter the wait state after this round completes, blocking until new messages arrive.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
		{
			Name: toolBash,
			Description: "Run a shell command. Commands completing within 5s return their output inline (truncated past 100 lines); " +
				"slower commands or async:true run in the background, returning a job id whose output streams to a file.",
			Parameters: json.RawMessage(`{"type":"object","properties":{"command":{"type":"string"},"async":{"type":"boolean"}},"required":["command"]}`),
		},
		{
			Name:        toolBashKill,
			Description: "Terminate a background bash job by id (graceful, force-killed after 2s if still alive).",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		},
	}
}
