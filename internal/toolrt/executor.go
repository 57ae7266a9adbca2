package toolrt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lucentsys/agentspace/internal/jobs"
	"github.com/lucentsys/agentspace/internal/models"
)

// ToolTimeout bounds a user tool's execute call, per spec.md §4.3. Var, not
// const, so internal/config's RuntimeConfig can override the default.
var ToolTimeout = 30 * time.Second

const (
	toolThink    = "think"
	toolReply    = "reply"
	toolWaitFor  = "wait_for"
	toolBash     = "bash"
	toolBashKill = "bash_kill"
)

// Replier resolves a (source, content) pair to a destination, as implemented
// by internal/reply.Router. Kept as a narrow interface here so toolrt does
// not need the router's HTTP/outbox plumbing.
type Replier interface {
	Reply(ctx context.Context, source, content string) (destination string, err error)
}

// BashRunner is the narrow interface toolrt needs from internal/jobs.Runner.
// bash and bash_kill are core-implemented tools (not subprocess scripts):
// the background job registry they share is in-process Go state, which a
// fresh-exec-per-call subprocess tool could never hold across the bash /
// bash_kill call pair. See spec.md §4.4 / §9.
type BashRunner interface {
	Run(command string, async bool) (jobs.Result, error)
	Kill(jobID string) (outputPath string, err error)
}

// Executor dispatches the tool calls of one assistant turn.
type Executor struct {
	registry *Registry
	replier  Replier
	bash     BashRunner
	logger   *slog.Logger
}

// NewExecutor returns an Executor bound to the given round's tool registry,
// the workspace's reply router, and the process-wide bash job runner.
func NewExecutor(registry *Registry, replier Replier, bash BashRunner, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, replier: replier, bash: bash, logger: logger.With("component", "toolrt")}
}

// Outcome is the result of dispatching one assistant turn's tool calls.
type Outcome struct {
	Results    []models.ToolResult
	ShouldWait bool
}

// ExecuteAll runs every call concurrently and collects results in the
// original call order, per spec.md's deterministic-replay requirement.
func (e *Executor) ExecuteAll(ctx context.Context, calls []models.ToolCall) Outcome {
	if len(calls) == 0 {
		return Outcome{}
	}

	results := make([]models.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c models.ToolCall) {
			defer wg.Done()
			results[idx] = e.execute(ctx, c)
		}(i, call)
	}
	wg.Wait()

	shouldWait := false
	for _, r := range results {
		if r.ShouldWait {
			shouldWait = true
		}
	}
	return Outcome{Results: results, ShouldWait: shouldWait}
}

func (e *Executor) execute(ctx context.Context, call models.ToolCall) models.ToolResult {
	switch call.Name {
	case toolThink:
		return e.think(call)
	case toolReply:
		return e.reply(ctx, call)
	case toolWaitFor:
		return models.ToolResult{ToolCallID: call.ID, Content: "waiting", ShouldWait: true}
	case toolBash:
		return e.bashRun(call)
	case toolBashKill:
		return e.bashKill(call)
	}

	mod, ok := e.registry.Get(call.Name)
	if !ok {
		return models.ToolResult{
			ToolCallID: call.ID,
			Content:    fmt.Sprintf("ERROR: unknown tool %q", call.Name),
			IsError:    true,
		}
	}
	return e.executeUserTool(ctx, call, mod)
}

func (e *Executor) think(call models.ToolCall) models.ToolResult {
	var args struct {
		Thought string `json:"thought"`
	}
	_ = json.Unmarshal(call.Args, &args)
	e.logger.Info("thought", "thought", args.Thought)
	return models.ToolResult{ToolCallID: call.ID, Content: "OK"}
}

func (e *Executor) reply(ctx context.Context, call models.ToolCall) models.ToolResult {
	var args struct {
		Source  string `json:"source"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return models.ToolResult{
			ToolCallID: call.ID,
			Content:    fmt.Sprintf("ERROR: invalid reply args: %v", err),
			IsError:    true,
		}
	}

	destination, err := e.replier.Reply(ctx, args.Source, args.Content)
	if err != nil {
		return models.ToolResult{
			ToolCallID: call.ID,
			Content:    fmt.Sprintf("ERROR: %v", err),
			IsError:    true,
		}
	}
	return models.ToolResult{ToolCallID: call.ID, Content: fmt.Sprintf("delivered via %s", destination)}
}

// toolExecHandle is declared to keep the user-tool execution path testable
// without importing the scripts package into this file's signatures.
type toolExecHandle interface {
	Execute(ctx context.Context, args json.RawMessage) (result string, action string, err error)
}

func (e *Executor) executeUserTool(ctx context.Context, call models.ToolCall, mod toolExecHandle) models.ToolResult {
	execCtx, cancel := context.WithTimeout(ctx, ToolTimeout)
	defer cancel()

	type outcome struct {
		result string
		action string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		result, action, err := mod.Execute(execCtx, call.Args)
		done <- outcome{result: result, action: action, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return models.ToolResult{
				ToolCallID: call.ID,
				Content:    fmt.Sprintf("ERROR: %v", o.err),
				IsError:    true,
			}
		}
		return models.ToolResult{
			ToolCallID: call.ID,
			Content:    o.result,
			ShouldWait: o.action == "wait",
		}
	case <-execCtx.Done():
		return models.ToolResult{
			ToolCallID: call.ID,
			Content:    fmt.Sprintf("ERROR: Tool %q timed out after %dms", call.Name, ToolTimeout.Milliseconds()),
			IsError:    true,
		}
	}
}

// bashArgs is the shape of both bash and bash_kill's arguments.
type bashArgs struct {
	Command string `json:"command"`
	Async   bool   `json:"async"`
	ID      string `json:"id"`
}

func (e *Executor) bashRun(call models.ToolCall) models.ToolResult {
	if e.bash == nil {
		return models.ToolResult{ToolCallID: call.ID, Content: "ERROR: bash runner unavailable", IsError: true}
	}
	var args bashArgs
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return models.ToolResult{ToolCallID: call.ID, Content: fmt.Sprintf("ERROR: invalid bash args: %v", err), IsError: true}
	}
	if strings.TrimSpace(args.Command) == "" {
		return models.ToolResult{ToolCallID: call.ID, Content: "ERROR: bash requires a command", IsError: true}
	}

	result, err := e.bash.Run(args.Command, args.Async)
	if err != nil {
		return models.ToolResult{ToolCallID: call.ID, Content: fmt.Sprintf("ERROR: %v", err), IsError: true}
	}

	if result.Async {
		return models.ToolResult{
			ToolCallID: call.ID,
			Content: fmt.Sprintf("started background job %s, streaming to %s; stop it with bash_kill or wait for a system:bash notification on exit",
				result.JobID, result.OutputPath),
		}
	}

	content := result.Output
	if result.Truncated {
		content += fmt.Sprintf("\n\n[output truncated to last %d lines; full output at %s]", jobs.InlineMaxLines, result.OutputPath)
	}
	content += fmt.Sprintf("\n[exit code: %d]", result.ExitCode)
	return models.ToolResult{ToolCallID: call.ID, Content: content, IsError: result.ExitCode != 0}
}

func (e *Executor) bashKill(call models.ToolCall) models.ToolResult {
	if e.bash == nil {
		return models.ToolResult{ToolCallID: call.ID, Content: "ERROR: bash runner unavailable", IsError: true}
	}
	var args bashArgs
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return models.ToolResult{ToolCallID: call.ID, Content: fmt.Sprintf("ERROR: invalid bash_kill args: %v", err), IsError: true}
	}
	outputPath, err := e.bash.Kill(args.ID)
	if err != nil {
		return models.ToolResult{ToolCallID: call.ID, Content: fmt.Sprintf("ERROR: %v", err), IsError: true}
	}
	return models.ToolResult{ToolCallID: call.ID, Content: fmt.Sprintf("job %s terminated; output at %s", args.ID, outputPath)}
}
