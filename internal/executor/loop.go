// Package executor implements the per-round executor loop from spec.md
// §4.7: load state, drain the inbound queue, prune/compact memory, call
// the provider with retries, dispatch tool calls, persist results, and
// either continue immediately or block on the queue. It owns the
// error/repair state machine's entry and exit.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/lucentsys/agentspace/internal/backoff"
	"github.com/lucentsys/agentspace/internal/jobs"
	"github.com/lucentsys/agentspace/internal/memory"
	"github.com/lucentsys/agentspace/internal/models"
	"github.com/lucentsys/agentspace/internal/queue"
	"github.com/lucentsys/agentspace/internal/reply"
	"github.com/lucentsys/agentspace/internal/scripts"
	"github.com/lucentsys/agentspace/internal/supervise"
	"github.com/lucentsys/agentspace/internal/toolrt"
	"github.com/lucentsys/agentspace/internal/workspace"
)

// llmRetryPolicy reproduces spec.md §4.7 step 6's fixed schedule (3
// attempts, sleeping 2s then 4s) as a zero-jitter internal/backoff policy:
// InitialMs=2000, Factor=2 gives attempt 1 -> 2s, attempt 2 -> 4s.
var llmRetryPolicy = backoff.BackoffPolicy{InitialMs: 2000, MaxMs: 4000, Factor: 2, Jitter: 0}

const llmMaxAttempts = 3

const maxNudges = 2 // a 3rd consecutive empty turn forces wait regardless, per spec.md §4.7 step 10.

// nudgeMessage is appended to context when the assistant produces no tool
// calls, instructing it to make progress.
const nudgeMessage = "You produced no tool calls. Use one of your available tools to make progress, " +
	"or call wait_for if there is genuinely nothing more to do right now."

// Loop runs the executor state machine for one workspace.
type Loop struct {
	WS             *workspace.Workspace
	Queue          *queue.Queue
	Loader         *scripts.Loader
	JobsRegistry   *jobs.Registry
	Router         *reply.Router
	RepairAgentURL string
	Logger         *slog.Logger

	Status *StatusBoard

	bashRunner  *jobs.Runner
	emptyStreak int
}

// New returns a Loop ready to Run. It wires the background job runner's
// output directory and exit notification to ws/queue, per spec.md §4.4.
func New(ws *workspace.Workspace, q *queue.Queue, loader *scripts.Loader, jr *jobs.Registry, router *reply.Router, repairAgentURL string, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "executor")

	if err := ws.EnsureToolOutputDir(); err != nil {
		logger.Warn("create .tool-output dir failed", "err", err)
	}

	runner := jobs.NewRunner(jr, ws.ToolOutputPath, func(jobID string) {
		q.Push(
			fmt.Sprintf("Background job %s exited; see %s for output.", jobID, ws.ToolOutputPath(jobID)),
			"system:bash",
			nil,
		)
	})

	return &Loop{
		WS:             ws,
		Queue:          q,
		Loader:         loader,
		JobsRegistry:   jr,
		Router:         router,
		RepairAgentURL: repairAgentURL,
		Logger:         logger,
		Status:         NewStatusBoard("", 0),
		bashRunner:     runner,
	}
}

// Run drives the loop until agent.json's round reaches maxRounds (orderly
// exit, nil error) or a repair timeout occurs (fatal, non-nil error). The
// caller is expected to record a crash and exit(1) on a non-nil return.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, err := l.WS.LoadState()
		if err != nil {
			return fmt.Errorf("load agent.json: %w", err)
		}
		if state.MaxRounds > 0 && state.Round >= state.MaxRounds {
			l.Logger.Info("maxRounds reached, exiting", "round", state.Round, "maxRounds", state.MaxRounds)
			return nil
		}

		l.Status.setRunning(state.Round, state.Provider, state.Model)

		waitRequested, err := l.runRound(ctx, state)
		if err != nil {
			if fatalErr := l.enterErrorAndAwaitRepair(ctx, state, err); fatalErr != nil {
				return fatalErr
			}
			// repaired: loop back and retry immediately with fresh state.
			continue
		}

		fresh, _ := l.WS.LoadState()
		if fresh == nil {
			fresh = state
		}
		l.Status.setWaiting(fresh.Round, fresh.Provider, fresh.Model)

		if waitRequested {
			l.Logger.Info("entering wait state", "round", fresh.Round)
			if err := l.waitForQueue(ctx); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) waitForQueue(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.Queue.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// roundError tags an error with the repair-protocol source category that
// should handle it.
type roundError struct {
	source string
	err    error
}

func (e *roundError) Error() string { return e.err.Error() }
func (e *roundError) Unwrap() error { return e.err }

// runRound executes steps 2-10 of spec.md §4.7 for one round. It returns
// (waitRequested, nil) on a normal round, or (false, *roundError) when a
// script_load/llm_call/unknown failure should enter the error state.
func (l *Loop) runRound(ctx context.Context, state *models.AgentState) (bool, error) {
	provider, err := l.Loader.LoadProvider(state.Provider)
	if err != nil {
		return false, &roundError{SourceScriptLoad, err}
	}
	registry, err := toolrt.BuildRegistry(ctx, l.Loader)
	if err != nil {
		return false, &roundError{SourceScriptLoad, err}
	}

	transcript, err := l.WS.LoadContext()
	if err != nil {
		return false, &roundError{SourceUnknown, fmt.Errorf("load transcript: %w", err)}
	}

	incoming := l.Queue.Drain()
	var roundMessages []models.Message
	for _, m := range incoming {
		msg := models.Message{
			Role:      models.RoleUser,
			Content:   fmt.Sprintf("[%s] %s", m.Source, m.Content),
			Timestamp: m.Timestamp,
		}
		transcript = append(transcript, msg)
		roundMessages = append(roundMessages, msg)
	}
	// Persisted immediately so inbound messages survive a crash before the
	// LLM responds, per spec.md §4.7 step 3 / §5.
	if err := l.WS.SaveContext(transcript); err != nil {
		return false, &roundError{SourceUnknown, fmt.Errorf("persist transcript after drain: %w", err)}
	}

	mm := memory.NewManager(provider, state.Model, l.WS.AppendSummary)
	compacted, err := mm.Run(ctx, transcript)
	if err != nil {
		// Compaction is best-effort: log and continue with the pruned
		// transcript, per spec.md §4.7 step 4.
		l.Logger.Warn("compaction failed, continuing with pruned transcript", "err", err)
	}
	transcript = compacted

	promptMD, err := l.WS.LoadPrompt()
	if err != nil {
		return false, &roundError{SourceUnknown, fmt.Errorf("load prompt.md: %w", err)}
	}
	absRoot, err := l.WS.AbsRoot()
	if err != nil {
		absRoot = l.WS.Root
	}
	systemPrompt := buildSystemPrompt(state.SystemPrompt, promptMD, absRoot)

	toolDefs := append(toolrt.BuiltinToolDefs(), registry.Descriptors()...)

	request := append([]models.Message{{Role: models.RoleSystem, Content: systemPrompt}}, transcript...)
	resp, err := l.callProviderWithRetry(ctx, provider, request, toolDefs, state.Model)
	if err != nil {
		return false, &roundError{SourceLLMCall, err}
	}

	assistantMsg := models.Message{
		Role:      models.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Timestamp: time.Now(),
	}
	transcript = append(transcript, assistantMsg)
	roundMessages = append(roundMessages, assistantMsg)

	waitRequested := false
	if len(resp.ToolCalls) == 0 {
		l.emptyStreak++
		if l.emptyStreak >= maxNudges+1 {
			waitRequested = true
			l.emptyStreak = 0
		} else {
			nudge := models.Message{Role: models.RoleUser, Content: nudgeMessage, Timestamp: time.Now()}
			transcript = append(transcript, nudge)
			roundMessages = append(roundMessages, nudge)
		}
	} else {
		l.emptyStreak = 0
		toolExec := toolrt.NewExecutor(registry, l.Router, l.bashRunner, l.Logger)
		outcome := toolExec.ExecuteAll(ctx, resp.ToolCalls)
		for _, r := range outcome.Results {
			msg := r.ToMessage()
			transcript = append(transcript, msg)
			roundMessages = append(roundMessages, msg)
		}
		waitRequested = outcome.ShouldWait
	}

	if err := l.WS.SaveContext(transcript); err != nil {
		return false, &roundError{SourceUnknown, fmt.Errorf("persist transcript after round: %w", err)}
	}

	histRound := models.HistoryRound{
		Round:     state.Round,
		Timestamp: time.Now(),
		Messages:  roundMessages,
		Response: models.HistoryLLM{
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
			Usage:     resp.Usage,
		},
		Provider: state.Provider,
		Model:    state.Model,
	}
	if err := l.WS.SaveHistoryRound(histRound); err != nil {
		return false, &roundError{SourceUnknown, fmt.Errorf("persist history round: %w", err)}
	}

	// Re-read agent.json and bump only the round field, preserving any
	// concurrent self-edit (e.g. the agent changed its own model), per
	// spec.md §3 invariant / §9 design note.
	fresh, err := l.WS.LoadState()
	if err != nil {
		return false, &roundError{SourceUnknown, fmt.Errorf("reload agent.json: %w", err)}
	}
	fresh.Round = state.Round + 1
	if err := l.WS.SaveState(fresh); err != nil {
		return false, &roundError{SourceUnknown, fmt.Errorf("persist round bump: %w", err)}
	}

	return waitRequested, nil
}

func (l *Loop) callProviderWithRetry(ctx context.Context, provider *scripts.Provider, messages []models.Message, tools []scripts.ToolDescriptor, model string) (*models.ProviderResponse, error) {
	result, err := backoff.RetryWithBackoff(ctx, llmRetryPolicy, llmMaxAttempts, func(attempt int) (*models.ProviderResponse, error) {
		resp, err := provider.Chat(ctx, messages, tools, model)
		if err != nil && attempt < llmMaxAttempts {
			l.Logger.Warn("provider call failed, retrying", "attempt", attempt, "err", err)
		}
		return resp, err
	})
	if err != nil {
		if errors.Is(err, backoff.ErrMaxAttemptsExhausted) {
			return nil, fmt.Errorf("provider call failed after %d attempts: %w", result.Attempts, result.LastError)
		}
		return nil, err
	}
	return result.Value, nil
}

// enterErrorAndAwaitRepair implements spec.md §4.7's error state and §7's
// repair protocol: record the error, best-effort notify the parent, then
// poll for either a .repair-signal or a successful script probe. A repair
// timeout is fatal.
func (l *Loop) enterErrorAndAwaitRepair(ctx context.Context, state *models.AgentState, cause error) error {
	var re *roundError
	source := SourceUnknown
	if asRoundError(cause, &re) {
		source = re.source
	}

	errState := models.ErrorState{
		Source:    source,
		Message:   cause.Error(),
		Stack:     string(debug.Stack()),
		Timestamp: time.Now(),
	}
	l.Status.setError(state.Round, state.Provider, state.Model, errState)
	l.Logger.Error("entering error state", "source", source, "err", cause)

	supervise.NotifyRepairAgent(ctx, l.RepairAgentURL, errState)

	if err := l.waitForRepairOrProbe(ctx, state.Provider); err != nil {
		if recordErr := supervise.RecordCrash(l.WS, source, cause.Error(), errState.Stack); recordErr != nil {
			l.Logger.Error("failed to record crash", "err", recordErr)
		}
		return fmt.Errorf("repair protocol exhausted: %w", err)
	}

	l.Logger.Info("repaired, resuming", "source", source)
	return nil
}

// waitForRepairOrProbe polls every supervise.RepairPollInterval, up to
// supervise.RepairTimeout, for either a .repair-signal (consumed) or a
// successful script-loader probe of the active provider, per spec.md
// §4.7's repair protocol.
func (l *Loop) waitForRepairOrProbe(ctx context.Context, activeProvider string) error {
	deadline := time.Now().Add(supervise.RepairTimeout)
	ticker := time.NewTicker(supervise.RepairPollInterval)
	defer ticker.Stop()

	for {
		consumed, err := l.WS.ConsumeRepairSignal()
		if err == nil && consumed {
			return nil
		}
		if probeErr := l.Loader.Probe(ctx, activeProvider); probeErr == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return supervise.ErrRepairTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func asRoundError(err error, target **roundError) bool {
	re, ok := err.(*roundError)
	if !ok {
		return false
	}
	*target = re
	return true
}
