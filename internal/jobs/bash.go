package jobs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lucentsys/agentspace/internal/models"
)

// Timing constants from spec.md §4.4 / §5. Var, not const, so
// internal/config's RuntimeConfig can override the defaults at process
// startup.
var (
	AsyncThreshold  = 5 * time.Second
	SyncKillTimeout = 60 * time.Second
	InlineMaxLines  = 100
)

// Runner executes the bash tool against a shared Registry, streaming output
// to the workspace's .tool-output directory.
type Runner struct {
	registry     *Registry
	outputDir    func(jobID string) string
	notifyOnExit func(jobID string)
}

// NewRunner returns a Runner backed by registry. outputDir resolves a job id
// to its .tool-output/<jobid>.txt path (workspace.Workspace.ToolOutputPath).
// notifyOnExit is invoked (best-effort, fire-and-forget) when an async job's
// process exits, so the caller can post a system:bash queue message.
func NewRunner(registry *Registry, outputDir func(jobID string) string, notifyOnExit func(jobID string)) *Runner {
	return &Runner{registry: registry, outputDir: outputDir, notifyOnExit: notifyOnExit}
}

// Result is the bash tool's return value.
type Result struct {
	Async      bool
	JobID      string
	OutputPath string
	Output     string
	Truncated  bool
	ExitCode   int
}

// Run launches command. If async is true it registers the job immediately
// and returns. Otherwise it waits up to AsyncThreshold for completion; past
// that it transitions to async and arms a SyncKillTimeout-from-start kill
// timer that is cancelled the moment the async transition happens (per
// spec.md §4.4 step 3, the sync-only timeout only applies while still
// waiting synchronously for async:false calls).
func (r *Runner) Run(command string, async bool) (Result, error) {
	id := r.registry.newJobID()
	outputPath := r.outputDir(id)

	p, err := startProcess(command, outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("start command: %w", err)
	}

	if async {
		r.registerAsync(id, command, outputPath, p)
		return Result{Async: true, JobID: id, OutputPath: outputPath}, nil
	}

	killTimer := time.AfterFunc(SyncKillTimeout, func() {
		p.terminate(2 * time.Second)
	})

	select {
	case <-p.done:
		killTimer.Stop()
		lines, _, code := p.snapshot()
		p.finish()
		truncated := len(lines) > InlineMaxLines
		output := strings.Join(lines, "\n")
		keptPath := ""
		if truncated {
			output = strings.Join(lines[len(lines)-InlineMaxLines:], "\n")
			keptPath = outputPath
		} else {
			// inline-completed commands leave no output file behind
			os.Remove(outputPath)
		}
		return Result{Output: output, OutputPath: keptPath, Truncated: truncated, ExitCode: code}, nil

	case <-time.After(AsyncThreshold):
		killTimer.Stop()
		r.registerAsync(id, command, outputPath, p)
		return Result{Async: true, JobID: id, OutputPath: outputPath}, nil
	}
}

func (r *Runner) registerAsync(id, command, outputPath string, p *process) {
	record := models.BackgroundJob{
		ID:         id,
		Command:    command,
		OutputPath: outputPath,
		StartedAt:  time.Now(),
	}
	r.registry.register(id, record, p)

	go func() {
		<-p.done
		p.finish()
		r.registry.unregister(id)
		if r.notifyOnExit != nil {
			r.notifyOnExit(id)
		}
	}()
}

// Kill implements the bash_kill tool.
func (r *Runner) Kill(jobID string) (outputPath string, err error) {
	return r.registry.Kill(jobID)
}
