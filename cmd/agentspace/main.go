// Package main provides the CLI entry point for agentspace, a persistent,
// self-modifying LLM-agent runtime.
//
// agentspace connects an inbound message queue and HTTP surface to a
// dynamically-loaded LLM provider with tool execution capabilities,
// including shell access and background job management.
//
// # Basic Usage
//
// Initialize a fresh workspace:
//
//	agentspace init ./workspace --role root --provider anthropic
//
// Run it:
//
//	agentspace serve ./workspace
//
// Check workspace health without starting anything:
//
//	agentspace doctor ./workspace
//
// # Environment Variables
//
//   - PORT: HTTP listen port (default 3000)
//   - REPAIR_AGENT_URL: optional webhook notified on entering the error state
//   - SPAWN_WORKER: if "true", the process elects the root role in agent.json
//     on boot; consumed and removed so a respawned child doesn't inherit it
//   - WORKSPACE: workspace path used when no positional argument is given;
//     the CLI's positional argument takes precedence
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentspace [workspace]",
		Short: "agentspace - a persistent, self-modifying LLM-agent runtime",
		Long: `agentspace runs one agent's executor loop against a workspace directory:
drain its inbound queue, prune and compact its memory, call its
dynamically-loaded LLM provider, dispatch tool calls, and persist results
every round.

A bare positional argument is shorthand for "serve": agentspace ./workspace
is equivalent to agentspace serve ./workspace.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, workspacePathFrom(args))
		},
	}

	rootCmd.AddCommand(buildServeCmd(), buildInitCmd(), buildDoctorCmd())
	return rootCmd
}

// workspacePathFrom resolves the single positional workspace argument, per
// the CLI contract: explicit arg, else $WORKSPACE, else ./workspace.
func workspacePathFrom(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if env := os.Getenv("WORKSPACE"); env != "" {
		return env
	}
	return "./workspace"
}
