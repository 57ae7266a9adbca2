package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucentsys/agentspace/internal/config"
	"github.com/lucentsys/agentspace/internal/executor"
	"github.com/lucentsys/agentspace/internal/httpapi"
	"github.com/lucentsys/agentspace/internal/jobs"
	"github.com/lucentsys/agentspace/internal/queue"
	"github.com/lucentsys/agentspace/internal/reply"
	"github.com/lucentsys/agentspace/internal/scripts"
	"github.com/lucentsys/agentspace/internal/skills"
	"github.com/lucentsys/agentspace/internal/supervise"
	"github.com/lucentsys/agentspace/internal/workspace"
)

// defaultTemplatesRoot is where init and the inherited-root-state worker
// reset look for role templates when --templates isn't given. Not specified upstream; a
// sibling ./templates directory next to the workspace is the natural
// default for a single-host deployment.
const defaultTemplatesRoot = "./templates"

func buildServeCmd() *cobra.Command {
	var (
		templatesRoot string
		configPath    string
	)

	cmd := &cobra.Command{
		Use:   "serve [workspace]",
		Short: "Run the executor loop and HTTP surface against a workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeWithOpts(cmd, workspacePathFrom(args), templatesRoot, configPath)
		},
	}
	cmd.Flags().StringVar(&templatesRoot, "templates", defaultTemplatesRoot, "Role templates root, used when inherited root state is reset to a worker")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to an optional YAML config overriding runtime thresholds")
	return cmd
}

func runServe(cmd *cobra.Command, workspacePath string) error {
	return runServeWithOpts(cmd, workspacePath, defaultTemplatesRoot, "")
}

// runServeWithOpts boots one agent: loads config, resets inherited root
// state if asked, wires the queue/loop/HTTP surface together, and blocks
// until a shutdown signal arrives or the executor loop exits.
func runServeWithOpts(cmd *cobra.Command, workspacePath, templatesRoot, configPath string) error {
	logger := slog.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Apply()

	ws := workspace.New(workspacePath)

	// SPAWN_WORKER marks this process as the root agent's spawned worker
	// child: it boots into the root role so it can hand off a worker
	// identity to the process it spawns in turn, per spec.md §4.10.
	electedRoot := false
	if os.Getenv("SPAWN_WORKER") == "true" {
		os.Unsetenv("SPAWN_WORKER")
		electedRoot = true
		state, err := ws.LoadState()
		if err != nil {
			return fmt.Errorf("load agent.json for SPAWN_WORKER: %w", err)
		}
		state.Role = workspace.RoleRoot
		if err := ws.SaveState(state); err != nil {
			return fmt.Errorf("save agent.json for SPAWN_WORKER: %w", err)
		}
		logger.Info("elected root role via SPAWN_WORKER", "workspace", workspacePath)
	}

	state, err := ws.LoadState()
	if err != nil {
		return fmt.Errorf("load agent.json (run agentspace init first): %w", err)
	}

	savedContext, err := ws.LoadContext()
	if err != nil {
		return fmt.Errorf("load context: %w", err)
	}
	if !electedRoot && workspace.HasInheritedRootState(state, savedContext) {
		workerPrompt, err := os.ReadFile(filepath.Join(templatesRoot, workspace.RoleWorker, "prompt.md"))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load worker prompt for worker reset: %w", err)
		}
		if err := ws.ResetToWorker(workspace.RoleTemplate{TemplatesRoot: templatesRoot}, string(workerPrompt)); err != nil {
			return fmt.Errorf("reset to worker: %w", err)
		}
		logger.Info("reset workspace to worker role", "workspace", workspacePath)

		state, err = ws.LoadState()
		if err != nil {
			return fmt.Errorf("reload agent.json after worker reset: %w", err)
		}
		savedContext = nil
	}

	q := queue.New()
	loader := scripts.NewLoader(ws.ProvidersDir(), ws.ToolsDir())
	if err := loader.Watch(func(path string) {
		logger.Info("script changed on disk", "path", path)
	}); err != nil {
		logger.Warn("script watch unavailable, falling back to per-round reload only", "err", err)
	} else {
		defer loader.Close()
	}
	jobsRegistry := jobs.NewRegistry()
	router := reply.New(ws, ws)

	repairAgentURL := os.Getenv("REPAIR_AGENT_URL")
	if repairAgentURL == "" {
		repairAgentURL = cfg.Repair.AgentURL
	}
	loop := executor.New(ws, q, loader, jobsRegistry, router, repairAgentURL, logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer bootCancel()
	for _, r := range skills.RunSetupScripts(bootCtx, ws, logger) {
		if r.Err != nil {
			logger.Warn("skill setup failed", "skill", r.Skill, "err", r.Err)
		}
	}

	// Boot/restart injection per spec.md §4.10: a root-role process always
	// gets the spawn-a-worker boot message; a worker only gets a restart
	// message when its context actually survived a prior run.
	state, err = ws.LoadState()
	if err != nil {
		return fmt.Errorf("reload agent.json: %w", err)
	}
	if state.Role == workspace.RoleRoot {
		boot := supervise.BootMessage()
		q.Push(boot.Content, boot.Source, boot.Metadata)
	} else if len(savedContext) > 0 {
		lastCrash, err := ws.LastCrash()
		if err != nil {
			logger.Warn("read crash.log failed", "err", err)
		}
		restart := supervise.RestartMessage(lastCrash)
		q.Push(restart.Content, restart.Source, restart.Metadata)
	}

	srv := httpapi.NewServer(ws, q, loop.Status, logger)
	port := cfg.Port()
	if v := os.Getenv("PORT"); v != "" {
		if p, err := parsePort(v); err == nil {
			port = p
		} else {
			logger.Warn("invalid PORT env var, using default", "value", v, "default", port)
		}
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				supervise.RecordCrash(ws, "executor", fmt.Sprint(r), stack)
				errCh <- fmt.Errorf("executor loop panicked: %v", r)
				return
			}
		}()
		errCh <- loop.Run(ctx)
	}()

	go func() {
		listener, err := net.Listen("tcp", httpServer.Addr)
		if err != nil {
			errCh <- fmt.Errorf("listen %s: %w", httpServer.Addr, err)
			return
		}
		logger.Info("http surface listening", "addr", httpServer.Addr)
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, cancelling executor loop")
		select {
		case err := <-errCh:
			if err != nil {
				logger.Warn("executor loop exited with error during shutdown", "err", err)
			}
		case <-time.After(30 * time.Second):
			logger.Warn("executor loop did not return within the shutdown grace period")
		}
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", "err", err)
	}

	logger.Info("agentspace stopped")
	return nil
}

func parsePort(s string) (int, error) {
	var p int
	_, err := fmt.Sscanf(s, "%d", &p)
	if err != nil {
		return 0, err
	}
	return p, nil
}
