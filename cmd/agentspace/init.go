package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucentsys/agentspace/internal/workspace"
)

func buildInitCmd() *cobra.Command {
	var (
		templatesRoot string
		role          string
		provider      string
		systemPrompt  string
	)

	cmd := &cobra.Command{
		Use:   "init [workspace]",
		Short: "Create a fresh workspace from role templates",
		Long: `Layer the shared _base template then the <role> template onto a new
workspace directory, and generate its agent.json with the given provider
and system prompt. Fails if the workspace already has an agent.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != workspace.RoleRoot && role != workspace.RoleWorker {
				return fmt.Errorf("--role must be %q or %q, got %q", workspace.RoleRoot, workspace.RoleWorker, role)
			}
			if provider == "" {
				return fmt.Errorf("--provider is required")
			}

			ws := workspace.New(workspacePathFrom(args))
			result, err := ws.InitWorkspace(workspace.RoleTemplate{TemplatesRoot: templatesRoot}, role, provider, systemPrompt)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workspace initialized (%s role, %s provider):\n", role, provider)
			for _, path := range result.Created {
				fmt.Fprintf(out, "  - %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&templatesRoot, "templates", defaultTemplatesRoot, "Role templates root")
	cmd.Flags().StringVar(&role, "role", workspace.RoleWorker, "Role to initialize: root or worker")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider script name under scripts/providers (required)")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "Base system prompt written into agent.json")

	return cmd
}
