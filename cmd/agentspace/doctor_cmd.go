package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucentsys/agentspace/internal/doctor"
	"github.com/lucentsys/agentspace/internal/scripts"
	"github.com/lucentsys/agentspace/internal/workspace"
)

func buildDoctorCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "doctor [workspace]",
		Short: "Check a workspace's health without starting the executor loop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := workspace.New(workspacePathFrom(args))
			loader := scripts.NewLoader(ws.ProvidersDir(), ws.ToolsDir())

			report := doctor.Run(cmd.Context(), ws, loader)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				for _, f := range report.Findings {
					if f.Detail != "" {
						fmt.Fprintf(out, "[%s] %s: %s\n", f.Severity, f.Check, f.Detail)
					} else {
						fmt.Fprintf(out, "[%s] %s\n", f.Severity, f.Check)
					}
				}
			}

			if !report.OK() {
				return fmt.Errorf("doctor found unhealthy conditions")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
