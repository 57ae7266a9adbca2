// Package doctor implements a read-only workspace health check: it runs
// the script loader's probe operation and reports structural problems with
// agent.json, routes.json, and a stale .repair-signal, without mutating
// anything.
package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/lucentsys/agentspace/internal/scripts"
	"github.com/lucentsys/agentspace/internal/workspace"
)

// Severity classifies a Finding.
type Severity string

const (
	SeverityOK    Severity = "ok"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// staleRepairSignal is how long an unconsumed .repair-signal must sit
// before doctor flags it: the same as the loop's default RepairTimeout, since
// by then either the loop consumed it or has already exited fatally.
const staleRepairSignal = 10 * time.Minute

// Finding is one health-check result.
type Finding struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail,omitempty"`
}

// Report is the full set of findings from one doctor run.
type Report struct {
	Findings []Finding `json:"findings"`
}

// OK reports whether every finding is at most a warning.
func (r Report) OK() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Run executes every check against ws and returns the combined report.
// Nothing in ws is modified.
func Run(ctx context.Context, ws *workspace.Workspace, loader *scripts.Loader) Report {
	var findings []Finding

	findings = append(findings, checkAgentState(ws)...)
	findings = append(findings, checkRoutes(ws)...)
	findings = append(findings, checkRepairSignal(ws)...)
	findings = append(findings, checkScriptProbe(ctx, ws, loader)...)

	return Report{Findings: findings}
}

func checkAgentState(ws *workspace.Workspace) []Finding {
	state, err := ws.LoadState()
	if err != nil {
		return []Finding{{Check: "agent.json", Severity: SeverityError, Detail: err.Error()}}
	}

	var findings []Finding
	if state.Provider == "" {
		findings = append(findings, Finding{Check: "agent.json", Severity: SeverityError, Detail: "provider is empty"})
	}
	if state.SystemPrompt == "" {
		findings = append(findings, Finding{Check: "agent.json", Severity: SeverityWarn, Detail: "systemPrompt is empty"})
	}
	if state.Role != "" && state.Role != workspace.RoleRoot && state.Role != workspace.RoleWorker {
		findings = append(findings, Finding{Check: "agent.json", Severity: SeverityWarn, Detail: fmt.Sprintf("unrecognized role %q", state.Role)})
	}
	if len(findings) == 0 {
		findings = append(findings, Finding{Check: "agent.json", Severity: SeverityOK})
	}
	return findings
}

func checkRoutes(ws *workspace.Workspace) []Finding {
	if _, err := ws.LoadRoutes(); err != nil {
		return []Finding{{Check: "routes.json", Severity: SeverityError, Detail: err.Error()}}
	}
	return []Finding{{Check: "routes.json", Severity: SeverityOK}}
}

func checkRepairSignal(ws *workspace.Workspace) []Finding {
	if !ws.HasRepairSignal() {
		return []Finding{{Check: ".repair-signal", Severity: SeverityOK}}
	}

	info, err := ws.RepairSignalInfo()
	if err != nil {
		return []Finding{{Check: ".repair-signal", Severity: SeverityWarn, Detail: "present, could not stat: " + err.Error()}}
	}
	age := time.Since(info.ModTime())
	if age > staleRepairSignal {
		return []Finding{{Check: ".repair-signal", Severity: SeverityWarn, Detail: fmt.Sprintf("present and unconsumed for %s; the loop may have exited", age.Round(time.Second))}}
	}
	return []Finding{{Check: ".repair-signal", Severity: SeverityWarn, Detail: "present, awaiting consumption"}}
}

func checkScriptProbe(ctx context.Context, ws *workspace.Workspace, loader *scripts.Loader) []Finding {
	state, err := ws.LoadState()
	if err != nil {
		return []Finding{{Check: "script-probe", Severity: SeverityError, Detail: "cannot determine active provider: " + err.Error()}}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := loader.Probe(probeCtx, state.Provider); err != nil {
		return []Finding{{Check: "script-probe", Severity: SeverityError, Detail: err.Error()}}
	}
	return []Finding{{Check: "script-probe", Severity: SeverityOK}}
}
