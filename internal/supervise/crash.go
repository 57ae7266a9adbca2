// Package supervise implements process-wide crash recording, the
// error/repair protocol, and boot/restart message injection from spec.md
// §4.7, §4.10, and §7.
package supervise

import (
	"os"
	"time"

	"github.com/lucentsys/agentspace/internal/models"
	"github.com/lucentsys/agentspace/internal/workspace"
)

// RecordCrash appends one crash.log entry for an unhandled process-wide
// error. Callers exit(1) immediately after, per spec.md §4.10.
func RecordCrash(ws *workspace.Workspace, source, message, stack string) error {
	rec := models.CrashRecord{
		Timestamp: time.Now(),
		Source:    source,
		Message:   message,
		Stack:     stack,
		PID:       os.Getpid(),
		Workspace: ws.Root,
	}
	return ws.AppendCrash(rec)
}
