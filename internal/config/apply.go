package config

import (
	"time"

	"github.com/lucentsys/agentspace/internal/jobs"
	"github.com/lucentsys/agentspace/internal/memory"
	"github.com/lucentsys/agentspace/internal/supervise"
	"github.com/lucentsys/agentspace/internal/toolrt"
)

// Apply overrides the package-level defaults in internal/memory,
// internal/toolrt, internal/jobs, and internal/supervise with any values
// this Config sets. Call it once at process startup, before the executor
// loop or HTTP server start: the overridden vars are read from multiple
// goroutines afterward with no further synchronization, so this must
// happen before concurrent access begins.
func (c *Config) Apply() {
	if c == nil {
		return
	}

	if v := c.Memory.SoftTrimThresholdChars; v != nil {
		memory.SoftTrimThreshold = *v
	}
	if v := c.Memory.HardClearThresholdChars; v != nil {
		memory.HardClearThreshold = *v
	}
	if v := c.Memory.CompactionThresholdChars; v != nil {
		memory.CompactionThreshold = *v
	}
	if v := c.Memory.KeepLastAssistants; v != nil {
		memory.KeepLastAssistants = *v
	}
	if v := c.Memory.CompactionChunkChars; v != nil {
		memory.CompactionChunkChars = *v
	}

	if v := c.Tools.ToolTimeoutSeconds; v != nil {
		toolrt.ToolTimeout = time.Duration(*v) * time.Second
	}
	if v := c.Tools.AsyncThresholdSeconds; v != nil {
		jobs.AsyncThreshold = time.Duration(*v) * time.Second
	}
	if v := c.Tools.SyncKillTimeoutSeconds; v != nil {
		jobs.SyncKillTimeout = time.Duration(*v) * time.Second
	}
	if v := c.Tools.InlineMaxLines; v != nil {
		jobs.InlineMaxLines = *v
	}

	if v := c.Repair.PollIntervalSeconds; v != nil {
		supervise.RepairPollInterval = time.Duration(*v) * time.Second
	}
	if v := c.Repair.TimeoutSeconds; v != nil {
		supervise.RepairTimeout = time.Duration(*v) * time.Second
	}
}

// Port returns the configured HTTP listen port, defaulting to 3000.
func (c *Config) Port() int {
	if c == nil || c.Server.Port == nil {
		return 3000
	}
	return *c.Server.Port
}
