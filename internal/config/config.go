// Package config defines the process-wide RuntimeConfig: the optional
// YAML overrides layered on top of the numeric defaults spec.md fixes for
// memory thresholds, tool/job timeouts, and repair polling, plus the HTTP
// port and default repair-agent URL. Following the teacher's internal/config
// convention, one struct per concern aggregates into a root Config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MemoryConfig overrides internal/memory's pruning/compaction thresholds.
type MemoryConfig struct {
	SoftTrimThresholdChars   *int `yaml:"softTrimThresholdChars"`
	HardClearThresholdChars  *int `yaml:"hardClearThresholdChars"`
	CompactionThresholdChars *int `yaml:"compactionThresholdChars"`
	KeepLastAssistants       *int `yaml:"keepLastAssistants"`
	CompactionChunkChars     *int `yaml:"compactionChunkChars"`
}

// ToolsConfig overrides internal/toolrt and internal/jobs timeouts.
type ToolsConfig struct {
	ToolTimeoutSeconds     *int `yaml:"toolTimeoutSeconds"`
	AsyncThresholdSeconds  *int `yaml:"asyncThresholdSeconds"`
	SyncKillTimeoutSeconds *int `yaml:"syncKillTimeoutSeconds"`
	InlineMaxLines         *int `yaml:"inlineMaxLines"`
}

// RepairConfig overrides internal/supervise's repair-protocol polling.
type RepairConfig struct {
	PollIntervalSeconds *int   `yaml:"pollIntervalSeconds"`
	TimeoutSeconds      *int   `yaml:"timeoutSeconds"`
	AgentURL            string `yaml:"agentUrl"`
}

// ServerConfig overrides the HTTP surface's listen port.
type ServerConfig struct {
	Port *int `yaml:"port"`
}

// Config is the root RuntimeConfig document, loaded from an optional YAML
// file named by the CLI's --config flag. Every field is optional; Load starts from Default() and layers
// the file's values on top.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Memory  MemoryConfig  `yaml:"memory"`
	Tools   ToolsConfig   `yaml:"tools"`
	Repair  RepairConfig  `yaml:"repair"`
}

// Default returns a config that sets only the port (3000). Every other field
// is nil, and Apply leaves a nil field's package default in place (80000/
// 120000/160000 char thresholds, keep-last-3 assistants, 30000-char
// compaction chunks, 30s tool timeout, 5s async threshold, 60s sync kill,
// 100-line inline cap, 15s repair poll / 10-minute repair timeout).
func Default() *Config {
	return &Config{Server: ServerConfig{Port: intPtr(3000)}}
}

// Load reads path (if it exists) as YAML and returns Default() with its
// values layered on top. A missing file is not an error: Default() alone is
// returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func intPtr(v int) *int { return &v }
