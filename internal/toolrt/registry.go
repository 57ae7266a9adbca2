// Package toolrt dispatches tool calls: the five built-ins (think, reply,
// wait_for, bash, bash_kill) and user-defined tool modules loaded from
// scripts/tools/.
package toolrt

import (
	"context"
	"fmt"
	"sync"

	"github.com/lucentsys/agentspace/internal/scripts"
)

// Registry holds the user tool modules currently loaded for one round. It is
// rebuilt every round by the executor loop (scripts bypass caching), so a
// Registry instance is cheap and short-lived.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*scripts.ToolModule
	descs   map[string]scripts.ToolDescriptor
}

// BuildRegistry describes every tool module under loader's ToolsDir and
// returns a Registry keyed by the name each module reports.
func BuildRegistry(ctx context.Context, loader *scripts.Loader) (*Registry, error) {
	mods, err := loader.LoadTools()
	if err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}

	reg := &Registry{
		modules: make(map[string]*scripts.ToolModule, len(mods)),
		descs:   make(map[string]scripts.ToolDescriptor, len(mods)),
	}
	for _, m := range mods {
		desc, err := m.Describe(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe tool module: %w", err)
		}
		reg.modules[desc.Name] = m
		reg.descs[desc.Name] = desc
	}
	return reg, nil
}

// Get returns the tool module registered under name, if any.
func (r *Registry) Get(name string) (*scripts.ToolModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns every registered user tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	return names
}

// Descriptors returns the {name, description, parameters} of every
// registered user tool module, for advertising to the provider alongside
// the built-in tool definitions.
func (r *Registry) Descriptors() []scripts.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]scripts.ToolDescriptor, 0, len(r.descs))
	for _, d := range r.descs {
		out = append(out, d)
	}
	return out
}
