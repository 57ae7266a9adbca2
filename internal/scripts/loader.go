package scripts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/lucentsys/agentspace/internal/models"
)

// Provider wraps one scripts/providers/<name> adapter file. Each Chat call
// execs the file fresh.
type Provider struct {
	Name string
	Path string
}

// Chat sends a chat operation to the provider adapter and returns its
// response. Fails with a transport error on provider-side failure.
func (p *Provider) Chat(ctx context.Context, messages []models.Message, tools []ToolDescriptor, model string) (*models.ProviderResponse, error) {
	defs := make([]toolDef, len(tools))
	for i, t := range tools {
		defs[i] = toolDef{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
	}

	var resp chatResponse
	req := chatRequest{Op: "chat", Messages: messages, Tools: defs, Model: model}
	if err := runOnce(ctx, p.Path, req, &resp); err != nil {
		return nil, fmt.Errorf("provider %s chat: %w", p.Name, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("provider %s chat: %s", p.Name, resp.Error)
	}
	return &models.ProviderResponse{Content: resp.Content, ToolCalls: resp.ToolCalls, Usage: resp.Usage}, nil
}

// ToolDescriptor is the metadata a tool module reports via its describe
// operation.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolModule wraps one scripts/tools/<name> module file. Each Describe and
// Execute call execs the file fresh.
type ToolModule struct {
	Path string
}

// Describe returns the tool's name, description, and parameter schema.
func (t *ToolModule) Describe(ctx context.Context) (ToolDescriptor, error) {
	var resp describeResponse
	req := describeRequest{Op: "describe"}
	if err := runOnce(ctx, t.Path, req, &resp); err != nil {
		return ToolDescriptor{}, fmt.Errorf("describe %s: %w", t.Path, err)
	}
	if resp.Error != "" {
		return ToolDescriptor{}, fmt.Errorf("describe %s: %s", t.Path, resp.Error)
	}
	return ToolDescriptor{Name: resp.Name, Description: resp.Description, Parameters: resp.Parameters}, nil
}

// Execute runs the tool module's execute operation with the given
// arguments. action is "wait" when the module requests entry into the wait
// state after the current round completes.
func (t *ToolModule) Execute(ctx context.Context, args json.RawMessage) (result string, action string, err error) {
	var resp executeResponse
	req := executeRequest{Op: "execute", Args: args}
	if runErr := runOnce(ctx, t.Path, req, &resp); runErr != nil {
		return "", "", fmt.Errorf("execute %s: %w", t.Path, runErr)
	}
	if resp.Error != "" {
		return "", "", fmt.Errorf("execute %s: %s", t.Path, resp.Error)
	}
	return resp.Result, resp.Action, nil
}

// Loader discovers the active provider and the set of user tool modules
// under one workspace's scripts/ directory.
type Loader struct {
	ProvidersDir string
	ToolsDir     string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewLoader returns a Loader rooted at the given providers/tools
// directories.
func NewLoader(providersDir, toolsDir string) *Loader {
	return &Loader{ProvidersDir: providersDir, ToolsDir: toolsDir}
}

// LoadProvider resolves the adapter whose filename stem matches name.
func (l *Loader) LoadProvider(name string) (*Provider, error) {
	entries, err := os.ReadDir(l.ProvidersDir)
	if err != nil {
		return nil, fmt.Errorf("read providers dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := stripExt(e.Name())
		if stem == name {
			return &Provider{Name: name, Path: filepath.Join(l.ProvidersDir, e.Name())}, nil
		}
	}
	return nil, fmt.Errorf("provider %q not found under %s", name, l.ProvidersDir)
}

// LoadTools returns every tool module under ToolsDir.
func (l *Loader) LoadTools() ([]*ToolModule, error) {
	entries, err := os.ReadDir(l.ToolsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tools dir: %w", err)
	}
	var mods []*ToolModule
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		mods = append(mods, &ToolModule{Path: filepath.Join(l.ToolsDir, e.Name())})
	}
	return mods, nil
}

// Probe loads the active provider and every tool module, surfacing the
// first transport or non-zero-exit failure. Used by the repair-signal path
// to confirm that scripts are once again valid.
func (l *Loader) Probe(ctx context.Context, activeProvider string) error {
	provider, err := l.LoadProvider(activeProvider)
	if err != nil {
		return err
	}
	var resp probeResponse
	if err := runOnce(ctx, provider.Path, probeRequest{Op: "probe"}, &resp); err != nil {
		return fmt.Errorf("probe provider %s: %w", activeProvider, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("probe provider %s: %s", activeProvider, resp.Error)
	}

	tools, err := l.LoadTools()
	if err != nil {
		return err
	}
	for _, t := range tools {
		if _, err := t.Describe(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Watch starts an fsnotify watch on ProvidersDir and ToolsDir, invoking
// onChange whenever a script is written, created, or removed. This is
// additive to the bypass-cache-per-load contract (every load already
// observes current file contents); it only lets a caller react to edits
// without waiting for the next round boundary. Close stops the watch.
func (l *Loader) Watch(onChange func(path string)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range []string{l.ProvidersDir, l.ToolsDir} {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	l.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange(ev.Name)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Close stops the active watch, if any.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	l.watcher = nil
	return err
}

func stripExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
