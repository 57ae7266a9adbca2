// Package reply implements the reply router: for a given source prefix,
// look up routes.json and POST, else write to the filesystem outbox.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucentsys/agentspace/internal/models"
	"github.com/lucentsys/agentspace/internal/workspace"
)

// RouteSource resolves the routes.json table, implemented by
// *workspace.Workspace.
type RouteSource interface {
	LoadRoutes() (map[string]workspace.Route, error)
}

// OutboxWriter persists an OutboxMessage to outbox/<id>.json, as
// implemented by *workspace.Workspace.WriteOutbox.
type OutboxWriter interface {
	WriteOutbox(msg models.OutboxMessage) error
}

// Router dispatches replies either to an HTTP route or the filesystem
// outbox.
type Router struct {
	routes RouteSource
	outbox OutboxWriter
	client *http.Client
}

// New returns a Router over the given routes source and outbox writer.
func New(routes RouteSource, outbox OutboxWriter) *Router {
	return &Router{routes: routes, outbox: outbox, client: &http.Client{Timeout: 10 * time.Second}}
}

// Reply extracts the prefix up to the first ':' (or the whole string if no
// colon), looks it up in routes.json, and either POSTs JSON {source,
// content} or writes a fresh OutboxMessage. Returns which destination was
// used: the matched route URL, or "outbox".
func (r *Router) Reply(ctx context.Context, source, content string) (string, error) {
	prefix := source
	if idx := strings.IndexByte(source, ':'); idx >= 0 {
		prefix = source[:idx]
	}

	routes, err := r.routes.LoadRoutes()
	if err != nil {
		return "", fmt.Errorf("load routes: %w", err)
	}

	if route, ok := routes[prefix]; ok && route.URL != "" {
		if err := r.post(ctx, route.URL, source, content); err != nil {
			return "", fmt.Errorf("deliver to %s: %w", route.URL, err)
		}
		return route.URL, nil
	}

	msg := models.OutboxMessage{
		ID:        uuid.NewString(),
		Source:    source,
		Content:   content,
		Timestamp: time.Now(),
	}
	if err := r.outbox.WriteOutbox(msg); err != nil {
		return "", fmt.Errorf("write outbox: %w", err)
	}
	return "outbox", nil
}

func (r *Router) post(ctx context.Context, url, source, content string) error {
	payload, err := json.Marshal(struct {
		Source  string `json:"source"`
		Content string `json:"content"`
	}{source, content})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return nil
}

// ListOutbox reads every outbox/*.json file in dir.
func ListOutbox(dir string) ([]models.OutboxMessage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read outbox dir: %w", err)
	}

	var out []models.OutboxMessage
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var msg models.OutboxMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// DeleteOutbox removes outbox/<id>.json, reporting whether it existed.
func DeleteOutbox(dir, id string) (bool, error) {
	path := filepath.Join(dir, id+".json")
	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("remove outbox entry: %w", err)
	}
	return true, nil
}
