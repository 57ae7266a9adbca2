// Package scripts implements the subprocess+stdio JSON protocol used to
// load the active provider adapter and the set of user tool modules from
// disk. Every load execs the target file fresh with a one-shot JSON request
// on stdin and reads a single JSON response from stdout — there is no
// persistent child process and therefore no cache to bypass.
package scripts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/lucentsys/agentspace/internal/models"
)

// request/response shapes exchanged over stdio, per SPEC_FULL.md §4.2.

type chatRequest struct {
	Op       string           `json:"op"`
	Messages []models.Message `json:"messages"`
	Tools    []toolDef        `json:"tools"`
	Model    string           `json:"model,omitempty"`
}

type toolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatResponse struct {
	Content   string            `json:"content,omitempty"`
	ToolCalls []models.ToolCall `json:"toolCalls,omitempty"`
	Usage     *models.Usage     `json:"usage,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type describeRequest struct {
	Op string `json:"op"`
}

type describeResponse struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Error       string          `json:"error,omitempty"`
}

type executeRequest struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

type executeResponse struct {
	Result string `json:"result"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
}

type probeRequest struct {
	Op string `json:"op"`
}

type probeResponse struct {
	Error string `json:"error,omitempty"`
}

// runOnce execs path fresh, writes req as a single JSON line to stdin,
// reads the single JSON response from stdout, and decodes it into resp.
func runOnce(ctx context.Context, path string, req, resp any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", path, err, stderr.String())
	}

	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), resp); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}
