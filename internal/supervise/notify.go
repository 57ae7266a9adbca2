package supervise

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lucentsys/agentspace/internal/models"
)

// NotifyRepairAgent best-effort POSTs the error details to
// REPAIR_AGENT_URL/message, per spec.md §7. A delivery failure is not
// propagated to the caller: the source is best-effort by design (§9 open
// question, preserved).
func NotifyRepairAgent(ctx context.Context, url string, errState models.ErrorState) {
	if url == "" {
		return
	}

	payload, err := json.Marshal(struct {
		Source  string            `json:"source"`
		Content string            `json:"content"`
		Error   models.ErrorState `json:"error"`
	}{
		Source:  "repair:worker",
		Content: errState.Message,
		Error:   errState,
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/message", bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
