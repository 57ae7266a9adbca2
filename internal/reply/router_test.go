package reply

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucentsys/agentspace/internal/models"
	"github.com/lucentsys/agentspace/internal/workspace"
)

type fakeRoutes struct {
	routes map[string]workspace.Route
}

func (f fakeRoutes) LoadRoutes() (map[string]workspace.Route, error) {
	return f.routes, nil
}

func TestReplyRoutesToMatchingPrefix(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ws := workspace.New(t.TempDir())
	routes := fakeRoutes{routes: map[string]workspace.Route{"slack": {URL: srv.URL}}}
	router := New(routes, ws)

	dest, err := router.Reply(context.Background(), "slack:C123", "hello")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if dest != srv.URL {
		t.Fatalf("expected dest %q, got %q", srv.URL, dest)
	}
	if gotBody["source"] != "slack:C123" || gotBody["content"] != "hello" {
		t.Fatalf("unexpected payload: %+v", gotBody)
	}
}

func TestReplyRouteFailureNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ws := workspace.New(t.TempDir())
	routes := fakeRoutes{routes: map[string]workspace.Route{"slack": {URL: srv.URL}}}
	router := New(routes, ws)

	if _, err := router.Reply(context.Background(), "slack:C123", "hello"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestReplyNoMatchFallsBackToOutbox(t *testing.T) {
	dir := t.TempDir()
	ws := workspace.New(dir)
	routes := fakeRoutes{routes: map[string]workspace.Route{}}
	router := New(routes, ws)

	dest, err := router.Reply(context.Background(), "cli:local", "hi there")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if dest != "outbox" {
		t.Fatalf("expected outbox fallback, got %q", dest)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "outbox"))
	if err != nil {
		t.Fatalf("read outbox dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 outbox entry, got %d", len(entries))
	}
}

func TestReplyPrefixWithoutColonUsesWholeSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	ws := workspace.New(dir)
	routes := fakeRoutes{routes: map[string]workspace.Route{"cli": {URL: srv.URL}}}
	router := New(routes, ws)

	dest, err := router.Reply(context.Background(), "cli", "hi")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if dest == "outbox" {
		t.Fatal("expected whole source \"cli\" to match route prefix \"cli\"")
	}
}

func TestListAndDeleteOutboxRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ws := workspace.New(dir)

	msg := models.OutboxMessage{ID: "abc123", Source: "cli:local", Content: "hello"}
	if err := ws.WriteOutbox(msg); err != nil {
		t.Fatalf("WriteOutbox: %v", err)
	}

	list, err := ListOutbox(ws.OutboxDir())
	if err != nil {
		t.Fatalf("ListOutbox: %v", err)
	}
	if len(list) != 1 || list[0].ID != "abc123" {
		t.Fatalf("unexpected outbox listing: %+v", list)
	}

	ok, err := DeleteOutbox(ws.OutboxDir(), "abc123")
	if err != nil || !ok {
		t.Fatalf("DeleteOutbox first call: ok=%v err=%v", ok, err)
	}

	ok, err = DeleteOutbox(ws.OutboxDir(), "abc123")
	if err != nil {
		t.Fatalf("DeleteOutbox second call: %v", err)
	}
	if ok {
		t.Fatal("expected second delete of same id to report not-found")
	}
}

func TestListOutboxMissingDir(t *testing.T) {
	list, err := ListOutbox(filepath.Join(t.TempDir(), "outbox"))
	if err != nil {
		t.Fatalf("ListOutbox: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty listing, got %+v", list)
	}
}
