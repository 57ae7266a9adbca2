// Package httpapi exposes the external HTTP surface from spec.md §4.8:
// message injection, status, repair signaling, outbox polling, and history
// pagination. Handlers never touch the executor loop directly; they only
// push onto the queue or read/write workspace files, per spec.md §5's
// concurrency model.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/lucentsys/agentspace/internal/executor"
	"github.com/lucentsys/agentspace/internal/models"
	"github.com/lucentsys/agentspace/internal/queue"
	"github.com/lucentsys/agentspace/internal/reply"
	"github.com/lucentsys/agentspace/internal/workspace"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit      = 100
)

// Server holds the handlers' dependencies. Nothing here is mutated after
// construction, so a *Server is safe for concurrent handler invocations.
type Server struct {
	WS     *workspace.Workspace
	Queue  *queue.Queue
	Status *executor.StatusBoard
	Logger *slog.Logger
}

// NewServer returns a Server; a nil logger falls back to slog.Default().
func NewServer(ws *workspace.Workspace, q *queue.Queue, status *executor.StatusBoard, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{WS: ws, Queue: q, Status: status, Logger: logger.With("component", "httpapi")}
}

// Handler returns the routed mux for this server, ready to pass to
// http.Server or httptest.NewServer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /message", s.handlePostMessage)
	mux.HandleFunc("GET /status", s.handleGetStatus)
	mux.HandleFunc("POST /repair-signal", s.handlePostRepairSignal)
	mux.HandleFunc("GET /outbox", s.handleGetOutbox)
	mux.HandleFunc("DELETE /outbox/{id}", s.handleDeleteOutbox)
	mux.HandleFunc("GET /history", s.handleGetHistory)
	mux.HandleFunc("GET /history/{round}", s.handleGetHistoryRound)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are already sent; nothing more we can do but note it.
		slog.Default().Warn("httpapi: encode response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handlePostMessage implements POST /message {content, source?, metadata?}.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content  string         `json:"content"`
		Source   string         `json:"source"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if body.Source == "" {
		body.Source = fmt.Sprintf("http:%d", time.Now().UnixNano())
	}

	id := s.Queue.Push(body.Content, body.Source, body.Metadata)
	writeJSON(w, http.StatusOK, map[string]string{"messageId": id})
}

// handleGetStatus implements GET /status.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status.Get())
}

// handlePostRepairSignal implements POST /repair-signal.
func (s *Server) handlePostRepairSignal(w http.ResponseWriter, r *http.Request) {
	if err := s.WS.WriteRepairSignal(); err != nil {
		s.Logger.Error("write repair signal failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to write repair signal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleGetOutbox implements GET /outbox.
func (s *Server) handleGetOutbox(w http.ResponseWriter, r *http.Request) {
	messages, err := reply.ListOutbox(s.WS.OutboxDir())
	if err != nil {
		s.Logger.Error("list outbox failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list outbox")
		return
	}
	if messages == nil {
		messages = []models.OutboxMessage{} // never serialize null for an empty list
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleDeleteOutbox implements DELETE /outbox/{id}.
func (s *Server) handleDeleteOutbox(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existed, err := reply.DeleteOutbox(s.WS.OutboxDir(), id)
	if err != nil {
		s.Logger.Error("delete outbox entry failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete outbox entry")
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "no such outbox entry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleGetHistory implements GET /history?offset=&limit=, returning a
// newest-first page of per-round summaries plus the total round count.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parseHistoryPaging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rounds, err := s.WS.ListHistoryRounds()
	if err != nil {
		s.Logger.Error("list history rounds failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	// ListHistoryRounds returns ascending; newest-first means reverse.
	total := len(rounds)
	summaries := make([]historySummary, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(summaries) < limit; i-- {
		rec, err := s.WS.LoadHistoryRound(rounds[i])
		if err != nil {
			s.Logger.Warn("load history round failed", "round", rounds[i], "err", err)
			continue
		}
		summaries = append(summaries, summarizeRound(*rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":  total,
		"offset": offset,
		"limit":  limit,
		"rounds": summaries,
	})
}

// handleGetHistoryRound implements GET /history/{round}.
func (s *Server) handleGetHistoryRound(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("round"))
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "round must be a non-negative integer")
		return
	}
	rec, err := s.WS.LoadHistoryRound(n)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "no such round")
			return
		}
		s.Logger.Error("load history round failed", "round", n, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load round")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func parseHistoryPaging(r *http.Request) (offset, limit int, err error) {
	offset = 0
	limit = defaultHistoryLimit

	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
	}
	return offset, limit, nil
}
