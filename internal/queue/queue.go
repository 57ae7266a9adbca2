// Package queue implements the in-memory FIFO of inbound messages that
// drives the executor loop, with single-waiter wake semantics.
package queue

import (
	"sync"

	"github.com/google/uuid"

	"github.com/lucentsys/agentspace/internal/models"
)

// Queue is a thread-safe FIFO of QueueMessage. Exactly one goroutine is
// expected to call Wait/Drain (the executor loop); Push may be called
// concurrently from HTTP handlers and from tool execution (the bash tool
// posts back on job completion).
type Queue struct {
	mu      sync.Mutex
	pending []models.QueueMessage
	waiters chan struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends a message, assigns it a fresh id and timestamp, and wakes any
// current waiter. Returns the assigned id.
func (q *Queue) Push(content, source string, metadata map[string]any) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg := models.QueueMessage{
		ID:       uuid.NewString(),
		Content:  content,
		Source:   source,
		Metadata: metadata,
	}
	msg.Timestamp = nowFunc()
	q.pending = append(q.pending, msg)

	if q.waiters != nil {
		close(q.waiters)
		q.waiters = nil
	}
	return msg.ID
}

// Drain atomically removes and returns all pending messages, in push order.
// Returns nil if the queue was empty.
func (q *Queue) Drain() []models.QueueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Wait blocks until at least one message is present, returning immediately
// if the queue is already non-empty. Only one goroutine should call Wait at
// a time; a second concurrent call observes the same wake as the first.
func (q *Queue) Wait() {
	q.mu.Lock()
	if len(q.pending) > 0 {
		q.mu.Unlock()
		return
	}
	if q.waiters == nil {
		q.waiters = make(chan struct{})
	}
	ch := q.waiters
	q.mu.Unlock()

	<-ch
}

// Len returns the number of currently pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// nowFunc is overridable in tests.
var nowFunc = defaultNow
