package queue

import (
	"sync"
	"testing"
	"time"
)

func TestPushDrain(t *testing.T) {
	q := New()

	id := q.Push("hi", "test:1", nil)
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	q.Push("second", "test:2", map[string]any{"k": "v"})

	msgs := q.Drain()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hi" || msgs[0].Source != "test:1" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Content != "second" || msgs[1].Metadata["k"] != "v" {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}

	if more := q.Drain(); more != nil {
		t.Fatalf("expected nil after drain, got %+v", more)
	}
}

func TestWaitReturnsImmediatelyWhenNonEmpty(t *testing.T) {
	q := New()
	q.Push("already here", "test", nil)

	done := make(chan struct{})
	go func() {
		q.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return immediately for a non-empty queue")
	}
}

func TestWaitBlocksUntilPush(t *testing.T) {
	q := New()

	var wg sync.WaitGroup
	wg.Add(1)
	woke := make(chan struct{})
	go func() {
		defer wg.Done()
		q.Wait()
		close(woke)
	}()

	select {
	case <-woke:
		t.Fatal("Wait returned before any push")
	case <-time.After(50 * time.Millisecond):
	}

	q.Push("wake up", "test", nil)

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("Wait did not wake after push")
	}
	wg.Wait()
}

func TestLen(t *testing.T) {
	q := New()
	if q.Len() != 0 {
		t.Fatalf("expected 0, got %d", q.Len())
	}
	q.Push("a", "s", nil)
	q.Push("b", "s", nil)
	if q.Len() != 2 {
		t.Fatalf("expected 2, got %d", q.Len())
	}
	q.Drain()
	if q.Len() != 0 {
		t.Fatalf("expected 0 after drain, got %d", q.Len())
	}
}
