package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	rundownSvc "rundown/internal/domain/services/rundown"
)

func queuedUpdate(field, value string) QueuedMutation {
	return QueuedMutation{
		RundownID: "rd-1",
		Request: rundownSvc.FieldUpdateRequest{
			Field: field,
			Value: value,
		},
		EnqueuedAt: time.Now(),
	}
}

func TestQueueMissingFileIsEmpty(t *testing.T) {
	q := NewQueue(filepath.Join(t.TempDir(), "queue.jsonl"))

	queued, err := q.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(queued) != 0 {
		t.Errorf("queued = %v, want empty", queued)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.jsonl")

	q := NewQueue(path)
	if err := q.Enqueue(queuedUpdate("script", "first")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(queuedUpdate("talent", "second")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// A fresh Queue on the same path sees everything, in enqueue order
	reopened := NewQueue(path)
	queued, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("queued = %d, want 2", len(queued))
	}
	if queued[0].Request.Field != "script" || queued[1].Request.Field != "talent" {
		t.Errorf("order not preserved: %s, %s", queued[0].Request.Field, queued[1].Request.Field)
	}
}

func TestQueueRewriteKeepsRemainder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.jsonl")
	q := NewQueue(path)
	for _, field := range []string{"a", "b", "c"} {
		if err := q.Enqueue(queuedUpdate(field, "x")); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	queued, _ := q.Load()
	if err := q.Rewrite(queued[2:]); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	remaining, err := q.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Request.Field != "c" {
		t.Errorf("remaining = %v, want just field c", remaining)
	}

	if err := q.Rewrite(nil); err != nil {
		t.Fatalf("Rewrite(nil): %v", err)
	}
	if n, _ := q.Len(); n != 0 {
		t.Errorf("len after drain = %d, want 0", n)
	}
}

func TestQueueSkipsTruncatedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.jsonl")
	q := NewQueue(path)
	if err := q.Enqueue(queuedUpdate("script", "intact")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Simulate a crash mid-append
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(`{"rundown_id":"rd-1","requ`); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	queued, err := q.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(queued) != 1 || queued[0].Request.Field != "script" {
		t.Errorf("queued = %v, want just the intact mutation", queued)
	}
}
