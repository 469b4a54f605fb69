package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	rundownSvc "rundown/internal/domain/services/rundown"
)

// QueuedMutation is one parked field update awaiting replay.
type QueuedMutation struct {
	RundownID  string                        `json:"rundown_id"`
	Request    rundownSvc.FieldUpdateRequest `json:"request"`
	EnqueuedAt time.Time                     `json:"enqueued_at"`
}

// Queue is a durable offline queue of field updates, one JSON object per
// line. Mutations survive process restarts; replay preserves enqueue
// order, which is what makes last-write-wins deterministic for a single
// offline editor.
type Queue struct {
	path string
	mu   sync.Mutex
}

// NewQueue opens (or creates) a queue file at path.
func NewQueue(path string) *Queue {
	return &Queue{path: path}
}

// Enqueue appends one mutation and syncs it to disk before returning.
func (q *Queue) Enqueue(m QueuedMutation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.OpenFile(q.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal queued mutation: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append queued mutation: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync queue: %w", err)
	}

	return nil
}

// Load reads every queued mutation in enqueue order. A missing file is an
// empty queue. Truncated trailing lines (crash mid-append) are skipped.
func (q *Queue) Load() ([]QueuedMutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.Open(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []QueuedMutation{}, nil
		}
		return nil, fmt.Errorf("open queue: %w", err)
	}
	defer f.Close()

	var out []QueuedMutation
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m QueuedMutation
		if err := json.Unmarshal(line, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}

	if out == nil {
		out = []QueuedMutation{}
	}
	return out, nil
}

// Rewrite atomically replaces the queue contents with the given
// mutations. Called after replay with whatever failed to land.
func (q *Queue) Rewrite(remaining []QueuedMutation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	tmp := q.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open queue tmp: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, m := range remaining {
		line, err := json.Marshal(m)
		if err != nil {
			f.Close()
			return fmt.Errorf("marshal queued mutation: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("write queue tmp: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush queue tmp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync queue tmp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close queue tmp: %w", err)
	}

	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("replace queue: %w", err)
	}

	return nil
}

// Len reports the number of queued mutations.
func (q *Queue) Len() (int, error) {
	queued, err := q.Load()
	if err != nil {
		return 0, err
	}
	return len(queued), nil
}
