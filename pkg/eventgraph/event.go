package eventgraph

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskd/pkg/task"
)

// Event types emitted for task mutations.
const (
	TypeTaskCreated = "task.created"
	TypeTaskUpdated = "task.updated"
	TypeTaskDeleted = "task.deleted"
)

// Event is one entry in the hash-chained, append-only log of task mutations.
type Event struct {
	ID        string    `json:"id"`        // UUID v7 (time-ordered)
	Type      string    `json:"type"`      // e.g. "task.created"
	Timestamp time.Time `json:"timestamp"` // when the mutation happened
	TaskID    uint32    `json:"task_id"`
	Task      task.Task `json:"task"`      // snapshot after the mutation, or the removed task
	Hash      string    `json:"hash"`      // SHA-256 of canonical form
	PrevHash  string    `json:"prev_hash"` // hash chain link
}

// Sink receives sealed events from a Journal.
type Sink interface {
	Append(ctx context.Context, e *Event) error
}

func newEvent(eventType string, t task.Task, now time.Time) *Event {
	return &Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      eventType,
		Timestamp: now.UTC().Truncate(time.Microsecond),
		TaskID:    t.ID,
		Task:      t,
	}
}

// seal links e to prevHash and computes its own hash.
func (e *Event) seal(prevHash string) error {
	taskJSON, err := json.Marshal(e.Task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	e.PrevHash = prevHash
	e.Hash = computeHash(prevHash, e.ID, e.Type, e.TaskID, e.Timestamp, taskJSON)
	return nil
}

// VerifyChain checks that events form an unbroken chain starting from an
// empty prev hash, and that every stored hash matches its content.
func VerifyChain(events []Event) error {
	prevHash := ""
	for i, e := range events {
		if e.PrevHash != prevHash {
			return fmt.Errorf("event %d (%s): prev_hash mismatch: got %s, want %s", i, e.ID, e.PrevHash, prevHash)
		}
		taskJSON, err := json.Marshal(e.Task)
		if err != nil {
			return fmt.Errorf("event %d (%s): marshal task: %w", i, e.ID, err)
		}
		expected := computeHash(prevHash, e.ID, e.Type, e.TaskID, e.Timestamp, taskJSON)
		if e.Hash != expected {
			return fmt.Errorf("event %d (%s): hash mismatch: got %s, want %s", i, e.ID, e.Hash, expected)
		}
		prevHash = e.Hash
	}
	return nil
}

// computeHash computes a SHA-256 hash for chain integrity.
func computeHash(prevHash, id, eventType string, taskID uint32, timestamp time.Time, taskJSON []byte) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%s", prevHash, id, eventType, taskID, timestamp.UnixNano(), string(taskJSON))
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", h)
}
