// Package audit keeps an append-only journal of list mutations.
package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/basket/go-t/internal/shared"
)

// JournalFileName is the JSON-lines journal written under <home>/logs.
const JournalFileName = "journal.jsonl"

// Actions recorded in the journal.
const (
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionFinish = "finish"
	ActionRemove = "remove"
	ActionImport = "import"
)

// Entry is one journal line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id"`
	Action    string `json:"action"`
	List      string `json:"list"`
	TaskID    string `json:"task_id"`
	PrevID    string `json:"prev_id,omitempty"`
	Text      string `json:"text,omitempty"`
}

var (
	mu   sync.Mutex
	file *os.File
)

// Init opens the journal under homeDir. Calling it twice is harmless.
func Init(homeDir string) error {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		return nil
	}
	logDir := filepath.Join(homeDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, JournalFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	file = f
	return nil
}

// Close closes the journal. Records after Close are dropped.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// Record appends a mutation to the journal. It is a no-op until Init succeeds.
// Journal write failures never fail the mutation itself.
func Record(ctx context.Context, action, taskID, prevID, text string) {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return
	}
	ev := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     shared.RunID(ctx),
		Action:    action,
		List:      shared.List(ctx),
		TaskID:    taskID,
		PrevID:    prevID,
		Text:      shared.Redact(text),
	}
	b, err := json.Marshal(ev)
	if err == nil {
		_, _ = file.Write(append(b, '\n'))
	}
}
