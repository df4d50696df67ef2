package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basket/go-t/internal/shared"
)

func readEntries(t *testing.T, home string) []Entry {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(home, "logs", JournalFileName))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	var out []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("unmarshal journal entry %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestRecordWritesJournalEntry(t *testing.T) {
	home := t.TempDir()
	if err := Init(home); err != nil {
		t.Fatalf("init journal: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	ctx := shared.WithList(shared.WithRunID(context.Background(), "run-1"), "groceries")
	Record(ctx, ActionAdd, "abc", "", "buy milk")
	Record(ctx, ActionEdit, "def", "abc", "buy oat milk")

	entries := readEntries(t, home)
	if len(entries) != 2 {
		t.Fatalf("expected two journal entries, got %d", len(entries))
	}
	first := entries[0]
	if first.Action != ActionAdd || first.TaskID != "abc" || first.Text != "buy milk" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.RunID != "run-1" || first.List != "groceries" {
		t.Fatalf("expected context fields in entry: %+v", first)
	}
	if first.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if entries[1].PrevID != "abc" {
		t.Fatalf("expected prev_id on edit, got %+v", entries[1])
	}
}

func TestRecordRedactsText(t *testing.T) {
	home := t.TempDir()
	if err := Init(home); err != nil {
		t.Fatalf("init journal: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	Record(context.Background(), ActionAdd, "abc", "", "wifi password=hunter22")

	entries := readEntries(t, home)
	if got := entries[len(entries)-1].Text; strings.Contains(got, "hunter22") {
		t.Fatalf("expected redacted text, got %q", got)
	}
}

func TestJournalAppendOnly(t *testing.T) {
	home := t.TempDir()
	if err := Init(home); err != nil {
		t.Fatalf("init journal: %v", err)
	}
	Record(context.Background(), ActionAdd, "one", "", "first")
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := Init(home); err != nil {
		t.Fatalf("re-init journal: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
	Record(context.Background(), ActionRemove, "one", "", "")

	entries := readEntries(t, home)
	if len(entries) != 2 {
		t.Fatalf("expected entries to accumulate across opens, got %d", len(entries))
	}
	if entries[0].Action != ActionAdd || entries[1].Action != ActionRemove {
		t.Fatalf("unexpected entry order: %+v", entries)
	}
}

func TestRecordBeforeInitIsNoop(t *testing.T) {
	_ = Close()
	Record(context.Background(), ActionAdd, "x", "", "y")
}
