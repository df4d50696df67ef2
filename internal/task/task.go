// Package task holds the task record model, its one-line text encoding and the
// in-memory store that keeps records unique by id.
package task

import "strings"

// Task is one list entry. Identity is the ID alone; Text is informational.
type Task struct {
	Text string
	ID   ID
}

// New builds a task whose id is derived from text.
func New(text string) Task {
	text = strings.TrimSpace(text)
	return Task{Text: text, ID: Fingerprint(text)}
}

// Same reports whether t and other are the same task.
func (t Task) Same(other Task) bool {
	return t.ID == other.ID
}
