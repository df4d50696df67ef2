package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrAmbiguousPrefix is returned by Resolve when a ref matches several tasks.
var ErrAmbiguousPrefix = errors.New("ambiguous task id prefix")

// Store is a set of tasks keyed by id. The zero value is not usable; call NewStore.
type Store struct {
	tasks map[ID]Task
}

// NewStore returns a store holding tasks. Later duplicates replace earlier ones.
func NewStore(tasks ...Task) *Store {
	s := &Store{tasks: make(map[ID]Task, len(tasks))}
	for _, t := range tasks {
		s.Put(t)
	}
	return s
}

// Put inserts t as-is, replacing any task with the same id.
func (s *Store) Put(t Task) {
	s.tasks[t.ID] = t
}

// Add inserts a task for text. Adding the same text twice leaves one task.
func (s *Store) Add(text string) Task {
	t := New(text)
	s.Put(t)
	return t
}

// Remove deletes the task with id. Removing an unknown id does nothing.
func (s *Store) Remove(id ID) (Task, bool) {
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	return t, ok
}

// Edit replaces the task with id by a task for text. The returned task carries
// the id derived from text, so the old id is no longer valid afterwards.
func (s *Store) Edit(id ID, text string) Task {
	s.Remove(id)
	return s.Add(text)
}

// Get returns the task with id.
func (s *Store) Get(id ID) (Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// Len returns the number of tasks.
func (s *Store) Len() int { return len(s.tasks) }

// Tasks returns every task ordered by text, then id. Callers must not rely on
// the order matching the file or insertion order.
func (s *Store) Tasks() []Task {
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Text != out[j].Text {
			return out[i].Text < out[j].Text
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Filter returns the tasks whose text contains substr, ignoring case.
func (s *Store) Filter(substr string) []Task {
	all := s.Tasks()
	needle := strings.ToLower(strings.TrimSpace(substr))
	if needle == "" {
		return all
	}
	out := all[:0]
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Text), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Resolve turns a full id or a unique id prefix into an id. A ref matching
// nothing comes back unchanged so that Remove and Edit stay no-ops.
func (s *Store) Resolve(ref string) (ID, error) {
	ref = strings.TrimSpace(ref)
	if _, ok := s.tasks[ID(ref)]; ok || ref == "" {
		return ID(ref), nil
	}
	var match ID
	n := 0
	for id := range s.tasks {
		if strings.HasPrefix(string(id), ref) {
			match = id
			n++
		}
	}
	switch n {
	case 0:
		return ID(ref), nil
	case 1:
		return match, nil
	default:
		return "", fmt.Errorf("%w: %q matches %d tasks", ErrAmbiguousPrefix, ref, n)
	}
}

// Prefixes returns the shortest prefix of each id that no other id shares.
func (s *Store) Prefixes() map[ID]string {
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	out := make(map[ID]string, len(ids))
	for i, id := range ids {
		n := 1
		if i > 0 {
			n = max(n, commonPrefixLen(id, ids[i-1])+1)
		}
		if i < len(ids)-1 {
			n = max(n, commonPrefixLen(id, ids[i+1])+1)
		}
		out[ID(id)] = id[:min(n, len(id))]
	}
	return out
}

func commonPrefixLen(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
