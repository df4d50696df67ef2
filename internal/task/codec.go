package task

import (
	"errors"
	"strings"
)

const (
	commentPrefix  = "#"
	fieldSeparator = "|"
	metaSeparator  = ","
	labelSeparator = ":"

	// LabelID is the metadata label carrying a task's id.
	LabelID = "id"
)

// Text that EncodeLine cannot write back as a task.
var (
	ErrEmptyText   = errors.New("task text is empty")
	ErrCommentText = errors.New("task text starts with '#' and would be read back as a comment")
)

// CheckText reports whether text survives an EncodeLine/DecodeLine round trip
// as a task. Text containing '|' is accepted; see DecodeLine.
func CheckText(text string) error {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return ErrEmptyText
	case strings.HasPrefix(text, commentPrefix):
		return ErrCommentText
	}
	return nil
}

// DecodeLine parses one line of a list file. It returns false for comments,
// blank lines and anything else that does not describe a task.
func DecodeLine(line string) (Task, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, commentPrefix) {
		return Task{}, false
	}

	// The last separator wins so task text may itself contain '|'.
	idx := strings.LastIndex(line, fieldSeparator)
	if idx < 0 {
		return New(line), true
	}

	text := strings.TrimSpace(line[:idx])
	meta := ParseMetadata(line[idx:])
	if id := meta[LabelID]; id != "" {
		return Task{Text: text, ID: ID(id)}, true
	}
	return Task{Text: text, ID: Fingerprint(text)}, true
}

// ParseMetadata splits a metadata segment into label/data pairs. A leading '|'
// is ignored, fragments without ':' are dropped, and later labels overwrite
// earlier ones.
func ParseMetadata(segment string) map[string]string {
	segment = strings.TrimPrefix(strings.TrimSpace(segment), fieldSeparator)
	meta := make(map[string]string)
	for _, frag := range strings.Split(segment, metaSeparator) {
		label, data, ok := strings.Cut(frag, labelSeparator)
		if !ok {
			continue
		}
		meta[strings.TrimSpace(label)] = strings.TrimSpace(data)
	}
	return meta
}

// HasMetadata reports whether a raw line carries a metadata segment.
func HasMetadata(line string) bool {
	return strings.Contains(line, fieldSeparator)
}

// EncodeLine renders t as a newline-terminated taskline.
func EncodeLine(t Task) string {
	var b strings.Builder
	b.Grow(len(t.Text) + len(t.ID) + 8)
	b.WriteString(t.Text)
	b.WriteString(" " + fieldSeparator + " " + LabelID + labelSeparator)
	b.WriteString(string(t.ID))
	b.WriteByte('\n')
	return b.String()
}
