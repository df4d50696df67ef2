package task

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// ID identifies a task. Fingerprinted ids are 40 lowercase hex chars, but ids
// read from a file's metadata are trusted verbatim and may be anything non-empty.
type ID string

func (id ID) String() string { return string(id) }

// Fingerprint derives a task's id from its trimmed text.
func Fingerprint(text string) ID {
	sum := sha1.Sum([]byte(strings.TrimSpace(text)))
	return ID(hex.EncodeToString(sum[:]))
}
