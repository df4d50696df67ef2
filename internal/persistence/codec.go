package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/basket/go-t/internal/task"
)

// ScanStats describes what Scan saw while decoding a list file.
type ScanStats struct {
	Lines      int `json:"lines"`
	Tasks      int `json:"tasks"`
	Comments   int `json:"comments"`
	Blank      int `json:"blank"`
	NoMetadata int `json:"no_metadata"`
	Duplicates int `json:"duplicates"`
}

// Read decodes a list from r. Comments, blank lines and lines that do not
// decode are skipped; only errors from r itself are returned.
func Read(r io.Reader) (*task.Store, error) {
	s, _, err := Scan(r)
	return s, err
}

// Scan is Read that also reports per-line statistics. Lines of any length
// are accepted.
func Scan(r io.Reader) (*task.Store, ScanStats, error) {
	var stats ScanStats
	s := task.NewStore()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, stats, err
		}
		if line != "" {
			stats.Lines++
			scanLine(s, &stats, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return s, stats, nil
		}
	}
}

func scanLine(s *task.Store, stats *ScanStats, line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		stats.Blank++
		return
	case strings.HasPrefix(trimmed, "#"):
		stats.Comments++
		return
	}
	t, ok := task.DecodeLine(line)
	if !ok {
		return
	}
	if !task.HasMetadata(trimmed) {
		stats.NoMetadata++
	}
	if _, dup := s.Get(t.ID); dup {
		stats.Duplicates++
	}
	stats.Tasks++
	s.Put(t)
}

// Write encodes every task in s to w, one line per task.
func Write(w io.Writer, s *task.Store) error {
	bw := bufio.NewWriter(w)
	for _, t := range s.Tasks() {
		if _, err := bw.WriteString(task.EncodeLine(t)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load reads the list at path. A missing file yields an empty store.
func Load(path string) (*task.Store, error) {
	s, _, err := ScanFile(path)
	return s, err
}

// ScanFile is Load that also reports line statistics.
func ScanFile(path string) (*task.Store, ScanStats, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return task.NewStore(), ScanStats{}, nil
		}
		return nil, ScanStats{}, fmt.Errorf("open list: %w", err)
	}
	defer f.Close()

	s, stats, err := Scan(f)
	if err != nil {
		return nil, stats, fmt.Errorf("read list %s: %w", path, err)
	}
	return s, stats, nil
}

// Save truncates (or creates) path and writes s to it. An interrupted write
// can leave the file truncated.
func Save(path string, s *task.Store) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open list for write: %w", err)
	}
	if err := Write(f, s); err != nil {
		_ = f.Close()
		return fmt.Errorf("write list %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close list %s: %w", path, err)
	}
	return nil
}

// SaveAtomic writes s to a temp file next to path, syncs it and renames it
// over path, so readers see either the old or the new list.
func SaveAtomic(path string, s *task.Store) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("open list for write: %s is a directory", path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := Write(tmp, s); err != nil {
		return fmt.Errorf("write list %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}
