package persistence_test

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/basket/go-t/internal/persistence"
	"github.com/basket/go-t/internal/task"
)

type pair struct {
	id   task.ID
	text string
}

func pairs(s *task.Store) map[pair]struct{} {
	out := make(map[pair]struct{}, s.Len())
	for _, t := range s.Tasks() {
		out[pair{id: t.ID, text: t.Text}] = struct{}{}
	}
	return out
}

func TestRead_SkipsCommentsAndBlanks(t *testing.T) {
	s, err := persistence.Read(strings.NewReader("# note\n\nbuy milk | id:abc123\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected exactly one task, got %d", s.Len())
	}
	got, ok := s.Get("abc123")
	if !ok || got.Text != "buy milk" {
		t.Fatalf("expected {buy milk, abc123}, got %+v ok=%v", got, ok)
	}
}

func TestScan_Stats(t *testing.T) {
	input := strings.Join([]string{
		"# header",
		"",
		"   ",
		"plain task",
		"buy milk | id:abc",
		"replaced | id:abc",
		"  # indented comment",
		"walk dog | due:today",
	}, "\n")

	s, stats, err := persistence.Scan(strings.NewReader(input))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := persistence.ScanStats{Lines: 8, Tasks: 4, Comments: 2, Blank: 2, NoMetadata: 1, Duplicates: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 unique tasks, got %d", s.Len())
	}
	if got, _ := s.Get("abc"); got.Text != "replaced" {
		t.Fatalf("expected later duplicate to win, got %q", got.Text)
	}
}

func TestRead_VeryLongLineDoesNotFailTheFile(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	input := "buy milk | id:abc\n" + long + "\nwalk dog\n"

	s, err := persistence.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got, ok := s.Get("abc"); !ok || got.Text != "buy milk" {
		t.Fatalf("task before the long line missing: %+v ok=%v", got, ok)
	}
	if _, ok := s.Get(task.Fingerprint("walk dog")); !ok {
		t.Fatal("task after the long line missing")
	}
	if got, ok := s.Get(task.Fingerprint(long)); !ok || len(got.Text) != len(long) {
		t.Fatalf("long taskline not kept intact (ok=%v, len=%d)", ok, len(got.Text))
	}
}

func TestScan_CRLFAndMissingFinalNewline(t *testing.T) {
	s, stats, err := persistence.Scan(strings.NewReader("buy milk | id:abc\r\n# note\r\nwalk dog"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if stats.Lines != 3 || stats.Tasks != 2 || stats.Comments != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got, _ := s.Get("abc"); got.Text != "buy milk" {
		t.Fatalf("carriage return leaked into the task: %q", got.Text)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestScan_ReaderErrorSurfaces(t *testing.T) {
	if _, _, err := persistence.Scan(failingReader{}); err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("expected reader error, got %v", err)
	}
}

func TestScanFile_MatchesLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks")
	if err := os.WriteFile(path, []byte("# c\nbuy milk\nbuy milk | id:abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, stats, err := persistence.ScanFile(path)
	if err != nil {
		t.Fatalf("scan file: %v", err)
	}
	if stats.Comments != 1 || stats.NoMetadata != 1 || stats.Tasks != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	loaded, err := persistence.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(pairs(s)) != 2 || len(pairs(loaded)) != 2 {
		t.Fatalf("expected 2 tasks from both, got %d and %d", s.Len(), loaded.Len())
	}

	missing, stats, err := persistence.ScanFile(filepath.Join(t.TempDir(), "nope"))
	if err != nil || missing.Len() != 0 || stats != (persistence.ScanStats{}) {
		t.Fatalf("missing file: store=%d stats=%+v err=%v", missing.Len(), stats, err)
	}
}

func TestWrite_OneLinePerTask(t *testing.T) {
	s := task.NewStore()
	a := s.Add("walk dog")
	b := s.Add("buy milk")

	var buf bytes.Buffer
	if err := persistence.Write(&buf, s); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := task.EncodeLine(b) + task.EncodeLine(a)
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, err := persistence.Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestLoad_DirectoryIsFatal(t *testing.T) {
	dir := t.TempDir()
	if _, err := persistence.Load(dir); err == nil {
		t.Fatal("expected error loading a directory")
	}
}

func TestLoad_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	path := filepath.Join(t.TempDir(), "locked")
	if err := os.WriteFile(path, []byte("x\n"), 0o000); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := persistence.Load(path)
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestSave_DirectoryIsFatal(t *testing.T) {
	dir := t.TempDir()
	s := task.NewStore()
	s.Add("x")
	if err := persistence.Save(dir, s); err == nil {
		t.Fatal("expected error saving over a directory")
	}
	if err := persistence.SaveAtomic(dir, s); err == nil {
		t.Fatal("expected error atomically saving over a directory")
	}
}

func TestSave_MissingDirectoryIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "tasks")
	if err := persistence.Save(path, task.NewStore()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSaveLoad_FullCycle(t *testing.T) {
	for _, tc := range []struct {
		name string
		save func(string, *task.Store) error
	}{
		{name: "truncate", save: persistence.Save},
		{name: "atomic", save: persistence.SaveAtomic},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks")
			content := "# keep me? no, comments are not preserved\n" +
				"zeta\n" +
				"alpha | id:custom-id\n" +
				"\n" +
				"pipe | in text | id:p1\n" +
				"dup | id:d\n" +
				"dup again | id:d\n"
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("seed: %v", err)
			}

			first, err := persistence.Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if err := tc.save(path, first); err != nil {
				t.Fatalf("save: %v", err)
			}
			second, err := persistence.Load(path)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}

			a, b := pairs(first), pairs(second)
			if len(a) != 4 || len(a) != len(b) {
				t.Fatalf("pair counts differ: %d vs %d", len(a), len(b))
			}
			for p := range a {
				if _, ok := b[p]; !ok {
					t.Fatalf("pair %+v lost across save/load", p)
				}
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			if !strings.Contains(string(raw), "zeta | id:"+string(task.Fingerprint("zeta"))+"\n") {
				t.Fatalf("metadata-less line should be re-emitted with its id:\n%s", raw)
			}
			if strings.Contains(string(raw), "#") {
				t.Fatalf("comments should not survive a save:\n%s", raw)
			}
		})
	}
}

func TestSave_TruncatesLongerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks")
	if err := os.WriteFile(path, []byte(strings.Repeat("old task\n", 50)), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := task.NewStore()
	s.Add("new")
	if err := persistence.Save(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != task.EncodeLine(task.New("new")) {
		t.Fatalf("expected file to be fully rewritten, got %q", raw)
	}
}

func TestSaveAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks")
	s := task.NewStore()
	s.Add("a")
	if err := persistence.SaveAtomic(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "tasks" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the list file, got %v", names)
	}
}
