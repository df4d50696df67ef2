package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/basket/go-t/internal/audit"
	"github.com/basket/go-t/internal/persistence"
	"github.com/basket/go-t/internal/task"
	"github.com/basket/go-t/internal/tui"
)

// errUsage marks failures that exit 2.
var errUsage = errors.New("usage")

// substitution matches an edit text of the form s/OLD/NEW/.
var substitution = regexp.MustCompile(`^s/(.*)/(.*)/$`)

type taskFlags struct {
	listFlags
	edit    string
	finish  string
	remove  string
	grep    string
	verbose bool
	quiet   bool
	done    bool
	watch   bool
	version bool
}

func parseTaskFlags(args []string, stderr io.Writer) (taskFlags, []string, error) {
	var f taskFlags
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	fs.StringVar(&f.list, "l", "", "list to work on")
	fs.StringVar(&f.list, "list", "", "list to work on")
	fs.StringVar(&f.taskDir, "t", "", "directory holding list files")
	fs.StringVar(&f.taskDir, "taskdir", "", "directory holding list files")
	fs.StringVar(&f.edit, "e", "", "edit task REF")
	fs.StringVar(&f.edit, "edit", "", "edit task REF")
	fs.StringVar(&f.finish, "f", "", "finish task REF")
	fs.StringVar(&f.finish, "finish", "", "finish task REF")
	fs.StringVar(&f.remove, "r", "", "remove task REF")
	fs.StringVar(&f.remove, "remove", "", "remove task REF")
	fs.BoolVar(&f.deleteIfEmpty, "d", false, "delete the list file when it becomes empty")
	fs.BoolVar(&f.deleteIfEmpty, "delete-if-empty", false, "delete the list file when it becomes empty")
	fs.StringVar(&f.grep, "g", "", "only list tasks containing WORD")
	fs.StringVar(&f.grep, "grep", "", "only list tasks containing WORD")
	fs.BoolVar(&f.verbose, "v", false, "show full task ids")
	fs.BoolVar(&f.verbose, "verbose", false, "show full task ids")
	fs.BoolVar(&f.quiet, "q", false, "show task text only")
	fs.BoolVar(&f.quiet, "quiet", false, "show task text only")
	fs.BoolVar(&f.done, "done", false, "list finished tasks")
	fs.BoolVar(&f.watch, "watch", false, "reprint the list whenever it changes")
	fs.BoolVar(&f.debug, "debug", false, "mirror logs to stderr")
	fs.BoolVar(&f.version, "version", false, "print the version")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return f, nil, err
		}
		return f, nil, errUsage
	}

	actions := 0
	for _, ref := range []string{f.edit, f.finish, f.remove} {
		if ref != "" {
			actions++
		}
	}
	if actions > 1 {
		return f, nil, fmt.Errorf("%w: -edit, -finish and -remove are mutually exclusive", errUsage)
	}
	if f.watch && actions > 0 {
		return f, nil, fmt.Errorf("%w: -watch only lists", errUsage)
	}
	return f, fs.Args(), nil
}

func runTaskCommand(ctx context.Context, args []string, std stdio) int {
	f, rest, err := parseTaskFlags(args, std.err)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if err != errUsage {
			fmt.Fprintf(std.err, "Error: %v\n", err)
		}
		return 2
	}
	if f.version {
		fmt.Fprintf(std.out, "t %s\n", Version)
		return 0
	}
	text := strings.TrimSpace(strings.Join(rest, " "))
	if f.edit != "" && text == "" {
		fmt.Fprintln(std.err, "Error: -edit needs the new TEXT")
		return 2
	}
	adding := f.edit == "" && f.finish == "" && f.remove == "" && text != ""
	if (adding || f.edit != "") && !substitution.MatchString(text) {
		if err := task.CheckText(text); err != nil {
			fmt.Fprintf(std.err, "Error: %v\n", err)
			return 2
		}
	}

	ctx, s, err := openSession(ctx, f.listFlags)
	if err != nil {
		fmt.Fprintf(std.err, "Error: %v\n", err)
		return 1
	}
	defer s.Close(ctx)

	if f.watch {
		err = watchList(ctx, s, f, std.out)
	} else {
		err = applyTaskAction(ctx, s, f, text, std.out)
	}
	if err != nil {
		s.logger.Error("command failed", "error", err)
		fmt.Fprintf(std.err, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func applyTaskAction(ctx context.Context, s *session, f taskFlags, text string, out io.Writer) error {
	store, err := s.list.Load(ctx)
	if err != nil {
		return err
	}

	switch {
	case f.edit != "":
		return editTask(ctx, s, store, f.edit, text)
	case f.finish != "":
		return finishTask(ctx, s, store, f.finish)
	case f.remove != "":
		return removeTask(ctx, s, store, f.remove)
	case text != "":
		t := store.Add(text)
		if err := s.list.Save(ctx, store); err != nil {
			return err
		}
		s.list.Record(ctx, audit.ActionAdd, t, "")
		return nil
	default:
		if f.done {
			if store, err = s.list.LoadDone(ctx); err != nil {
				return err
			}
		}
		return renderList(store, f, out)
	}
}

func editTask(ctx context.Context, s *session, store *task.Store, ref, text string) error {
	id, err := store.Resolve(ref)
	if err != nil {
		return err
	}
	if m := substitution.FindStringSubmatch(text); m != nil {
		old, ok := store.Get(id)
		if !ok {
			return nil
		}
		re, err := regexp.Compile(m[1])
		if err != nil {
			return fmt.Errorf("edit pattern: %w", err)
		}
		text = re.ReplaceAllString(old.Text, m[2])
		if err := task.CheckText(text); err != nil {
			return fmt.Errorf("%w: edit of %s: %w", errUsage, ref, err)
		}
	}
	t := store.Edit(id, text)
	if err := s.list.Save(ctx, store); err != nil {
		return err
	}
	s.list.Record(ctx, audit.ActionEdit, t, id)
	return nil
}

func finishTask(ctx context.Context, s *session, store *task.Store, ref string) error {
	id, err := store.Resolve(ref)
	if err != nil {
		return err
	}
	t, ok := store.Remove(id)
	if !ok {
		return nil
	}
	done, err := s.list.LoadDone(ctx)
	if err != nil {
		return err
	}
	done.Put(t)
	// Done list first: a failure in between leaves the task in both files, never in neither.
	if err := s.list.SaveDone(ctx, done); err != nil {
		return err
	}
	if err := s.list.Save(ctx, store); err != nil {
		return err
	}
	s.list.Record(ctx, audit.ActionFinish, t, "")
	return nil
}

func removeTask(ctx context.Context, s *session, store *task.Store, ref string) error {
	id, err := store.Resolve(ref)
	if err != nil {
		return err
	}
	t, ok := store.Remove(id)
	if !ok {
		return nil
	}
	if err := s.list.Save(ctx, store); err != nil {
		return err
	}
	s.list.Record(ctx, audit.ActionRemove, t, "")
	return nil
}

func listView(f taskFlags, out io.Writer) tui.ListView {
	mode := tui.IDPrefix
	switch {
	case f.quiet:
		mode = tui.IDNone
	case f.verbose:
		mode = tui.IDFull
	}
	if file, ok := out.(*os.File); ok {
		return tui.NewListView(file, mode)
	}
	return tui.ListView{IDs: mode}
}

// renderList prints the store, filtered by -grep. Prefixes are computed over
// the whole list so a shown prefix is also a valid REF.
func renderList(store *task.Store, f taskFlags, out io.Writer) error {
	tasks := store.Tasks()
	if f.grep != "" {
		tasks = store.Filter(f.grep)
	}
	return listView(f, out).Render(out, tasks, store.Prefixes())
}

// watchList prints the list, then reprints it after every change to the file
// until ctx is cancelled.
func watchList(ctx context.Context, s *session, f taskFlags, out io.Writer) error {
	path := s.list.Path()
	if f.done {
		path = s.list.DonePath()
	}
	load := func() (*task.Store, error) {
		if f.done {
			return s.list.LoadDone(ctx)
		}
		return s.list.Load(ctx)
	}

	w := persistence.NewWatcher(path, s.logger)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	view := listView(f, out)
	show := func() error {
		store, err := load()
		if err != nil {
			return err
		}
		if view.Color {
			fmt.Fprint(out, "\x1b[H\x1b[2J")
		}
		return renderList(store, f, out)
	}
	if err := show(); err != nil {
		return err
	}
	for range w.Events() {
		if !view.Color {
			fmt.Fprintln(out, "---")
		}
		if err := show(); err != nil {
			return err
		}
	}
	return nil
}
