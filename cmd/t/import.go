package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/basket/go-t/internal/audit"
	"github.com/basket/go-t/internal/persistence"
	"github.com/basket/go-t/internal/task"
)

func runImportCommand(ctx context.Context, args []string, std stdio) int {
	var f listFlags
	fs := flag.NewFlagSet("t import", flag.ContinueOnError)
	fs.SetOutput(std.err)
	fs.StringVar(&f.list, "l", "", "list to import into")
	fs.StringVar(&f.list, "list", "", "list to import into")
	fs.StringVar(&f.taskDir, "t", "", "directory holding list files")
	fs.StringVar(&f.taskDir, "taskdir", "", "directory holding list files")
	fs.BoolVar(&f.debug, "debug", false, "mirror logs to stderr")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(std.err, "usage: t import [-list NAME] [-taskdir DIR] FILE|-")
		return 2
	}

	incoming, err := readImport(fs.Arg(0), std.in)
	if err != nil {
		fmt.Fprintf(std.err, "Error: %v\n", err)
		return 1
	}

	ctx, s, err := openSession(ctx, f)
	if err != nil {
		fmt.Fprintf(std.err, "Error: %v\n", err)
		return 1
	}
	defer s.Close(ctx)

	n, err := importTasks(ctx, s, incoming)
	if err != nil {
		s.logger.Error("import failed", "error", err)
		fmt.Fprintf(std.err, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(std.out, "imported %d tasks into %s\n", n, s.list.Path())
	return 0
}

func readImport(src string, stdin io.Reader) (*task.Store, error) {
	if src == "-" {
		s, err := persistence.Read(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return s, nil
	}
	file, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer file.Close()
	s, err := persistence.Read(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return s, nil
}

// importTasks merges incoming into the session's list, keeping incoming ids.
// Tasks already present are not counted.
func importTasks(ctx context.Context, s *session, incoming *task.Store) (int, error) {
	store, err := s.list.Load(ctx)
	if err != nil {
		return 0, err
	}
	var added []task.Task
	for _, t := range incoming.Tasks() {
		if existing, ok := store.Get(t.ID); ok && existing.Text == t.Text {
			continue
		}
		store.Put(t)
		added = append(added, t)
	}
	if len(added) == 0 {
		return 0, nil
	}
	if err := s.list.Save(ctx, store); err != nil {
		return 0, err
	}
	for _, t := range added {
		s.list.Record(ctx, audit.ActionImport, t, "")
	}
	return len(added), nil
}
