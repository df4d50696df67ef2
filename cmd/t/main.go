package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.3-dev"

// stdio carries the streams a command reads and writes.
type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: t [flags] [TEXT...]

  t                           List tasks
  t TEXT...                   Add a task
  t -e REF TEXT...            Replace the text of task REF
  t -e REF s/OLD/NEW/         Substitute a regexp in the text of task REF
  t -f REF                    Move task REF to the done list
  t -r REF                    Remove task REF

REF is a full task id or any unique prefix of one.

SUBCOMMANDS:
  t import [flags] FILE|-     Add every task in FILE (or stdin) to the list
  t doctor [-json]            Run diagnostic checks
  t config                    Print the effective configuration
  t config set KEY VALUE      Update config.yaml (KEY may be section.key)
  t help                      Show this help

Use "t -- TEXT" to add a task that starts with a subcommand name.

FLAGS:
  -l, -list NAME              List to work on (default: default_list, "tasks")
  -t, -taskdir DIR            Directory holding list files (default: task_dir, ".")
  -e, -edit REF               Edit task REF
  -f, -finish REF             Finish task REF
  -r, -remove REF             Remove task REF
  -d, -delete-if-empty        Delete the list file when it becomes empty
  -g, -grep WORD              Only list tasks containing WORD
  -v, -verbose                Show full task ids
  -q, -quiet                  Show task text only
  -done                       List finished tasks
  -watch                      Reprint the list whenever it changes
  -debug                      Mirror logs to stderr
  -version                    Print the version

ENVIRONMENT VARIABLES:
  T_HOME                      Config and log directory (default: ~/.t)
  T_TASKDIR                   Overrides task_dir
  T_LIST                      Overrides default_list
  T_LOG_LEVEL                 Overrides log_level
  T_SAVE_MODE                 Overrides save_mode (truncate or atomic)
  T_OTEL                      Enables OpenTelemetry export when true
`)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], stdio{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, std stdio) int {
	if len(args) > 0 {
		switch strings.ToLower(strings.TrimSpace(args[0])) {
		case "help", "-h", "--help", "-help":
			printUsage(std.out)
			return 0
		case "import":
			return runImportCommand(ctx, args[1:], std)
		case "doctor":
			return runDoctorCommand(ctx, args[1:], std)
		case "config":
			return runConfigCommand(ctx, args[1:], std)
		}
	}
	return runTaskCommand(ctx, args, std)
}
