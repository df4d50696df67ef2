package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/basket/go-t/internal/config"
	"github.com/basket/go-t/internal/doctor"
	"github.com/basket/go-t/internal/persistence"
	"github.com/basket/go-t/internal/telemetry"
)

func runDoctorCommand(ctx context.Context, args []string, std stdio) int {
	var f listFlags
	var jsonOutput bool
	fs := flag.NewFlagSet("t doctor", flag.ContinueOnError)
	fs.SetOutput(std.err)
	fs.BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	fs.StringVar(&f.list, "l", "", "list to check")
	fs.StringVar(&f.list, "list", "", "list to check")
	fs.StringVar(&f.taskDir, "t", "", "directory holding list files")
	fs.StringVar(&f.taskDir, "taskdir", "", "directory holding list files")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(std.err, "Error loading config: %v\n", err)
		// Keep going with defaults so the remaining checks still run.
	}
	if f.taskDir != "" {
		cfg.TaskDir = f.taskDir
	}
	if f.list != "" {
		if err := config.ValidateListName(f.list); err != nil {
			fmt.Fprintf(std.err, "Error: -list: %v\n", err)
			return 1
		}
		cfg.DefaultList = f.list
	}

	var cfgPtr *config.Config
	if err == nil {
		cfgPtr = &cfg
	}
	list, lerr := persistence.NewListFile(cfg.TaskDir, cfg.DefaultList, persistence.Options{Logger: telemetry.Discard()})
	if lerr != nil {
		list = nil
	}

	diag := doctor.Run(ctx, cfgPtr, list, Version)

	if jsonOutput {
		enc := json.NewEncoder(std.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diag); err != nil {
			fmt.Fprintf(std.err, "Error encoding json: %v\n", err)
			return 1
		}
		if diag.Failed() {
			return 1
		}
		return 0
	}

	fmt.Fprintf(std.out, "t Doctor Report (%s)\n", diag.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(std.out, "System: %s/%s (%s) t %s\n", diag.System.OS, diag.System.Arch, diag.System.Go, diag.System.Version)
	if diag.List != "" {
		fmt.Fprintf(std.out, "List: %s\n", diag.List)
	}
	fmt.Fprintln(std.out, "---")

	for _, res := range diag.Results {
		icon := "✅"
		switch res.Status {
		case "FAIL":
			icon = "❌"
		case "WARN":
			icon = "⚠️ "
		case "SKIP":
			icon = "⏩"
		}
		fmt.Fprintf(std.out, "%s %-15s: %s\n", icon, res.Name, res.Message)
		if res.Detail != "" {
			fmt.Fprintf(std.out, "    %s\n", res.Detail)
		}
	}
	if s := diag.Stats; s != nil {
		fmt.Fprintf(std.out, "---\nlines=%d tasks=%d comments=%d blank=%d no_metadata=%d duplicates=%d\n",
			s.Lines, s.Tasks, s.Comments, s.Blank, s.NoMetadata, s.Duplicates)
	}

	if diag.Failed() {
		return 1
	}
	return 0
}
