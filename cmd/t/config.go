package main

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/basket/go-t/internal/config"
)

func runConfigCommand(_ context.Context, args []string, std stdio) int {
	switch {
	case len(args) == 0:
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(std.err, "Error: load config: %v\n", err)
			return 1
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(std.err, "Error: marshal config: %v\n", err)
			return 1
		}
		fmt.Fprintf(std.out, "# %s\n%s", config.ConfigPath(cfg.HomeDir), out)
		return 0
	case args[0] == "set" && len(args) == 3:
		if err := config.Set(config.HomeDir(), args[1], args[2]); err != nil {
			fmt.Fprintf(std.err, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(std.out, "%s = %s\n", args[1], args[2])
		return 0
	default:
		fmt.Fprintln(std.err, "usage: t config | t config set KEY VALUE")
		return 2
	}
}
