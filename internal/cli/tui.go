package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"mystic-chat/internal/config"
	"mystic-chat/internal/logging"
	"mystic-chat/internal/tui"
)

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	baseURL := fs.String("base-url", "", "override API base URL")
	logFile := fs.String("log-file", "", "write logs to a file")
	verbose := fs.Bool("verbose", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fail(err)
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	// The TUI owns the terminal, so logs are dropped unless a file is
	// configured.
	out := io.Writer(io.Discard)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fail(err)
		}
		defer f.Close()
		out = f
	}
	logger := logging.New(cfg.Log, out)

	if err := tui.Run(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}
