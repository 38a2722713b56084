// Package cli is the command-line entry point: the TUI by default, plus
// one-shot subcommands for scripting against the guidance API.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"mystic-chat/internal/api"
	"mystic-chat/internal/auth"
	"mystic-chat/internal/config"
	"mystic-chat/internal/logging"
)

func Run() int {
	if len(os.Args) < 2 {
		return runTUI(os.Args[1:])
	}

	cmd := os.Args[1]
	if strings.HasPrefix(cmd, "-") {
		return runTUI(os.Args[1:])
	}
	switch cmd {
	case "status":
		return runStatus(os.Args[2:])
	case "sessions":
		return runSessions(os.Args[2:])
	case "archived":
		return runArchived(os.Args[2:])
	case "lunar":
		return runLunar(os.Args[2:])
	case "send":
		return runSend(os.Args[2:])
	case "tui":
		return runTUI(os.Args[2:])
	default:
		usage()
		return 1
	}
}

func usage() {
	fmt.Println("mystic-chat <command> [options]")
	fmt.Println("Commands: status, sessions, archived, lunar, send, tui")
}

type commonFlags struct {
	configPath string
	baseURL    string
	format     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file path")
	fs.StringVar(&c.baseURL, "base-url", "", "override API base URL")
	fs.StringVar(&c.format, "format", "pretty", "output format: json|pretty")
}

// newClient builds an API client for one-shot commands; logs go to
// stderr so stdout stays clean for output.
func (c *commonFlags) newClient() (*api.Client, config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	if c.baseURL != "" {
		cfg.API.BaseURL = c.baseURL
	}
	logger := logging.New(cfg.Log, os.Stderr)
	provider := auth.ProviderFromConfig(cfg.Auth)
	tokens := auth.NewTokenCache(provider, cfg.Auth.CacheTTL, logger)
	return api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, tokens, logger), cfg, nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	client, cfg, err := common.newClient()
	if err != nil {
		return fail(err)
	}

	ctx := context.Background()
	var status *api.SystemStatus
	err = api.Retry(ctx, cfg.API.MaxRetries, cfg.API.RetryDelay, func() error {
		status, err = client.SystemStatus(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}
	if common.format == "json" {
		return printJSON(status)
	}
	fmt.Printf("active domains:    %s\n", joinOrNone(status.ActiveDomains))
	fmt.Printf("available domains: %s\n", joinOrNone(status.AvailableDomains))
	fmt.Printf("documents:         %d\n", status.TotalDocuments)
	fmt.Printf("cache entries:     %d\n", status.CacheSize)
	if status.LunarInfo != "" {
		fmt.Println(status.LunarInfo)
	}
	return 0
}

func runSessions(args []string) int {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	client, cfg, err := common.newClient()
	if err != nil {
		return fail(err)
	}

	ctx := context.Background()
	var sessions []api.SessionInfo
	err = api.Retry(ctx, cfg.API.MaxRetries, cfg.API.RetryDelay, func() error {
		sessions, err = client.Sessions(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}
	return printSessions(sessions, common.format)
}

func runArchived(args []string) int {
	fs := flag.NewFlagSet("archived", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	client, cfg, err := common.newClient()
	if err != nil {
		return fail(err)
	}

	ctx := context.Background()
	var sessions []api.SessionInfo
	err = api.Retry(ctx, cfg.API.MaxRetries, cfg.API.RetryDelay, func() error {
		sessions, err = client.ArchivedSessions(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}
	return printSessions(sessions, common.format)
}

func runLunar(args []string) int {
	fs := flag.NewFlagSet("lunar", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	client, cfg, err := common.newClient()
	if err != nil {
		return fail(err)
	}

	ctx := context.Background()
	var info *api.LunarInfo
	err = api.Retry(ctx, cfg.API.MaxRetries, cfg.API.RetryDelay, func() error {
		info, err = client.LunarInfo(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}
	if common.format == "json" {
		return printJSON(info)
	}
	fmt.Println(info.Summary)
	fmt.Printf("phase: %s, illumination %.1f%%\n", info.Details.Phase, info.Details.IlluminationPercentage)
	return 0
}

func runSend(args []string) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	sessionID := fs.String("session", "", "continue an existing session")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, `usage: mystic-chat send [options] "message"`)
		return 1
	}
	client, _, err := common.newClient()
	if err != nil {
		return fail(err)
	}

	// Chat is not idempotent, so no retries here.
	reply, err := client.SendChat(context.Background(), fs.Arg(0), *sessionID)
	if err != nil {
		return fail(err)
	}
	if common.format == "json" {
		return printJSON(reply)
	}
	fmt.Println(reply.Response)
	fmt.Fprintf(os.Stderr, "session: %s\n", reply.SessionID)
	return 0
}

func printSessions(sessions []api.SessionInfo, format string) int {
	if format == "json" {
		return printJSON(sessions)
	}
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-40s  %d messages\n", s.SessionID, title, s.MessageCount)
	}
	return 0
}

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fail(err)
	}
	fmt.Println(string(data))
	return 0
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err.Error())
	return 1
}
