package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/archiai/studio/internal/app"
	"github.com/archiai/studio/internal/config"
	"github.com/archiai/studio/internal/mcp"
	"github.com/archiai/studio/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"project": true, "ui": true, "snapshots": true, "reset": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
   ___ _____ _   _ ___ ___ ___
  / __|_   _| | | |   \_ _/ _ \
  \__ \ | | | |_| | |) | | (_) |
  |___/ |_|  \___/|___/___\___/

  Project and UI preference stores

  Usage: studio <command> [options]
         studio --help

  MCP server mode requires piped input.`)
}

// baseDir is ~/.archiai unless STUDIO_HOME is set.
func baseDir() (string, error) {
	if dir := os.Getenv("STUDIO_HOME"); dir != "" {
		return dir, nil
	}
	return ops.DefaultBaseDir()
}

// newLogger writes text logs to stderr; stdout belongs to MCP and CLI output.
func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// No stores needed for --help/--version
	if isHelpOrVersion() {
		cliApp := newCLIApp(nil)
		if err := cliApp.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fail("could not determine base directory: %v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fail("failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled_tools entries", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled_types entries", "types", unknown)
	}

	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'studio --help' for usage.\n")
		os.Exit(1)
	}

	a, err := app.Open(context.Background(), cfg, dir, logger)
	if err != nil {
		fail("failed to open stores: %v", err)
	}
	defer a.Close()

	if isCLIMode() {
		cliApp := newCLIApp(a)
		if err := cliApp.Run(os.Args); err != nil {
			a.Close()
			fail("%v", err)
		}
		return
	}

	if err := mcp.Run(a, Version); err != nil {
		a.Close()
		fail("%v", err)
	}
}
