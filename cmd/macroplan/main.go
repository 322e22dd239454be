// cmd/macroplan/main.go
//
// This is the entry point for the macroplan CLI.
// Running `macroplan` in a directory treats it as the project: the catalogue,
// saved plans and logs all live under it.
//
// Flow:
// 1. Handle one-shot subcommands (plans, export-plan) and exit
// 2. Otherwise initialize .macroplan and launch the TUI

package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/macroplan/internal/config"
	"github.com/kingrea/macroplan/internal/logging"
	"github.com/kingrea/macroplan/internal/tui"
)

func main() {
	if handlePlansCommand() || handleExportPlanCommand() {
		return
	}

	cataloguePath := flag.String("catalogue", "", "meal catalogue CSV for this run (overrides config.yaml)")
	flag.Parse()

	// The current working directory is the project we plan for
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitProjectDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .macroplan directory: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *cataloguePath != "" {
		cfg.OverrideCataloguePath(*cataloguePath)
	}

	logger, err := logging.New(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	p := tea.NewProgram(
		tui.NewApp(cfg, tui.WithLogger(logger)),
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		logger.Errorf("TUI exited: %v", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		logger.Close()
		os.Exit(1)
	}
}
