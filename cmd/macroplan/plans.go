package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kingrea/macroplan/internal/config"
	"github.com/kingrea/macroplan/internal/export"
	"github.com/kingrea/macroplan/internal/logging"
	"github.com/kingrea/macroplan/internal/planstore"
)

func handlePlansCommand() bool {
	if len(os.Args) < 2 || os.Args[1] != "plans" {
		return false
	}
	os.Exit(runPlans(workingDir(), os.Args[2:], os.Stdout, os.Stderr))
	return true
}

func handleExportPlanCommand() bool {
	if len(os.Args) < 2 || os.Args[1] != "export-plan" {
		return false
	}
	os.Exit(runExportPlan(workingDir(), os.Args[2:], os.Stdout, os.Stderr))
	return true
}

// runPlans prints one line per saved plan: id, name, creation time, meal count.
func runPlans(projectDir string, args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "Usage: macroplan plans")
		return 2
	}
	store, err := openStore(projectDir, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	plans := store.List()
	if len(plans) == 0 {
		fmt.Fprintln(stdout, "No saved plans.")
		return 0
	}
	for _, p := range plans {
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%d meal(s)\n", p.ID, p.Name, p.CreatedAt.Format("2006-01-02 15:04"), len(p.Meals))
	}
	return 0
}

func runExportPlan(projectDir string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export-plan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	formatFlag := fs.String("format", "json", "output format: json or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: macroplan export-plan [-format json|yaml] <plan-id>")
		return 2
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	store, err := openStore(projectDir, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	saved, err := store.Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := export.WriteSavedPlan(stdout, saved, format); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func workingDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}
	return cwd
}

// openStore reads config for projectDir without creating .macroplan, so the
// read-only commands leave no trace. Store warnings go to stderr.
func openStore(projectDir string, stderr io.Writer) (*planstore.Store, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	return planstore.New(cfg.StorePath(), planstore.WithLogger(logging.NewConsole(stderr))), nil
}
