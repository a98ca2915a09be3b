// main.go - Control tool for the analytics dashboard
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/term"

	"minidash/internal"
	"minidash/internal/analytics"
	"minidash/internal/config"
	"minidash/internal/ingest"
	"minidash/internal/reports"
	"minidash/internal/sample"
	"minidash/internal/timeframe"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&MigrateCommand{},
	&ParseCommand{},
	&SummaryCommand{},
	&SeedCommand{},
	&PurgeCacheCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	// Commands that only read files still work when the database is unavailable
	app, err := internal.NewApp()
	if err != nil {
		log.Printf("Warning: Failed to initialize app: %v", err)
		log.Println("Proceeding with limited functionality...")
	}

	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run migrations")
	}

	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully")
	return nil
}

// ParseCommand parses CSV or JSON from a file or stdin and prints normalized rows
type ParseCommand struct{}

func (c *ParseCommand) Name() string { return "parse" }
func (c *ParseCommand) Description() string {
	return "Parses CSV or JSON rows from a file or stdin and prints them as JSON"
}

func (c *ParseCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	file := fs.String("file", "", "input file (reads stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text, err := readInput(inputPath(*file, fs))
	if err != nil {
		return err
	}

	result, err := ingest.Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse %s input: %w", result.Format, err)
	}
	if len(result.Rows) == 0 {
		return fmt.Errorf("no rows parsed from input")
	}

	return printJSON(result)
}

// SummaryCommand prints the dashboard KPIs for a range
type SummaryCommand struct{}

func (c *SummaryCommand) Name() string { return "summary" }
func (c *SummaryCommand) Description() string {
	return "Prints the dashboard KPIs of a data file, stdin or the sample data"
}

func (c *SummaryCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	file := fs.String("file", "", "input file (defaults to stdin when piped, else the sample data)")
	rangeFlag := fs.String("range", "30", "window size: 30, 60 or 90")
	asJSON := fs.Bool("json", false, "print the full dashboard as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	size, err := timeframe.ParseRangeSize(*rangeFlag)
	if err != nil {
		return err
	}

	path := inputPath(*file, fs)

	var result ingest.Result
	if path == "" && stdinIsTerminal() {
		loaded, err := sample.ReadFile(config.GetConfig().SampleDataPath)
		if err != nil {
			return err
		}
		result = ingest.Result{Format: ingest.FormatJSON, Rows: loaded}
	} else {
		text, err := readInput(path)
		if err != nil {
			return err
		}
		if result, err = ingest.Parse(text); err != nil {
			return fmt.Errorf("failed to parse %s input: %w", result.Format, err)
		}
	}

	dashboard := analytics.BuildDashboard(result.Rows, size)
	if *asJSON {
		return printJSON(dashboard)
	}

	s := dashboard.Summary
	fmt.Printf("Rows:            %d (%d dates in window, %d in previous)\n", len(result.Rows), dashboard.CurrentDates, dashboard.PreviousDates)
	fmt.Printf("Total visits:    %s  %s\n", s.TotalVisits, s.VisitsDelta)
	fmt.Printf("Conversion rate: %s\n", s.ConversionRate)
	fmt.Printf("Pages per visit: %s  %s\n", s.PagesPerVisit, s.PagesPerVisitDelta)
	fmt.Printf("Unique visitors: %s  %s\n", s.UniqueVisitors, s.UniqueVisitorsDelta)
	return nil
}

// SeedCommand writes a synthetic sample data file
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Generates the sample data file" }

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	days := fs.Int("days", 180, "number of days to generate")
	end := fs.String("end", time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"), "last generated date (YYYY-MM-DD)")
	out := fs.String("out", "", "output path (defaults to the configured sample path)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", *end, err)
	}

	path := inputPath(*out, fs)
	if path == "" {
		path = config.GetConfig().SampleDataPath
	}

	generated := sample.NewGenerator(*days, endDate).Generate()
	if err := sample.WriteFile(path, generated); err != nil {
		return err
	}

	log.Printf("Wrote %d rows to %s", len(generated), path)
	return nil
}

// PurgeCacheCommand removes every cached upstream report
type PurgeCacheCommand struct{}

func (c *PurgeCacheCommand) Name() string        { return "purge-cache" }
func (c *PurgeCacheCommand) Description() string { return "Removes all cached analytics reports" }

func (c *PurgeCacheCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot connect to database")
	}

	deleted, err := app.Reports.PurgeAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge report cache: %w", err)
	}

	log.Printf("Removed %d cached reports", deleted)
	return nil
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	cfg := config.GetConfig()

	log.Println("System Status:")
	for name, present := range cfg.EnvPresence() {
		log.Printf("- %s: %t", name, present)
	}
	log.Printf("- Sample data: %s", cfg.SampleDataPath)

	if app == nil {
		log.Println("- Database: Unavailable")
		return nil
	}

	db := app.DBManager.GetConnection()

	var count int64
	if err := db.WithContext(ctx).Model(&reports.CachedReport{}).Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	log.Println("- Database: Connected")
	log.Printf("- Report cache: enabled=%t entries=%d", app.Reports.Enabled(), count)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	log.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)
	log.Printf("- Idle: %d", sqlDB.Stats().Idle)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage()
	return nil
}

// Helper functions

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// inputPath prefers the flag value and falls back to the first positional argument
func inputPath(flagValue string, fs *flag.FlagSet) string {
	if flagValue != "" {
		return flagValue
	}
	return fs.Arg(0)
}

// readInput reads path, or stdin when path is empty
func readInput(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}

	if stdinIsTerminal() {
		return "", fmt.Errorf("no input: pass -file or pipe data on stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: dashctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
