// Package cli provides the plantkeep command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plantkeep"
)

// Version information set at build time.
var (
	Version   = plantkeep.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	driver     string
	dir        string
	dsn        string
	user       string
	logLevel   string
	logFormat  string
	output     string
	trace      string
	traceAddr  string
}

// App represents the CLI application.
type App struct {
	root    *cobra.Command
	stdout  io.Writer
	stderr  io.Writer
	opts    globalOptions
	session *session
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "plantkeep",
		Short: "Offline data layer for a plant identification app",
		Long: `plantkeep manages the data a plant identification app keeps on the device:
a timestamped cache with lazy expiry, a daily scan budget, favorites,
scan history and user profiles.

Remote catalogue loads fall back to stale cache when the network fails.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := app.root.PersistentFlags()
	flags.StringVarP(&app.opts.configPath, "config", "c", "", "Path to configuration file (yaml, json or toml)")
	flags.StringVar(&app.opts.driver, "driver", "", "Storage driver override")
	flags.StringVar(&app.opts.dir, "dir", "", "Storage directory override")
	flags.StringVar(&app.opts.dsn, "dsn", "", "Storage connection string override")
	flags.StringVar(&app.opts.user, "user", "", "User id owning collections (empty for guest)")
	flags.StringVar(&app.opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&app.opts.logFormat, "log-format", "", "Log format (console or json)")
	flags.StringVarP(&app.opts.output, "output", "o", "json", "Output format (json or yaml)")
	flags.StringVar(&app.opts.trace, "trace", "noop", "Trace exporter for catalogue loads (noop, stdout, otlp)")
	flags.StringVar(&app.opts.traceAddr, "trace-endpoint", "localhost:4317", "OTLP collector address")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newConfigCmd(),
		app.newCacheCmd(),
		app.newLimitCmd(),
		app.newFavoritesCmd(),
		app.newHistoryCmd(),
		app.newProfileCmd(),
		app.newPlantsCmd(),
		app.newFlagsCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := a.root.ExecuteContext(ctx)
	if cerr := a.closeSession(); err == nil {
		err = cerr
	}
	return err
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "plantkeep version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
