package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skelly-dev/typenav/internal/config"
	"github.com/skelly-dev/typenav/internal/hierarchy"
	"github.com/skelly-dev/typenav/internal/nav"
	"github.com/skelly-dev/typenav/internal/telemetry"
	"github.com/spf13/cobra"
)

// rootFromArg marks commands whose optional first argument is the
// workspace root.
const rootFromArg = "typenav/root-from-arg"

// App owns the process-wide state every command shares: streams, the
// resolved workspace root, config, logger and telemetry.
type App struct {
	Version string
	Runtime nav.Runtime

	// Getwd resolves the workspace root when no path argument is given.
	Getwd func() (string, error)

	shutdown telemetry.Shutdown
}

// NewApp returns an App bound to the process streams.
func NewApp(version string) *App {
	return &App{
		Version: version,
		Runtime: nav.Runtime{
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		},
		Getwd: resolveWorkingDirectory,
	}
}

// Execute runs the command line and always flushes telemetry, including
// when the command failed.
func (a *App) Execute(args []string) error {
	cmd := a.Command()
	cmd.SetArgs(args)
	cmd.SetIn(a.Runtime.Stdin)
	cmd.SetOut(a.Runtime.Stdout)
	cmd.SetErr(a.Runtime.Stderr)

	err := cmd.Execute()
	if finishErr := a.finish(); finishErr != nil {
		// cobra has already printed err, if any.
		fmt.Fprintf(a.Runtime.Stderr, "Error: %v\n", finishErr)
		err = errors.Join(err, finishErr)
	}
	return err
}

// Command builds the cobra command tree.
func (a *App) Command() *cobra.Command {
	rt := &a.Runtime

	rootCmd := &cobra.Command{
		Use:   "typenav",
		Short: "Navigate type hierarchies of C#, Java and TypeScript code",
		Long: `typenav indexes the type declarations of a source tree and jumps from a
type to its base types or to the types derived from it.

The index is written to .typenav/ and refreshed incrementally by
"typenav index".`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	indexCmd := &cobra.Command{
		Use:         "index [path]",
		Short:       "Build or incrementally refresh the type index",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{rootFromArg: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunIndex(rt, cmd)
		},
	}
	indexCmd.Flags().StringSliceP("lang", "l", nil, "Languages to index (default: config, else all supported)")
	indexCmd.Flags().Bool("full", false, "Reparse every file instead of only changed ones")
	indexCmd.Flags().Bool("explain", false, "Explain why each impacted file is included")
	indexCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show what changed since the last index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunStatus(rt, cmd)
		},
	}
	statusCmd.Flags().Bool("json", false, "Print machine-readable status output")

	baseCmd := &cobra.Command{
		Use:   "base <name|id|file:line[:col]>",
		Short: "Go to a base class or implemented interface",
		Args:  cobra.ExactArgs(1),
		RunE:  nav.RunNavigate(rt, hierarchy.DirectionBase),
	}
	addNavigateFlags(baseCmd)

	derivedCmd := &cobra.Command{
		Use:   "derived <name|id|file:line[:col]>",
		Short: "Go to a derived class or implementing type",
		Args:  cobra.ExactArgs(1),
		RunE:  nav.RunNavigate(rt, hierarchy.DirectionDerived),
	}
	addNavigateFlags(derivedCmd)
	derivedCmd.Flags().Duration("timeout", 0, "Per-query timeout (default: config query_timeout, 0 = none)")
	derivedCmd.Flags().Int("parallel", 0, "Concurrent index queries per level (default: config parallel_queries)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "typenav %s\n", a.Version)
		},
	}

	rootCmd.AddCommand(indexCmd, statusCmd, baseCmd, derivedCmd, versionCmd)
	return rootCmd
}

func addNavigateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print the classified candidates as JSON instead of navigating")
	cmd.Flags().Bool("first", false, "Go to the first candidate without asking")
	cmd.Flags().Bool("fuzzy", false, "Fall back to BM25 search when the exact lookup misses")
	cmd.Flags().BoolP("quiet", "q", false, "Do nothing instead of failing when the origin is ambiguous or no index exists")
	cmd.Flags().String("editor", "", "Open the target with this command ({file}, {line}, {column})")
}

// setup resolves the root, loads config and installs logging and
// telemetry before any subcommand runs.
func (a *App) setup(cmd *cobra.Command, args []string) error {
	rt := &a.Runtime

	root, err := a.resolveRoot(cmd, args)
	if err != nil {
		return err
	}
	rt.Root = root

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	rt.Config = cfg

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to read --verbose flag: %w", err)
	}
	rt.Logger, err = newLogger(rt.Stderr, cfg.LogLevel, verbose)
	if err != nil {
		return err
	}

	rt.Metrics = telemetry.NewMetrics()
	shutdown, err := telemetry.InitTracing(cfg.TraceExporter, a.Version, rt.Stderr)
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	return nil
}

func (a *App) resolveRoot(cmd *cobra.Command, args []string) (string, error) {
	if cmd.Annotations[rootFromArg] != "" && len(args) > 0 {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", args[0], err)
		}
		return root, nil
	}
	if a.Runtime.Root != "" {
		return a.Runtime.Root, nil
	}
	return a.Getwd()
}

// finish writes the metrics textfile and flushes spans.
func (a *App) finish() error {
	rt := &a.Runtime
	var errs []error

	if rt.Metrics != nil && rt.Config.MetricsFile != "" {
		path := rt.Config.MetricsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(rt.Root, path)
		}
		if err := rt.Metrics.WriteTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics to %s: %w", path, err))
		}
	}

	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
		a.shutdown = nil
	}
	return errors.Join(errs...)
}

func newLogger(w io.Writer, level string, verbose bool) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
