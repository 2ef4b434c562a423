package nav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skelly-dev/typenav/internal/config"
	"github.com/skelly-dev/typenav/internal/fileutil"
	"github.com/skelly-dev/typenav/internal/hierarchy"
	"github.com/skelly-dev/typenav/internal/picker"
	"github.com/skelly-dev/typenav/internal/search"
	"github.com/skelly-dev/typenav/internal/telemetry"
	"github.com/spf13/cobra"
)

// Runtime is what the root command prepares before any subcommand runs.
type Runtime struct {
	Root    string
	Config  config.Config
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

type navigateOptions struct {
	JSON     bool
	First    bool
	Fuzzy    bool
	Quiet    bool
	Editor   string
	Timeout  time.Duration
	Parallel int
}

// RunNavigate returns the handler of the base or derived command. rt is
// read when the command runs, after the root command filled it in.
func RunNavigate(rt *Runtime, direction hierarchy.Direction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		opts, err := readNavigateOptions(cmd, rt.Config)
		if err != nil {
			return err
		}

		w, err := LoadWorkspace(rt.Root, rt.Logger)
		if err != nil {
			if opts.Quiet && errors.Is(err, ErrIndexMissing) {
				rt.Logger.Debug("no type index; nothing to navigate", "error", err)
				if opts.JSON {
					return fileutil.PrintJSON(rt.Stdout, NavigationRecord{
						Query:     args[0],
						Direction: direction.String(),
						Status:    hierarchy.StatusNoOrigin.String(),
						Error:     err.Error(),
					})
				}
				return nil
			}
			return err
		}
		resolver := &Resolver{Workspace: w, Root: rt.Root, Logger: rt.Logger}
		if opts.Fuzzy {
			if resolver.Search, err = search.Load(ContextDir(rt.Root)); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		var (
			snapshot *picker.Snapshot
			pick     hierarchy.Picker
			sink     hierarchy.NavigationSink
		)
		if opts.JSON {
			snapshot = &picker.Snapshot{First: opts.First}
			pick, sink = snapshot, acceptSink{}
		} else {
			pick = picker.Choose(picker.Options{First: opts.First, In: rt.Stdin, Out: rt.Stdout, TUI: rt.Stderr})
			sink = PrintSink{Out: rt.Stdout}
			if opts.Editor != "" {
				sink = NewEditorSink(rt.Root, opts.Editor, rt.Logger)
			}
		}

		var recorder hierarchy.Recorder
		if rt.Metrics != nil {
			recorder = rt.Metrics
		}
		reporter := &ErrorReporter{}
		navigator := hierarchy.NewNavigator(hierarchy.NavigatorConfig{
			Resolver:  resolver,
			Ancestors: w,
			Derived:   w,
			Picker:    pick,
			Sink:      sink,
			Reporter:  reporter,
			Probe:     NewProbe(rt.Root, rt.Logger),
			Logger:    rt.Logger,
			Recorder:  recorder,
			DescendantOptions: []hierarchy.DescendantOption{
				hierarchy.WithParallelism(opts.Parallel),
				hierarchy.WithQueryTimeout(opts.Timeout),
			},
		})

		outcome := navigator.Navigate(ctx, hierarchy.Request{
			Position:  hierarchy.Position{Query: args[0]},
			Direction: direction,
		})
		rt.Logger.Debug("navigation finished",
			"direction", direction.String(),
			"status", outcome.Status.String(),
			"closure", len(outcome.Closure),
			"picker", outcome.PickerShown,
		)

		if outcome.Status == hierarchy.StatusNoOrigin && outcome.Err != nil {
			if !opts.Quiet {
				return outcome.Err
			}
			rt.Logger.Debug("origin not resolved", "query", args[0], "error", outcome.Err)
		}
		if opts.JSON {
			if err := fileutil.PrintJSON(rt.Stdout, navigationRecord(args[0], outcome, snapshot)); err != nil {
				return err
			}
		}
		if outcome.Status == hierarchy.StatusFailed {
			return reporter.Err()
		}
		return nil
	}
}

func navigationRecord(query string, outcome hierarchy.Outcome, snapshot *picker.Snapshot) NavigationRecord {
	record := NavigationRecord{
		Query:       query,
		Direction:   outcome.Direction.String(),
		Status:      outcome.Status.String(),
		Origin:      typeRecordPtr(outcome.Origin),
		ClosureSize: len(outcome.Closure),
		Target:      typeRecordPtr(outcome.Target),
	}
	if outcome.Target != nil && outcome.Location.File != "" {
		loc := outcome.Location
		record.Location = &loc
	}
	if outcome.Err != nil {
		record.Error = outcome.Err.Error()
	}
	if snapshot != nil && snapshot.Shown {
		record.Header = snapshot.Header
		record.Warning = snapshot.Warning
		record.Groups = GroupRecords(snapshot.Entries)
	} else if len(outcome.Closure) > 0 && outcome.Origin != nil {
		// Single results skip the picker; still list what was found.
		session := hierarchy.NewSession(outcome.Origin, outcome.Direction, outcome.Closure, "")
		record.Header = session.Header()
		record.Groups = GroupRecords(session.Entries())
	}
	return record
}

func readNavigateOptions(cmd *cobra.Command, cfg config.Config) (navigateOptions, error) {
	var (
		opts navigateOptions
		err  error
	)
	if opts.JSON, err = OptionalBoolFlag(cmd, "json", false); err != nil {
		return opts, err
	}
	if opts.First, err = OptionalBoolFlag(cmd, "first", false); err != nil {
		return opts, err
	}
	if opts.Fuzzy, err = OptionalBoolFlag(cmd, "fuzzy", false); err != nil {
		return opts, err
	}
	if opts.Quiet, err = OptionalBoolFlag(cmd, "quiet", false); err != nil {
		return opts, err
	}
	if opts.Editor, err = OptionalStringFlag(cmd, "editor", cfg.Editor); err != nil {
		return opts, err
	}
	if opts.Timeout, err = OptionalDurationFlag(cmd, "timeout", cfg.QueryTimeout); err != nil {
		return opts, err
	}
	if opts.Parallel, err = OptionalIntFlag(cmd, "parallel", cfg.ParallelQueries); err != nil {
		return opts, err
	}
	if opts.Timeout < 0 {
		return opts, errors.New("--timeout must not be negative")
	}
	if opts.Parallel < 0 {
		return opts, errors.New("--parallel must not be negative")
	}
	return opts, nil
}

// The Optional*Flag helpers return defaultValue unless the flag exists and
// was set on the command line.

func OptionalBoolFlag(cmd *cobra.Command, name string, defaultValue bool) (bool, error) {
	if !flagSet(cmd, name) {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalIntFlag(cmd *cobra.Command, name string, defaultValue int) (int, error) {
	if !flagSet(cmd, name) {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetInt(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalStringFlag(cmd *cobra.Command, name string, defaultValue string) (string, error) {
	if !flagSet(cmd, name) {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalDurationFlag(cmd *cobra.Command, name string, defaultValue time.Duration) (time.Duration, error) {
	if !flagSet(cmd, name) {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func flagSet(cmd *cobra.Command, name string) bool {
	return cmd != nil && cmd.Flags().Lookup(name) != nil && cmd.Flags().Changed(name)
}
