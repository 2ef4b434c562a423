package nav

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skelly-dev/typenav/internal/hierarchy"
)

// PrintSink "navigates" by printing file:line:col, for editors and scripts
// that consume the location themselves.
type PrintSink struct {
	Out io.Writer
}

func (s PrintSink) GoTo(_ context.Context, _ hierarchy.TypeDescriptor, loc hierarchy.Location) bool {
	if loc.File == "" {
		return false
	}
	_, err := fmt.Fprintln(s.Out, loc.String())
	return err == nil
}

// acceptSink takes every location without acting on it; the outcome carries
// the target for --json output.
type acceptSink struct{}

func (acceptSink) GoTo(_ context.Context, _ hierarchy.TypeDescriptor, loc hierarchy.Location) bool {
	return loc.File != ""
}

// CommandRunner runs an external command to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// EditorSink opens a location with an editor command template. The template
// may use {file}, {line} and {column}; {file} is appended when missing.
type EditorSink struct {
	Root     string
	Template string
	Run      CommandRunner
	Logger   *slog.Logger
}

func NewEditorSink(rootPath, template string, logger *slog.Logger) *EditorSink {
	return &EditorSink{
		Root:     rootPath,
		Template: template,
		Run:      runAttached,
		Logger:   logger,
	}
}

func (s *EditorSink) GoTo(ctx context.Context, target hierarchy.TypeDescriptor, loc hierarchy.Location) bool {
	if loc.File == "" {
		return false
	}
	path := filepath.Join(s.Root, filepath.FromSlash(loc.File))
	if _, err := os.Stat(path); err != nil {
		s.logger().Debug("declaration file unavailable", "type", target.DisplayName(), "path", path, "error", err)
		return false
	}

	argv := EditorCommand(s.Template, path, loc)
	if len(argv) == 0 {
		return false
	}
	if err := s.Run(ctx, argv[0], argv[1:]...); err != nil {
		s.logger().Warn("editor command failed", "command", argv[0], "location", loc.String(), "error", err)
		return false
	}
	return true
}

func (s *EditorSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// EditorCommand expands template into an argv for path at loc. Placeholders
// are substituted per field, so paths with spaces stay one argument.
func EditorCommand(template, path string, loc hierarchy.Location) []string {
	if !strings.Contains(template, "{file}") {
		template = strings.TrimSpace(template) + " {file}"
	}
	replacer := strings.NewReplacer(
		"{file}", path,
		"{line}", strconv.Itoa(max(loc.Line, 1)),
		"{column}", strconv.Itoa(max(loc.Column, 1)),
	)

	fields := strings.Fields(template)
	argv := make([]string, 0, len(fields))
	for _, field := range fields {
		argv = append(argv, replacer.Replace(field))
	}
	return argv
}

func runAttached(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
