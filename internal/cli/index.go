package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/skelly-dev/typenav/internal/config"
	"github.com/skelly-dev/typenav/internal/fileutil"
	"github.com/skelly-dev/typenav/internal/graph"
	"github.com/skelly-dev/typenav/internal/ignore"
	"github.com/skelly-dev/typenav/internal/languages"
	"github.com/skelly-dev/typenav/internal/nav"
	"github.com/skelly-dev/typenav/internal/search"
	"github.com/skelly-dev/typenav/internal/state"
	"github.com/spf13/cobra"
)

// RunIndex reparses files whose content changed since the last run, then
// rebuilds the type graph and search index from the merged state. A
// parser upgrade, a different language set or a corrupt state file forces
// a full rebuild.
func RunIndex(rt *nav.Runtime, cmd *cobra.Command) error {
	start := time.Now()
	rootPath := rt.Root
	logger := rt.Logger

	info, err := os.Stat(rootPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", rootPath)
	}

	asJSON, err := nav.OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	explain, err := nav.OptionalBoolFlag(cmd, "explain", false)
	if err != nil {
		return err
	}
	full, err := nav.OptionalBoolFlag(cmd, "full", false)
	if err != nil {
		return err
	}
	langs, err := languageList(cmd, rt.Config.Languages)
	if err != nil {
		return err
	}

	registry, err := languages.NewRegistry(langs)
	if err != nil {
		return err
	}
	enabled := registry.Languages()

	ignoreRules, err := ignore.LoadRules(rootPath)
	if err != nil {
		return err
	}

	contextDir := nav.ContextDir(rootPath)
	st, err := state.Load(contextDir)
	if err != nil {
		if !IsCorruptStateError(err) {
			return fmt.Errorf("failed to load state: %w", err)
		}
		logger.Warn("corrupt state file; reindexing everything", "error", err)
		st, full = state.NewState(), true
	}
	if !full && len(st.Files) > 0 && st.Stale(enabled) {
		logger.Info("parser version or language set changed; reindexing everything",
			"parser_version", st.ParserVersion,
			"languages", st.Languages,
		)
		full = true
	}
	if full {
		st = state.NewState()
	}
	st.SetLanguages(enabled)

	currentHashes, err := fileutil.ScanFileHashes(rootPath, registry, ignoreRules)
	if err != nil {
		return fmt.Errorf("failed to scan files: %w", err)
	}
	changed := st.ChangedFiles(currentHashes)
	deleted := st.DeletedFiles(fileutil.ToSet(fileutil.MapKeysSorted(currentHashes)))
	sort.Strings(changed)
	sort.Strings(deleted)

	progress := newParseProgressReporter(rt.Stderr, "index", len(changed), asJSON)
	for i, file := range changed {
		progress.Update(file, i+1)
		parsed, err := registry.ParseRelative(rootPath, file)
		if err != nil {
			progress.Done(i + 1)
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
		if parsed == nil {
			st.RemoveFile(file)
			continue
		}
		parsed.Hash = currentHashes[file]
		fileutil.EnsureTypeIDs(parsed)
		st.SetFileData(*parsed)
	}
	progress.Done(len(changed))

	// Reasons come from the dependencies recorded by the previous run.
	impacted, reasons := fileutil.ImpactedWithReasons(st, changed, deleted)
	sort.Strings(impacted)
	for _, file := range deleted {
		st.RemoveFile(file)
	}

	parseResult := fileutil.ParseResultFromState(st, rootPath, currentHashes)
	ReportParseIssues(logger, parseResult.Issues)

	w := graph.Build(parseResult, logger)
	fileutil.ApplyDependencies(st, w.FileDependencies())

	rewritten := 0
	written, err := w.Save(contextDir, rootPath)
	if err != nil {
		return fmt.Errorf("failed to write type index: %w", err)
	}
	if written {
		rewritten++
	}
	written, err = search.Write(contextDir, w)
	if err != nil {
		return fmt.Errorf("failed to write search index: %w", err)
	}
	if written {
		rewritten++
	}
	if err := st.Save(contextDir); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	created, err := config.WriteDefault(rootPath)
	if err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	if created {
		logger.Info("wrote default config", "path", config.Path(rootPath))
	}

	stats := w.Stats()
	summary := RunSummary{
		Mode:          "index",
		RootPath:      rootPath,
		OutputDir:     contextDir,
		Languages:     enabled,
		Full:          full,
		Scanned:       len(currentHashes),
		Parsed:        len(changed),
		Reused:        max(len(currentHashes)-len(changed), 0),
		Rewritten:     rewritten,
		Changed:       len(changed),
		Deleted:       len(deleted),
		Impacted:      len(impacted),
		Types:         stats.Types,
		External:      stats.External,
		Issues:        len(parseResult.Issues),
		DurationMS:    time.Since(start).Milliseconds(),
		ChangedFiles:  changed,
		DeletedFiles:  deleted,
		ImpactedFiles: impacted,
	}
	if explain {
		summary.Reasons = reasons
	}
	logger.Debug("index finished",
		"types", stats.Types,
		"supertype_edges", stats.Supertype,
		"files", stats.Files,
	)
	return PrintRunSummary(rt.Stdout, summary, asJSON)
}

// languageList returns --lang when given, else the configured languages.
func languageList(cmd *cobra.Command, configured []string) ([]string, error) {
	if cmd == nil || cmd.Flags().Lookup("lang") == nil || !cmd.Flags().Changed("lang") {
		return configured, nil
	}
	langs, err := cmd.Flags().GetStringSlice("lang")
	if err != nil {
		return nil, fmt.Errorf("failed to read --lang flag: %w", err)
	}
	return langs, nil
}
