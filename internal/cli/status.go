package cli

import (
	"fmt"
	"time"

	"github.com/skelly-dev/typenav/internal/fileutil"
	"github.com/skelly-dev/typenav/internal/ignore"
	"github.com/skelly-dev/typenav/internal/languages"
	"github.com/skelly-dev/typenav/internal/nav"
	"github.com/skelly-dev/typenav/internal/state"
	"github.com/spf13/cobra"
)

// RunStatus reports what the next index run would reparse without writing
// anything.
func RunStatus(rt *nav.Runtime, cmd *cobra.Command) error {
	start := time.Now()
	rootPath := rt.Root

	asJSON, err := nav.OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	contextDir := nav.ContextDir(rootPath)
	st, err := state.Load(contextDir)
	if err != nil {
		if !IsCorruptStateError(err) {
			return fmt.Errorf("failed to load state: %w", err)
		}
		rt.Logger.Warn("corrupt state file; treating all files as changed", "error", err)
		st = state.NewState()
	}

	langs := st.Languages
	if len(langs) == 0 {
		langs = rt.Config.Languages
	}
	registry, err := languages.NewRegistry(langs)
	if err != nil {
		return err
	}
	ignoreRules, err := ignore.LoadRules(rootPath)
	if err != nil {
		return err
	}

	currentHashes, err := fileutil.ScanFileHashes(rootPath, registry, ignoreRules)
	if err != nil {
		return fmt.Errorf("failed to scan files: %w", err)
	}

	changed := st.ChangedFiles(currentHashes)
	deleted := st.DeletedFiles(fileutil.ToSet(fileutil.MapKeysSorted(currentHashes)))
	impacted, reasons := fileutil.ImpactedWithReasons(st, changed, deleted)

	issues := 0
	for _, fileState := range st.Files {
		if fileState.SyntaxErrors {
			issues++
		}
	}

	summary := RunSummary{
		Mode:          "status",
		RootPath:      rootPath,
		OutputDir:     contextDir,
		Languages:     registry.Languages(),
		Scanned:       len(currentHashes),
		Parsed:        len(changed),
		Reused:        max(len(currentHashes)-len(changed), 0),
		Changed:       len(changed),
		Deleted:       len(deleted),
		Impacted:      len(impacted),
		Types:         st.TypeCount(),
		Issues:        issues,
		DurationMS:    time.Since(start).Milliseconds(),
		ChangedFiles:  changed,
		DeletedFiles:  deleted,
		ImpactedFiles: impacted,
		Reasons:       reasons,
	}
	return PrintRunSummary(rt.Stdout, summary, asJSON)
}
