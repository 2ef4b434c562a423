package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/skelly-dev/typenav/internal/fileutil"
)

type RunSummary struct {
	Mode          string              `json:"mode"`
	RootPath      string              `json:"root_path"`
	OutputDir     string              `json:"output_dir,omitempty"`
	Languages     []string            `json:"languages,omitempty"`
	Full          bool                `json:"full,omitempty"`
	Scanned       int                 `json:"scanned"`
	Parsed        int                 `json:"parsed"`
	Reused        int                 `json:"reused"`
	Rewritten     int                 `json:"rewritten"`
	Changed       int                 `json:"changed"`
	Deleted       int                 `json:"deleted"`
	Impacted      int                 `json:"impacted"`
	Types         int                 `json:"types"`
	External      int                 `json:"external"`
	Issues        int                 `json:"issues"`
	DurationMS    int64               `json:"duration_ms"`
	ChangedFiles  []string            `json:"changed_files,omitempty"`
	DeletedFiles  []string            `json:"deleted_files,omitempty"`
	ImpactedFiles []string            `json:"impacted_files,omitempty"`
	Reasons       map[string][]string `json:"reasons,omitempty"`
}

func PrintRunSummary(w io.Writer, summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	mode := summary.Mode
	if summary.Full {
		mode += " (full)"
	}
	if _, err := fmt.Fprintf(w,
		"%s: scanned=%d parsed=%d reused=%d rewritten=%d changed=%d deleted=%d impacted=%d types=%d duration=%dms\n",
		mode,
		summary.Scanned,
		summary.Parsed,
		summary.Reused,
		summary.Rewritten,
		summary.Changed,
		summary.Deleted,
		summary.Impacted,
		summary.Types,
		summary.DurationMS,
	); err != nil {
		return err
	}

	if summary.OutputDir != "" && summary.Mode == "index" {
		fmt.Fprintf(w, "output: %s (%s)\n", summary.OutputDir, strings.Join(summary.Languages, ", "))
	}
	if summary.Issues > 0 {
		fmt.Fprintf(w, "files with parse errors: %d\n", summary.Issues)
	}
	if len(summary.ChangedFiles) > 0 {
		fmt.Fprintf(w, "changed files (%d): %s\n", len(summary.ChangedFiles), SummarizePaths(summary.ChangedFiles, 8))
	}
	if len(summary.DeletedFiles) > 0 {
		fmt.Fprintf(w, "deleted files (%d): %s\n", len(summary.DeletedFiles), SummarizePaths(summary.DeletedFiles, 8))
	}
	if len(summary.ImpactedFiles) > 0 {
		fmt.Fprintf(w, "impacted files (%d): %s\n", len(summary.ImpactedFiles), SummarizePaths(summary.ImpactedFiles, 8))
	}
	for _, file := range summary.ImpactedFiles {
		reasons := summary.Reasons[file]
		if len(reasons) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s <- %s\n", file, strings.Join(reasons, "; "))
	}
	return nil
}

func SummarizePaths(paths []string, limit int) string {
	if len(paths) <= limit {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:limit], ", "), len(paths)-limit)
}
