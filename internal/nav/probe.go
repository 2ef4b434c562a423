package nav

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skelly-dev/typenav/internal/fileutil"
	"github.com/skelly-dev/typenav/internal/hierarchy"
	"github.com/skelly-dev/typenav/internal/ignore"
	"github.com/skelly-dev/typenav/internal/languages"
	"github.com/skelly-dev/typenav/internal/state"
)

const incompletePrefix = "Workspace may be incomplete: "

// NewProbe compares the indexed state with the files on disk. It reports
// files changed, added or deleted since the last index run and files that
// had parse errors then.
func NewProbe(rootPath string, logger *slog.Logger) hierarchy.CompletenessProbe {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(ctx context.Context) string {
		st, err := state.Load(ContextDir(rootPath))
		if err != nil {
			logger.Debug("completeness probe: state unreadable", "error", err)
			return ""
		}
		registry, err := languages.NewRegistry(st.Languages)
		if err != nil {
			logger.Debug("completeness probe: bad language list", "error", err)
			return ""
		}
		rules, err := ignore.LoadRules(rootPath)
		if err != nil {
			logger.Debug("completeness probe: ignore rules unreadable", "error", err)
			return ""
		}
		if ctx.Err() != nil {
			return ""
		}
		hashes, err := fileutil.ScanFileHashes(rootPath, registry, rules)
		if err != nil {
			logger.Debug("completeness probe: scan failed", "error", err)
			return ""
		}

		changed := st.ChangedFiles(hashes)
		deleted := st.DeletedFiles(fileutil.ToSet(fileutil.MapKeysSorted(hashes)))
		broken := 0
		for _, file := range st.Files {
			if file.SyntaxErrors {
				broken++
			}
		}
		return incompleteMessage(len(changed), len(deleted), broken)
	}
}

func incompleteMessage(changed, deleted, broken int) string {
	var parts []string
	switch {
	case changed > 0 && deleted > 0:
		parts = append(parts, fmt.Sprintf("%s changed and %s deleted since the last index", plural(changed, "file"), plural(deleted, "file")))
	case changed > 0:
		parts = append(parts, fmt.Sprintf("%s changed since the last index", plural(changed, "file")))
	case deleted > 0:
		parts = append(parts, fmt.Sprintf("%s deleted since the last index", plural(deleted, "file")))
	}
	if broken > 0 {
		parts = append(parts, fmt.Sprintf("%s had parse errors", plural(broken, "file")))
	}
	if len(parts) == 0 {
		return ""
	}
	return incompletePrefix + strings.Join(parts, "; ") + " (run typenav index)"
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
