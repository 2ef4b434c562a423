package fileutil

import (
	"sort"

	"github.com/skelly-dev/typenav/internal/parser"
	"github.com/skelly-dev/typenav/internal/state"
)

// ParseResultFromState rebuilds a parse result from stored declarations for
// every file that still exists.
func ParseResultFromState(st *state.State, rootPath string, currentHashes map[string]string) *parser.ParseResult {
	files := make([]parser.FileTypes, 0, len(currentHashes))

	for path, hash := range currentHashes {
		fileState, ok := st.Files[path]
		if !ok {
			continue
		}

		files = append(files, parser.FileTypes{
			Path:          path,
			Language:      fileState.Language,
			Types:         fileState.Types,
			Imports:       fileState.Imports,
			ImportAliases: fileState.ImportAliases,
			SyntaxErrors:  fileState.SyntaxErrors,
			Hash:          hash,
		})
		EnsureTypeIDs(&files[len(files)-1])
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	result := &parser.ParseResult{
		Files:    files,
		RootPath: rootPath,
	}
	for _, file := range files {
		if issue, ok := parser.SyntaxIssue(file); ok {
			result.Issues = append(result.Issues, issue)
		}
	}
	parser.SortIssues(result.Issues)
	return result
}

func EnsureTypeIDs(file *parser.FileTypes) {
	for i := range file.Types {
		if file.Types[i].ID != "" {
			continue
		}
		file.Types[i].ID = parser.StableTypeID(file.Path, file.Types[i])
	}
}

// ApplyDependencies stores per-file supertype dependencies on the state.
func ApplyDependencies(st *state.State, deps map[string][]string) {
	for file, fileState := range st.Files {
		fileState.Dependencies = deps[file]
		st.Files[file] = fileState
	}
}

// ImpactedWithReasons expands changed and deleted files to the files whose
// types derive from types declared in them, with one reason per hop.
func ImpactedWithReasons(st *state.State, changed, deleted []string) ([]string, map[string][]string) {
	reverseDeps := make(map[string][]string)
	for file, fileState := range st.Files {
		for _, dep := range fileState.Dependencies {
			reverseDeps[dep] = append(reverseDeps[dep], file)
		}
	}
	for file := range reverseDeps {
		sort.Strings(reverseDeps[file])
	}

	reasons := make(map[string][]string)
	seen := make(map[string]bool)
	queue := make([]string, 0, len(changed)+len(deleted))

	for _, file := range changed {
		queue = append(queue, file)
		seen[file] = true
		reasons[file] = appendReason(reasons[file], "changed")
	}
	for _, file := range deleted {
		if !seen[file] {
			queue = append(queue, file)
		}
		seen[file] = true
		reasons[file] = appendReason(reasons[file], "deleted")
	}

	for len(queue) > 0 {
		file := queue[0]
		queue = queue[1:]

		for _, dependent := range reverseDeps[file] {
			reasons[dependent] = appendReason(reasons[dependent], "derives from a type in "+file)
			if seen[dependent] {
				continue
			}
			seen[dependent] = true
			queue = append(queue, dependent)
		}
	}

	impacted := MapKeysSorted(seen)
	for _, file := range impacted {
		sort.Strings(reasons[file])
	}
	return impacted, reasons
}

func appendReason(existing []string, reason string) []string {
	for _, item := range existing {
		if item == reason {
			return existing
		}
	}
	return append(existing, reason)
}
