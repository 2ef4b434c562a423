package nav

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skelly-dev/typenav/internal/graph"
	"github.com/skelly-dev/typenav/internal/hierarchy"
	"github.com/skelly-dev/typenav/internal/search"
)

const fuzzyCandidates = 5

// AmbiguousError is returned when a name matches more than one type.
type AmbiguousError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("type %q is ambiguous; use one of: %s", e.Query, strings.Join(e.Candidates, ", "))
}

// Resolver locates the origin type of a navigation in a workspace.
//
// A query is tried, in order, as a node or declaration ID, a unique type
// name, a file:line[:col] location, and finally (when Search is set) a BM25
// lookup over type names. Nothing matching is not an error.
type Resolver struct {
	Workspace *graph.Workspace
	Root      string
	Search    *search.Index
	Logger    *slog.Logger
}

var _ hierarchy.OriginResolver = (*Resolver)(nil)

func (r *Resolver) Locate(_ context.Context, pos hierarchy.Position) (hierarchy.TypeDescriptor, error) {
	if r.Workspace == nil {
		return nil, nil
	}
	if pos.File != "" && pos.Line > 0 {
		return r.locateAt(pos.File, pos.Line), nil
	}

	query := strings.TrimSpace(pos.Query)
	if query == "" {
		return nil, nil
	}

	if t, ok := r.Workspace.Descriptor(query); ok {
		return t, nil
	}
	if node, ok := r.Workspace.NodeForDecl(query); ok {
		return r.descriptor(node), nil
	}

	switch matches := r.Workspace.FindByName(query); len(matches) {
	case 0:
	case 1:
		return r.descriptor(matches[0]), nil
	default:
		candidates := make([]string, 0, len(matches))
		for _, match := range matches {
			candidates = append(candidates, match.ID)
		}
		return nil, &AmbiguousError{Query: query, Candidates: candidates}
	}

	if file, line, _, ok := ParseLocationQuery(query); ok {
		return r.locateAt(file, line), nil
	}

	if r.Search != nil {
		for _, result := range search.Search(r.Search, query, fuzzyCandidates) {
			if t, ok := r.Workspace.Descriptor(result.ID); ok {
				r.logger().Debug("origin resolved by fuzzy search", "query", query, "type", result.ID, "score", result.Score)
				return t, nil
			}
		}
	}
	return nil, nil
}

// locateAt picks the innermost type enclosing line, or the nearest
// declaration at or above it.
func (r *Resolver) locateAt(file string, line int) hierarchy.TypeDescriptor {
	file = r.relative(file)
	if node, ok := r.Workspace.TypeAt(file, line); ok {
		return r.descriptor(node)
	}
	if node, ok := r.Workspace.NearestAbove(file, line); ok {
		return r.descriptor(node)
	}
	return nil
}

// relative maps a user-supplied path to the slash-separated workspace key.
func (r *Resolver) relative(file string) string {
	file = filepath.Clean(file)
	if filepath.IsAbs(file) && r.Root != "" {
		if rel, err := filepath.Rel(r.Root, file); err == nil && !strings.HasPrefix(rel, "..") {
			file = rel
		}
	}
	return filepath.ToSlash(file)
}

func (r *Resolver) descriptor(node *graph.Node) hierarchy.TypeDescriptor {
	t, ok := r.Workspace.Descriptor(node.ID)
	if !ok {
		return nil
	}
	return t
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// ParseLocationQuery splits "file:line" or "file:line:column". The column is
// zero when absent.
func ParseLocationQuery(query string) (file string, line, column int, ok bool) {
	query = strings.TrimSpace(query)
	rest, last, found := cutLastNumber(query)
	if !found {
		return "", 0, 0, false
	}
	if head, previous, found := cutLastNumber(rest); found {
		rest, line, column = head, previous, last
	} else {
		line = last
	}

	file = strings.TrimSpace(rest)
	if file == "" || line <= 0 || column < 0 {
		return "", 0, 0, false
	}
	return file, line, column, true
}

func cutLastNumber(value string) (string, int, bool) {
	idx := strings.LastIndex(value, ":")
	if idx <= 0 || idx >= len(value)-1 {
		return "", 0, false
	}
	number, err := strconv.Atoi(strings.TrimSpace(value[idx+1:]))
	if err != nil {
		return "", 0, false
	}
	return value[:idx], number, true
}
