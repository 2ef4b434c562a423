package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skelly-dev/typenav/internal/fileutil"
)

const (
	IndexFile           = "index.json"
	CurrentIndexVersion = "1"
)

type indexDocument struct {
	Version   string           `json:"version"`
	RootPath  string           `json:"root_path,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
	Stats     Stats            `json:"stats"`
	Nodes     map[string]*Node `json:"nodes"`
}

// Save writes the workspace to contextDir/index.json. The file is left
// untouched when the graph did not change.
func (w *Workspace) Save(contextDir, rootPath string) (bool, error) {
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return false, err
	}

	doc := indexDocument{
		Version:  CurrentIndexVersion,
		RootPath: filepath.ToSlash(rootPath),
		Stats:    w.Stats(),
		Nodes:    w.Nodes,
	}
	path := filepath.Join(contextDir, IndexFile)

	// Compare without the timestamp so an unchanged graph is not rewritten.
	if previous, err := readDocument(path); err == nil {
		doc.UpdatedAt = previous.UpdatedAt
		if same, err := sameDocument(previous, doc); err == nil && same {
			return false, nil
		}
	}
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false, err
	}
	return fileutil.WriteIfChangedTracked(path, append(data, '\n'))
}

// Load reads a persisted workspace. A missing file is reported as
// os.ErrNotExist so callers can suggest indexing first.
func Load(contextDir string, logger *slog.Logger) (*Workspace, error) {
	doc, err := readDocument(filepath.Join(contextDir, IndexFile))
	if err != nil {
		return nil, err
	}
	if doc.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrIndexCorrupt, doc.Version)
	}

	w := newWorkspace(logger)
	for id, node := range doc.Nodes {
		if node == nil || node.ID != id {
			return nil, fmt.Errorf("%w: node entry %q does not match its key", ErrIndexCorrupt, id)
		}
		w.Nodes[id] = node
	}
	w.reindex()
	return w, nil
}

func readDocument(path string) (indexDocument, error) {
	var doc indexDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, errors.Join(ErrIndexCorrupt, err)
	}
	return doc, nil
}

func sameDocument(a, b indexDocument) (bool, error) {
	left, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return string(left) == string(right), nil
}
