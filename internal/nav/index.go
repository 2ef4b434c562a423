package nav

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/skelly-dev/typenav/internal/config"
	"github.com/skelly-dev/typenav/internal/graph"
)

// ErrIndexMissing is returned when base or derived run before typenav index.
var ErrIndexMissing = errors.New("type index missing")

func ContextDir(rootPath string) string {
	return filepath.Join(rootPath, config.ContextDir)
}

// LoadWorkspace reads the persisted type graph under rootPath.
func LoadWorkspace(rootPath string, logger *slog.Logger) (*graph.Workspace, error) {
	contextDir := ContextDir(rootPath)
	w, err := graph.Load(contextDir, logger)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s (run typenav index)", ErrIndexMissing, filepath.Join(contextDir, graph.IndexFile))
		}
		return nil, fmt.Errorf("failed to read type index: %w", err)
	}
	return w, nil
}
