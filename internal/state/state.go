package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/skelly-dev/typenav/internal/parser"
)

const (
	StateFile            = ".state.json"
	CurrentStateVersion  = "1"
	CurrentParserVersion = "tree-sitter-types-v1"
)

// FileState tracks the parsed declarations of a single file
type FileState struct {
	Hash          string            `json:"hash"`
	Language      string            `json:"language,omitempty"`
	Types         []parser.TypeDecl `json:"types,omitempty"`
	Imports       []string          `json:"imports,omitempty"`
	ImportAliases map[string]string `json:"import_aliases,omitempty"`
	SyntaxErrors  bool              `json:"syntax_errors,omitempty"`
	Dependencies  []string          `json:"dependencies,omitempty"` // files declaring direct supertypes
	UpdatedAt     time.Time         `json:"updated_at"`
}

// State tracks the state of all files for incremental updates
type State struct {
	Version       string               `json:"version"`
	ParserVersion string               `json:"parser_version,omitempty"`
	Languages     []string             `json:"languages,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Files         map[string]FileState `json:"files"`
}

// NewState creates a new empty state
func NewState() *State {
	return &State{
		Version:       CurrentStateVersion,
		ParserVersion: CurrentParserVersion,
		Files:         make(map[string]FileState),
	}
}

// Load reads state from the context directory. A missing file yields an
// empty state.
func Load(contextDir string) (*State, error) {
	path := filepath.Join(contextDir, StateFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	migrateState(&state)

	return &state, nil
}

// Save writes state to the context directory.
func (s *State) Save(contextDir string) error {
	if s.Version == "" {
		s.Version = CurrentStateVersion
	}
	if s.ParserVersion == "" {
		s.ParserVersion = CurrentParserVersion
	}
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}

	s.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(contextDir, StateFile), data, 0644)
}

// Stale reports whether the stored parse data was produced by a different
// parser version or language set and must be rebuilt from scratch.
func (s *State) Stale(languages []string) bool {
	if s.ParserVersion != CurrentParserVersion {
		return true
	}
	want := append([]string(nil), languages...)
	sort.Strings(want)
	if len(want) != len(s.Languages) {
		return true
	}
	for i := range want {
		if want[i] != s.Languages[i] {
			return true
		}
	}
	return false
}

// SetLanguages records the language set the state was built with.
func (s *State) SetLanguages(languages []string) {
	s.Languages = append([]string(nil), languages...)
	sort.Strings(s.Languages)
}

// SetFileData stores parsed file metadata for incremental updates.
func (s *State) SetFileData(file parser.FileTypes) {
	s.Files[file.Path] = FileState{
		Hash:          file.Hash,
		Language:      file.Language,
		Types:         file.Types,
		Imports:       file.Imports,
		ImportAliases: file.ImportAliases,
		SyntaxErrors:  file.SyntaxErrors,
		UpdatedAt:     time.Now(),
	}
}

// GetFileHash returns the stored hash for a file
func (s *State) GetFileHash(file string) (string, bool) {
	fs, ok := s.Files[file]
	if !ok {
		return "", false
	}
	return fs.Hash, true
}

// HasChanged returns true if the file hash differs from stored
func (s *State) HasChanged(file, currentHash string) bool {
	storedHash, ok := s.GetFileHash(file)
	if !ok {
		return true
	}
	return storedHash != currentHash
}

// RemoveFile removes a file from state tracking
func (s *State) RemoveFile(file string) {
	delete(s.Files, file)
}

// ChangedFiles returns new or modified files, sorted.
func (s *State) ChangedFiles(currentHashes map[string]string) []string {
	changed := make([]string, 0)
	for file, hash := range currentHashes {
		if s.HasChanged(file, hash) {
			changed = append(changed, file)
		}
	}
	sort.Strings(changed)
	return changed
}

// DeletedFiles returns tracked files that no longer exist, sorted.
func (s *State) DeletedFiles(currentFiles map[string]bool) []string {
	deleted := make([]string, 0)
	for file := range s.Files {
		if !currentFiles[file] {
			deleted = append(deleted, file)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// TypeCount returns the number of stored declarations.
func (s *State) TypeCount() int {
	n := 0
	for _, file := range s.Files {
		n += len(file.Types)
	}
	return n
}

func migrateState(s *State) {
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}
	if s.Version == "" {
		s.Version = CurrentStateVersion
	}
}
