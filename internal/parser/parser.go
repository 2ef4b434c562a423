package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/skelly-dev/typenav/internal/ignore"
)

// LanguageParser defines the interface each language must implement
type LanguageParser interface {
	// Language returns the language name (e.g., "csharp", "java")
	Language() string

	// Extensions returns file extensions this parser handles
	Extensions() []string

	// Parse extracts type declarations from source code
	Parse(filename string, content []byte) (*FileTypes, error)
}

// Registry holds all registered language parsers
type Registry struct {
	parsers   map[string]LanguageParser // language name -> parser
	extToLang map[string]string         // extension -> language name
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[string]LanguageParser),
		extToLang: make(map[string]string),
	}
}

// Register adds a language parser to the registry
func (r *Registry) Register(p LanguageParser) {
	lang := p.Language()
	r.parsers[lang] = p
	for _, ext := range p.Extensions() {
		r.extToLang[ext] = lang
	}
}

// Languages returns the registered language names, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.parsers))
	for lang := range r.parsers {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// GetParserForFile returns the appropriate parser for a file
func (r *Registry) GetParserForFile(filename string) (LanguageParser, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	parser, ok := r.parsers[lang]
	return parser, ok
}

// Supports reports whether some registered parser handles the file.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.GetParserForFile(filename)
	return ok
}

// ParseFile parses a single file and returns its type declarations
func (r *Registry) ParseFile(path string) (*FileTypes, error) {
	parser, ok := r.GetParserForFile(path)
	if !ok {
		return nil, nil // unsupported file type, skip silently
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	file, err := parser.Parse(path, content)
	if err != nil {
		return nil, err
	}

	file.Imports = normalizeStrings(file.Imports)
	file.ImportAliases = normalizeImportAliases(file.ImportAliases)
	for i := range file.Types {
		file.Types[i].Bases = normalizeBases(file.Types[i].Bases)
	}

	// Compute file hash for incremental updates
	file.Hash = hashContent(content)

	return file, nil
}

// ParseRelative parses root/relPath and stamps relative paths and stable IDs.
func (r *Registry) ParseRelative(root, relPath string) (*FileTypes, error) {
	file, err := r.ParseFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil || file == nil {
		return file, err
	}
	file.Path = filepath.ToSlash(relPath)
	for i := range file.Types {
		file.Types[i].ID = StableTypeID(file.Path, file.Types[i])
	}
	return file, nil
}

// ParseDirectory recursively parses all supported files in a directory
func (r *Registry) ParseDirectory(root string, ignorePaths []string) (*ParseResult, error) {
	ignoreMatcher := ignore.NewMatcher(ignorePaths)

	result := &ParseResult{
		RootPath: root,
		Files:    make([]FileTypes, 0),
		Issues:   make([]ParseIssue, 0),
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			relPath := path
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				relPath = filepath.ToSlash(rel)
			}
			result.Issues = append(result.Issues, ParseIssue{
				File:     relPath,
				Severity: "warning",
				Message:  fmt.Sprintf("walk error: %v", err),
			})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip directories and ignored paths
		relPath, _ := filepath.Rel(root, path)
		relPath = filepath.ToSlash(relPath)
		if ignoreMatcher.ShouldIgnore(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() || !r.Supports(path) {
			return nil
		}

		file, err := r.ParseRelative(root, relPath)
		if err != nil {
			lang := ""
			if langParser, ok := r.GetParserForFile(path); ok {
				lang = langParser.Language()
			}
			result.Issues = append(result.Issues, ParseIssue{
				File:     relPath,
				Language: lang,
				Severity: "error",
				Message:  err.Error(),
			})
			return nil
		}
		if file != nil {
			if issue, ok := SyntaxIssue(*file); ok {
				result.Issues = append(result.Issues, issue)
			}
			result.Files = append(result.Files, *file)
		}

		return nil
	})

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	SortIssues(result.Issues)

	return result, err
}

// SyntaxIssue returns the warning recorded for a file that parsed with
// syntax errors. Declarations recovered from such a file are kept.
func SyntaxIssue(file FileTypes) (ParseIssue, bool) {
	if !file.SyntaxErrors {
		return ParseIssue{}, false
	}
	return ParseIssue{
		File:     file.Path,
		Language: file.Language,
		Severity: "warning",
		Message:  fmt.Sprintf("syntax errors; recovered %d type declarations", len(file.Types)),
	}, true
}

// SortIssues orders issues by file, then message.
func SortIssues(issues []ParseIssue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].File == issues[j].File {
			return issues[i].Message < issues[j].Message
		}
		return issues[i].File < issues[j].File
	})
}

func hashContent(content []byte) string {
	h := sha256.New()
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:16] // short hash
}

func normalizeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// normalizeBases trims and dedupes base refs. Declaration order is kept
// since it decides which interface is walked first.
func normalizeBases(values []BaseRef) []BaseRef {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(values))
	out := make([]BaseRef, 0, len(values))
	for _, value := range values {
		value.Name = strings.TrimSpace(value.Name)
		value.Qualifier = strings.TrimSpace(value.Qualifier)
		value.Raw = strings.TrimSpace(value.Raw)
		if value.Name == "" {
			continue
		}
		if value.Role == "" {
			value.Role = RoleUnknown
		}

		key := fmt.Sprintf("%s|%s|%d", value.Qualifier, value.Name, value.Arity)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeImportAliases(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}

	out := make(map[string]string, len(values))
	for alias, target := range values {
		alias = strings.TrimSpace(alias)
		target = strings.TrimSpace(target)
		if alias == "" || target == "" {
			continue
		}
		out[alias] = target
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
