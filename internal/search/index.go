package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/skelly-dev/typenav/internal/fileutil"
	"github.com/skelly-dev/typenav/internal/graph"
)

const (
	IndexFile = "search-index.json"
	Version   = "type-search-v1"
)

// ErrIndexMissing is returned by Load before the workspace was indexed.
var ErrIndexMissing = errors.New("search index missing")

var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

type Document struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Display   string         `json:"display"`
	Kind      string         `json:"kind"`
	Namespace string         `json:"namespace,omitempty"`
	File      string         `json:"file"`
	Line      int            `json:"line"`
	Length    int            `json:"length"`
	Terms     map[string]int `json:"terms"`
}

type Index struct {
	Version       string         `json:"version"`
	DocumentCount int            `json:"document_count"`
	AvgDocLength  float64        `json:"avg_doc_length"`
	DocFreq       map[string]int `json:"doc_freq"`
	Documents     []Document     `json:"documents"`
}

type Result struct {
	ID    string
	Score float64
}

// Build indexes every declared type in the workspace. External types have
// no declaration to jump to and are left out.
func Build(w *graph.Workspace) *Index {
	if w == nil {
		return &Index{Version: Version, DocFreq: map[string]int{}}
	}

	documents := make([]Document, 0, len(w.Nodes))
	docFreq := make(map[string]int)
	totalLength := 0

	for _, node := range w.Declared() {
		file, line := "", 0
		if len(node.Decls) > 0 {
			file, line = node.Decls[0].File, node.Decls[0].Line
		}

		terms := buildTerms(node.NestedName(), node.Namespace, file, supertypeNames(w, node))
		length := 0
		for _, count := range terms {
			length += count
		}
		if length == 0 {
			continue
		}

		documents = append(documents, Document{
			ID:        node.ID,
			Name:      node.Name,
			Display:   node.Display,
			Kind:      node.Kind.String(),
			Namespace: node.Namespace,
			File:      file,
			Line:      line,
			Length:    length,
			Terms:     terms,
		})
		totalLength += length

		for term := range terms {
			docFreq[term]++
		}
	}

	sort.Slice(documents, func(i, j int) bool {
		return documents[i].ID < documents[j].ID
	})

	avgDocLength := 0.0
	if len(documents) > 0 {
		avgDocLength = float64(totalLength) / float64(len(documents))
	}

	return &Index{
		Version:       Version,
		DocumentCount: len(documents),
		AvgDocLength:  avgDocLength,
		DocFreq:       docFreq,
		Documents:     documents,
	}
}

func supertypeNames(w *graph.Workspace, node *graph.Node) string {
	ids := append([]string{node.Superclass}, node.Interfaces...)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if parent, ok := w.Nodes[id]; ok {
			names = append(names, parent.Name)
		}
	}
	return strings.Join(names, " ")
}

// Write stores the search index next to the type index and reports whether
// the file changed.
func Write(contextDir string, w *graph.Workspace) (bool, error) {
	index := Build(w)
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode search index: %w", err)
	}
	data = append(data, '\n')
	return fileutil.WriteIfChangedTracked(filepath.Join(contextDir, IndexFile), data)
}

func Load(contextDir string) (*Index, error) {
	path := filepath.Join(contextDir, IndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s (run typenav index)", ErrIndexMissing, path)
		}
		return nil, fmt.Errorf("failed to read search index: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode search index: %w", err)
	}
	if index.DocFreq == nil {
		index.DocFreq = map[string]int{}
	}
	return &index, nil
}

func Search(index *Index, query string, limit int) []Result {
	if index == nil || len(index.Documents) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	seenTerms := make(map[string]bool, len(queryTerms))
	uniqueTerms := make([]string, 0, len(queryTerms))
	for _, term := range queryTerms {
		if seenTerms[term] {
			continue
		}
		seenTerms[term] = true
		uniqueTerms = append(uniqueTerms, term)
	}

	k1 := 1.2
	b := 0.75
	n := float64(index.DocumentCount)
	avgLen := index.AvgDocLength
	if avgLen <= 0 {
		avgLen = 1
	}

	results := make([]Result, 0)
	for _, doc := range index.Documents {
		score := 0.0
		docLen := float64(doc.Length)
		for _, term := range uniqueTerms {
			tf := float64(doc.Terms[term])
			if tf <= 0 {
				continue
			}
			df := float64(index.DocFreq[term])
			if df <= 0 {
				continue
			}
			idf := math.Log(1.0 + ((n - df + 0.5) / (df + 0.5)))
			numerator := tf * (k1 + 1.0)
			denominator := tf + k1*(1.0-b+b*(docLen/avgLen))
			score += idf * (numerator / denominator)
		}
		if score > 0 {
			results = append(results, Result{ID: doc.ID, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		fallback := fuzzyNameFallback(index.Documents, query, limit)
		if len(fallback) > 0 {
			return fallback
		}
	}
	return results
}

func buildTerms(name, namespace, filePath, supertypes string) map[string]int {
	terms := make(map[string]int)
	addWeighted(terms, name, 4)
	addWeighted(terms, splitIdentifier(name), 2)
	addWeighted(terms, namespace, 2)
	addWeighted(terms, filePath, 1)
	addWeighted(terms, supertypes, 1)
	return terms
}

func addWeighted(terms map[string]int, value string, weight int) {
	if weight <= 0 {
		return
	}
	for _, token := range tokenize(value) {
		terms[token] += weight
	}
}

func tokenize(value string) []string {
	value = strings.ToLower(value)
	if value == "" {
		return nil
	}
	return tokenPattern.FindAllString(value, -1)
}

// splitIdentifier breaks camel case into words: "HttpRequestBase" becomes
// "Http Request Base" and "IOStream" becomes "IO Stream".
func splitIdentifier(value string) string {
	runes := []rune(value)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fuzzyNameFallback(documents []Document, query string, limit int) []Result {
	needle := normalizeForFuzzy(query)
	if needle == "" {
		return nil
	}

	results := make([]Result, 0)
	for _, doc := range documents {
		candidate := normalizeForFuzzy(doc.Name)
		if candidate == "" {
			continue
		}
		distance := levenshteinDistance(needle, candidate)
		threshold := len(candidate) / 3
		if threshold < 2 {
			threshold = 2
		}
		if distance > threshold {
			continue
		}
		results = append(results, Result{ID: doc.ID, Score: 1.0 / float64(1+distance)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func normalizeForFuzzy(value string) string {
	tokens := tokenize(value)
	if len(tokens) == 0 {
		return ""
	}
	return strings.Join(tokens, "")
}

func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current := make([]int, len(b)+1)
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			ins := current[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost
			current[j] = minInt(ins, minInt(del, sub))
		}
		prev = current
	}

	return prev[len(b)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
