package cli

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skelly-dev/typenav/internal/config"
	"github.com/skelly-dev/typenav/internal/graph"
	"github.com/skelly-dev/typenav/internal/nav"
	"github.com/skelly-dev/typenav/internal/search"
	"github.com/skelly-dev/typenav/internal/state"
)

func TestIndexThenNavigateFlow(t *testing.T) {
	root := copyFixtures(t)

	out, _, err := runCLI(t, root, "index")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if !strings.HasPrefix(out, "index: scanned=3 parsed=3 reused=0") {
		t.Fatalf("unexpected index output:\n%s", out)
	}

	contextDir := filepath.Join(root, config.ContextDir)
	assertExists(t, filepath.Join(contextDir, graph.IndexFile))
	assertExists(t, filepath.Join(contextDir, search.IndexFile))
	assertExists(t, filepath.Join(contextDir, state.StateFile))
	assertExists(t, config.Path(root))

	second := indexJSON(t, root)
	if second.Parsed != 0 || second.Changed != 0 || second.Reused != 3 {
		t.Fatalf("expected a no-op second index, got %+v", second)
	}
	if second.Rewritten != 0 {
		t.Fatalf("expected unchanged index to be left alone, got rewritten=%d", second.Rewritten)
	}
	if second.Types != 11 {
		t.Fatalf("expected 11 declared types, got %d", second.Types)
	}

	out, _, err = runCLI(t, root, "derived", "ComponentBase")
	if err != nil {
		t.Fatalf("derived failed: %v", err)
	}
	for _, want := range []string{"Find derived types of ComponentBase", "Button", "IconButton", "L2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected listing to contain %q, got:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, root, "base", "IconButton", "--first")
	if err != nil {
		t.Fatalf("base --first failed: %v", err)
	}
	if !strings.HasPrefix(out, "csharp/Model/Component.cs:15") {
		t.Fatalf("expected to land on Button, got %q", out)
	}

	out, _, err = runCLI(t, root, "derived", "Shape")
	if err != nil {
		t.Fatalf("derived Shape failed: %v", err)
	}
	if !strings.HasPrefix(out, "java/src/shapes/Shapes.java:9") {
		t.Fatalf("expected single result to navigate directly to Circle, got %q", out)
	}

	out, _, err = runCLI(t, root, "base", "Panel")
	if err != nil {
		t.Fatalf("base Panel failed: %v", err)
	}
	if !strings.Contains(out, "View") || !strings.Contains(out, "Renderable") {
		t.Fatalf("expected Panel ancestors in listing, got:\n%s", out)
	}

	for _, args := range [][]string{{"derived", "Circle"}, {"base", "Nope"}} {
		out, _, err = runCLI(t, root, args...)
		if err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
		if out != "" {
			t.Fatalf("expected %v to print nothing, got %q", args, out)
		}
	}
}

func TestIndexPicksUpChangesAndDeletes(t *testing.T) {
	root := copyFixtures(t)
	indexJSON(t, root)

	mustWriteFile(t, filepath.Join(root, "typescript", "web", "view.ts"), `export interface Renderable {
  render(): void;
}

export class View implements Renderable {
  render(): void {}
}

export class Panel extends View {}

export class Dialog extends Panel {}
`)
	if err := os.Remove(filepath.Join(root, "java", "src", "shapes", "Shapes.java")); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	status := statusJSON(t, root)
	if status.Changed != 1 || status.Deleted != 1 {
		t.Fatalf("expected status to report one change and one delete, got %+v", status)
	}

	out, _, err := runCLI(t, root, "index", "--json", "--explain")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	summary := decodeSummary(t, out)
	if summary.Parsed != 1 || summary.Changed != 1 || summary.Deleted != 1 {
		t.Fatalf("unexpected incremental summary %+v", summary)
	}
	if len(summary.ChangedFiles) != 1 || summary.ChangedFiles[0] != "typescript/web/view.ts" {
		t.Fatalf("unexpected changed files %v", summary.ChangedFiles)
	}
	if len(summary.DeletedFiles) != 1 || summary.DeletedFiles[0] != "java/src/shapes/Shapes.java" {
		t.Fatalf("unexpected deleted files %v", summary.DeletedFiles)
	}
	if got := summary.Reasons["typescript/web/view.ts"]; len(got) == 0 || got[0] != "changed" {
		t.Fatalf("expected explain reasons for view.ts, got %v", summary.Reasons)
	}
	if summary.Types != 9 {
		t.Fatalf("expected 9 declared types after the update, got %d", summary.Types)
	}

	out, _, err = runCLI(t, root, "derived", "View", "--json")
	if err != nil {
		t.Fatalf("derived --json failed: %v", err)
	}
	var record nav.NavigationRecord
	if err := json.Unmarshal([]byte(out), &record); err != nil {
		t.Fatalf("invalid navigation JSON: %v\n%s", err, out)
	}
	if record.Status != "cancelled" || record.ClosureSize != 2 {
		t.Fatalf("expected two derived types listed, got status=%s size=%d", record.Status, record.ClosureSize)
	}

	out, _, err = runCLI(t, root, "derived", "Drawable")
	if err != nil {
		t.Fatalf("derived Drawable failed: %v", err)
	}
	if out != "" {
		t.Fatalf("expected deleted type to be gone, got %q", out)
	}
}

func TestIndexLanguageSelectionForcesFullRebuildWhenChanged(t *testing.T) {
	root := copyFixtures(t)

	out, _, err := runCLI(t, root, "index", "--lang", "csharp", "--json")
	if err != nil {
		t.Fatalf("index --lang failed: %v", err)
	}
	summary := decodeSummary(t, out)
	if summary.Scanned != 1 || len(summary.Languages) != 1 || summary.Languages[0] != "csharp" {
		t.Fatalf("expected only the C# file, got %+v", summary)
	}

	status := statusJSON(t, root)
	if status.Scanned != 1 || status.Changed != 0 {
		t.Fatalf("expected status to use the indexed language set, got %+v", status)
	}

	summary = indexJSON(t, root)
	if !summary.Full || summary.Scanned != 3 || summary.Parsed != 3 {
		t.Fatalf("expected a full rebuild for the new language set, got %+v", summary)
	}
}

func TestIndexRecoversFromCorruptState(t *testing.T) {
	root := copyFixtures(t)
	indexJSON(t, root)

	mustWriteFile(t, filepath.Join(root, config.ContextDir, state.StateFile), "{not json")

	_, stderr, err := runCLI(t, root, "index", "--json", "--verbose")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if !strings.Contains(stderr, "corrupt state file") {
		t.Fatalf("expected corrupt state warning, got:\n%s", stderr)
	}

	st, err := state.Load(filepath.Join(root, config.ContextDir))
	if err != nil {
		t.Fatalf("state was not rewritten: %v", err)
	}
	if len(st.Files) != 3 {
		t.Fatalf("expected 3 files in rebuilt state, got %d", len(st.Files))
	}
}

func TestIndexPathArgumentSelectsRoot(t *testing.T) {
	root := copyFixtures(t)
	other := t.TempDir()
	isolateEnv(t)

	app, stdout, _ := newAppForTest(other)
	if err := app.Execute([]string{"index", root, "--json"}); err != nil {
		t.Fatalf("index <path> failed: %v", err)
	}
	summary := decodeSummary(t, stdout.String())
	if summary.RootPath != root || summary.Scanned != 3 {
		t.Fatalf("expected index of %s, got %+v", root, summary)
	}
	if _, err := os.Stat(filepath.Join(other, config.ContextDir)); !os.IsNotExist(err) {
		t.Fatalf("expected nothing written to the working root")
	}
}

func TestNavigateBeforeIndexSuggestsIndexing(t *testing.T) {
	root := copyFixtures(t)

	_, _, err := runCLI(t, root, "base", "Button")
	if err == nil {
		t.Fatalf("expected an error without an index")
	}
	if !strings.Contains(err.Error(), "run typenav index") {
		t.Fatalf("expected indexing hint, got %v", err)
	}
}

func TestAmbiguousNameIsAnError(t *testing.T) {
	root := copyFixtures(t)
	mustWriteFile(t, filepath.Join(root, "java", "src", "ui", "View.java"), "package ui;\n\npublic class View {\n}\n")
	indexJSON(t, root)

	_, _, err := runCLI(t, root, "derived", "View")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}

func TestMetricsFileWrittenEvenWhenCommandFails(t *testing.T) {
	root := copyFixtures(t)
	mustWriteFile(t, config.Path(root), "metrics_file: metrics.prom\n")

	if _, _, err := runCLI(t, root, "base", "Button"); err == nil {
		t.Fatalf("expected missing index error")
	}
	assertExists(t, filepath.Join(root, "metrics.prom"))

	indexJSON(t, root)
	if _, _, err := runCLI(t, root, "derived", "ComponentBase"); err != nil {
		t.Fatalf("derived failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "metrics.prom"))
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	if !strings.Contains(string(data), `typenav_navigations_total{direction="derived",outcome="cancelled"} 1`) {
		t.Fatalf("expected navigation counter in metrics file, got:\n%s", data)
	}
}

func TestTelemetryFailureIsPrinted(t *testing.T) {
	root := copyFixtures(t)
	mustWriteFile(t, filepath.Join(root, "blocker"), "not a directory\n")
	mustWriteFile(t, config.Path(root), "metrics_file: blocker/metrics.prom\n")

	out, stderr, err := runCLI(t, root, "version")
	if err == nil || !strings.Contains(err.Error(), "failed to write metrics") {
		t.Fatalf("expected metrics write error, got %v", err)
	}
	if out != "typenav test\n" {
		t.Fatalf("expected version output before the failure, got %q", out)
	}
	if !strings.Contains(stderr, "Error: failed to write metrics") {
		t.Fatalf("expected the failure on stderr, got %q", stderr)
	}
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	root := copyFixtures(t)
	mustWriteFile(t, config.Path(root), "log_level: chatty\n")

	_, _, err := runCLI(t, root, "status")
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("expected config validation error, got %v", err)
	}
}

func TestVerboseLogsAtDebugLevel(t *testing.T) {
	root := copyFixtures(t)

	_, stderr, err := runCLI(t, root, "index", "--json", "--verbose")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if !strings.Contains(stderr, "level=DEBUG") || !strings.Contains(stderr, "index finished") {
		t.Fatalf("expected debug logs on stderr, got:\n%s", stderr)
	}

	_, stderr, err = runCLI(t, root, "status", "--json")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if strings.Contains(stderr, "level=DEBUG") {
		t.Fatalf("expected no debug logs by default, got:\n%s", stderr)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "typenav test\n" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestSummarizePathsTruncates(t *testing.T) {
	paths := []string{"a", "b", "c", "d"}
	if got := SummarizePaths(paths, 4); got != "a, b, c, d" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := SummarizePaths(paths, 2); got != "a, b ... (+2 more)" {
		t.Fatalf("unexpected truncated summary %q", got)
	}
}

func TestPrintRunSummaryText(t *testing.T) {
	var buf bytes.Buffer
	err := PrintRunSummary(&buf, RunSummary{
		Mode:          "status",
		Scanned:       3,
		Parsed:        1,
		Reused:        2,
		Changed:       1,
		Impacted:      2,
		Types:         7,
		ChangedFiles:  []string{"a.cs"},
		ImpactedFiles: []string{"a.cs", "b.cs"},
		Reasons: map[string][]string{
			"a.cs": {"changed"},
			"b.cs": {"derives from a type in a.cs"},
		},
	}, false)
	if err != nil {
		t.Fatalf("print failed: %v", err)
	}

	want := "status: scanned=3 parsed=1 reused=2 rewritten=0 changed=1 deleted=0 impacted=2 types=7 duration=0ms\n" +
		"changed files (1): a.cs\n" +
		"impacted files (2): a.cs, b.cs\n" +
		"  a.cs <- changed\n" +
		"  b.cs <- derives from a type in a.cs\n"
	if buf.String() != want {
		t.Fatalf("unexpected summary text:\n%s", buf.String())
	}
}

func newAppForTest(root string) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := NewApp("test")
	app.Runtime.Stdin = strings.NewReader("")
	app.Runtime.Stdout = &stdout
	app.Runtime.Stderr = &stderr
	app.Getwd = func() (string, error) { return root, nil }
	return app, &stdout, &stderr
}

func runCLI(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	isolateEnv(t)
	app, stdout, stderr := newAppForTest(root)
	err := app.Execute(args)
	return stdout.String(), stderr.String(), err
}

func indexJSON(t *testing.T, root string) RunSummary {
	t.Helper()
	out, _, err := runCLI(t, root, "index", "--json")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	return decodeSummary(t, out)
}

func statusJSON(t *testing.T, root string) RunSummary {
	t.Helper()
	out, _, err := runCLI(t, root, "status", "--json")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	return decodeSummary(t, out)
}

func decodeSummary(t *testing.T, out string) RunSummary {
	t.Helper()
	var summary RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid summary JSON: %v\n%s", err, out)
	}
	return summary
}

// isolateEnv keeps the developer's editor and typenav settings out of the
// commands under test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VISUAL", "EDITOR", "TYPENAV_EDITOR", "TYPENAV_LOG_LEVEL", "TYPENAV_QUERY_TIMEOUT",
		"TYPENAV_PARALLEL_QUERIES", "TYPENAV_TRACE_EXPORTER", "TYPENAV_METRICS_FILE",
	} {
		t.Setenv(key, "")
	}
}

func copyFixtures(t *testing.T) string {
	t.Helper()
	src := filepath.Join("..", "..", "fixtures", "hierarchy")
	dst := t.TempDir()
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		t.Fatalf("failed to copy fixtures: %v", err)
	}
	return dst
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}
