package fileutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/skelly-dev/typenav/internal/languages"
	"github.com/skelly-dev/typenav/internal/parser"
	"github.com/skelly-dev/typenav/internal/state"
)

func TestImpactedWithReasonsExplainsEachHop(t *testing.T) {
	st := state.NewState()
	st.Files["Control.cs"] = state.FileState{}
	st.Files["Button.cs"] = state.FileState{Dependencies: []string{"Control.cs"}}
	st.Files["IconButton.cs"] = state.FileState{Dependencies: []string{"Button.cs"}}

	impacted, reasons := ImpactedWithReasons(st, []string{"Control.cs"}, nil)
	if want := []string{"Button.cs", "Control.cs", "IconButton.cs"}; !reflect.DeepEqual(impacted, want) {
		t.Fatalf("expected impacted %v, got %v", want, impacted)
	}
	if got := reasons["IconButton.cs"]; !reflect.DeepEqual(got, []string{"derives from a type in Button.cs"}) {
		t.Fatalf("unexpected reasons %v", got)
	}
	if got := reasons["Control.cs"]; !reflect.DeepEqual(got, []string{"changed"}) {
		t.Fatalf("unexpected reasons %v", got)
	}
}

func TestParseResultFromStateSkipsDeletedFiles(t *testing.T) {
	st := state.NewState()
	st.SetFileData(parser.FileTypes{
		Path:     "B.cs",
		Language: "csharp",
		Types:    []parser.TypeDecl{{Name: "B", Kind: parser.KindClass, Line: 3}},
	})
	st.SetFileData(parser.FileTypes{Path: "Gone.cs", Language: "csharp"})
	st.SetFileData(parser.FileTypes{Path: "A.cs", Language: "csharp", SyntaxErrors: true})

	result := ParseResultFromState(st, "/repo", map[string]string{"A.cs": "h1", "B.cs": "h2"})
	if len(result.Files) != 2 || result.Files[0].Path != "A.cs" || result.Files[1].Path != "B.cs" {
		t.Fatalf("unexpected files %+v", result.Files)
	}
	if result.Files[1].Types[0].ID == "" {
		t.Fatal("expected stable IDs to be filled in")
	}
	if len(result.Issues) != 1 || result.Issues[0].File != "A.cs" {
		t.Fatalf("expected one syntax issue for A.cs, got %+v", result.Issues)
	}
}

func TestScanFileHashesHonoursIgnoreRules(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("src/Shape.cs", "class Shape {}")
	write("src/notes.txt", "not code")
	write("obj/Generated.cs", "class Generated {}")
	write("legacy/Old.java", "class Old {}")

	hashes, err := ScanFileHashes(root, languages.NewDefaultRegistry(), []string{"legacy/"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := MapKeysSorted(hashes); !reflect.DeepEqual(got, []string{"src/Shape.cs"}) {
		t.Fatalf("unexpected scanned files %v", got)
	}
}

func TestWriteIfChangedTracked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	written, err := WriteIfChangedTracked(path, []byte("{}"))
	if err != nil || !written {
		t.Fatalf("first write: written=%v err=%v", written, err)
	}
	written, err = WriteIfChangedTracked(path, []byte("{}"))
	if err != nil || written {
		t.Fatalf("identical write: written=%v err=%v", written, err)
	}
}
