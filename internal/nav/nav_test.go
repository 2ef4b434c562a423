package nav

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/skelly-dev/typenav/internal/config"
	"github.com/skelly-dev/typenav/internal/graph"
	"github.com/skelly-dev/typenav/internal/hierarchy"
	"github.com/skelly-dev/typenav/internal/parser"
	"github.com/skelly-dev/typenav/internal/search"
	"github.com/skelly-dev/typenav/internal/state"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unknownBase(name string) parser.BaseRef {
	return parser.BaseRef{Name: name, Role: parser.RoleUnknown}
}

func fixture() *parser.ParseResult {
	return &parser.ParseResult{
		Files: []parser.FileTypes{
			{
				Path:     "Model/Component.cs",
				Language: "csharp",
				Types: []parser.TypeDecl{
					{ID: "c1", Name: "IComponent", Namespace: "App.Model", Kind: parser.KindInterface, Line: 3, EndLine: 6},
					{
						ID: "c2", Name: "ComponentBase", Namespace: "App.Model", Kind: parser.KindClass, Abstract: true,
						Bases: []parser.BaseRef{unknownBase("IComponent")},
						Line:  8, EndLine: 30,
					},
					{
						ID: "c3", Name: "Options", Namespace: "App.Model", Container: "ComponentBase", Kind: parser.KindClass,
						Line: 12, EndLine: 20,
					},
					{
						ID: "c4", Name: "Button", Namespace: "App.Model", Kind: parser.KindClass,
						Bases: []parser.BaseRef{unknownBase("ComponentBase"), unknownBase("IClickable")},
						Line:  32, EndLine: 40,
					},
				},
			},
			{
				Path:     "Settings/Options.cs",
				Language: "csharp",
				Types: []parser.TypeDecl{
					{ID: "s1", Name: "Options", Namespace: "App.Settings", Kind: parser.KindClass, Line: 2, EndLine: 4},
				},
			},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestResolverLookupOrder(t *testing.T) {
	w := graph.Build(fixture(), nil)
	r := &Resolver{Workspace: w, Root: "/repo"}
	ctx := context.Background()

	cases := map[string]string{
		"csharp:App.Model.Button":   "csharp:App.Model.Button",
		"c2":                        "csharp:App.Model.ComponentBase",
		"ComponentBase":             "csharp:App.Model.ComponentBase",
		"App.Settings.Options":      "csharp:App.Settings.Options",
		"Model/Component.cs:15":     "csharp:App.Model.ComponentBase.Options",
		"Model/Component.cs:50:3":   "csharp:App.Model.Button",
		"/repo/Model/Component.cs:4": "csharp:App.Model.IComponent",
	}
	for query, want := range cases {
		got, err := r.Locate(ctx, hierarchy.Position{Query: query})
		require.NoError(t, err, query)
		require.NotNil(t, got, query)
		assert.Equal(t, want, got.ID(), query)
	}

	got, err := r.Locate(ctx, hierarchy.Position{File: "Model/Component.cs", Line: 35})
	require.NoError(t, err)
	assert.Equal(t, "csharp:App.Model.Button", got.ID())
}

func TestResolverReportsAmbiguousNames(t *testing.T) {
	r := &Resolver{Workspace: graph.Build(fixture(), nil)}

	_, err := r.Locate(context.Background(), hierarchy.Position{Query: "Options"})
	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []string{"csharp:App.Model.ComponentBase.Options", "csharp:App.Settings.Options"}, ambiguous.Candidates)
	assert.Contains(t, err.Error(), "use one of")
}

func TestResolverNotFoundIsSilent(t *testing.T) {
	r := &Resolver{Workspace: graph.Build(fixture(), nil)}

	for _, query := range []string{"", "Nope", "Model/Component.cs:1", "Missing.cs:10"} {
		got, err := r.Locate(context.Background(), hierarchy.Position{Query: query})
		assert.NoError(t, err, query)
		assert.Nil(t, got, query)
	}
}

func TestResolverFuzzyFallback(t *testing.T) {
	w := graph.Build(fixture(), nil)
	r := &Resolver{Workspace: w}
	got, err := r.Locate(context.Background(), hierarchy.Position{Query: "Buton"})
	require.NoError(t, err)
	assert.Nil(t, got, "fuzzy lookup is opt-in")

	r.Search = search.Build(w)
	got, err = r.Locate(context.Background(), hierarchy.Position{Query: "Buton"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "csharp:App.Model.Button", got.ID())
}

func TestParseLocationQuery(t *testing.T) {
	file, line, column, ok := ParseLocationQuery("src/A.cs:12")
	require.True(t, ok)
	assert.Equal(t, "src/A.cs", file)
	assert.Equal(t, 12, line)
	assert.Zero(t, column)

	file, line, column, ok = ParseLocationQuery("src/A.cs:12:7")
	require.True(t, ok)
	assert.Equal(t, "src/A.cs", file)
	assert.Equal(t, 12, line)
	assert.Equal(t, 7, column)

	file, line, _, ok = ParseLocationQuery(`C:\src\A.cs:3`)
	require.True(t, ok)
	assert.Equal(t, `C:\src\A.cs`, file)
	assert.Equal(t, 3, line)

	for _, query := range []string{"A.cs", "A.cs:", ":12", "A.cs:0", "A.cs:x", "csharp:App.Model.Button"} {
		_, _, _, ok := ParseLocationQuery(query)
		assert.False(t, ok, query)
	}
}

func TestEditorCommandExpandsPlaceholders(t *testing.T) {
	loc := hierarchy.Location{File: "A.cs", Line: 12}
	assert.Equal(t,
		[]string{"code", "--goto", "/repo/my dir/A.cs:12:1"},
		EditorCommand("code --goto {file}:{line}:{column}", "/repo/my dir/A.cs", loc),
	)
	assert.Equal(t, []string{"vim", "/repo/A.cs"}, EditorCommand("vim", "/repo/A.cs", loc))
	assert.Equal(t, []string{"vim", "+12", "/repo/A.cs"}, EditorCommand("vim +{line} {file}", "/repo/A.cs", loc))
}

func TestEditorSinkRunsCommandForExistingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.cs"), []byte("class A {}"), 0644))

	var calls [][]string
	sink := &EditorSink{
		Root:     root,
		Template: "edit +{line}",
		Logger:   testLogger(),
		Run: func(_ context.Context, name string, args ...string) error {
			calls = append(calls, append([]string{name}, args...))
			return nil
		},
	}
	target := fakeDescriptor{}

	assert.False(t, sink.GoTo(context.Background(), target, hierarchy.Location{File: "Missing.cs", Line: 1}))
	assert.True(t, sink.GoTo(context.Background(), target, hierarchy.Location{File: "A.cs", Line: 3}))
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"edit", "+3", filepath.Join(root, "A.cs")}, calls[0])

	sink.Run = func(context.Context, string, ...string) error { return errors.New("exit status 1") }
	assert.False(t, sink.GoTo(context.Background(), target, hierarchy.Location{File: "A.cs", Line: 3}))
}

func TestPrintSink(t *testing.T) {
	var out bytes.Buffer
	sink := PrintSink{Out: &out}
	assert.True(t, sink.GoTo(context.Background(), fakeDescriptor{}, hierarchy.Location{File: "A.cs", Line: 3, Column: 5}))
	assert.False(t, sink.GoTo(context.Background(), fakeDescriptor{}, hierarchy.Location{}))
	assert.Equal(t, "A.cs:3:5\n", out.String())
}

func TestErrorReporterKeepsFirstError(t *testing.T) {
	r := &ErrorReporter{}
	r.ReportError("Navigate to derived class", errors.New("boom"))
	r.ReportError("Navigate to base class", errors.New("later"))
	require.Error(t, r.Err())
	assert.Equal(t, "Navigate to derived class: boom", r.Err().Error())
}

func TestIncompleteMessage(t *testing.T) {
	assert.Empty(t, incompleteMessage(0, 0, 0))
	assert.Equal(t,
		"Workspace may be incomplete: 2 files changed and 1 file deleted since the last index; 1 file had parse errors (run typenav index)",
		incompleteMessage(2, 1, 1),
	)
	assert.Equal(t,
		"Workspace may be incomplete: 3 files deleted since the last index (run typenav index)",
		incompleteMessage(0, 3, 0),
	)
}

func TestProbeDetectsStaleWorkspace(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.cs"), []byte("class A {}"), 0644))

	st := state.NewState()
	st.Files["A.cs"] = state.FileState{Hash: "outdated", Language: "csharp"}
	st.Files["Gone.cs"] = state.FileState{Hash: "x", Language: "csharp", SyntaxErrors: true}
	require.NoError(t, st.Save(ContextDir(root)))

	message := NewProbe(root, testLogger())(context.Background())
	assert.Equal(t,
		"Workspace may be incomplete: 1 file changed and 1 file deleted since the last index; 1 file had parse errors (run typenav index)",
		message,
	)
}

func TestLoadWorkspaceMissingIndex(t *testing.T) {
	_, err := LoadWorkspace(t.TempDir(), testLogger())
	require.ErrorIs(t, err, ErrIndexMissing)
	assert.Contains(t, err.Error(), "run typenav index")
}

type fakeDescriptor struct{}

func (fakeDescriptor) ID() string                       { return "fake" }
func (fakeDescriptor) Name() string                     { return "Fake" }
func (fakeDescriptor) DisplayName() string              { return "Fake" }
func (fakeDescriptor) Kind() hierarchy.Kind             { return hierarchy.KindClass }
func (fakeDescriptor) IsAbstract() bool                 { return false }
func (fakeDescriptor) IsRecord() bool                   { return false }
func (fakeDescriptor) Locations() []hierarchy.Location { return nil }

// indexedRoot writes the fixture graph to a fresh workspace root.
func indexedRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	_, err := graph.Build(fixture(), nil).Save(ContextDir(root), root)
	require.NoError(t, err)
	_, err = search.Write(ContextDir(root), graph.Build(fixture(), nil))
	require.NoError(t, err)
	return root
}

func navigateCommand(rt *Runtime, direction hierarchy.Direction) *cobra.Command {
	cmd := &cobra.Command{Use: direction.String(), Args: cobra.ExactArgs(1), RunE: RunNavigate(rt, direction)}
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().Bool("first", false, "")
	cmd.Flags().Bool("fuzzy", false, "")
	cmd.Flags().Bool("quiet", false, "")
	cmd.Flags().String("editor", "", "")
	cmd.Flags().Duration("timeout", 0, "")
	cmd.Flags().Int("parallel", 0, "")
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd
}

func runNavigate(t *testing.T, root string, direction hierarchy.Direction, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rt := &Runtime{
		Root:   root,
		Config: config.Default(),
		Logger: testLogger(),
		Stdin:  &bytes.Buffer{},
		Stdout: &out,
		Stderr: io.Discard,
	}
	cmd := navigateCommand(rt, direction)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeRecord(t *testing.T, out string) NavigationRecord {
	t.Helper()
	var record NavigationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	return record
}

func TestNavigateSingleResultPrintsLocation(t *testing.T) {
	root := indexedRoot(t)

	out, err := runNavigate(t, root, hierarchy.DirectionDerived, "ComponentBase")
	require.NoError(t, err)
	assert.Equal(t, "Model/Component.cs:32\n", out)
}

func TestNavigateListsCandidatesWithoutTerminal(t *testing.T) {
	root := indexedRoot(t)

	out, err := runNavigate(t, root, hierarchy.DirectionBase, "Button")
	require.NoError(t, err)
	assert.Contains(t, out, "Find base types of Button")
	assert.Contains(t, out, hierarchy.GroupBaseClassChain)
	assert.Contains(t, out, "A ComponentBase  L1  Model/Component.cs:8")
}

func TestNavigateJSONSnapshot(t *testing.T) {
	root := indexedRoot(t)

	out, err := runNavigate(t, root, hierarchy.DirectionDerived, "IComponent", "--json")
	require.NoError(t, err)
	record := decodeRecord(t, out)
	assert.Equal(t, "cancelled", record.Status)
	assert.Equal(t, "derived", record.Direction)
	require.NotNil(t, record.Origin)
	assert.Equal(t, "csharp:App.Model.IComponent", record.Origin.ID)
	assert.Equal(t, 2, record.ClosureSize)
	require.Len(t, record.Groups, 2)
	assert.Equal(t, hierarchy.GroupImplementationsDirect, record.Groups[0].Title)
	assert.Equal(t, "ComponentBase", record.Groups[0].Rows[0].Type.Name)
	assert.Equal(t, hierarchy.GroupImplementationsIndirect, record.Groups[1].Title)
	assert.Equal(t, 2, record.Groups[1].Rows[0].Level)
	assert.Nil(t, record.Target)
}

func TestNavigateJSONFirstNavigates(t *testing.T) {
	root := indexedRoot(t)

	out, err := runNavigate(t, root, hierarchy.DirectionDerived, "IComponent", "--json", "--first")
	require.NoError(t, err)
	record := decodeRecord(t, out)
	assert.Equal(t, "navigated", record.Status)
	require.NotNil(t, record.Target)
	assert.Equal(t, "csharp:App.Model.ComponentBase", record.Target.ID)
	require.NotNil(t, record.Location)
	assert.Equal(t, hierarchy.Location{File: "Model/Component.cs", Line: 8}, *record.Location)
}

func TestNavigateEmptyClosureIsSilent(t *testing.T) {
	root := indexedRoot(t)

	out, err := runNavigate(t, root, hierarchy.DirectionDerived, "Button")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = runNavigate(t, root, hierarchy.DirectionBase, "NoSuchType")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNavigateAmbiguousAndMissingIndexFail(t *testing.T) {
	root := indexedRoot(t)

	_, err := runNavigate(t, root, hierarchy.DirectionBase, "Options")
	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)

	_, err = runNavigate(t, t.TempDir(), hierarchy.DirectionBase, "Button")
	require.ErrorIs(t, err, ErrIndexMissing)
}

func TestNavigateQuietSkipsResolutionFailures(t *testing.T) {
	root := indexedRoot(t)

	out, err := runNavigate(t, root, hierarchy.DirectionBase, "Options", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = runNavigate(t, t.TempDir(), hierarchy.DirectionBase, "Button", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = runNavigate(t, t.TempDir(), hierarchy.DirectionDerived, "Button", "--quiet", "--json")
	require.NoError(t, err)
	record := decodeRecord(t, out)
	assert.Equal(t, "no_origin", record.Status)
	assert.Contains(t, record.Error, "run typenav index")

	out, err = runNavigate(t, root, hierarchy.DirectionBase, "Options", "--quiet", "--json")
	require.NoError(t, err)
	record = decodeRecord(t, out)
	assert.Equal(t, "no_origin", record.Status)
	assert.Contains(t, record.Error, "ambiguous")
}

func TestNavigateRejectsNegativeParallelism(t *testing.T) {
	root := indexedRoot(t)
	_, err := runNavigate(t, root, hierarchy.DirectionDerived, "IComponent", "--parallel", "-1")
	require.ErrorContains(t, err, "--parallel")
}

func TestOptionalFlagsFallBackUntilSet(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Int("parallel", 0, "")
	cmd.Flags().String("editor", "", "")

	value, err := OptionalIntFlag(cmd, "parallel", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, value)

	require.NoError(t, cmd.Flags().Set("parallel", "8"))
	value, err = OptionalIntFlag(cmd, "parallel", 4)
	require.NoError(t, err)
	assert.Equal(t, 8, value)

	editor, err := OptionalStringFlag(cmd, "editor", "vim")
	require.NoError(t, err)
	assert.Equal(t, "vim", editor)

	missing, err := OptionalBoolFlag(cmd, "json", true)
	require.NoError(t, err)
	assert.True(t, missing)
}
