package taproot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const pySource = `def identity(x):
    return x

identity(5)
`

func TestNew_CreatesStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath)
	require.NoError(t, err)
	defer e.Close()

	require.NotNil(t, e.store)
	require.NotNil(t, e.Store())

	// Migration ran: the store accepts writes.
	require.NoError(t, e.Store().SetMetadata("k", "v"))
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestWithLanguages(t *testing.T) {
	e := newTestEngine(t, WithLanguages("go", "python"))
	assert.True(t, e.languages["go"])
	assert.True(t, e.languages["python"])
	assert.False(t, e.languages["javascript"])
}

func TestAnalyzeFiles_SkipsUnsupportedExtensions(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "readme.txt", "not source")

	stats, err := e.AnalyzeFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesTotal)
	assert.Equal(t, 0, stats.FilesAnalyzed)
}

func TestAnalyzeFiles_RecordsTypeResult(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "a.py", pySource)

	stats, err := e.AnalyzeFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesAnalyzed)
	assert.Equal(t, 0, stats.FilesFailed)

	typ, err := e.Query().TypeOf(path)
	require.NoError(t, err)
	assert.Equal(t, "Int", typ)

	// Execution is off by default: no concrete result.
	_, err = e.Query().ValueOf(path)
	var na *NotAnalyzedError
	require.ErrorAs(t, err, &na)
	assert.Equal(t, "concrete", na.Domain)
}

func TestAnalyzeFiles_WithExecution(t *testing.T) {
	e := newTestEngine(t, WithExecution(true))
	path := writeFile(t, t.TempDir(), "a.py", pySource)

	_, err := e.AnalyzeFiles(context.Background(), []string{path})
	require.NoError(t, err)

	val, err := e.Query().ValueOf(path)
	require.NoError(t, err)
	// A file result is an interface value over its top-level bindings.
	assert.Equal(t, "interface{identity}", val)
}

func TestAnalyzeFiles_SkipsUnchanged(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "a.py", pySource)

	ctx := context.Background()
	stats, err := e.AnalyzeFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesAnalyzed)

	stats, err = e.AnalyzeFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesTotal)
	assert.Equal(t, 0, stats.FilesAnalyzed, "unchanged file must be skipped")
}

func TestAnalyzeFiles_ForceReanalyzes(t *testing.T) {
	e := newTestEngine(t, WithForce(true))
	path := writeFile(t, t.TempDir(), "a.py", pySource)

	ctx := context.Background()
	_, err := e.AnalyzeFiles(ctx, []string{path})
	require.NoError(t, err)
	stats, err := e.AnalyzeFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesAnalyzed)
}

func TestAnalyzeFiles_ChangedFileReplacesRows(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t)
	path := writeFile(t, dir, "a.py", "x = 1\nx\n")

	ctx := context.Background()
	_, err := e.AnalyzeFiles(ctx, []string{path})
	require.NoError(t, err)
	typ, err := e.Query().TypeOf(path)
	require.NoError(t, err)
	assert.Equal(t, "Int", typ)

	writeFile(t, dir, "a.py", "x = 1.5\nx\n")
	_, err = e.AnalyzeFiles(ctx, []string{path})
	require.NoError(t, err)

	typ, err = e.Query().TypeOf(path)
	require.NoError(t, err)
	assert.Equal(t, "Float", typ)

	// Exactly one file record and one type analysis remain.
	files, err := e.Store().AllFiles()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestAnalyzeFiles_LoweringFailureBecomesDiagnostic(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "loop.go", "package main\n\nfunc f() {\n\tfor {\n\t}\n}\n")

	stats, err := e.AnalyzeFiles(context.Background(), []string{path})
	require.NoError(t, err, "a lowering failure is a diagnostic, not an engine error")
	assert.Equal(t, 1, stats.FilesFailed)

	diags, err := e.Query().FileDiagnostics(path)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "syntax", diags[0].Domain)
	assert.Contains(t, diags[0].Message, "outside the analyzed subset")
}

func TestAnalyzeFiles_EvalFailureBecomesDiagnostic(t *testing.T) {
	e := newTestEngine(t)
	// y is never bound; inference fails with a "not bound" diagnostic.
	path := writeFile(t, t.TempDir(), "a.py", "x = y\nx\n")

	stats, err := e.AnalyzeFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)

	diags, err := e.Query().FileDiagnostics(path)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "type", diags[0].Domain)
	assert.Equal(t, "not bound", diags[0].Kind)
}

func TestAnalyzeFiles_DivisionByZeroBecomesDiagnostic(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, WithExecution(true))
	bad := writeFile(t, dir, "div.py", "1 / 0\n")
	good := writeFile(t, dir, "ok.py", "x = 2\nx\n")

	// Inference types 1/0 as Int; only concrete execution hits the zero
	// divisor. The sibling file must still analyze.
	stats, err := e.AnalyzeFiles(context.Background(), []string{bad, good})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesAnalyzed)
	assert.Equal(t, 1, stats.FilesFailed)

	diags, err := e.Query().FileDiagnostics(bad)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "concrete", diags[0].Domain)
	assert.Equal(t, "invalid operand", diags[0].Kind)

	val, err := e.Query().ValueOf(good)
	require.NoError(t, err)
	assert.Equal(t, "interface{x}", val)
}

func TestAnalyzeFiles_FailureIsolation(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t)
	good := writeFile(t, dir, "good.py", pySource)
	bad := writeFile(t, dir, "bad.py", "x = y\nx\n")

	stats, err := e.AnalyzeFiles(context.Background(), []string{bad, good})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesAnalyzed)
	assert.Equal(t, 1, stats.FilesFailed)

	typ, err := e.Query().TypeOf(good)
	require.NoError(t, err)
	assert.Equal(t, "Int", typ)
}

func TestAnalyzeFiles_SerialMatchesParallel(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("f%d.py", i), fmt.Sprintf("x = %d\nx\n", i)))
	}

	serial := newTestEngine(t, WithParallel(false))
	parallel := newTestEngine(t, WithParallel(true))
	ctx := context.Background()

	sStats, err := serial.AnalyzeFiles(ctx, paths)
	require.NoError(t, err)
	pStats, err := parallel.AnalyzeFiles(ctx, paths)
	require.NoError(t, err)
	assert.Equal(t, sStats, pStats)

	for _, p := range paths {
		st, err := serial.Query().TypeOf(p)
		require.NoError(t, err)
		pt, err := parallel.Query().TypeOf(p)
		require.NoError(t, err)
		assert.Equal(t, st, pt, p)
	}
}

func TestAnalyzeDirectory_WalkAndTelemetry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", pySource)
	writeFile(t, dir, "b.js", "const inc = (n) => n + 1;\ninc(1);\n")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0755))
	writeFile(t, filepath.Join(dir, "node_modules"), "dep.js", "const x = 1;\n")

	e := newTestEngine(t)
	stats, err := e.AnalyzeDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesTotal)
	assert.Equal(t, 2, stats.FilesAnalyzed)

	runs, err := e.Query().Runs(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].FilesTotal)
	assert.Equal(t, 0, runs[0].FilesFailed)
}

func TestAnalyzeDirectory_LanguageFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", pySource)
	writeFile(t, dir, "b.go", "package main\n\nvar x = 1\n")

	e := newTestEngine(t, WithLanguages("python"))
	stats, err := e.AnalyzeDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesTotal)

	files, err := e.Store().AllFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "python", files[0].Language)
}

func TestCheckPolicies_ReportsFinding(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "a.py", "x = 1.5\nx\n")

	policyDir := t.TempDir()
	script := `fs := files()
for i := 0; i < len(fs); i++ {
    f := fs[i]
    rows := analyses(f["id"])
    for j := 0; j < len(rows); j++ {
        a := rows[j]
        if a["domain"] == "type" && a["result"] == "Float" {
            report({"file_id": f["id"], "kind": "FloatResult", "message": "file result is Float"})
        }
    }
}
`
	writeFile(t, policyDir, "no_floats.risor", script)

	e := newTestEngine(t, WithPolicyDir(policyDir))
	ctx := context.Background()
	_, err := e.AnalyzeFiles(ctx, []string{src})
	require.NoError(t, err)
	require.NoError(t, e.CheckPolicies(ctx))

	diags, err := e.Query().FileDiagnostics(src)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "policy", diags[0].Domain)
	assert.Equal(t, "FloatResult", diags[0].Kind)
}

func TestCheckPolicies_ScriptErrorSurfaces(t *testing.T) {
	policyDir := t.TempDir()
	writeFile(t, policyDir, "broken.risor", `assert(false, "broken policy")`)

	e := newTestEngine(t, WithPolicyDir(policyDir))
	err := e.CheckPolicies(context.Background())
	require.Error(t, err)
}

func TestRunConcurrently_OrderedResults(t *testing.T) {
	tasks := make([]func() (int, error), 20)
	for i := range tasks {
		tasks[i] = func() (int, error) { return i * i, nil }
	}
	outcomes := RunConcurrently(tasks)
	require.Len(t, outcomes, 20)
	for i, out := range outcomes {
		require.NoError(t, out.Err)
		assert.Equal(t, i*i, out.Value)
	}
}

func TestRunConcurrently_ErrorsStayWithTheirTask(t *testing.T) {
	boom := errors.New("boom")
	tasks := []func() (string, error){
		func() (string, error) { return "ok", nil },
		func() (string, error) { return "", boom },
		func() (string, error) { return "also ok", nil },
	}
	outcomes := RunConcurrently(tasks)
	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.NoError(t, outcomes[2].Err)
}

func TestRunConcurrently_Empty(t *testing.T) {
	assert.Nil(t, RunConcurrently[int](nil))
}
