package taproot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/store"
)

func newTestQueryBuilder(t *testing.T) (*QueryBuilder, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return &QueryBuilder{store: s}, s
}

func seedAnalyzedFile(t *testing.T, s *store.Store, path, lang string, results map[string]string) int64 {
	t.Helper()
	id, err := s.InsertFile(&store.File{
		Path: path, Language: lang, Hash: "h", LineCount: 3, LastAnalyzed: time.Now(),
	})
	require.NoError(t, err)
	for domain, result := range results {
		_, err := s.InsertAnalysis(&store.Analysis{FileID: id, Domain: domain, Result: result})
		require.NoError(t, err)
	}
	return id
}

func TestTypeOf_ReturnsStoredResult(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seedAnalyzedFile(t, s, "a.py", "python", map[string]string{
		"type":     "fn(t1) -> t1",
		"concrete": "interface{identity}",
	})

	typ, err := q.TypeOf("a.py")
	require.NoError(t, err)
	assert.Equal(t, "fn(t1) -> t1", typ)

	val, err := q.ValueOf("a.py")
	require.NoError(t, err)
	assert.Equal(t, "interface{identity}", val)
}

func TestTypeOf_UnknownFile(t *testing.T) {
	q, _ := newTestQueryBuilder(t)

	_, err := q.TypeOf("nope.py")
	var na *NotAnalyzedError
	require.ErrorAs(t, err, &na)
	assert.Equal(t, "nope.py", na.Path)
	assert.Empty(t, na.Domain)
}

func TestValueOf_MissingDomain(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seedAnalyzedFile(t, s, "a.py", "python", map[string]string{"type": "Int"})

	_, err := q.ValueOf("a.py")
	var na *NotAnalyzedError
	require.ErrorAs(t, err, &na)
	assert.Equal(t, "concrete", na.Domain)
}

func TestFileDiagnostics(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	id := seedAnalyzedFile(t, s, "bad.js", "javascript", nil)
	_, err := s.InsertDiagnostic(&store.Diagnostic{
		FileID: id, Domain: "type", Kind: "type mismatch", Message: "cannot unify Int with Bool",
	})
	require.NoError(t, err)

	diags, err := q.FileDiagnostics("bad.js")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "type mismatch", diags[0].Kind)

	all, err := q.Diagnostics()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSummary_Counts(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seedAnalyzedFile(t, s, "a.py", "python", map[string]string{"type": "Int"})
	seedAnalyzedFile(t, s, "b.py", "python", map[string]string{"type": "Float", "concrete": "2.5"})
	id := seedAnalyzedFile(t, s, "c.go", "go", nil)
	_, err := s.InsertDiagnostic(&store.Diagnostic{
		FileID: id, Domain: "syntax", Kind: "lowering", Message: "unsupported",
	})
	require.NoError(t, err)

	sum, err := q.Summary()
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, map[string]int{"python": 2, "go": 1}, sum.ByLanguage)
	assert.Equal(t, 3, sum.Analyses)
	assert.Equal(t, 1, sum.Diagnostics)
}

func TestSummary_EmptyDatabase(t *testing.T) {
	q, _ := newTestQueryBuilder(t)
	sum, err := q.Summary()
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Files)
	assert.Empty(t, sum.ByLanguage)
}

func TestRuns_Limit(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	for i := 0; i < 3; i++ {
		_, err := s.InsertRun(&store.Run{StartedAt: time.Now(), FilesTotal: i})
		require.NoError(t, err)
	}
	runs, err := q.Runs(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].FilesTotal)
}

func TestFiles_ReturnsAll(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seedAnalyzedFile(t, s, "a.py", "python", nil)
	seedAnalyzedFile(t, s, "b.go", "go", nil)

	files, err := q.Files()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
