package taproot

import (
	"fmt"

	"github.com/jward/taproot/internal/store"
)

// QueryBuilder provides read access over stored analysis results.
type QueryBuilder struct {
	store *store.Store
}

// NotAnalyzedError is returned when a queried file has no stored record or
// no result in the requested domain.
type NotAnalyzedError struct {
	Path   string
	Domain string
}

func (e *NotAnalyzedError) Error() string {
	if e.Domain == "" {
		return fmt.Sprintf("%s has not been analyzed", e.Path)
	}
	return fmt.Sprintf("%s has no %s result", e.Path, e.Domain)
}

// TypeOf returns the inferred result type of a file, as rendered by the
// type domain.
func (q *QueryBuilder) TypeOf(path string) (string, error) {
	return q.domainResult(path, "type")
}

// ValueOf returns the concretely computed result of a file. Only available
// when the file was analyzed with execution enabled.
func (q *QueryBuilder) ValueOf(path string) (string, error) {
	return q.domainResult(path, "concrete")
}

func (q *QueryBuilder) domainResult(path, domain string) (string, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return "", fmt.Errorf("%s result: lookup file: %w", domain, err)
	}
	if f == nil {
		return "", &NotAnalyzedError{Path: path}
	}
	rows, err := q.store.AnalysesByFile(f.ID)
	if err != nil {
		return "", fmt.Errorf("%s result: %w", domain, err)
	}
	for _, a := range rows {
		if a.Domain == domain {
			return a.Result, nil
		}
	}
	return "", &NotAnalyzedError{Path: path, Domain: domain}
}

// FileDiagnostics returns the diagnostics recorded for one file.
func (q *QueryBuilder) FileDiagnostics(path string) ([]*Diagnostic, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("file diagnostics: lookup file: %w", err)
	}
	if f == nil {
		return nil, &NotAnalyzedError{Path: path}
	}
	return q.store.DiagnosticsByFile(f.ID)
}

// Diagnostics returns every stored diagnostic.
func (q *QueryBuilder) Diagnostics() ([]*Diagnostic, error) {
	return q.store.AllDiagnostics()
}

// Files returns every analyzed file record.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.AllFiles()
}

// Runs returns the most recent analysis runs, newest first.
func (q *QueryBuilder) Runs(limit int) ([]*Run, error) {
	return q.store.RecentRuns(limit)
}

// Summary aggregates database-wide counts.
type Summary struct {
	Files       int
	ByLanguage  map[string]int
	Analyses    int
	Diagnostics int
}

// Summary returns file counts per language plus analysis and diagnostic
// totals.
func (q *QueryBuilder) Summary() (*Summary, error) {
	s := &Summary{ByLanguage: make(map[string]int)}

	rows, err := q.store.DB().Query(
		`SELECT language, COUNT(*) FROM files GROUP BY language`)
	if err != nil {
		return nil, fmt.Errorf("summary: files by language: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("summary: scan language count: %w", err)
		}
		s.ByLanguage[lang] = n
		s.Files += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary: rows: %w", err)
	}

	if err := q.store.DB().QueryRow(`SELECT COUNT(*) FROM analyses`).Scan(&s.Analyses); err != nil {
		return nil, fmt.Errorf("summary: count analyses: %w", err)
	}
	if err := q.store.DB().QueryRow(`SELECT COUNT(*) FROM diagnostics`).Scan(&s.Diagnostics); err != nil {
		return nil, fmt.Errorf("summary: count diagnostics: %w", err)
	}
	return s, nil
}
