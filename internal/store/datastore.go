package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertFile inserts a file record and returns its ID.
func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO files (path, language, hash, line_count, last_analyzed)
		 VALUES (?, ?, ?, ?, ?)`,
		f.Path, f.Language, f.Hash, f.LineCount, f.LastAnalyzed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	return res.LastInsertId()
}

// FileByPath returns the file record for path, or nil if none exists.
func (s *Store) FileByPath(path string) (*File, error) {
	row := s.db.QueryRow(
		`SELECT id, path, language, hash, line_count, last_analyzed
		 FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// FilesByLanguage returns all file records for a language.
func (s *Store) FilesByLanguage(lang string) ([]*File, error) {
	return s.queryFiles(
		`SELECT id, path, language, hash, line_count, last_analyzed
		 FROM files WHERE language = ? ORDER BY path`, lang)
}

// AllFiles returns every file record, ordered by path.
func (s *Store) AllFiles() ([]*File, error) {
	return s.queryFiles(
		`SELECT id, path, language, hash, line_count, last_analyzed
		 FROM files ORDER BY path`)
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*File, error) {
	var f File
	var lastAnalyzed sql.NullTime
	err := row.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LineCount, &lastAnalyzed)
	if err != nil {
		return nil, err
	}
	if lastAnalyzed.Valid {
		f.LastAnalyzed = lastAnalyzed.Time
	}
	return &f, nil
}

// DeleteFileData removes a file's analyses and diagnostics, but not the
// file record itself.
func (s *Store) DeleteFileData(fileID int64) error {
	if _, err := s.db.Exec(`DELETE FROM analyses WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete analyses: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM diagnostics WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete diagnostics: %w", err)
	}
	return nil
}

// DeleteFile removes the file record and all dependent rows.
func (s *Store) DeleteFile(fileID int64) error {
	if err := s.DeleteFileData(fileID); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM files WHERE id = ?`, fileID); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

// InsertAnalysis records one domain outcome for a file.
func (s *Store) InsertAnalysis(a *Analysis) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO analyses (file_id, domain, result, duration_us)
		 VALUES (?, ?, ?, ?)`,
		a.FileID, a.Domain, a.Result, a.Duration.Microseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	return res.LastInsertId()
}

// AnalysesByFile returns a file's analyses, ordered by domain.
func (s *Store) AnalysesByFile(fileID int64) ([]*Analysis, error) {
	rows, err := s.db.Query(
		`SELECT id, file_id, domain, result, duration_us
		 FROM analyses WHERE file_id = ? ORDER BY domain`, fileID)
	if err != nil {
		return nil, fmt.Errorf("analyses by file: %w", err)
	}
	defer rows.Close()
	var out []*Analysis
	for rows.Next() {
		var a Analysis
		var us int64
		if err := rows.Scan(&a.ID, &a.FileID, &a.Domain, &a.Result, &us); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.Duration = time.Duration(us) * time.Microsecond
		out = append(out, &a)
	}
	return out, rows.Err()
}

// InsertDiagnostic records an analysis failure or policy finding.
func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO diagnostics (file_id, domain, kind, message)
		 VALUES (?, ?, ?, ?)`,
		d.FileID, d.Domain, d.Kind, d.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	return res.LastInsertId()
}

// DiagnosticsByFile returns a file's diagnostics.
func (s *Store) DiagnosticsByFile(fileID int64) ([]*Diagnostic, error) {
	return s.queryDiagnostics(
		`SELECT id, file_id, domain, kind, message
		 FROM diagnostics WHERE file_id = ? ORDER BY id`, fileID)
}

// AllDiagnostics returns every diagnostic, ordered by file.
func (s *Store) AllDiagnostics() ([]*Diagnostic, error) {
	return s.queryDiagnostics(
		`SELECT id, file_id, domain, kind, message
		 FROM diagnostics ORDER BY file_id, id`)
}

func (s *Store) queryDiagnostics(query string, args ...any) ([]*Diagnostic, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.ID, &d.FileID, &d.Domain, &d.Kind, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// InsertRun records telemetry for one directory analysis.
func (s *Store) InsertRun(r *Run) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, duration_ms, commit_hash, branch, dirty, files_total, files_failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt, r.Duration.Milliseconds(), r.CommitHash, r.Branch, r.Dirty,
		r.FilesTotal, r.FilesFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, duration_ms, commit_hash, branch, dirty, files_total, files_failed
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()
	var out []*Run
	for rows.Next() {
		var r Run
		var ms int64
		var started sql.NullTime
		if err := rows.Scan(&r.ID, &started, &ms, &r.CommitHash, &r.Branch, &r.Dirty,
			&r.FilesTotal, &r.FilesFailed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if started.Valid {
			r.StartedAt = started.Time
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, &r)
	}
	return out, rows.Err()
}

// SetMetadata stores a key/value pair, overwriting any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

// GetMetadata returns the value for key, or "" if unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value, nil
}
