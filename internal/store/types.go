package store

import "time"

// File is an analyzed source file.
type File struct {
	ID           int64
	Path         string
	Language     string
	Hash         string
	LineCount    int
	LastAnalyzed time.Time
}

// Analysis is one domain's outcome for a file: the rendered type for the
// type domain, the rendered value for the concrete domain.
type Analysis struct {
	ID       int64
	FileID   int64
	Domain   string
	Result   string
	Duration time.Duration
}

// Diagnostic is a recorded analysis failure or policy finding.
type Diagnostic struct {
	ID      int64
	FileID  int64
	Domain  string
	Kind    string
	Message string
}

// Run is the telemetry record for one directory analysis.
type Run struct {
	ID          int64
	StartedAt   time.Time
	Duration    time.Duration
	CommitHash  string
	Branch      string
	Dirty       bool
	FilesTotal  int
	FilesFailed int
}
