// Package taproot provides multi-language static analysis built on a single
// abstract evaluator. Source files in Go, Python, and JavaScript are parsed
// with tree-sitter, lowered to a small shared term language, and evaluated
// twice: once under the type domain, which infers the file's result type
// without running it, and once under the concrete domain, which executes it.
// Both passes are one and the same term walk; only the value domain differs.
//
// # Pipeline
//
// Taproot operates per file:
//
//  1. Discover: list source files under a root, respecting .gitignore when
//     the root is a git repository.
//
//  2. Lower: parse with tree-sitter and translate the syntax tree to terms.
//     Constructs outside the analyzed subset produce diagnostics rather
//     than partial results.
//
//  3. Analyze: run the term under the type domain, and optionally under the
//     concrete domain. Results and diagnostics are persisted to SQLite,
//     keyed by content hash so unchanged files are skipped on re-runs.
//
// # Usage
//
// Create an Engine, analyze a directory, and query:
//
//	e, err := taproot.New("taproot.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	stats, err := e.AnalyzeDirectory(ctx, "path/to/project")
//
//	q := e.Query()
//	typ, err := q.TypeOf("path/to/project/main.py")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.TypeOf] — the inferred result type of a file.
//   - [QueryBuilder.ValueOf] — the concretely computed result of a file.
//   - [QueryBuilder.FileDiagnostics] — diagnostics recorded for one file.
//   - [QueryBuilder.Diagnostics] — all diagnostics in the database.
//   - [QueryBuilder.Summary] — per-language file counts and totals.
//   - [QueryBuilder.Runs] — recent analysis run telemetry.
//
// # Policies
//
// Risor scripts can be run against the stored results via
// [Engine.CheckPolicies]. Scripts see the store through host functions
// (files, analyses, type_of) and record findings with report(). See the
// internal/policy package for the full set of globals exposed to scripts.
package taproot
