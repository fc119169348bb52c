package taproot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jward/taproot/internal/eval"
	"github.com/jward/taproot/internal/eval/concrete"
	"github.com/jward/taproot/internal/eval/typeinf"
	"github.com/jward/taproot/internal/policy"
	"github.com/jward/taproot/internal/store"
	"github.com/jward/taproot/internal/syntax"
	"github.com/jward/taproot/internal/term"
)

// Engine orchestrates the taproot pipeline: file discovery, change
// detection, lowering, per-domain evaluation, and query access.
type Engine struct {
	store     *store.Store
	languages map[string]bool // nil means all languages

	policyDir string
	policyFS  fs.FS

	// useParallel enables the parallel analysis pipeline.
	useParallel bool

	// execute enables the concrete domain in addition to type inference.
	execute bool

	// force re-analyzes files whose content hash is unchanged.
	force bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel analysis. When true (default), AnalyzeFiles
// lowers and evaluates files on a worker pool and commits results serially.
// Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithExecution controls whether files are also run under the concrete
// domain. Type inference always runs; concrete execution is opt-in because
// analyzed code actually executes.
func WithExecution(execute bool) Option {
	return func(e *Engine) {
		e.execute = execute
	}
}

// WithForce re-analyzes every file even when its content hash matches the
// stored record.
func WithForce(force bool) Option {
	return func(e *Engine) {
		e.force = force
	}
}

// WithPolicyDir sets the directory CheckPolicies loads .risor scripts from.
func WithPolicyDir(dir string) Option {
	return func(e *Engine) {
		e.policyDir = dir
	}
}

// WithPolicyFS configures CheckPolicies to load scripts from an fs.FS
// instead of from disk. This enables embedding policies via go:embed.
func WithPolicyFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.policyFS = fsys
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("taproot: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("taproot: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		useParallel: true, // default to parallel analysis
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// RunStats summarizes one analysis pass.
type RunStats struct {
	FilesTotal    int // supported files seen
	FilesAnalyzed int // files actually (re)analyzed
	FilesFailed   int // analyzed files that produced diagnostics
}

// workItem holds everything a domain-evaluation worker needs. Prepared
// serially, evaluated in parallel, committed serially.
type workItem struct {
	path   string
	lang   string
	fileID int64
	src    []byte
}

// fileResult is the database-free outcome of analyzing one file.
type fileResult struct {
	analyses    []*store.Analysis
	diagnostics []*store.Diagnostic
}

// AnalyzeDirectory discovers source files under root, analyzes them, and
// records run telemetry. If root is inside a git repository, uses
// git ls-files to respect .gitignore; otherwise falls back to a filesystem
// walk.
func (e *Engine) AnalyzeDirectory(ctx context.Context, root string) (RunStats, error) {
	started := time.Now()

	paths, err := e.gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available, fall back to walk.
		paths, err = e.walkListFiles(root)
		if err != nil {
			return RunStats{}, err
		}
	}

	stats, analyzeErr := e.AnalyzeFiles(ctx, paths)

	commit, branch, dirty := gitStatus(root)
	run := &store.Run{
		StartedAt:   started,
		Duration:    time.Since(started),
		CommitHash:  commit,
		Branch:      branch,
		Dirty:       dirty,
		FilesTotal:  stats.FilesTotal,
		FilesFailed: stats.FilesFailed,
	}
	if _, err := e.store.InsertRun(run); err != nil {
		return stats, fmt.Errorf("taproot: record run: %w", err)
	}
	return stats, analyzeErr
}

// AnalyzeFiles analyzes the given file paths. When WithParallel is enabled,
// lowering and evaluation run on a worker pool; database writes stay on one
// goroutine. Unsupported and unchanged files are skipped.
func (e *Engine) AnalyzeFiles(ctx context.Context, paths []string) (RunStats, error) {
	if e.useParallel {
		return e.AnalyzeFilesParallel(ctx, paths)
	}
	return e.analyzeFilesSerial(ctx, paths)
}

func (e *Engine) analyzeFilesSerial(ctx context.Context, paths []string) (RunStats, error) {
	var stats RunStats
	var errs []error
	for _, path := range paths {
		item, skip, err := e.prepareFile(path, &stats)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		res := e.runDomains(ctx, item)
		if err := e.commitResult(item, res, &stats); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return stats, fmt.Errorf("analysis had %d error(s): %w", len(errs), errs[0])
	}
	return stats, nil
}

// prepareFile does the serial pre-work for one path: language detection,
// hash check, stale row cleanup, and the file record insert. Returns
// skip=true for unsupported, filtered-out, or unchanged files.
func (e *Engine) prepareFile(path string, stats *RunStats) (workItem, bool, error) {
	lang, ok := syntax.LanguageForFile(path)
	if !ok {
		return workItem{}, true, nil
	}
	if e.languages != nil && !e.languages[lang] {
		return workItem{}, true, nil
	}
	stats.FilesTotal++

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && !e.force {
		return workItem{}, true, nil // unchanged
	}
	if existing != nil {
		if err := e.store.DeleteFile(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:         path,
		Language:     lang,
		Hash:         hash,
		LineCount:    bytes.Count(content, []byte{'\n'}) + 1,
		LastAnalyzed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}

	return workItem{path: path, lang: lang, fileID: fileID, src: content}, false, nil
}

// runDomains lowers one file and evaluates it under the type domain and,
// when execution is enabled, the concrete domain. It touches no database
// state, so it is safe to run on a worker pool.
func (e *Engine) runDomains(ctx context.Context, item workItem) fileResult {
	var res fileResult

	t, err := syntax.FileTerm(ctx, item.src, item.lang)
	if err != nil {
		res.diagnostics = append(res.diagnostics, &store.Diagnostic{
			FileID:  item.fileID,
			Domain:  "syntax",
			Kind:    "lowering",
			Message: err.Error(),
		})
		return res
	}

	// Type inference runs on the bare file body.
	started := time.Now()
	ectx := eval.NewContext()
	ectx.SetGlobal(eval.EmptyEnvironment())
	d := typeinf.New()
	tv, err := eval.Evaluate(ectx, d, t)
	if err != nil {
		res.diagnostics = append(res.diagnostics, domainDiagnostic(item.fileID, "type", err))
	} else {
		res.analyses = append(res.analyses, &store.Analysis{
			FileID:   item.fileID,
			Domain:   "type",
			Result:   fmt.Sprintf("%v", d.Canonical(tv)),
			Duration: time.Since(started),
		})
	}

	if !e.execute {
		return res
	}

	// Concrete execution wraps the body so the file yields an interface
	// value carrying its top-level bindings.
	started = time.Now()
	cctx := eval.NewContext()
	cctx.SetGlobal(eval.EmptyEnvironment())
	cv, err := eval.Evaluate(cctx, concrete.New(), term.Module{Body: t})
	if err != nil {
		res.diagnostics = append(res.diagnostics, domainDiagnostic(item.fileID, "concrete", err))
	} else {
		res.analyses = append(res.analyses, &store.Analysis{
			FileID:   item.fileID,
			Domain:   "concrete",
			Result:   fmt.Sprintf("%v", cv),
			Duration: time.Since(started),
		})
	}
	return res
}

// domainDiagnostic classifies an evaluation failure by its kind.
func domainDiagnostic(fileID int64, domain string, err error) *store.Diagnostic {
	kind := "internal"
	if k, ok := eval.KindOf(err); ok {
		kind = k.String()
	}
	return &store.Diagnostic{
		FileID:  fileID,
		Domain:  domain,
		Kind:    kind,
		Message: err.Error(),
	}
}

// commitResult writes one file's analyses and diagnostics.
func (e *Engine) commitResult(item workItem, res fileResult, stats *RunStats) error {
	stats.FilesAnalyzed++
	if len(res.diagnostics) > 0 {
		stats.FilesFailed++
	}
	for _, a := range res.analyses {
		if _, err := e.store.InsertAnalysis(a); err != nil {
			return fmt.Errorf("insert analysis: %w", err)
		}
	}
	for _, d := range res.diagnostics {
		if _, err := e.store.InsertDiagnostic(d); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}
	return nil
}

// CheckPolicies runs every .risor script in the configured policy source
// against the stored results. Scripts record findings as diagnostics with
// domain "policy".
func (e *Engine) CheckPolicies(ctx context.Context) error {
	var rtOpts []policy.RuntimeOption
	if e.policyFS != nil {
		rtOpts = append(rtOpts, policy.WithRuntimeFS(e.policyFS))
	}
	rt := policy.NewRuntime(e.store, e.policyDir, rtOpts...)

	scripts, err := e.policyScripts()
	if err != nil {
		return err
	}

	var errs []error
	for _, script := range scripts {
		if err := rt.RunScript(ctx, script, nil); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("policy checks had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// policyScripts lists .risor files in the policy source, sorted by path.
func (e *Engine) policyScripts() ([]string, error) {
	var scripts []string

	if e.policyFS != nil {
		err := fs.WalkDir(e.policyFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				scripts = append(scripts, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("taproot: walk policy fs: %w", err)
		}
		return scripts, nil
	}

	if e.policyDir == "" {
		return nil, nil
	}
	err := filepath.WalkDir(e.policyDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".risor") {
			rel, relErr := filepath.Rel(e.policyDir, path)
			if relErr != nil {
				return relErr
			}
			scripts = append(scripts, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("taproot: walk policy dir: %w", err)
	}
	return scripts, nil
}

// skipDirs are directories excluded from the filesystem walk fallback.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := syntax.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available. Skips hidden directories,
// node_modules, vendor, and __pycache__.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			if skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := syntax.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// gitStatus reports the commit, branch, and dirtiness of the repository at
// root. All three are best-effort; a non-repo yields zero values.
func gitStatus(root string) (commit, branch string, dirty bool) {
	commit = gitOutput(root, "rev-parse", "HEAD")
	branch = gitOutput(root, "rev-parse", "--abbrev-ref", "HEAD")
	dirty = gitOutput(root, "status", "--porcelain") != ""
	return commit, branch, dirty
}

func gitOutput(root string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
