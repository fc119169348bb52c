package taproot

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Outcome pairs one task's value with its error.
type Outcome[T any] struct {
	Value T
	Err   error
}

// RunConcurrently runs the tasks on a NumCPU-sized worker pool and returns
// their outcomes in task order.
func RunConcurrently[T any](tasks []func() (T, error)) []Outcome[T] {
	if len(tasks) == 0 {
		return nil
	}
	numWorkers := runtime.NumCPU()
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	indexCh := make(chan int, len(tasks))
	for i := range tasks {
		indexCh <- i
	}
	close(indexCh)

	outcomes := make([]Outcome[T], len(tasks))
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				v, err := tasks[i]()
				outcomes[i] = Outcome[T]{Value: v, Err: err}
			}
		}()
	}
	wg.Wait()
	return outcomes
}

// AnalyzeFilesParallel analyzes files using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete stale rows, insert file records.
//	Phase B (parallel): Lower and evaluate under both domains.
//	Phase C (serial):   Write analyses and diagnostics to SQLite.
//
// Phase B is pure computation; all SQLite access stays on the calling
// goroutine.
func (e *Engine) AnalyzeFilesParallel(ctx context.Context, paths []string) (RunStats, error) {
	var stats RunStats
	var errs []error

	// ---- Phase A: serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path, &stats)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	// ---- Phase B: parallel evaluation ----
	tasks := make([]func() (fileResult, error), len(items))
	for i, item := range items {
		tasks[i] = func() (fileResult, error) {
			return e.runDomains(ctx, item), nil
		}
	}
	outcomes := RunConcurrently(tasks)

	// ---- Phase C: serial commit ----
	for i, out := range outcomes {
		if err := e.commitResult(items[i], out.Value, &stats); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", items[i].path, err))
		}
	}

	if len(errs) > 0 {
		return stats, fmt.Errorf("parallel analysis had %d error(s): %w", len(errs), errs[0])
	}
	return stats, nil
}
