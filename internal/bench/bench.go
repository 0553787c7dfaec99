// Package bench runs schedule.Schedule concurrently over a set of
// problem files and reports a summary table, one goroutine per file —
// the only place outside cmd/dagsched where this module uses
// concurrency, and only across independent problems, never inside the
// single-threaded scheduling core itself.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"tensorsched/internal/parse"
	"tensorsched/internal/schedule"
)

// Result is one file's outcome: its schedule vs. the naive baseline.
type Result struct {
	File         string
	Feasible     bool
	TotalTime    int64
	MemoryPeak   int64
	BaselinePeak int64
	Elapsed      time.Duration
	Err          error
}

// Run schedules every file in files concurrently (bounded by concurrency,
// or by 8 when concurrency <= 0) and returns one Result per file, in
// input order.
func Run(ctx context.Context, logger *slog.Logger, files []string, format parse.Format, opts schedule.Options, concurrency int) []Result {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 8
	}

	results := make([]Result, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, f := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, f string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = runOne(ctx, logger, f, format, opts)
		}(i, f)
	}
	wg.Wait()
	return results
}

func runOne(ctx context.Context, logger *slog.Logger, file string, format parse.Format, opts schedule.Options) Result {
	start := time.Now()
	logger.Info("scheduling", "file", file)

	fh, err := os.Open(file)
	if err != nil {
		return Result{File: file, Err: fmt.Errorf("bench: opening %s: %w", file, err)}
	}
	defer fh.Close()

	parsed, err := parse.File(fh, format)
	if err != nil {
		return Result{File: file, Err: fmt.Errorf("bench: parsing %s: %w", file, err)}
	}
	problem, err := parsed.Problem()
	if err != nil {
		return Result{File: file, Err: fmt.Errorf("bench: building problem from %s: %w", file, err)}
	}

	baseline := schedule.Baseline(problem)
	res, _, err := schedule.Schedule(ctx, problem, opts)
	elapsed := time.Since(start)

	if err != nil && err != schedule.ErrInfeasible {
		return Result{File: file, Err: fmt.Errorf("bench: scheduling %s: %w", file, err)}
	}

	logger.Info("scheduled", "file", file, "feasible", res.Feasible(problem.TotalMemory), "elapsed", elapsed)
	return Result{
		File:         file,
		Feasible:     res.Feasible(problem.TotalMemory),
		TotalTime:    res.TotalTime,
		MemoryPeak:   res.MemoryPeak,
		BaselinePeak: baseline.MemoryPeak,
		Elapsed:      elapsed,
	}
}

// Summary renders the results table, sorted by file name.
func Summary(results []Result) string {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	var sb strings.Builder
	sb.WriteString(strings.Repeat("=", 88) + "\n")
	fmt.Fprintf(&sb, "%-28s %10s %12s %14s %10s\n", "Benchmark", "Feasible", "TotalTime", "Peak/Baseline", "Elapsed")
	sb.WriteString(strings.Repeat("-", 88) + "\n")
	for _, r := range sorted {
		name := filepath.Base(r.File)
		if r.Err != nil {
			fmt.Fprintf(&sb, "%-28s %10s %12s %14s %10s (%v)\n", name, "ERROR", "-", "-", "-", r.Err)
			continue
		}
		fmt.Fprintf(&sb, "%-28s %10t %12d %6d/%-7d %10v\n", name, r.Feasible, r.TotalTime, r.MemoryPeak, r.BaselinePeak, r.Elapsed)
	}
	sb.WriteString(strings.Repeat("=", 88) + "\n")
	return sb.String()
}
