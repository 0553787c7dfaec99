package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tensorsched/internal/bench"
	"tensorsched/internal/parse"
)

func newBenchCmd(logger *slog.Logger) *cobra.Command {
	var (
		format      string
		profile     string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "bench <glob>",
		Short: "Schedule every matching file and print a summary table against the naive baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := filepath.Glob(args[0])
			if err != nil {
				return fmt.Errorf("dagsched: bad glob %q: %w", args[0], err)
			}
			if len(files) == 0 {
				return fmt.Errorf("dagsched: no files matched %q", args[0])
			}

			opts, err := basePreset(profile, largestNodeCount(files, parse.Format(format)))
			if err != nil {
				return err
			}

			results := bench.Run(cmd.Context(), logger, files, parse.Format(format), opts, concurrency)
			fmt.Fprint(cmd.OutOrStdout(), bench.Summary(results))

			for _, r := range results {
				if r.Err != nil {
					return fmt.Errorf("dagsched: %d/%d benchmarks failed", countErrors(results), len(results))
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", string(parse.FormatAuto), "input format: examples|simple|yaml|json|auto")
	flags.StringVar(&profile, "profile", "default", "tunable preset: default|small|large")
	flags.IntVar(&concurrency, "concurrency", 8, "number of problem files scheduled concurrently")

	return cmd
}

// largestNodeCount parses just enough of each matched file to size the
// "large" preset threshold correctly; a file that fails to parse here is
// left for bench.Run to report properly and simply doesn't contribute to
// the estimate.
func largestNodeCount(files []string, format parse.Format) int {
	var max int
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		parsed, err := parse.File(f, format)
		f.Close()
		if err != nil {
			continue
		}
		problem, err := parsed.Problem()
		if err != nil {
			continue
		}
		if n := problem.NodeCount(); n > max {
			max = n
		}
	}
	return max
}

func countErrors(results []bench.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
