package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tensorsched/internal/milp"
	"tensorsched/internal/parse"
	"tensorsched/internal/render"
	"tensorsched/internal/schedule"
)

func newScheduleCmd(logger *slog.Logger) *cobra.Command {
	var (
		format         string
		profile        string
		configPath     string
		maxExpansions  int64
		timeLimitMS    int64
		beamWidth      int
		lookaheadDepth int
		branchFactor   int
		verbose        bool
		trace          bool
		debug          bool
		renderDOT      string
		renderPNG      string
		useMILP        bool
	)

	cmd := &cobra.Command{
		Use:   "schedule <file>",
		Short: "Compute a memory-budgeted execution order for a DAG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("dagsched: opening %s: %w", args[0], err)
			}
			defer f.Close()

			parsed, err := parse.File(f, parse.Format(format))
			if err != nil {
				return err
			}
			problem, err := parsed.Problem()
			if err != nil {
				return fmt.Errorf("dagsched: building problem: %w", err)
			}

			overrides := optionsFile{}
			flags := cmd.Flags()
			if flags.Changed("max-expansions") {
				overrides.MaxExpansions = &maxExpansions
			}
			if flags.Changed("time-limit-ms") {
				overrides.TimeLimitMS = &timeLimitMS
			}
			if flags.Changed("beam-width") {
				overrides.BeamWidth = &beamWidth
			}
			if flags.Changed("lookahead-depth") {
				overrides.LookaheadDepth = &lookaheadDepth
			}
			if flags.Changed("branch-factor") {
				overrides.BranchFactor = &branchFactor
			}
			if flags.Changed("verbose") {
				overrides.Verbose = &verbose
			}
			if flags.Changed("trace") {
				overrides.Trace = &trace
			}
			if flags.Changed("debug") {
				overrides.Debug = &debug
			}

			opts, err := loadOptions(configPath, profile, problem.NodeCount(), overrides)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.TimeLimit+time.Second)
			defer cancel()

			result, stats, err := schedule.Schedule(ctx, problem, opts)
			if err != nil && err != schedule.ErrInfeasible {
				return fmt.Errorf("dagsched: scheduling: %w", err)
			}

			if useMILP {
				refined, mErr := milp.Refine(ctx, problem, result)
				if mErr == nil {
					result = refined
				} else {
					logger.Warn("milp refinement unavailable", "error", mErr)
				}
			}

			printResult(cmd, problem, result, stats)

			if renderDOT != "" || renderPNG != "" {
				dot := render.Schedule(problem, result)
				dotPath := renderDOT
				if dotPath == "" {
					dotPath = renderPNG + ".dot"
				}
				if err := render.WriteDOT(dotPath, dot); err != nil {
					return err
				}
				if renderPNG != "" {
					if err := render.ToPNG(dotPath, renderPNG); err != nil {
						logger.Warn("PNG rendering failed", "error", err)
					}
				}
			}

			if !result.Feasible(problem.TotalMemory) || !result.Complete(problem) {
				return fmt.Errorf("dagsched: no feasible complete schedule found")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", string(parse.FormatAuto), "input format: examples|simple|yaml|json|auto")
	flags.StringVar(&profile, "profile", "default", "tunable preset: default|small|large")
	flags.StringVar(&configPath, "config", "", "YAML Options config file")
	flags.Int64Var(&maxExpansions, "max-expansions", 0, "override MaxExpansions")
	flags.Int64Var(&timeLimitMS, "time-limit-ms", 0, "override TimeLimit, in milliseconds")
	flags.IntVar(&beamWidth, "beam-width", 0, "override BeamWidth")
	flags.IntVar(&lookaheadDepth, "lookahead-depth", 0, "override LookaheadDepth")
	flags.IntVar(&branchFactor, "branch-factor", 0, "override BranchFactor")
	flags.BoolVar(&verbose, "verbose", false, "set Options.Verbose (recompute markers and counters are printed either way)")
	flags.BoolVar(&trace, "trace", false, "collect per-expansion trace entries")
	flags.BoolVar(&debug, "debug", false, "enable invariant assertions")
	flags.StringVar(&renderDOT, "render-dot", "", "write scheduled-graph DOT to this path")
	flags.StringVar(&renderPNG, "render-png", "", "render scheduled-graph PNG to this path (requires the dot binary)")
	flags.BoolVar(&useMILP, "milp", false, "attempt MILP refinement (off-ladder, may be unavailable)")

	return cmd
}

func printResult(cmd *cobra.Command, p *schedule.Problem, r schedule.Result, stats schedule.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, "Schedule (order): ")
	for i, name := range r.ExecutionOrder {
		if i > 0 {
			fmt.Fprint(out, " -> ")
		}
		if i < len(r.RecomputeFlags) && r.RecomputeFlags[i] {
			fmt.Fprintf(out, "%s*", name)
		} else {
			fmt.Fprint(out, name)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "* denotes recomputation")
	fmt.Fprintf(out, "Total time: %d\n", r.TotalTime)
	fmt.Fprintf(out, "Memory peak: %d (limit=%d)\n", r.MemoryPeak, p.TotalMemory)
	fmt.Fprintf(out, "Run: %s expansions=%d prunes=%d dead_ends=%d deadline_hit=%t\n",
		stats.RunID, stats.ExpansionsUsed, stats.MemoryPrunes, stats.DeadEnds, stats.DeadlineHit)
}
