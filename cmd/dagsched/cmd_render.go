package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tensorsched/internal/parse"
	"tensorsched/internal/render"
	"tensorsched/internal/schedule"
)

func newRenderCmd(logger *slog.Logger) *cobra.Command {
	var (
		format    string
		topology  bool
		outputDOT string
		outputPNG string
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a DAG (or its computed schedule) as Graphviz DOT/PNG",
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

			var dot string
			if topology {
				dot = render.Problem(problem)
			} else {
				result, _, err := schedule.Schedule(context.Background(), problem, schedule.OptionsForSize(problem.NodeCount()))
				if err != nil && err != schedule.ErrInfeasible {
					return fmt.Errorf("dagsched: scheduling: %w", err)
				}
				dot = render.Schedule(problem, result)
			}

			if outputDOT == "" && outputPNG == "" {
				fmt.Fprint(cmd.OutOrStdout(), dot)
				return nil
			}

			dotPath := outputDOT
			if dotPath == "" {
				dotPath = outputPNG + ".dot"
			}
			if err := render.WriteDOT(dotPath, dot); err != nil {
				return err
			}
			if outputPNG != "" {
				if err := render.ToPNG(dotPath, outputPNG); err != nil {
					logger.Warn("PNG rendering failed", "error", err)
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", string(parse.FormatAuto), "input format: examples|simple|yaml|json|auto")
	flags.BoolVar(&topology, "topology", false, "render the raw DAG instead of a computed schedule")
	flags.StringVar(&outputDOT, "out-dot", "", "write DOT to this path instead of stdout")
	flags.StringVar(&outputPNG, "out-png", "", "render PNG to this path (requires the dot binary)")

	return cmd
}
