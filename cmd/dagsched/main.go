// Command dagsched is the operational surface over internal/schedule:
// it parses a DAG file, runs the scheduler, and prints or renders the
// result.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := newRootCmd(logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "dagsched",
		Short: "Memory-budgeted DAG execution scheduler",
	}
	root.AddCommand(newScheduleCmd(logger))
	root.AddCommand(newRenderCmd(logger))
	root.AddCommand(newBenchCmd(logger))
	return root
}
