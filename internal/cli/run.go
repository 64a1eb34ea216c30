package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mini-maxit/harness/internal/pipeline"
	"github.com/mini-maxit/harness/pkg/result"
)

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command, a *app) {
	var noClean bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the program against every test case",
		Long: `Run the program once per .graph file of the student and the common test sets, in
lexical order. Every output is annotated with "TEST. EXIT CODE <n>", followed by
"TIMED OUT" or "RUNTIME ERROR" when the run did not complete, and written to the results
directory of its set.

The results directories are reset first unless --no-clean is given; results of test cases
that run again are then replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, closeFn, err := a.newHarness()
			if err != nil {
				return err
			}
			defer closeFn()

			_, err = runTests(cmd.Context(), h, cmd.OutOrStdout(), noClean)
			return err
		},
	}

	cmd.Flags().BoolVar(&noClean, "no-clean", false, "keep existing results instead of resetting the results directories")
	root.AddCommand(cmd)
}

func runTests(ctx context.Context, h pipeline.Harness, w io.Writer, noClean bool) ([]result.RunResult, error) {
	if !noClean {
		if err := h.Clean(); err != nil {
			return nil, err
		}
	}

	runs, err := h.Run(ctx)
	for _, r := range runs {
		fmt.Fprintf(w, "%-8s %-24s %-14s exit=%-4d %dms\n", r.Set, r.Name, r.Status, r.ExitCode, r.DurationMs)
	}
	return runs, err
}
