package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mini-maxit/harness/internal/stages/verifier"
	"github.com/mini-maxit/harness/pkg/constants"
	"github.com/mini-maxit/harness/pkg/result"
)

// AddVerifyCommand adds the verify command to the root command.
func AddVerifyCommand(root *cobra.Command, a *app) {
	root.AddCommand(&cobra.Command{
		Use:   "verify <graph> <out> [truth]",
		Short: "Score a single output against its test case",
		Long: `Check that an output is a valid flow decomposition of the input network and score it
against the truth file. The truth file defaults to the .truth file next to the graph.

Exit codes:
  0: the output is valid, or the test case itself is invalid
  1: the output was rejected`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphPath, outPath := a.cfg.Path(args[0]), a.cfg.Path(args[1])
			truthPath := strings.TrimSuffix(graphPath, constants.GraphFileExt) + constants.TruthFileExt
			if len(args) == 3 {
				truthPath = a.cfg.Path(args[2])
			}

			cs := verifier.NewVerifier().VerifyCase(graphPath, truthPath, outPath)

			report := result.ScoreReport{Set: "single", TestsDir: graphPath, ResultsDir: outPath}
			report.Add(cs)
			if err := report.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}
			if cs.Outcome.Failed() {
				return fmt.Errorf("%s rejected: %s", args[1], cs.Outcome)
			}
			return nil
		},
	})
}
