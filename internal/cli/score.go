package cli

import (
	"github.com/spf13/cobra"
)

// AddScoreCommand adds the score command, also available as all, to the root command.
func AddScoreCommand(root *cobra.Command, a *app) {
	var noClean bool

	cmd := &cobra.Command{
		Use:     "score",
		Aliases: []string{"all"},
		Short:   "Run every test case, then score the student and the common results",
		Long: `Run every test case like the run command, then score the student results and the common
results against the .truth files of their test sets. Test cases without a result, results
without a test case and test cases without a truth file are reported as failures.

Each report adds its total to the accumulated score file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, closeFn, err := a.newHarness()
			if err != nil {
				return err
			}
			defer closeFn()

			if _, err := runTests(cmd.Context(), h, cmd.OutOrStdout(), noClean); err != nil {
				return err
			}
			_, err = h.Score(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().BoolVar(&noClean, "no-clean", false, "keep existing results instead of resetting the results directories")
	root.AddCommand(cmd)
}
