package cli

import (
	"github.com/spf13/cobra"

	"github.com/mini-maxit/harness/internal/stages/packager"
)

// AddCleanCommand adds the clean command to the root command.
func AddCleanCommand(root *cobra.Command, a *app) {
	root.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Reset the results directories and the accumulated score",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return packager.NewPackager(a.cfg).Clean()
		},
	})
}
