package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mini-maxit/harness/internal/config"
)

// GlobalFlags override the environment configuration for a single invocation.
type GlobalFlags struct {
	Program         string
	StudentTestsDir string
	OutputDir       string
	Sandbox         string
	WorkDir         string
}

// AddGlobalFlags adds flags available to all commands.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Program, "program", "p", "", "command line of the processing program (env PROGRAM)")
	cmd.PersistentFlags().StringVar(&flags.StudentTestsDir, "student-tests", "", "directory of student test cases (env STUDENT_TESTS_DIR)")
	cmd.PersistentFlags().StringVar(&flags.OutputDir, "output-dir", "", "directory the program writes its outputs to (env OUTPUT_DIR)")
	cmd.PersistentFlags().StringVar(&flags.Sandbox, "sandbox", "", "where the program runs, local or docker (env SANDBOX)")
	cmd.PersistentFlags().StringVarP(&flags.WorkDir, "work-dir", "C", "", "working directory of the harness (env WORK_DIR)")
}

// ApplyGlobalFlags copies explicitly set flags over the loaded configuration. The work dir
// flag is consumed earlier by config.NewConfig, since it decides which .env file is read.
func ApplyGlobalFlags(cmd *cobra.Command, flags *GlobalFlags, cfg *config.Config) {
	pf := cmd.Root().PersistentFlags()

	if pf.Changed("program") {
		cfg.Program = config.ParseProgram(flags.Program)
	}
	if pf.Changed("student-tests") {
		cfg.StudentTestsDir = flags.StudentTestsDir
	}
	if pf.Changed("output-dir") {
		cfg.OutputDir = flags.OutputDir
	}
	if pf.Changed("sandbox") {
		cfg.Sandbox = strings.ToLower(flags.Sandbox)
	}
}
