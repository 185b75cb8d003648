package cmd

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/convex-doctor/cmd/analyze"
	"github.com/scan-io-git/convex-doctor/cmd/rules"
	"github.com/scan-io-git/convex-doctor/cmd/version"
	"github.com/scan-io-git/convex-doctor/pkg/shared/errors"
)

const (
	// ExitOK is returned when the command succeeds.
	ExitOK = 0
	// ExitFatal is returned for configuration, usage and other fatal errors.
	ExitFatal = 2
)

var rootCmd = &cobra.Command{
	Use:                   "convex-doctor [command]",
	SilenceUsage:          true,
	SilenceErrors:         true,
	DisableFlagsInUseLine: true,
	Short:                 "convex-doctor is a static analyzer for Convex backends.",
	Long: `convex-doctor inspects the functions, schema and client code of a Convex project,
	reports diagnostics across security, performance, correctness, schema, architecture,
	configuration and client-side rules, and folds them into a 0-100 health score.
	`,
}

func init() {
	analyze.Init(version.CoreVersion)
	rootCmd.AddCommand(analyze.AnalyzeCmd)
	rootCmd.AddCommand(rules.RulesCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		code := exitCode(err)
		if code == ExitFatal {
			fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return code
	}
	return ExitOK
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *errors.ExitError
	if stdErrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFatal
}
