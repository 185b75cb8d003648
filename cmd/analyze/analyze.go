package analyze

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/convex-doctor/internal/config"
	"github.com/scan-io-git/convex-doctor/internal/discovery"
	"github.com/scan-io-git/convex-doctor/internal/logger"
	"github.com/scan-io-git/convex-doctor/internal/rules"
)

// RunOptionsAnalyze holds the arguments for the analyze command.
type RunOptionsAnalyze struct {
	Format    string
	ScoreOnly bool
	Diff      string
	OnlyNew   bool
	Verbose   bool
	FailBelow int
	Config    string
	Threads   int
	Output    string
	Watch     bool
}

// Global variables for the version and command arguments
var (
	AppVersion          = "unknown"
	analyzeOptions      RunOptionsAnalyze
	exampleAnalyzeUsage = `  # Analyzing the project in the current directory
  convex-doctor analyze

  # Analyzing a specific project and writing a SARIF report
  convex-doctor analyze --format sarif --output /path/to/convex-doctor.sarif /path/to/my_project

  # Printing only the score and failing below 80
  convex-doctor analyze --score-only --fail-below 80 /path/to/my_project

  # Analyzing files changed since main and reporting only diagnostics on added lines
  convex-doctor analyze --diff main --only-new

  # Re-running the analysis whenever a source file changes
  convex-doctor analyze --watch -v`
)

// AnalyzeCmd represents the analyze command.
var AnalyzeCmd = &cobra.Command{
	Use:                   "analyze [--format/-f FORMAT] [--score-only] [--diff BASE [--only-new]] [--fail-below SCORE] [--config/-c PATH] [-j THREADS_NUMBER] [--output/-o PATH] [--watch] [PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Args:                  cobra.MaximumNArgs(1),
	Example:               exampleAnalyzeUsage,
	Short:                 "Analyzes a Convex project and reports a health score with diagnostics",
	RunE:                  runAnalyzeCommand,
}

// Init sets the version reported in JSON and SARIF output.
func Init(version string) {
	AppVersion = version
}

// runAnalyzeCommand executes the analyze command.
func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	root := targetPath(args)
	if err := validateAnalyzeArgs(&analyzeOptions, root); err != nil {
		return err
	}

	registry := rules.NewRegistry()
	cfg, err := config.Resolve(analyzeOptions.Config, root, isKnownRule(registry))
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd.Flags(), cfg, &analyzeOptions)

	log := logger.NewLogger(cfg, "core-analyze")
	if analyzeOptions.Verbose {
		log.SetLevel(hclog.Debug)
	}
	log.Debug("configuration resolved", "path", cfg.Path, "ignore", len(cfg.Ignore), "fail_below", cfg.Score.FailBelow)

	a := &analysis{
		root:     root,
		cfg:      cfg,
		registry: registry,
		cache:    discovery.NewPatternCache(),
		options:  analyzeOptions,
		version:  AppVersion,
		logger:   log,
		stdout:   cmd.OutOrStdout(),
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if analyzeOptions.Watch {
		if err := a.watch(ctx); err != nil {
			log.Error("watch mode failed", "error", err)
			return err
		}
		return nil
	}

	summary, err := a.run(ctx)
	if err != nil {
		log.Error("analysis failed", "error", err)
		return err
	}
	if err := a.write(summary); err != nil {
		log.Error("failed to write report", "error", err)
		return err
	}
	if err := checkFloor(summary.Score.Score, cfg.Score.FailBelow); err != nil {
		log.Info("score is below the configured floor", "score", summary.Score.Score, "fail_below", cfg.Score.FailBelow)
		return err
	}

	log.Debug("analyze command completed successfully")
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Initialize flags for the analyze command.
func init() {
	AnalyzeCmd.Flags().StringVarP(&analyzeOptions.Format, "format", "f", "text", "Format of the report: text, json or sarif.")
	AnalyzeCmd.Flags().BoolVar(&analyzeOptions.ScoreOnly, "score-only", false, "Print only the numeric score.")
	AnalyzeCmd.Flags().StringVar(&analyzeOptions.Diff, "diff", "", "Analyze only files changed between the BASE revision and the working tree.")
	AnalyzeCmd.Flags().BoolVar(&analyzeOptions.OnlyNew, "only-new", false, "With --diff, keep only diagnostics reported on added lines.")
	AnalyzeCmd.Flags().BoolVarP(&analyzeOptions.Verbose, "verbose", "v", false, "Enable debug logging.")
	AnalyzeCmd.Flags().IntVar(&analyzeOptions.FailBelow, "fail-below", 0, "Exit with code 1 when the score is below this value. Overrides score.fail_below from the configuration.")
	AnalyzeCmd.Flags().StringVarP(&analyzeOptions.Config, "config", "c", "", "Path to a convex-doctor configuration file. Defaults to convex-doctor.yml in the project root.")
	AnalyzeCmd.Flags().IntVarP(&analyzeOptions.Threads, "threads", "j", 0, "Number of concurrent file workers. 0 uses one per CPU.")
	AnalyzeCmd.Flags().StringVarP(&analyzeOptions.Output, "output", "o", "", "Path to the file where the report will be saved instead of stdout.")
	AnalyzeCmd.Flags().BoolVar(&analyzeOptions.Watch, "watch", false, "Re-run the analysis whenever a source file changes.")
	AnalyzeCmd.Flags().BoolP("help", "h", false, "Show help for the analyze command.")
}
