package analyze

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/convex-doctor/internal/ci"
	"github.com/scan-io-git/convex-doctor/internal/config"
	"github.com/scan-io-git/convex-doctor/internal/discovery"
	"github.com/scan-io-git/convex-doctor/internal/engine"
	"github.com/scan-io-git/convex-doctor/internal/extractor"
	"github.com/scan-io-git/convex-doctor/internal/git"
	"github.com/scan-io-git/convex-doctor/internal/project"
	"github.com/scan-io-git/convex-doctor/internal/report"
	"github.com/scan-io-git/convex-doctor/internal/rules"
	"github.com/scan-io-git/convex-doctor/internal/scoring"
	"github.com/scan-io-git/convex-doctor/pkg/shared/errors"
	"github.com/scan-io-git/convex-doctor/pkg/shared/files"
)

// ExitBelowFloor is the exit code of a run whose score is below the floor.
const ExitBelowFloor = 1

// analysis is one configured analyze invocation. watch mode runs it repeatedly.
type analysis struct {
	root     string
	cfg      *config.Config
	registry *rules.Registry // Every registered rule; enabled rules are derived per run
	cache    *discovery.PatternCache
	options  RunOptionsAnalyze
	version  string
	logger   hclog.Logger
	stdout   io.Writer
}

// targetPath returns the project root argument, defaulting to the working directory.
func targetPath(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return "."
	}
	return args[0]
}

func isKnownRule(registry *rules.Registry) func(id string) bool {
	return func(id string) bool {
		_, ok := registry.Lookup(id)
		return ok
	}
}

// applyFlagOverrides lets explicitly set flags win over the configuration file.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config, options *RunOptionsAnalyze) {
	if flags.Changed("fail-below") {
		cfg.Score.FailBelow = options.FailBelow
	}
	if flags.Changed("threads") {
		cfg.Analysis.Threads = options.Threads
	}
}

// run performs one full analysis and returns the scored summary.
func (a *analysis) run(ctx context.Context) (*report.Summary, error) {
	meta, err := project.Detect(a.root)
	if err != nil {
		return nil, err
	}
	for _, merr := range meta.ManifestErrors {
		a.logger.Warn("project manifest ignored", "error", merr)
	}
	a.logger.Debug("project detected", "convex_dir", meta.ConvexDir, "schema", meta.HasSchema, "framework", meta.Framework)

	paths, err := discovery.Discover(a.root, a.cfg.Ignore, a.cache)
	if err != nil {
		return nil, err
	}

	var added map[string]map[int]string
	if a.options.Diff != "" {
		paths, added, err = a.diffScope(paths)
		if err != nil {
			return nil, err
		}
	}

	enabled := a.registry.Enabled(a.cfg.IsRuleEnabled)
	extractOptions := extractor.DefaultOptions().WithExtra(a.cfg.Analysis.LoopCalls, a.cfg.Analysis.AwaitableCalls)
	res, err := engine.New(enabled, extractOptions, a.cfg.Analysis.Threads, a.logger.Named("engine")).Run(ctx, a.root, meta, paths)
	if err != nil {
		return nil, err
	}

	diags := res.Diagnostics
	if a.options.OnlyNew {
		diags = onlyAdded(diags, added)
	}

	return &report.Summary{
		RunID:       uuid.NewString(),
		Version:     a.version,
		Root:        a.root,
		Score:       scoring.Calculate(diags, a.registry.SeverityClasses()),
		Diagnostics: diags,
		Files:       res.Files,
		Skipped:     res.Skipped,
		Rules:       enabled.All(),
		Repository:  a.repositoryMetadata(),
	}, nil
}

// diffScope narrows paths to the files changed against the diff base and returns
// the added lines keyed by project-relative path.
func (a *analysis) diffScope(paths []string) ([]string, map[string]map[int]string, error) {
	client, err := git.New(a.logger.Named("git"), a.root)
	if err != nil {
		return nil, nil, fmt.Errorf("the 'diff' flag requires a git repository: %w", err)
	}
	changes, err := client.Changes(a.options.Diff)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute changes against %q: %w", a.options.Diff, err)
	}

	changed, err := client.ProjectRelative(a.root, changes.Files)
	if err != nil {
		return nil, nil, err
	}
	keep := make(map[string]bool, len(changed))
	for _, p := range changed {
		keep[p] = true
	}
	added, err := client.ProjectRelativeLines(a.root, changes.Added)
	if err != nil {
		return nil, nil, err
	}

	scoped := discovery.Filter(paths, keep)
	a.logger.Info("analysis scoped to changed files", "base", a.options.Diff, "changed", len(changed), "analyzed", len(scoped))
	return scoped, added, nil
}

// onlyAdded keeps diagnostics located on an added line.
func onlyAdded(diags []rules.Diagnostic, added map[string]map[int]string) []rules.Diagnostic {
	out := make([]rules.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if _, ok := added[d.File][d.Line]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (a *analysis) repositoryMetadata() *git.RepositoryMetadata {
	md, err := git.CollectRepositoryMetadata(a.root)
	if err != nil {
		a.logger.Debug("repository metadata unavailable", "error", err)
		return nil
	}
	return md
}

// write renders summary to the output file, or stdout when none is set.
func (a *analysis) write(summary *report.Summary) error {
	var buf bytes.Buffer
	if a.options.ScoreOnly {
		fmt.Fprintf(&buf, "%d\n", summary.Score.Score)
	} else {
		renderer, err := report.New(a.options.Format, ci.IsCI() || a.options.Output != "")
		if err != nil {
			return err
		}
		if err := renderer.Render(&buf, summary); err != nil {
			return fmt.Errorf("failed to render %s report: %w", a.options.Format, err)
		}
	}

	if a.options.Output != "" {
		if err := files.WriteFile(a.options.Output, buf.Bytes()); err != nil {
			return err
		}
		a.logger.Info("report saved", "path", a.options.Output)
		return nil
	}
	_, err := a.stdout.Write(buf.Bytes())
	return err
}

// checkFloor fails with ExitBelowFloor when score is below a positive floor.
func checkFloor(score, floor int) error {
	if floor > 0 && score < floor {
		return errors.NewExitError(ExitBelowFloor, "score %d is below the required %d", score, floor)
	}
	return nil
}
