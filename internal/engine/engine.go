// Package engine drives one analysis run: parse, extract and check every file
// concurrently, then aggregate the project context and run project-level rules.
package engine

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/scan-io-git/convex-doctor/internal/extractor"
	"github.com/scan-io-git/convex-doctor/internal/facts"
	"github.com/scan-io-git/convex-doctor/internal/parser"
	"github.com/scan-io-git/convex-doctor/internal/project"
	"github.com/scan-io-git/convex-doctor/internal/rules"
	"github.com/scan-io-git/convex-doctor/pkg/shared/errors"
)

// Engine runs the rule registry over a set of files.
type Engine struct {
	registry *rules.Registry   // Enabled rules, in registry order
	options  extractor.Options // Call prefixes for loop and await detection
	threads  int               // Number of concurrent file workers
	logger   hclog.Logger      // Logger for logging messages and errors
}

// Skipped is a file that contributed no facts because it could not be read or parsed.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the outcome of one run before scoring.
type Result struct {
	Diagnostics []rules.Diagnostic
	Files       []string
	Skipped     []Skipped
	Context     *project.Context
}

// New creates an Engine. threads <= 0 uses one worker per CPU.
func New(registry *rules.Registry, options extractor.Options, threads int, logger hclog.Logger) *Engine {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{
		registry: registry,
		options:  options,
		threads:  threads,
		logger:   logger,
	}
}

type fileResult struct {
	analysis    *facts.FileAnalysis
	diagnostics []rules.Diagnostic
	skipped     *Skipped
}

// Run analyzes paths, given relative to root. Unreadable and unparsable files are
// logged and listed in Result.Skipped; only cancellation of ctx fails the run.
func (e *Engine) Run(ctx context.Context, root string, meta project.Metadata, paths []string) (*Result, error) {
	e.logger.Info("analysis starting", "files", len(paths), "goroutines", e.threads)

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads)
	for i, path := range paths {
		i, path := i, path
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.analyzeFile(gctx, root, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	res := &Result{}
	analyses := make([]*facts.FileAnalysis, 0, len(paths))
	for i, r := range results {
		if r.skipped != nil {
			res.Skipped = append(res.Skipped, *r.skipped)
			continue
		}
		res.Files = append(res.Files, paths[i])
		analyses = append(analyses, r.analysis)
		res.Diagnostics = append(res.Diagnostics, r.diagnostics...)
	}

	res.Context = project.Aggregate(meta, analyses)
	res.Diagnostics = append(res.Diagnostics, e.registry.CheckProject(res.Context)...)
	SortDiagnostics(res.Diagnostics)

	e.logger.Info("analysis finished", "analyzed", len(res.Files), "skipped", len(res.Skipped), "diagnostics", len(res.Diagnostics))
	return res, nil
}

func (e *Engine) analyzeFile(ctx context.Context, root, path string) fileResult {
	fa, err := e.extractFile(ctx, root, path)
	if err != nil {
		e.logger.Warn("skipping file", "path", path, "error", err)
		return fileResult{skipped: &Skipped{Path: path, Reason: skipReason(err)}}
	}
	diags := e.registry.CheckFile(fa)
	e.logger.Debug("file analyzed", "path", path, "functions", len(fa.Functions), "diagnostics", len(diags))
	return fileResult{analysis: fa, diagnostics: diags}
}

func (e *Engine) extractFile(ctx context.Context, root, path string) (*facts.FileAnalysis, error) {
	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		return nil, errors.NewIOError(path, err)
	}
	tree, err := parser.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return extractor.Extract(path, tree, e.options), nil
}

func skipReason(err error) string {
	var parseErr *errors.ParseError
	if stdErrors.As(err, &parseErr) {
		if parseErr.Line > 0 {
			return fmt.Sprintf("parse error at %d:%d", parseErr.Line, parseErr.Column)
		}
		return "parse error"
	}
	var ioErr *errors.IOError
	if stdErrors.As(err, &ioErr) {
		return "unreadable"
	}
	return err.Error()
}

// SortDiagnostics orders diagnostics by file, keeping the relative order of
// diagnostics within one file.
func SortDiagnostics(diags []rules.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].File < diags[j].File
	})
}
