// Package discovery lists the source files a run analyzes.
package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/scan-io-git/convex-doctor/internal/parser"
	"github.com/scan-io-git/convex-doctor/pkg/shared/errors"
	"github.com/scan-io-git/convex-doctor/pkg/shared/files"
)

// GeneratedDir is the Convex code generation directory. Nothing below it is analyzed.
const GeneratedDir = "_generated"

var excludeDirs = map[string]bool{
	GeneratedDir:   true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"coverage":     true,
}

// PatternCache holds compiled ignore patterns keyed by the joined pattern set.
// A command creates one per process and passes it to every Discover call, so
// watch-mode re-runs reuse the compiled globs. It is safe for concurrent use.
type PatternCache struct {
	mu      sync.RWMutex
	entries map[string][]glob.Glob
}

// NewPatternCache creates an empty cache.
func NewPatternCache() *PatternCache {
	return &PatternCache{entries: make(map[string][]glob.Glob)}
}

// Compile returns the compiled globs for patterns, compiling them at most once per set.
func (c *PatternCache) Compile(patterns []string) ([]glob.Glob, error) {
	key := strings.Join(patterns, "\x00")

	c.mu.RLock()
	compiled, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if compiled, ok := c.entries[key]; ok {
		return compiled, nil
	}

	compiled = make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	c.entries[key] = compiled
	return compiled, nil
}

// Len returns the number of cached pattern sets.
func (c *PatternCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Discover walks root and returns the supported source files as slash-separated
// paths relative to root, sorted. Dot directories, dependency and build output
// directories and anything under _generated are skipped, as is every path that
// matches one of the ignore patterns. A nil cache compiles the patterns directly.
func Discover(root string, patterns []string, cache *PatternCache) ([]string, error) {
	if err := files.ValidateDir(root); err != nil {
		return nil, errors.NewIOError(root, err)
	}
	if cache == nil {
		cache = NewPatternCache()
	}
	ignore, err := cache.Compile(patterns)
	if err != nil {
		return nil, err
	}

	var found []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := files.RelativeTo(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && IsExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			if path != root && matchAny(ignore, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !parser.IsSupported(path) || isDeclarationFile(d.Name()) {
			return nil
		}
		if matchAny(ignore, rel) {
			return nil
		}
		found = append(found, rel)
		return nil
	})
	if err != nil {
		return nil, errors.NewIOError(root, err)
	}

	sort.Strings(found)
	return found, nil
}

// IsExcludedDir reports directory names that are never walked.
func IsExcludedDir(name string) bool {
	return excludeDirs[name] || strings.HasPrefix(name, ".")
}

// Filter keeps the paths contained in keep, preserving order.
func Filter(paths []string, keep map[string]bool) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if keep[p] {
			out = append(out, p)
		}
	}
	return out
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// isDeclarationFile reports TypeScript declaration files, which carry no runtime code.
func isDeclarationFile(name string) bool {
	return strings.HasSuffix(name, ".d.ts") || strings.HasSuffix(name, ".d.mts") || strings.HasSuffix(name, ".d.cts")
}
