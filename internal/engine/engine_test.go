package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/convex-doctor/internal/extractor"
	"github.com/scan-io-git/convex-doctor/internal/project"
	"github.com/scan-io-git/convex-doctor/internal/rules"
)

const itemsSource = `import { mutation } from "./_generated/server";

export const save = mutation(async (ctx, args) => {
  for (const item of args.items) {
    ctx.db.insert("items", item);
  }
  return await ctx.db.query("items").filter((q) => q.eq(q.field("done"), false)).collect();
});
`

func writeProject(t *testing.T, sources map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, src := range sources {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(src), 0o644))
	}
	return root
}

func idsFor(diags []rules.Diagnostic, file string) []string {
	var ids []string
	for _, d := range diags {
		if d.File == file {
			ids = append(ids, d.RuleID)
		}
	}
	return ids
}

func TestRun(t *testing.T) {
	root := writeProject(t, map[string]string{
		"convex/items.ts":  itemsSource,
		"convex/broken.ts": "export const = ;\n",
	})
	paths := []string{"convex/broken.ts", "convex/items.ts", "convex/missing.ts"}

	e := New(rules.NewRegistry(), extractor.DefaultOptions(), 2, nil)
	res, err := e.Run(context.Background(), root, project.Metadata{Root: root, ConvexDir: "convex"}, paths)
	require.NoError(t, err)

	assert.Equal(t, []string{"convex/items.ts"}, res.Files)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "convex/broken.ts", res.Skipped[0].Path)
	assert.True(t, strings.HasPrefix(res.Skipped[0].Reason, "parse error"), res.Skipped[0].Reason)
	assert.Equal(t, Skipped{Path: "convex/missing.ts", Reason: "unreadable"}, res.Skipped[1])

	assert.Equal(t, []string{
		"security/missing-args-validator",
		"security/missing-returns-validator",
		"security/missing-auth-check",
		"performance/unbounded-collect",
		"performance/db-filter",
		"performance/calls-in-loop",
		"correctness/unawaited-call",
		"correctness/legacy-function-syntax",
	}, idsFor(res.Diagnostics, "convex/items.ts"))

	require.NotNil(t, res.Context)
	assert.Equal(t, 1, res.Context.FileCount)

	for i := 1; i < len(res.Diagnostics); i++ {
		assert.LessOrEqual(t, res.Diagnostics[i-1].File, res.Diagnostics[i].File)
	}
}

func TestRunHonorsEnabledRules(t *testing.T) {
	root := writeProject(t, map[string]string{"convex/items.ts": itemsSource})
	registry := rules.NewRegistry().Enabled(func(id string) bool {
		return !strings.HasPrefix(id, "security/")
	})

	res, err := New(registry, extractor.DefaultOptions(), 1, nil).Run(context.Background(), root, project.Metadata{Root: root}, []string{"convex/items.ts"})
	require.NoError(t, err)
	for _, d := range res.Diagnostics {
		assert.NotEqual(t, rules.Security, d.Category, d.RuleID)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	sources := map[string]string{}
	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		path := "convex/" + name + ".ts"
		sources[path] = itemsSource
		paths = append(paths, path)
	}
	root := writeProject(t, sources)
	meta := project.Metadata{Root: root, ConvexDir: "convex"}

	serial, err := New(rules.NewRegistry(), extractor.DefaultOptions(), 1, nil).Run(context.Background(), root, meta, paths)
	require.NoError(t, err)
	parallel, err := New(rules.NewRegistry(), extractor.DefaultOptions(), 8, nil).Run(context.Background(), root, meta, paths)
	require.NoError(t, err)

	assert.Equal(t, serial.Diagnostics, parallel.Diagnostics)
	assert.Equal(t, serial.Files, parallel.Files)
}

func TestRunCancelled(t *testing.T) {
	root := writeProject(t, map[string]string{"convex/items.ts": itemsSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(rules.NewRegistry(), extractor.DefaultOptions(), 1, nil).Run(ctx, root, project.Metadata{Root: root}, []string{"convex/items.ts"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSortDiagnosticsIsStable(t *testing.T) {
	diags := []rules.Diagnostic{
		{File: "convex/b.ts", RuleID: "x/1"},
		{File: "convex/a.ts", RuleID: "x/2"},
		{File: "convex/b.ts", RuleID: "x/0"},
		{File: "convex/a.ts", RuleID: "x/1"},
	}
	SortDiagnostics(diags)

	var got []string
	for _, d := range diags {
		got = append(got, d.File+" "+d.RuleID)
	}
	assert.Equal(t, []string{"convex/a.ts x/2", "convex/a.ts x/1", "convex/b.ts x/1", "convex/b.ts x/0"}, got)
}
