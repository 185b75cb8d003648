package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/convex-doctor/internal/facts"
	"github.com/scan-io-git/convex-doctor/pkg/shared/errors"
)

func sampleFiles() []*facts.FileAnalysis {
	return []*facts.FileAnalysis{
		{
			Path:    "src/App.tsx",
			Hooks:   []facts.HookCall{{Hook: "useQuery", Line: 4, Column: 16}},
			Imports: []facts.Import{{Source: "convex/react", Names: []string{"useQuery"}}},
		},
		{
			Path:    "convex/schema.ts",
			Tables:  []facts.TableDef{{Key: "convex/schema.ts#10", Name: "tasks", Line: 2}},
			Indexes: []facts.IndexDef{{TableKey: "convex/schema.ts#10", TableName: "tasks", Name: "by_owner", Fields: []string{"owner"}}},
			IDFields: []facts.IDField{
				{TableKey: "convex/schema.ts#10", TableName: "tasks", Field: "owner", RefTable: "users"},
			},
		},
		{
			Path:         "convex/tasks.ts",
			Functions:    []facts.ConvexFunction{{Name: "list", Kind: facts.Query, HasAuthCheck: true}},
			FilterFields: []facts.FilterFieldUsage{{Table: "tasks", Field: "status", File: "convex/tasks.ts", Line: 7}},
		},
		nil,
	}
}

func TestAggregate(t *testing.T) {
	meta := Metadata{Root: "/repo", ConvexDir: "convex", HasSchema: true}
	pc := Aggregate(meta, sampleFiles())

	assert.Equal(t, 3, pc.FileCount)
	assert.True(t, pc.HasSchema)
	assert.True(t, pc.UsesAuth)
	assert.False(t, pc.ProviderImported)
	require.Len(t, pc.Indexes, 1)
	require.Len(t, pc.IDFields, 1)
	require.Len(t, pc.FilterFields, 1)
	require.Len(t, pc.HookSites, 1)
	assert.Equal(t, FileSite{File: "src/App.tsx", Hook: "useQuery", Line: 4, Column: 16}, pc.HookSites[0])
	assert.True(t, pc.HasTable("tasks"))
	assert.False(t, pc.HasTable("users"))
	assert.Len(t, pc.IndexesOn("tasks"), 1)
	assert.Empty(t, pc.IndexesOn("users"))
}

func TestAggregateIsDeterministic(t *testing.T) {
	meta := Metadata{Root: "/repo", ConvexDir: "convex"}
	files := sampleFiles()

	first, err := json.Marshal(Aggregate(meta, files))
	require.NoError(t, err)
	second, err := json.Marshal(Aggregate(meta, files))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	reversed := make([]*facts.FileAnalysis, len(files))
	for i, fa := range files {
		reversed[len(files)-1-i] = fa
	}
	third, err := json.Marshal(Aggregate(meta, reversed))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(third))

	assert.Equal(t, "convex/schema.ts", files[1].Path, "input order must not be modified")
}

func TestAggregateProviderAcrossFiles(t *testing.T) {
	files := []*facts.FileAnalysis{
		{Path: "src/a.tsx", HasProviderImport: true},
		{Path: "src/b.tsx"},
	}
	assert.True(t, Aggregate(Metadata{}, files).ProviderImported)
	assert.Equal(t, 0, Aggregate(Metadata{}, nil).FileCount)
}

func TestNodeMajor(t *testing.T) {
	testCases := []struct {
		version string
		want    int
		ok      bool
	}{
		{"18", 18, true},
		{"v16.20.1", 16, true},
		{">=20.0.0", 20, true},
		{"^22", 22, true},
		{"lts/hydrogen", 0, false},
		{"", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.version, func(t *testing.T) {
			got, ok := NodeMajor(tc.version)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("NodeMajor(%q) = %d, %v, want %d, %v", tc.version, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "convex.json"), `{"functions": "backend/", "node": {"nodeVersion": "16"}}`)
	writeFile(t, filepath.Join(root, "backend", "schema.ts"), "export default defineSchema({});")
	writeFile(t, filepath.Join(root, "backend", "_generated", "api.d.ts"), "")
	writeFile(t, filepath.Join(root, "package.json"), `{"dependencies": {"next": "14.0.0", "convex": "1.0.0"}}`)
	writeFile(t, filepath.Join(root, ".env.local"), "CONVEX_DEPLOYMENT=dev")
	writeFile(t, filepath.Join(root, ".env"), "SECRET=1")
	writeFile(t, filepath.Join(root, ".env.example"), "SECRET=")
	writeFile(t, filepath.Join(root, ".gitignore"), "# env\n.env*.local\nnode_modules\n")

	meta, err := Detect(root)
	require.NoError(t, err)

	assert.Equal(t, "backend", meta.ConvexDir)
	assert.True(t, meta.HasConvexJSON)
	assert.True(t, meta.HasSchema)
	assert.True(t, meta.HasGeneratedDir)
	assert.False(t, meta.HasAuthConfig)
	assert.False(t, meta.HasTSConfig)
	assert.True(t, meta.HasPackageJSON)
	assert.Equal(t, "nextjs", meta.Framework)
	assert.Equal(t, "16", meta.NodeVersion)
	assert.Equal(t, []string{".env", ".env.local"}, meta.EnvFiles)
	assert.Equal(t, []string{".env"}, meta.UnignoredEnv)
	assert.False(t, meta.GitignoredEnv)
}

func TestDetectDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "convex", "auth.config.js"), "export default {};")
	writeFile(t, filepath.Join(root, "tsconfig.json"), "{}")
	writeFile(t, filepath.Join(root, ".nvmrc"), "v20.11.0\n")

	meta, err := Detect(root)
	require.NoError(t, err)

	assert.Equal(t, "convex", meta.ConvexDir)
	assert.False(t, meta.HasConvexJSON)
	assert.True(t, meta.HasAuthConfig)
	assert.True(t, meta.HasTSConfig)
	assert.Equal(t, "v20.11.0", meta.NodeVersion)
	assert.Empty(t, meta.EnvFiles)
	assert.True(t, meta.GitignoredEnv)
}

func TestDetectMalformedManifests(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "convex.json"), `{"functions": "backend/",`)
	writeFile(t, filepath.Join(root, "package.json"), `{"dependencies": {"next": "14.0.0"}}`)

	meta, err := Detect(root)
	require.NoError(t, err)

	assert.True(t, meta.HasConvexJSON)
	assert.Equal(t, "convex", meta.ConvexDir)
	assert.Equal(t, "nextjs", meta.Framework)
	require.Len(t, meta.ManifestErrors, 1)
	var perr *errors.ParseError
	require.ErrorAs(t, meta.ManifestErrors[0], &perr)
	assert.Equal(t, filepath.Join(root, "convex.json"), perr.Path)

	writeFile(t, filepath.Join(root, "package.json"), "not json")
	meta, err = Detect(root)
	require.NoError(t, err)
	assert.True(t, meta.HasPackageJSON)
	assert.Empty(t, meta.Framework)
	assert.Len(t, meta.ManifestErrors, 2)
}

func TestDetectMissingRoot(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
