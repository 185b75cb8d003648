// Package project detects project-level metadata and folds per-file facts into
// the cross-file Context that project-level rules run against.
package project

import (
	"strconv"
	"strings"

	"github.com/scan-io-git/convex-doctor/internal/facts"
)

// Metadata holds project facts gathered from the filesystem rather than from source.
type Metadata struct {
	Root string `json:"root"`
	// ConvexDir is the functions directory relative to Root.
	ConvexDir       string `json:"convex_dir"`
	HasSchema       bool   `json:"has_schema"`
	HasAuthConfig   bool   `json:"has_auth_config"`
	HasConvexJSON   bool   `json:"has_convex_json"`
	HasGeneratedDir bool   `json:"has_generated_dir"`
	HasTSConfig     bool   `json:"has_tsconfig"`
	HasPackageJSON  bool   `json:"has_package_json"`
	// EnvFiles lists .env* files in Root that may hold secrets.
	EnvFiles []string `json:"env_files,omitempty"`
	// UnignoredEnv lists the EnvFiles not matched by .gitignore.
	UnignoredEnv  []string `json:"unignored_env,omitempty"`
	GitignoredEnv bool     `json:"gitignored_env"`
	// NodeVersion is the pinned Node.js version, if any.
	NodeVersion string `json:"node_version,omitempty"`
	// Framework is the client framework hint from package.json.
	Framework string `json:"framework,omitempty"`
	// ManifestErrors holds decode failures of convex.json and package.json.
	// Detection continues with the fields that could not be read left empty.
	ManifestErrors []error `json:"-"`
}

// FileSite locates a client hook call in a specific file.
type FileSite struct {
	File   string `json:"file"`
	Hook   string `json:"hook"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Context is the read-only cross-file aggregate for one run.
type Context struct {
	Metadata

	Tables        []facts.TableDef         `json:"tables,omitempty"`
	Indexes       []facts.IndexDef         `json:"indexes,omitempty"`
	SearchIndexes []facts.SearchIndexDef   `json:"search_indexes,omitempty"`
	IDFields      []facts.IDField          `json:"id_fields,omitempty"`
	FilterFields  []facts.FilterFieldUsage `json:"filter_fields,omitempty"`
	HookSites     []FileSite               `json:"hook_sites,omitempty"`

	ProviderImported bool `json:"provider_imported"`
	UsesAuth         bool `json:"uses_auth"`
	FileCount        int  `json:"file_count"`
}

// IndexesOn returns the indexes declared on tables with the given name.
func (c *Context) IndexesOn(table string) []facts.IndexDef {
	var out []facts.IndexDef
	for _, idx := range c.Indexes {
		if idx.TableName == table {
			out = append(out, idx)
		}
	}
	return out
}

// HasTable reports whether a table with the given name is declared anywhere.
func (c *Context) HasTable(name string) bool {
	for _, t := range c.Tables {
		if t.Name == name {
			return true
		}
	}
	return false
}

// NodeMajor extracts the major version from a pin such as "v18.17.0", ">=20" or "lts/hydrogen".
// The second return is false when no numeric major is present.
func NodeMajor(version string) (int, bool) {
	v := strings.TrimSpace(version)
	v = strings.TrimLeft(v, "^~>=<v ")
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	major, err := strconv.Atoi(v[:end])
	if err != nil {
		return 0, false
	}
	return major, true
}
