package project

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/scan-io-git/convex-doctor/pkg/shared/errors"
	"github.com/scan-io-git/convex-doctor/pkg/shared/files"
)

const defaultConvexDir = "convex"

// envTemplateSuffixes mark env files that are meant to be committed.
var envTemplateSuffixes = []string{".example", ".sample", ".template"}

// frameworkDependencies maps package.json dependencies to a framework hint, in priority order.
var frameworkDependencies = []struct {
	dependency string
	framework  string
}{
	{"next", "nextjs"},
	{"@remix-run/react", "remix"},
	{"expo", "expo"},
	{"vite", "vite"},
}

type convexJSON struct {
	Functions string `json:"functions"`
	Node      struct {
		NodeVersion string `json:"nodeVersion"`
	} `json:"node"`
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Engines         struct {
		Node string `json:"node"`
	} `json:"engines"`
}

// Detect inspects the project root and returns its metadata.
// Only an unreadable root is an error; malformed manifests are treated as present but empty
// and recorded in ManifestErrors.
func Detect(root string) (Metadata, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Metadata{}, errors.NewIOError(root, err)
	}
	if !info.IsDir() {
		return Metadata{}, errors.NewIOError(root, fmt.Errorf("not a directory"))
	}

	meta := Metadata{Root: root, ConvexDir: defaultConvexDir}

	var cj convexJSON
	meta.HasConvexJSON = meta.readJSON(filepath.Join(root, "convex.json"), &cj)
	if cj.Functions != "" {
		meta.ConvexDir = filepath.ToSlash(filepath.Clean(strings.TrimSuffix(cj.Functions, "/")))
	}

	convexDir := filepath.Join(root, filepath.FromSlash(meta.ConvexDir))
	meta.HasSchema = anyExists(convexDir, "schema.ts", "schema.js")
	meta.HasAuthConfig = anyExists(convexDir, "auth.config.ts", "auth.config.js")
	meta.HasGeneratedDir = files.IsDir(filepath.Join(convexDir, "_generated"))
	meta.HasTSConfig = anyExists(root, "tsconfig.json") || anyExists(convexDir, "tsconfig.json")

	var pkg packageJSON
	meta.HasPackageJSON = meta.readJSON(filepath.Join(root, "package.json"), &pkg)
	meta.Framework = detectFramework(pkg)

	meta.NodeVersion = firstNonEmpty(
		cj.Node.NodeVersion,
		readVersionFile(filepath.Join(root, ".nvmrc")),
		readVersionFile(filepath.Join(root, ".node-version")),
		pkg.Engines.Node,
	)

	meta.EnvFiles, err = envFiles(root)
	if err != nil {
		return meta, err
	}
	meta.UnignoredEnv = unignored(root, meta.EnvFiles)
	meta.GitignoredEnv = len(meta.UnignoredEnv) == 0

	return meta, nil
}

// readJSON decodes path into v and reports whether the file exists.
func (m *Metadata) readJSON(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		m.ManifestErrors = append(m.ManifestErrors, errors.NewParseError(path, 0, 0, err))
	}
	return true
}

func anyExists(dir string, names ...string) bool {
	for _, name := range names {
		if files.Exists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

func readVersionFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func detectFramework(pkg packageJSON) string {
	for _, fd := range frameworkDependencies {
		if _, ok := pkg.Dependencies[fd.dependency]; ok {
			return fd.framework
		}
		if _, ok := pkg.DevDependencies[fd.dependency]; ok {
			return fd.framework
		}
	}
	return ""
}

func envFiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.NewIOError(root, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, ".env") || isEnvTemplate(name) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func isEnvTemplate(name string) bool {
	for _, suffix := range envTemplateSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// unignored returns the env files the root .gitignore does not cover.
func unignored(root string, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	matcher := gitignore.NewMatcher(readIgnorePatterns(filepath.Join(root, ".gitignore")))
	var out []string
	for _, name := range names {
		if !matcher.Match([]string{name}, false) {
			out = append(out, name)
		}
	}
	return out
}

func readIgnorePatterns(path string) []gitignore.Pattern {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns
}
