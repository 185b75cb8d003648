package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// findGitRepositoryPath function finds a git repository path for a given source folder
func findGitRepositoryPath(sourceFolder string) (string, error) {
	if sourceFolder == "" {
		return "", fmt.Errorf("source folder is not set")
	}
	if abs, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = abs
	}

	// check if source folder is a subfolder of a git repository
	for {
		_, err := git.PlainOpen(sourceFolder)
		if err == nil {
			return sourceFolder, nil
		}

		// move up one level
		parent := filepath.Dir(sourceFolder)

		// check if reached the root folder
		if parent == sourceFolder {
			break
		}
		sourceFolder = parent
	}

	return "", fmt.Errorf("source folder is not a git repository")
}

// subfolder returns projectRoot relative to the repository root, "" for the root itself.
func (c *Client) subfolder(projectRoot string) (string, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	rel, err := filepath.Rel(c.rootPath, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("project root %q is outside repository %q", abs, c.rootPath)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// ProjectRelative rewrites repository-relative paths to be relative to projectRoot,
// dropping paths outside of it.
func (c *Client) ProjectRelative(projectRoot string, repoPaths []string) ([]string, error) {
	sub, err := c.subfolder(projectRoot)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(repoPaths))
	for _, p := range repoPaths {
		if rel, ok := trimSubfolder(p, sub); ok {
			out = append(out, rel)
		}
	}
	return out, nil
}

// ProjectRelativeLines is ProjectRelative for an added-lines map.
func (c *Client) ProjectRelativeLines(projectRoot string, added map[string]map[int]string) (map[string]map[int]string, error) {
	sub, err := c.subfolder(projectRoot)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[int]string, len(added))
	for p, lines := range added {
		if rel, ok := trimSubfolder(p, sub); ok {
			out[rel] = lines
		}
	}
	return out, nil
}

func trimSubfolder(path, sub string) (string, bool) {
	if sub == "" {
		return path, true
	}
	if !strings.HasPrefix(path, sub+"/") {
		return "", false
	}
	return strings.TrimPrefix(path, sub+"/"), true
}
