package git

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	gitdiff "github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sourcegraph/go-diff/diff"
)

// Changes describes how the working tree differs from a base revision.
type Changes struct {
	// Files are repository-relative, slash-separated paths that exist in the
	// working tree and differ from base. Sorted.
	Files []string
	// Added maps each changed file to its added lines: 1-based line numbers in
	// the working tree version mapped to the line text.
	Added map[string]map[int]string
}

// ChangedFiles returns the files that differ between base and the working tree.
func (c *Client) ChangedFiles(base string) ([]string, error) {
	changes, err := c.Changes(base)
	if err != nil {
		return nil, err
	}
	return changes.Files, nil
}

// AddedLines returns, for every file touched since base, the lines added in the working tree.
func (c *Client) AddedLines(base string) (map[string]map[int]string, error) {
	changes, err := c.Changes(base)
	if err != nil {
		return nil, err
	}
	return changes.Added, nil
}

// Changes collects the committed changes between base and HEAD plus every
// staged, unstaged and untracked change. Deleted files are omitted.
func (c *Client) Changes(base string) (*Changes, error) {
	baseCommit, err := c.resolveCommit(base)
	if err != nil {
		return nil, err
	}
	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load base tree: %w", err)
	}
	headTree, err := c.headTree()
	if err != nil {
		return nil, err
	}

	added := make(map[string]map[int]string)
	changed := make(map[string]bool)
	if headTree != nil {
		committed, err := committedAdditions(baseTree, headTree)
		if err != nil {
			return nil, err
		}
		for path, lines := range committed {
			changed[path] = true
			if len(lines) > 0 {
				added[path] = lines
			}
		}
	}

	dirty, deleted, err := c.worktreeChanges()
	if err != nil {
		return nil, err
	}
	for _, path := range dirty {
		lines, err := c.worktreeAdditions(baseTree, path)
		if err != nil {
			return nil, err
		}
		changed[path] = true
		delete(added, path)
		if len(lines) > 0 {
			added[path] = lines
		}
	}
	for _, path := range deleted {
		delete(changed, path)
		delete(added, path)
	}

	files := make([]string, 0, len(changed))
	for path := range changed {
		files = append(files, path)
	}
	sort.Strings(files)

	c.logger.Debug("diff base resolved", "base", base, "commit", baseCommit.Hash.String(), "changed", len(files))
	return &Changes{Files: files, Added: added}, nil
}

// committedAdditions parses the unified patch between two trees. Every file that
// still exists in head is present in the result, even without added lines.
func committedAdditions(baseTree, headTree *object.Tree) (map[string]map[int]string, error) {
	patch, err := baseTree.Patch(headTree)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}

	parsed, err := diff.ParseMultiFileDiff([]byte(patch.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	result := make(map[string]map[int]string)
	for _, fd := range parsed {
		// deleted files
		if fd == nil || fd.NewName == "/dev/null" {
			continue
		}

		path := strings.TrimPrefix(fd.NewName, "b/")
		added := make(map[int]string)

		for _, h := range fd.Hunks {
			if h == nil {
				continue
			}
			lineNo := int(h.NewStartLine)
			if lineNo <= 0 {
				lineNo = 1
			}
			for _, bodyLine := range bytes.Split(h.Body, []byte("\n")) {
				if len(bodyLine) == 0 {
					continue
				}

				switch bodyLine[0] {
				case '+':
					added[lineNo] = string(bodyLine[1:])
					lineNo++
				case '-', '\\':
					// deletion or "no newline" marker; the new file line counter stays
					continue
				default:
					lineNo++
				}
			}
		}
		result[path] = added
	}
	return result, nil
}

// worktreeChanges lists modified, staged and untracked paths, and separately the deleted ones.
func (c *Client) worktreeChanges() ([]string, []string, error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read worktree status: %w", err)
	}

	var dirty, deleted []string
	for path, st := range status {
		if st == nil {
			continue
		}
		switch {
		case st.Worktree == git.Deleted || (st.Staging == git.Deleted && st.Worktree != git.Untracked):
			deleted = append(deleted, path)
		case st.Worktree != git.Unmodified || st.Staging != git.Unmodified:
			dirty = append(dirty, path)
		}
	}
	sort.Strings(dirty)
	sort.Strings(deleted)
	return dirty, deleted, nil
}

// worktreeAdditions diffs the base version of path against the file on disk.
func (c *Client) worktreeAdditions(baseTree *object.Tree, path string) (map[int]string, error) {
	var before string
	if f, err := baseTree.File(path); err == nil {
		before, err = f.Contents()
		if err != nil {
			return nil, fmt.Errorf("failed to read base version of %q: %w", path, err)
		}
	} else if err != object.ErrFileNotFound {
		return nil, fmt.Errorf("failed to look up %q in base tree: %w", path, err)
	}

	after, err := os.ReadFile(filepath.Join(c.rootPath, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return lineAdditions(before, string(after)), nil
}

// lineAdditions returns the lines of after that are not in before, keyed by line number.
func lineAdditions(before, after string) map[int]string {
	added := make(map[int]string)
	lineNo := 1
	for _, d := range gitdiff.Do(before, after) {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			lineNo += len(lines)
		case diffmatchpatch.DiffInsert:
			for _, line := range lines {
				added[lineNo] = line
				lineNo++
			}
		}
	}
	return added
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\n")
	}
	return lines
}
