package git

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/hashicorp/go-hclog"
)

// Client answers diff-base questions about the repository containing a project.
type Client struct {
	logger   hclog.Logger    // Logger for logging messages and errors
	repo     *git.Repository // Opened repository
	rootPath string          // Repository root folder
}

// New opens the repository containing sourceFolder.
func New(logger hclog.Logger, sourceFolder string) (*Client, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	rootPath, err := findGitRepositoryPath(sourceFolder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, sourceFolder)
	}

	repo, err := git.PlainOpen(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", rootPath, err)
	}

	return &Client{
		logger:   logger,
		repo:     repo,
		rootPath: rootPath,
	}, nil
}

// Root returns the repository root folder.
func (c *Client) Root() string {
	return c.rootPath
}

// resolveCommit resolves a revision (branch, tag, sha, HEAD~n) to a commit.
func (c *Client) resolveCommit(rev string) (*object.Commit, error) {
	if rev == "" {
		return nil, ErrEmptyRevision
	}
	hash, err := c.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownRevision, rev, err)
	}
	commit, err := c.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	return commit, nil
}

// headTree returns the tree of HEAD, or nil for a repository without commits.
func (c *Client) headTree() (*object.Tree, error) {
	head, err := c.repo.Head()
	if err == plumbing.ErrReferenceNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := c.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit: %w", err)
	}
	return commit.Tree()
}
