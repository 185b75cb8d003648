package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5"
)

// RepositoryMetadata describes the checkout a run analyzed.
type RepositoryMetadata struct {
	BranchName     *string
	CommitHash     *string
	RepositoryURL  *string // origin remote, normalised to an https URL when recognised
	Subfolder      string
	RepoRootFolder string
}

// CollectRepositoryMetadata function collects repository metadata
// that includes branch name, commit hash, origin URL, subfolder and repository root folder
func CollectRepositoryMetadata(sourceFolder string) (*RepositoryMetadata, error) {
	if sourceFolder == "" {
		return &RepositoryMetadata{}, fmt.Errorf("source folder is not set")
	}

	if absSource, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = absSource
	}

	md := &RepositoryMetadata{
		RepoRootFolder: filepath.Clean(sourceFolder),
	}

	repoRootFolder, err := findGitRepositoryPath(sourceFolder)
	if err != nil {
		return md, fmt.Errorf("%w: %s", ErrNotRepository, sourceFolder)
	}

	md.RepoRootFolder = filepath.Clean(repoRootFolder)

	repo, err := git.PlainOpen(repoRootFolder)
	if err != nil {
		return md, fmt.Errorf("failed to open repository: %w", err)
	}

	if rel, err := filepath.Rel(repoRootFolder, sourceFolder); err == nil && rel != "." {
		md.Subfolder = filepath.ToSlash(rel)
	}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			branchName := head.Name().Short()
			md.BranchName = &branchName
		}

		hash := head.Hash().String()
		md.CommitHash = &hash
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			url := NormalizeRemoteURL(cfg.URLs[0])
			md.RepositoryURL = &url
		}
	}

	return md, nil
}

// NormalizeRemoteURL turns ssh and scp-style remotes of known hosts into https URLs.
// Unrecognised remotes are returned without a trailing ".git".
func NormalizeRemoteURL(remote string) string {
	if info, err := vcsurl.Parse(remote); err == nil {
		if https, err := info.Remote(vcsurl.HTTPS); err == nil {
			return strings.TrimSuffix(https, ".git")
		}
	}
	return strings.TrimSuffix(remote, ".git")
}
