// Package ci detects CI environments so output can drop colour and pick up
// commit provenance when the checkout has no usable git metadata.
package ci

import (
	"os"
	"strconv"
	"strings"
)

// Kind represents the type of CI.
type Kind int

const (
	// Unknown indicates the CI provider could not be identified.
	Unknown Kind = iota
	// GitHub identifies GitHub Actions.
	GitHub
	// GitLab identifies GitLab CI.
	GitLab
	// Bitbucket identifies Bitbucket Pipelines.
	Bitbucket
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// Environment captures CI metadata derived from environment variables.
type Environment struct {
	Kind          Kind   // Kind identifies the CI provider.
	CI            bool   // CI reports whether the execution runs inside a CI environment.
	CommitHash    string // CommitHash is the tip commit that triggered the job.
	ReferenceName string // ReferenceName is the short reference or branch name.
	RepositoryURL string // RepositoryURL is the web URL of the repository.
}

// String returns the human-readable string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	case Bitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}

// Detect reads the CI environment of the current process.
func Detect() Environment {
	return detectWithLookup(os.Getenv)
}

// IsCI reports whether the current process runs inside a CI job.
func IsCI() bool {
	return Detect().CI
}

func detectWithLookup(lookup LookupFunc) Environment {
	if lookup == nil {
		lookup = os.Getenv
	}

	var env Environment
	switch detectKind(lookup) {
	case GitHub:
		env = extractGitHubVariables(lookup)
	case GitLab:
		env = extractGitLabVariables(lookup)
	case Bitbucket:
		env = extractBitbucketVariables(lookup)
	}

	ci, _ := strconv.ParseBool(lookup("CI"))
	env.CI = ci || env.Kind != Unknown || lookup("BUILD_NUMBER") != "" || lookup("RUN_ID") != ""
	return env
}

func detectKind(lookup LookupFunc) Kind {
	if lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "" {
		return GitHub
	}
	if strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "" {
		return GitLab
	}
	if lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "" {
		return Bitbucket
	}
	return Unknown
}

// extractGitHubVariables reads GitHub Actions variables.
// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
func extractGitHubVariables(lookup LookupFunc) Environment {
	fullName := lookup("GITHUB_REPOSITORY")
	serverURL := lookup("GITHUB_SERVER_URL")
	if serverURL == "" {
		serverURL = "https://github.com"
	}

	repoURL := ""
	if fullName != "" {
		repoURL = strings.TrimSuffix(serverURL, "/") + "/" + fullName
	}

	return Environment{
		Kind:          GitHub,
		CommitHash:    lookup("GITHUB_SHA"),
		ReferenceName: lookup("GITHUB_REF_NAME"),
		RepositoryURL: repoURL,
	}
}

// extractGitLabVariables reads GitLab CI predefined variables.
// See https://docs.gitlab.com/ci/variables/predefined_variables/.
func extractGitLabVariables(lookup LookupFunc) Environment {
	refName := lookup("CI_COMMIT_TAG")
	if refName == "" {
		refName = lookup("CI_MERGE_REQUEST_SOURCE_BRANCH_NAME")
	}
	if refName == "" {
		refName = lookup("CI_COMMIT_REF_NAME")
	}

	return Environment{
		Kind:          GitLab,
		CommitHash:    lookup("CI_COMMIT_SHA"),
		ReferenceName: refName,
		RepositoryURL: lookup("CI_PROJECT_URL"),
	}
}

// extractBitbucketVariables reads Bitbucket Pipelines variables.
// See https://support.atlassian.com/bitbucket-cloud/docs/variables-and-secrets/.
func extractBitbucketVariables(lookup LookupFunc) Environment {
	refName := lookup("BITBUCKET_TAG")
	if refName == "" {
		refName = lookup("BITBUCKET_BRANCH")
	}

	return Environment{
		Kind:          Bitbucket,
		CommitHash:    lookup("BITBUCKET_COMMIT"),
		ReferenceName: refName,
		RepositoryURL: lookup("BITBUCKET_GIT_HTTP_ORIGIN"),
	}
}
