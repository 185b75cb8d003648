// Package report renders the outcome of a run as text, JSON or SARIF.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/scan-io-git/convex-doctor/internal/engine"
	"github.com/scan-io-git/convex-doctor/internal/git"
	"github.com/scan-io-git/convex-doctor/internal/rules"
	"github.com/scan-io-git/convex-doctor/internal/scoring"
)

// Output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatJSON, FormatSARIF}

// Summary is everything a renderer needs about one run.
type Summary struct {
	RunID       string
	Version     string
	Root        string
	Score       scoring.Result
	Diagnostics []rules.Diagnostic
	Files       []string
	Skipped     []engine.Skipped
	// Rules are the enabled rules, used for SARIF rule metadata.
	Rules []rules.Rule
	// Repository is optional checkout provenance.
	Repository *git.RepositoryMetadata
}

// Renderer writes a Summary in one format.
type Renderer interface {
	Render(w io.Writer, s *Summary) error
}

// New returns the renderer for format. plain disables styling of the text format.
func New(format string, plain bool) (Renderer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return &TextRenderer{Plain: plain}, nil
	case FormatJSON:
		return &JSONRenderer{}, nil
	case FormatSARIF:
		return &SARIFRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q, use one of %s", format, strings.Join(Formats, ", "))
	}
}

// Counts tallies diagnostics by severity.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// CountSeverities tallies diags by severity.
func CountSeverities(diags []rules.Diagnostic) Counts {
	var c Counts
	for _, d := range diags {
		switch d.Severity {
		case rules.SeverityError:
			c.Errors++
		case rules.SeverityWarning:
			c.Warnings++
		default:
			c.Infos++
		}
	}
	return c
}

// groupByFile returns the file names in order of first appearance and the diagnostics of each.
func groupByFile(diags []rules.Diagnostic) ([]string, map[string][]rules.Diagnostic) {
	var order []string
	groups := make(map[string][]rules.Diagnostic)
	for _, d := range diags {
		if _, ok := groups[d.File]; !ok {
			order = append(order, d.File)
		}
		groups[d.File] = append(groups[d.File], d)
	}
	return order, groups
}

// ruleIDs returns the ids of every enabled rule and every rule referenced by diags, sorted.
func ruleIDs(all []rules.Rule, diags []rules.Diagnostic) []string {
	seen := make(map[string]bool)
	for _, d := range diags {
		seen[d.RuleID] = true
	}
	for _, r := range all {
		seen[r.ID()] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
