package report

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/convex-doctor/internal/rules"
)

const (
	toolName           = "convex-doctor"
	toolInformationURI = "https://github.com/scan-io-git/convex-doctor"
)

// SARIFRenderer writes a SARIF 2.1.0 log with one run.
type SARIFRenderer struct{}

// Level maps a severity to a SARIF result level.
func Level(s rules.Severity) string {
	switch s {
	case rules.SeverityError:
		return "error"
	case rules.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Render implements Renderer.
func (r *SARIFRenderer) Render(w io.Writer, s *Summary) error {
	report, err := Build(s)
	if err != nil {
		return err
	}
	return report.PrettyWrite(w)
}

// Build assembles the SARIF log for s.
func Build(s *Summary) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolInformationURI)
	if s.Version != "" {
		version := s.Version
		run.Tool.Driver.Version = &version
	}

	known := make(map[string]rules.Rule, len(s.Rules))
	for _, rule := range s.Rules {
		known[rule.ID()] = rule
	}
	for _, id := range ruleIDs(s.Rules, s.Diagnostics) {
		descriptor := run.AddRule(id)
		rule, ok := known[id]
		if !ok {
			continue
		}
		descriptor.WithDescription(rule.Description()).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: Level(rule.Severity()),
			}).
			WithProperties(sarif.Properties{"category": rule.Category().String()})
		if help := rule.Help(); help != "" {
			descriptor.Help = &sarif.MultiformatMessageString{Text: &help}
		}
	}

	for _, d := range s.Diagnostics {
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(d.File)).
				WithRegion(sarif.NewRegion().WithStartLine(d.Line).WithStartColumn(d.Column)),
		)

		result := sarif.NewRuleResult(d.RuleID).
			WithMessage(sarif.NewTextMessage(d.Message)).
			WithLevel(Level(d.Severity)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}

	if s.RunID != "" {
		runID := s.RunID
		run.AutomationDetails = &sarif.RunAutomationDetails{GUID: &runID}
	}
	if details := versionControl(s); details != nil {
		run.VersionControlProvenance = append(run.VersionControlProvenance, details)
	}
	run.Properties = sarif.Properties{
		"score":          s.Score.Score,
		"label":          s.Score.Label,
		"files_analyzed": len(s.Files),
		"files_skipped":  len(s.Skipped),
	}

	report.AddRun(run)
	return report, nil
}

func versionControl(s *Summary) *sarif.VersionControlDetails {
	md := s.Repository
	if md == nil || md.RepositoryURL == nil {
		return nil
	}
	details := &sarif.VersionControlDetails{RepositoryURI: md.RepositoryURL}
	if md.CommitHash != nil {
		details.RevisionID = md.CommitHash
	}
	if md.BranchName != nil {
		details.Branch = md.BranchName
	}
	if md.Subfolder != "" {
		details.MappedTo = sarif.NewArtifactLocation().WithUri(md.Subfolder)
	}
	return details
}
