// Package rules defines the rule framework, the built-in rule set and the registry
// that dispatches them.
package rules

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/convex-doctor/internal/facts"
	"github.com/scan-io-git/convex-doctor/internal/project"
)

// Severity ranks a diagnostic. Higher values are more severe.
type Severity int

const (
	// SeverityInfo marks advisory findings that do not lower the score.
	SeverityInfo Severity = iota
	// SeverityWarning marks findings that should be fixed.
	SeverityWarning
	// SeverityError marks findings that are bugs or vulnerabilities.
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity converts a severity name into a Severity value.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	default:
		return SeverityInfo, fmt.Errorf("unsupported severity %q", raw)
	}
}

// Category groups rules by concern and selects the scoring weight.
type Category int

const (
	Security Category = iota
	Performance
	Correctness
	Schema
	Architecture
	Configuration
	ClientSide
)

var categoryNames = map[Category]string{
	Security:      "security",
	Performance:   "performance",
	Correctness:   "correctness",
	Schema:        "schema",
	Architecture:  "architecture",
	Configuration: "configuration",
	ClientSide:    "client",
}

// String returns the category identifier used in rule ids.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Diagnostic is one reported finding. It is a value and never changes after construction.
type Diagnostic struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Help     string   `json:"help,omitempty"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

// Rule is one independent check over a file's facts.
type Rule interface {
	ID() string
	Category() Category
	// Severity is the class the rule was registered with; it fixes the score cap.
	Severity() Severity
	Description() string
	// Help is the remediation hint attached to every diagnostic of the rule.
	Help() string
	CheckFile(fa *facts.FileAnalysis) []Diagnostic
}

// ProjectRule is implemented by rules that also check the cross-file context.
type ProjectRule interface {
	Rule
	CheckProject(pc *project.Context) []Diagnostic
}

// base carries the static description of a rule. Embedding it yields a rule
// with no file-level findings.
type base struct {
	id          string
	category    Category
	severity    Severity
	description string
	help        string
}

func (b base) ID() string          { return b.id }
func (b base) Category() Category  { return b.category }
func (b base) Severity() Severity  { return b.severity }
func (b base) Description() string { return b.description }
func (b base) Help() string        { return b.help }

func (b base) CheckFile(*facts.FileAnalysis) []Diagnostic { return nil }

// at builds a diagnostic of the rule's own severity.
func (b base) at(file string, line, column int, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		RuleID:   b.id,
		Severity: b.severity,
		Category: b.category,
		Message:  fmt.Sprintf(format, args...),
		Help:     b.help,
		File:     file,
		Line:     line,
		Column:   column,
	}
}

// atFile builds a diagnostic without a precise source position.
func (b base) atFile(file string, format string, args ...interface{}) Diagnostic {
	return b.at(file, 1, 1, format, args...)
}
