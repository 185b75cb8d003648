package rules

import (
	"github.com/scan-io-git/convex-doctor/internal/facts"
	"github.com/scan-io-git/convex-doctor/internal/project"
)

// Registry is an ordered, immutable list of rules.
type Registry struct {
	rules []Rule
	byID  map[string]Rule
}

// NewRegistry returns the full built-in rule set in its canonical order.
func NewRegistry() *Registry {
	var all []Rule
	all = append(all, securityRules()...)
	all = append(all, performanceRules()...)
	all = append(all, correctnessRules()...)
	all = append(all, schemaRules()...)
	all = append(all, architectureRules()...)
	all = append(all, configurationRules()...)
	all = append(all, clientRules()...)
	return newRegistry(all)
}

func newRegistry(rules []Rule) *Registry {
	r := &Registry{rules: rules, byID: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		r.byID[rule.ID()] = rule
	}
	return r
}

// All returns the rules in registry order.
func (r *Registry) All() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Lookup finds a rule by id.
func (r *Registry) Lookup(id string) (Rule, bool) {
	rule, ok := r.byID[id]
	return rule, ok
}

// Enabled returns a registry holding only the rules accepted by pred, in the same order.
// A nil predicate enables every rule.
func (r *Registry) Enabled(pred func(id string) bool) *Registry {
	if pred == nil {
		return newRegistry(r.All())
	}
	var kept []Rule
	for _, rule := range r.rules {
		if pred(rule.ID()) {
			kept = append(kept, rule)
		}
	}
	return newRegistry(kept)
}

// SeverityClasses maps every rule id to its registered severity class.
func (r *Registry) SeverityClasses() map[string]Severity {
	classes := make(map[string]Severity, len(r.rules))
	for _, rule := range r.rules {
		classes[rule.ID()] = rule.Severity()
	}
	return classes
}

// CheckFile runs every file-level check against one file, in registry order.
func (r *Registry) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, rule := range r.rules {
		out = append(out, rule.CheckFile(fa)...)
	}
	return out
}

// CheckProject runs every project-level check once, in registry order.
func (r *Registry) CheckProject(pc *project.Context) []Diagnostic {
	var out []Diagnostic
	for _, rule := range r.rules {
		if pr, ok := rule.(ProjectRule); ok {
			out = append(out, pr.CheckProject(pc)...)
		}
	}
	return out
}
