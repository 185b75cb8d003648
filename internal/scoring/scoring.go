// Package scoring turns a diagnostic list into a bounded 0-100 health score.
package scoring

import (
	"math"
	"sort"

	"github.com/scan-io-git/convex-doctor/internal/rules"
)

const (
	// MaxScore is the score of a project without findings.
	MaxScore = 100

	errorDeduction   = 2.0
	warningDeduction = 0.4

	errorCap   = 4.0
	warningCap = 1.5
)

// Labels for score bands.
const (
	LabelHealthy        = "Healthy"
	LabelNeedsAttention = "Needs attention"
	LabelUnhealthy      = "Unhealthy"
	LabelCritical       = "Critical"
)

var categoryWeights = map[rules.Category]float64{
	rules.Security:      1.5,
	rules.Correctness:   1.5,
	rules.Performance:   1.2,
	rules.Schema:        1.0,
	rules.Configuration: 1.0,
	rules.ClientSide:    1.0,
	rules.Architecture:  0.8,
}

// RuleDeduction is the contribution of one rule id to the total deduction.
type RuleDeduction struct {
	RuleID   string         `json:"rule_id"`
	Category rules.Category `json:"category"`
	Count    int            `json:"count"`
	Raw      float64        `json:"raw"`
	Capped   float64        `json:"capped"`
}

// Result is the outcome of scoring one run.
type Result struct {
	Score      int             `json:"score"`
	Label      string          `json:"label"`
	Deductions []RuleDeduction `json:"deductions,omitempty"`
}

// Weight returns the scoring multiplier of a category.
func Weight(c rules.Category) float64 {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return 1.0
}

func instanceDeduction(s rules.Severity) float64 {
	switch s {
	case rules.SeverityError:
		return errorDeduction
	case rules.SeverityWarning:
		return warningDeduction
	default:
		return 0
	}
}

// Calculate scores diags. classes maps rule ids to the severity class they were
// registered with and selects each rule's cap; ids missing from classes fall back
// to the most severe instance seen.
func Calculate(diags []rules.Diagnostic, classes map[string]rules.Severity) Result {
	type group struct {
		category rules.Category
		class    rules.Severity
		count    int
		raw      float64
	}

	groups := make(map[string]*group)
	var order []string
	for _, d := range diags {
		g, ok := groups[d.RuleID]
		if !ok {
			g = &group{category: d.Category, class: d.Severity}
			groups[d.RuleID] = g
			order = append(order, d.RuleID)
		}
		if d.Severity > g.class {
			g.class = d.Severity
		}
		g.count++
		g.raw += instanceDeduction(d.Severity) * Weight(d.Category)
	}
	sort.Strings(order)

	total := 0.0
	deductions := make([]RuleDeduction, 0, len(order))
	for _, id := range order {
		g := groups[id]
		class := g.class
		if registered, ok := classes[id]; ok {
			class = registered
		}
		limit := warningCap * Weight(g.category)
		if class == rules.SeverityError {
			limit = errorCap * Weight(g.category)
		}
		capped := math.Min(g.raw, limit)
		total += capped
		deductions = append(deductions, RuleDeduction{
			RuleID:   id,
			Category: g.category,
			Count:    g.count,
			Raw:      g.raw,
			Capped:   capped,
		})
	}

	score := int(math.Round(math.Max(0, math.Min(MaxScore, MaxScore-total))))
	return Result{Score: score, Label: Label(score), Deductions: deductions}
}

// Label returns the qualitative band of a score.
func Label(score int) string {
	switch {
	case score >= 85:
		return LabelHealthy
	case score >= 70:
		return LabelNeedsAttention
	case score >= 50:
		return LabelUnhealthy
	default:
		return LabelCritical
	}
}
