package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/convex-doctor/internal/rules"
)

func repeat(n int, d rules.Diagnostic) []rules.Diagnostic {
	out := make([]rules.Diagnostic, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestCalculateExamples(t *testing.T) {
	perfError := rules.Diagnostic{RuleID: "performance/x", Severity: rules.SeverityError, Category: rules.Performance}
	archWarning := rules.Diagnostic{RuleID: "architecture/x", Severity: rules.SeverityWarning, Category: rules.Architecture}

	testCases := []struct {
		name      string
		diags     []rules.Diagnostic
		wantScore int
		wantLabel string
	}{
		{name: "Empty", diags: nil, wantScore: 100, wantLabel: LabelHealthy},
		{name: "SinglePerformanceError", diags: repeat(1, perfError), wantScore: 98, wantLabel: LabelHealthy},
		{name: "CappedPerformanceErrors", diags: repeat(6, perfError), wantScore: 95, wantLabel: LabelHealthy},
		{name: "CappedArchitectureWarnings", diags: repeat(6, archWarning), wantScore: 99, wantLabel: LabelHealthy},
		{name: "InfoIsFree", diags: repeat(50, rules.Diagnostic{RuleID: "schema/i", Severity: rules.SeverityInfo, Category: rules.Schema}), wantScore: 100, wantLabel: LabelHealthy},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(tc.diags, nil)
			if got.Score != tc.wantScore || got.Label != tc.wantLabel {
				t.Fatalf("Calculate() = %d %q, want %d %q", got.Score, got.Label, tc.wantScore, tc.wantLabel)
			}
		})
	}
}

func TestCapAppliesPerRuleID(t *testing.T) {
	var diags []rules.Diagnostic
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("performance/rule-%d", i)
		diags = append(diags, repeat(6, rules.Diagnostic{RuleID: id, Severity: rules.SeverityError, Category: rules.Performance})...)
	}
	got := Calculate(diags, nil)

	// 3 x 4.8
	assert.Equal(t, 86, got.Score)
	require.Len(t, got.Deductions, 3)
	for _, d := range got.Deductions {
		assert.Equal(t, 6, d.Count)
		assert.InDelta(t, 14.4, d.Raw, 1e-9)
		assert.InDelta(t, 4.8, d.Capped, 1e-9)
	}
}

func TestRegisteredClassFixesCap(t *testing.T) {
	diags := repeat(10, rules.Diagnostic{RuleID: "security/r", Severity: rules.SeverityWarning, Category: rules.Security})

	// warning class: cap 1.5 x 1.5 = 2.25
	warningClass := Calculate(diags, map[string]rules.Severity{"security/r": rules.SeverityWarning})
	assert.Equal(t, 98, warningClass.Score)

	// error class: cap 4.0 x 1.5 = 6.0 leaves the raw 10 x 0.4 x 1.5 = 6.0 untouched
	errorClass := Calculate(diags, map[string]rules.Severity{"security/r": rules.SeverityError})
	assert.Equal(t, 94, errorClass.Score)

	// unregistered ids use the most severe instance: raw 3.0 + 6.0 capped at 6.0
	mixed := append(repeat(1, rules.Diagnostic{RuleID: "security/r", Severity: rules.SeverityError, Category: rules.Security}), diags...)
	assert.Equal(t, 94, Calculate(mixed, nil).Score)
	assert.Equal(t, 98, Calculate(mixed, map[string]rules.Severity{"security/r": rules.SeverityWarning}).Score)
}

func TestScoreIsBoundedAndMonotone(t *testing.T) {
	reg := rules.NewRegistry()
	classes := reg.SeverityClasses()

	var diags []rules.Diagnostic
	prev := Calculate(nil, classes).Score
	for _, rule := range reg.All() {
		for i := 0; i < 5; i++ {
			diags = append(diags, rules.Diagnostic{RuleID: rule.ID(), Severity: rule.Severity(), Category: rule.Category()})
			score := Calculate(diags, classes).Score
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
			assert.LessOrEqual(t, score, prev, "adding %s raised the score", rule.ID())
			prev = score
		}
	}
}

func TestScoreFloorsAtZero(t *testing.T) {
	var diags []rules.Diagnostic
	for i := 0; i < 40; i++ {
		diags = append(diags, rules.Diagnostic{RuleID: fmt.Sprintf("security/r%d", i), Severity: rules.SeverityError, Category: rules.Security})
	}
	got := Calculate(diags, nil)
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, LabelCritical, got.Label)
}

func TestLabel(t *testing.T) {
	testCases := []struct {
		score int
		want  string
	}{
		{100, LabelHealthy},
		{85, LabelHealthy},
		{84, LabelNeedsAttention},
		{70, LabelNeedsAttention},
		{69, LabelUnhealthy},
		{50, LabelUnhealthy},
		{49, LabelCritical},
		{0, LabelCritical},
	}
	for _, tc := range testCases {
		if got := Label(tc.score); got != tc.want {
			t.Fatalf("Label(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestWeights(t *testing.T) {
	assert.Equal(t, 1.5, Weight(rules.Security))
	assert.Equal(t, 1.2, Weight(rules.Performance))
	assert.Equal(t, 0.8, Weight(rules.Architecture))
	assert.Equal(t, 1.0, Weight(rules.ClientSide))
}
