package report

import (
	"encoding/json"
	"io"

	"github.com/scan-io-git/convex-doctor/internal/engine"
	"github.com/scan-io-git/convex-doctor/internal/rules"
	"github.com/scan-io-git/convex-doctor/internal/scoring"
)

// JSONRenderer writes a machine-readable document.
type JSONRenderer struct{}

type jsonDocument struct {
	RunID         string                  `json:"run_id"`
	Version       string                  `json:"version"`
	Score         int                     `json:"score"`
	Label         string                  `json:"label"`
	Counts        Counts                  `json:"counts"`
	FilesAnalyzed int                     `json:"files_analyzed"`
	Skipped       []engine.Skipped        `json:"skipped"`
	Diagnostics   []rules.Diagnostic      `json:"diagnostics"`
	Deductions    []scoring.RuleDeduction `json:"deductions"`
}

// Render implements Renderer.
func (j *JSONRenderer) Render(w io.Writer, s *Summary) error {
	doc := jsonDocument{
		RunID:         s.RunID,
		Version:       s.Version,
		Score:         s.Score.Score,
		Label:         s.Score.Label,
		Counts:        CountSeverities(s.Diagnostics),
		FilesAnalyzed: len(s.Files),
		Skipped:       s.Skipped,
		Diagnostics:   s.Diagnostics,
		Deductions:    s.Score.Deductions,
	}
	if doc.Skipped == nil {
		doc.Skipped = []engine.Skipped{}
	}
	if doc.Diagnostics == nil {
		doc.Diagnostics = []rules.Diagnostic{}
	}
	if doc.Deductions == nil {
		doc.Deductions = []scoring.RuleDeduction{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
