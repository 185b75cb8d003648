package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/scan-io-git/convex-doctor/internal/rules"
	"github.com/scan-io-git/convex-doctor/internal/scoring"
)

// TextRenderer prints a human-readable report grouped by file.
type TextRenderer struct {
	// Plain disables colours and text attributes.
	Plain bool
}

type textStyles struct {
	file    lipgloss.Style
	error   lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	dim     lipgloss.Style
	score   map[string]lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		file:    r.NewStyle().Bold(true).Underline(true),
		error:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		info:    r.NewStyle().Foreground(lipgloss.Color("6")),
		dim:     r.NewStyle().Faint(true),
		score: map[string]lipgloss.Style{
			scoring.LabelHealthy:        r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
			scoring.LabelNeedsAttention: r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			scoring.LabelUnhealthy:      r.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
			scoring.LabelCritical:       r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

// Render implements Renderer.
func (t *TextRenderer) Render(w io.Writer, s *Summary) error {
	paint := func(style lipgloss.Style, text string) string { return style.Render(text) }
	if t.Plain {
		paint = func(_ lipgloss.Style, text string) string { return text }
	}
	styles := newTextStyles(w)

	var b strings.Builder
	order, groups := groupByFile(s.Diagnostics)
	for _, file := range order {
		b.WriteString(paint(styles.file, file))
		b.WriteString("\n")
		for _, d := range groups[file] {
			sev := fmt.Sprintf("%-7s", d.Severity.String())
			switch d.Severity {
			case rules.SeverityError:
				sev = paint(styles.error, sev)
			case rules.SeverityWarning:
				sev = paint(styles.warning, sev)
			default:
				sev = paint(styles.info, sev)
			}
			fmt.Fprintf(&b, "  %d:%d  %s  %s  %s\n", d.Line, d.Column, sev, d.Message, paint(styles.dim, d.RuleID))
			if d.Help != "" {
				fmt.Fprintf(&b, "    %s\n", paint(styles.dim, "help: "+d.Help))
			}
		}
		b.WriteString("\n")
	}

	for _, sk := range s.Skipped {
		fmt.Fprintf(&b, "%s %s: %s\n", paint(styles.warning, "skipped"), sk.Path, sk.Reason)
	}
	if len(s.Skipped) > 0 {
		b.WriteString("\n")
	}

	counts := CountSeverities(s.Diagnostics)
	banner := fmt.Sprintf("Score: %d/%d (%s)", s.Score.Score, scoring.MaxScore, s.Score.Label)
	b.WriteString(paint(styles.score[s.Score.Label], banner))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s, %s, %s across %s",
		plural(counts.Errors, "error"), plural(counts.Warnings, "warning"), plural(counts.Infos, "info"),
		plural(len(s.Files), "file"))
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, " (%d skipped)", len(s.Skipped))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func plural(n int, noun string) string {
	if n == 1 || noun == "info" {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
