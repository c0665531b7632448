// Package render formats objectives, key results and period grids for the
// terminal using the active styles theme.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/core/tracker"
)

// DefaultBarWidth is the width of a progress bar without its label.
const DefaultBarWidth = 20

// ProgressBar renders pct (0-100) as a bar of width cells followed by the
// percentage.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	bar := progress.New(
		progress.WithSolidFill(string(styles.CurrentPalette.Primary)),
		progress.WithoutPercentage(),
		progress.WithWidth(width),
	)
	return bar.ViewAs(clamp(pct)/100) + " " + Percent(pct)
}

// Percent formats a progress value as "42.0%".
func Percent(pct float64) string {
	return strconv.FormatFloat(clamp(pct), 'f', 1, 64) + "%"
}

func clamp(pct float64) float64 {
	return max(0, min(100, pct))
}

// Value describes where a key result stands in its own terms.
func Value(kr okr.KeyResult) string {
	switch m := kr.Measure().(type) {
	case okr.RangeMeasure:
		s := number(m.Current) + " / " + number(m.Target)
		if kr.Unit != "" {
			s += " " + kr.Unit
		}
		if m.Direction == okr.DirectionDecreasing {
			s += " (decreasing)"
		}
		return s
	case okr.BinaryMeasure:
		labels := okr.BinaryLabels{Incomplete: "not done", Complete: "done"}
		if kr.BinaryLabels != nil {
			labels = *kr.BinaryLabels
		}
		if m.Done() {
			return labels.Complete
		}
		return labels.Incomplete
	case okr.AssignmentMeasure:
		return fmt.Sprintf("%d tasks, %d forms, %d documents", len(m.TaskIDs), len(m.FormIDs), len(m.DocumentIDs))
	default:
		return string(kr.Category)
	}
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Glyph is the grid symbol of a classification.
func Glyph(c tracker.Classification) string {
	switch c {
	case tracker.Exceeded:
		return "▲"
	case tracker.Met:
		return "●"
	case tracker.Below:
		return "▼"
	case tracker.NoReport:
		return "○"
	case tracker.NoTarget:
		return "-"
	default:
		return "·"
	}
}

func classStyle(c tracker.Classification) lipgloss.Style {
	switch c {
	case tracker.Exceeded:
		return styles.ExceededStyle
	case tracker.Met:
		return styles.MetStyle
	case tracker.Below:
		return styles.BelowStyle
	case tracker.NoReport:
		return styles.NoReportStyle
	case tracker.NoTarget:
		return styles.NoTargetStyle
	default:
		return styles.FutureStyle
	}
}

// Markdown renders md for a terminal of the given width.
func Markdown(md string, width int) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

