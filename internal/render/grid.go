package render

import (
	"fmt"
	"strings"

	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/core/tracker"
	"github.com/colonyops/okr/internal/service"
)

// Columns per grid row: a week of days, or four weeks.
const (
	dailyColumns  = 7
	weeklyColumns = 4
)

var legendOrder = []tracker.Classification{
	tracker.Exceeded,
	tracker.Met,
	tracker.Below,
	tracker.NoReport,
	tracker.NoTarget,
	tracker.Future,
}

func label(c tracker.Classification) string {
	return strings.ToLower(strings.ReplaceAll(string(c), "_", " "))
}

// PeriodGrid renders one page of a key result's periods as a calendar-like
// grid followed by a legend with the counts of the whole window.
func PeriodGrid(page service.PeriodPage) string {
	var b strings.Builder

	cadence, cols := "Daily", dailyColumns
	if page.Frequency.IsWeekly() {
		cadence, cols = "Weekly", weeklyColumns
	}

	pages := max(page.TotalPages, 1)
	b.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%s periods %s to %s",
		cadence, page.WindowStart.Format("2006-01-02"), page.WindowEnd.Format("2006-01-02"))))
	b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("  page %d/%d", page.Page+1, pages)) + "\n\n")

	if len(page.Periods) == 0 {
		b.WriteString(styles.MutedStyle.Render("No periods") + "\n")
		return b.String()
	}

	for i := 0; i < len(page.Periods); i += cols {
		row := page.Periods[i:min(i+cols, len(page.Periods))]
		cells := make([]string, 0, len(row))
		for _, p := range row {
			cells = append(cells, classStyle(p.Classification).Render(cell(p, page.Frequency.IsWeekly())))
		}
		b.WriteString(strings.Join(cells, "  ") + "\n")
	}

	b.WriteString("\n" + Legend(page.Summary) + "\n")
	return b.String()
}

func cell(p tracker.PeriodStatus, weekly bool) string {
	date := p.Start.Format("Jan 02")
	if weekly {
		date = fmt.Sprintf("W%-2d %s", p.Index+1, date)
	}
	return date + " " + Glyph(p.Classification)
}

// Legend lists each classification's glyph and count, and the hit rate.
func Legend(s tracker.Summary) string {
	parts := make([]string, 0, len(legendOrder)+1)
	for _, c := range legendOrder {
		parts = append(parts, classStyle(c).Render(fmt.Sprintf("%s %s %d", Glyph(c), label(c), s.Counts[c])))
	}
	parts = append(parts, styles.MutedStyle.Render("hit rate "+Percent(s.HitRate()*100)))
	return strings.Join(parts, "  ")
}
