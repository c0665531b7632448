package render

import (
	"fmt"
	"strings"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/styles"
	"github.com/colonyops/okr/internal/service"
)

// TreeOptions controls Tree output.
type TreeOptions struct {
	KeyResults bool // list key results under each objective
	BarWidth   int
	TitleWidth int
}

func (o TreeOptions) withDefaults() TreeOptions {
	if o.BarWidth <= 0 {
		o.BarWidth = DefaultBarWidth
	}
	if o.TitleWidth <= 0 {
		o.TitleWidth = 36
	}
	return o
}

// Tree renders objectives nested under their parents, one line each.
func Tree(views []service.ObjectiveView, opts TreeOptions) string {
	opts = opts.withDefaults()
	if len(views) == 0 {
		return styles.MutedStyle.Render("No objectives") + "\n"
	}

	byID := make(map[string]service.ObjectiveView, len(views))
	objectives := make([]okr.Objective, 0, len(views))
	for _, v := range views {
		byID[v.ID] = v
		objectives = append(objectives, v.Objective)
	}

	var b strings.Builder
	okr.Walk(okr.BuildTree(objectives), func(n *okr.Node, depth int) {
		v := byID[n.Objective.ID]
		indent := strings.Repeat("  ", depth)

		title := padRight(truncate(v.Title, opts.TitleWidth-len(indent)), opts.TitleWidth-len(indent))
		line := indent + styles.TitleStyle.Render(title)
		if v.IsArchived {
			line = indent + styles.ArchivedStyle.Render(title)
		}
		line += "  " + ProgressBar(v.Progress, opts.BarWidth)
		if v.Quarter != "" {
			line += "  " + styles.MutedStyle.Render(v.Quarter)
		}
		b.WriteString(line + "\n")

		if !opts.KeyResults {
			return
		}
		for _, kr := range v.KeyResults {
			b.WriteString(indent + "  " + keyResultLine(kr, opts.TitleWidth-len(indent)-2, opts.BarWidth) + "\n")
		}
	})
	return b.String()
}

// ObjectiveDetail renders one objective with all of its key results.
func ObjectiveDetail(v service.ObjectiveView, users map[string]okr.User) string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render(v.Title))
	if v.IsArchived {
		b.WriteString(" " + styles.MutedStyle.Render("(archived)"))
	}
	b.WriteString("\n")

	fields := [][2]string{
		{"ID", v.ID},
		{"Owner", userName(users, v.OwnerID)},
		{"Quarter", v.Quarter},
		{"Category", string(v.Category)},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("%-9s", f[0])) + f[1] + "\n")
	}
	if v.Description != "" {
		b.WriteString("\n" + v.Description + "\n")
	}

	b.WriteString("\n" + ProgressBar(v.Progress, DefaultBarWidth*2) + "\n\n")

	if len(v.KeyResults) == 0 {
		b.WriteString(styles.MutedStyle.Render("No key results") + "\n")
		return b.String()
	}
	for _, kr := range v.KeyResults {
		b.WriteString(keyResultLine(kr, 34, DefaultBarWidth) + "\n")
		details := []string{kr.ID, Value(kr.KeyResult)}
		if owner := userName(users, kr.OwnerID); owner != "" {
			details = append(details, owner)
		}
		if kr.StretchLevel != nil {
			details = append(details, "reached "+kr.StretchLevel.Label)
		}
		b.WriteString("    " + styles.MutedStyle.Render(strings.Join(details, " · ")) + "\n")
	}
	return b.String()
}

func keyResultLine(kr service.KeyResultView, titleWidth, barWidth int) string {
	title := padRight(truncate(kr.Title, titleWidth-2), titleWidth-2)
	if kr.IsArchived {
		title = styles.ArchivedStyle.Render(title)
	}

	line := "- " + title + "  " + ProgressBar(kr.Progress, barWidth)
	if kr.Current != nil {
		c := kr.Current.Classification
		line += "  " + classStyle(c).Render(Glyph(c)+" "+label(c))
	}
	return line
}

func userName(users map[string]okr.User, id string) string {
	if u, ok := users[id]; ok && u.Name != "" {
		return u.Name
	}
	return id
}

func padRight(s string, n int) string {
	if w := len([]rune(s)); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
