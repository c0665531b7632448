package styles

import (
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of semantic colors a theme provides. Period grids map
// MET and EXCEEDED to Success, BELOW to Error and NO_TARGET to Secondary.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme is used when display.theme is unset.
const DefaultTheme = "tokyo-night"

// hex builds a palette from colors in field order.
func hex(primary, secondary, fg, muted, bg, surface, success, warning, danger string) Palette {
	return Palette{
		Primary:    lipgloss.Color(primary),
		Secondary:  lipgloss.Color(secondary),
		Foreground: lipgloss.Color(fg),
		Muted:      lipgloss.Color(muted),
		Background: lipgloss.Color(bg),
		Surface:    lipgloss.Color(surface),
		Success:    lipgloss.Color(success),
		Warning:    lipgloss.Color(warning),
		Error:      lipgloss.Color(danger),
	}
}

var themes = map[string]Palette{
	"tokyo-night": hex("#7aa2f7", "#7dcfff", "#c0caf5", "#565f89", "#1a1b26", "#3b4261", "#9ece6a", "#e0af68", "#f7768e"),
	"gruvbox":     hex("#83a598", "#8ec07c", "#ebdbb2", "#665c54", "#282828", "#3c3836", "#b8bb26", "#fabd2f", "#fb4934"),
	"catppuccin":  hex("#89b4fa", "#94e2d5", "#cdd6f4", "#6c7086", "#1e1e2e", "#313244", "#a6e3a1", "#f9e2af", "#f38ba8"),
	// For light terminal backgrounds.
	"paper": hex("#1f5fbf", "#0f7c8c", "#24292f", "#6e7781", "#ffffff", "#d0d7de", "#1a7f37", "#9a6700", "#cf222e"),
}

// ThemeNames returns the built-in theme names, sorted.
func ThemeNames() []string {
	return slices.Sorted(maps.Keys(themes))
}

// GetPalette looks up a built-in theme.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}
