// Package style holds the brand palette and status icons shared by the
// logger, the linear renderer and the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Ember  = lipgloss.Color("#E8590C")
	Ash    = lipgloss.Color("#6B7280")
	Clay   = lipgloss.Color("#F4EDE4")
	Soot   = lipgloss.Color("#111827")
	Green  = lipgloss.Color("#2F9E44")
	Red    = lipgloss.Color("#E03131")
	Yellow = lipgloss.Color("#F08C00")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Skip    = "-"
	Dot     = "●"
	Circle  = "○"
	Arrow   = "→"
)
