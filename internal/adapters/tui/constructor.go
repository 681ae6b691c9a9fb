// Package tui provides the interactive terminal interface for kiln builds.
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/ui/output"
)

// NewModel creates a new TUI model with default settings. Colors are chosen
// for w, which defaults to stderr.
func NewModel(w io.Writer) *Model {
	if w == nil {
		w = os.Stderr
	}
	lipgloss.SetColorProfile(output.New(w).Profile)

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = taskRunningStyle

	return &Model{
		Tasks:      make([]*TaskNode, 0),
		TaskMap:    make(map[string]*TaskNode),
		SpanMap:    make(map[string]*TaskNode),
		Viewport:   viewport.New(0, 0),
		Spinner:    s,
		FollowMode: true,
	}
}
