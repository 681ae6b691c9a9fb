// Package detector picks the renderer for the current terminal.
package detector

import (
	"os"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeTUI forces the interactive TUI renderer.
	ModeTUI
	// ModeLinear forces prefixed log lines.
	ModeLinear
)

// ErrInvalidOutputMode is returned for an unrecognized --output-mode value.
var ErrInvalidOutputMode = zerr.New("invalid output mode, expected 'auto', 'tui', 'linear' or 'ci'")

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeLinear:
		return "linear"
	default:
		return "auto"
	}
}

// DetectEnvironment returns ModeLinear when stdout is not a terminal or CI is set, ModeTUI otherwise.
func DetectEnvironment() OutputMode {
	return detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv("CI"))
}

func detect(isTTY bool, ci string) OutputMode {
	if !isTTY || ci == "true" || ci == "1" {
		return ModeLinear
	}
	return ModeTUI
}

// ParseMode parses the --output-mode flag. "ci" is an alias for linear.
func ParseMode(flag string) (OutputMode, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "", "auto":
		return ModeAuto, nil
	case "tui":
		return ModeTUI, nil
	case "linear", "ci":
		return ModeLinear, nil
	default:
		return ModeAuto, zerr.With(ErrInvalidOutputMode, "output_mode", flag)
	}
}

// ResolveMode applies a user choice to the detected mode. ModeAuto keeps the detection.
func ResolveMode(autoDetected, requested OutputMode) OutputMode {
	if requested == ModeAuto {
		return autoDetected
	}
	return requested
}
