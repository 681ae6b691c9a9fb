package domain

import (
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// DefaultSettleInterval is how long a watch binding waits for writes to stop before re-running.
const DefaultSettleInterval = 200 * time.Millisecond

// ReloadMode selects what connected browsers do after a bound re-run succeeds.
type ReloadMode string

const (
	// ReloadNone leaves browsers alone.
	ReloadNone ReloadMode = ""
	// ReloadPage reloads the full page.
	ReloadPage ReloadMode = "page"
	// ReloadStyles swaps stylesheets in place.
	ReloadStyles ReloadMode = "css"
)

// WatchBinding maps a source pattern to the tasks re-run when a matching file changes.
// Pattern is a doublestar glob relative to the source root.
type WatchBinding struct {
	Pattern string
	Tasks   []string
	Reload  ReloadMode
}

// Strongest returns the more disruptive of two reload modes.
func (m ReloadMode) Strongest(other ReloadMode) ReloadMode {
	rank := func(r ReloadMode) int {
		switch r {
		case ReloadPage:
			return 2
		case ReloadStyles:
			return 1
		default:
			return 0
		}
	}
	if rank(other) > rank(m) {
		return other
	}
	return m
}

// ParseReloadMode parses a reload mode name. The empty string and "none" select ReloadNone.
func ParseReloadMode(s string) (ReloadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ReloadNone, nil
	case "page", "reload":
		return ReloadPage, nil
	case "css", "styles":
		return ReloadStyles, nil
	default:
		return "", zerr.With(ErrInvalidReloadMode, "reload", s)
	}
}
