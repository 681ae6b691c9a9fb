package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Profile selects the active task subset and how aggressively transforms optimize.
type Profile string

const (
	// ProfileProduction is the one-shot optimized build.
	ProfileProduction Profile = "production"
	// ProfileDevelopment favors fast rebuilds and adds watch and reload.
	ProfileDevelopment Profile = "development"
)

// ParseProfile parses a profile name. Short forms "prod" and "dev" are accepted.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return ProfileProduction, nil
	case "development", "dev":
		return ProfileDevelopment, nil
	default:
		return "", zerr.With(ErrInvalidProfile, "profile", s)
	}
}

// Minify reports whether transforms should minify their output.
func (p Profile) Minify() bool {
	return p == ProfileProduction
}

// SourceMaps reports whether transforms should emit inline or embedded source maps.
func (p Profile) SourceMaps() bool {
	return p == ProfileDevelopment
}

func (p Profile) String() string {
	return string(p)
}
