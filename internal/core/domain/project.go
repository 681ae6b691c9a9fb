package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// CollisionPolicy decides what happens when two sources produce the same output path in one run.
type CollisionPolicy string

const (
	// CollisionError fails the second write with OutputCollisionError.
	CollisionError CollisionPolicy = "error"
	// CollisionOverwrite lets the last writer win.
	CollisionOverwrite CollisionPolicy = "overwrite"
)

// ParseCollisionPolicy parses a collision policy name. The empty string selects CollisionError.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return CollisionError, nil
	case "overwrite":
		return CollisionOverwrite, nil
	default:
		return "", zerr.With(ErrInvalidCollisionPolicy, "collisions", s)
	}
}

// ServerConfig configures the dev server.
type ServerConfig struct {
	Host string
	Port int
}

// Tools names the external encoder binaries. Bare names are looked up on PATH.
type Tools struct {
	Sass   string
	Cwebp  string
	Oxipng string
	Cjpeg  string
}

// DefaultTools returns the conventional binary names.
func DefaultTools() Tools {
	return Tools{Sass: "sass", Cwebp: "cwebp", Oxipng: "oxipng", Cjpeg: "cjpeg"}
}

// Project is a loaded configuration ready to be scheduled.
type Project struct {
	Layout     Layout
	Graph      *Graph
	Watch      []WatchBinding
	Server     ServerConfig
	Tools      Tools
	Collisions CollisionPolicy
	// ConfigPath is empty when the built-in pipeline is used.
	ConfigPath string
}
