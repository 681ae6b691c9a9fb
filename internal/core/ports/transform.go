package ports

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
)

// Request carries everything a transform needs for one task invocation.
type Request struct {
	Task    *domain.Task
	Profile domain.Profile
	Layout  domain.Layout
	Tools   domain.Tools
	// Inputs are the resolved absolute input files.
	Inputs []string
	Sink   OutputSink
	// Log receives human-readable progress and tool output.
	Log io.Writer
}

// Transform turns a task's inputs into build outputs.
//
//go:generate mockgen -source=transform.go -destination=mocks/mock_transform.go -package=mocks
type Transform interface {
	Apply(ctx context.Context, req *Request) error
}

// TransformRegistry looks up the transform implementing a kind.
type TransformRegistry interface {
	Lookup(kind domain.TransformKind) (Transform, error)
}

// OutputSink writes build outputs atomically below the build root and detects collisions.
type OutputSink interface {
	// WriteFile writes data to rel, a slash-separated path relative to the build root.
	WriteFile(p domain.Producer, rel string, data []byte) error
	// CopyFile copies src to rel.
	CopyFile(p domain.Producer, rel, src string) error
}
