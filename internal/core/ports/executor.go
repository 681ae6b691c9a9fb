// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
)

// Command describes an external process invocation.
type Command struct {
	// Args is the argv; Args[0] is resolved on PATH when it is a bare name.
	Args []string
	// Dir is the working directory.
	Dir string
	// Env holds extra KEY=VALUE pairs on top of the allowlisted host environment.
	Env []string
	// Stdin, when set, is fed to the process.
	Stdin io.Reader
}

// Executor runs the external binaries that back the transforms.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Run executes cmd and streams its combined output to out.
	Run(ctx context.Context, cmd Command, out io.Writer) error
	// Output executes cmd and returns its standard output. Standard error is streamed to stderr.
	Output(ctx context.Context, cmd Command, stderr io.Writer) ([]byte, error)
}
