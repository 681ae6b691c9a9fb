package transform

import (
	"context"
	"os"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Clean removes the build root and recreates it empty.
type Clean struct{}

// Apply refuses build roots that are the project root or lie outside it.
func (c *Clean) Apply(ctx context.Context, req *ports.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := req.Layout.BuildDir()
	if err := req.Layout.CheckInsideRoot(dir); err != nil {
		return err
	}
	if err := req.Layout.CheckSeparate(); err != nil {
		return err
	}

	logf(req.Log, "removing %s", req.Layout.Build)
	if err := os.RemoveAll(dir); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()), "file", dir)
	}
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()), "file", dir)
	}
	return nil
}
